package components

import (
	"strconv"
	"strings"

	"pbrt-iile/internal/models"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
)

// Toolbar holds the preview, exposure, zoom and render controls
type Toolbar struct {
	container *fyne.Container

	bufferButtons map[models.PreviewBuffer]*widget.Button

	exposureEntry   *widget.Entry
	applyButton     *widget.Button
	autoButton      *widget.Button
	exposureMode    *widget.Label
	saveButton      *widget.Button
	zoomOutButton   *widget.Button
	zoomInButton    *widget.Button
	zoomResetButton *widget.Button
	zoomLabel       *widget.Label
	stopButton      *widget.Button

	// Event handlers
	bufferHandler    func(models.PreviewBuffer)
	applyHandler     func(string)
	autoHandler      func()
	saveHandler      func()
	zoomOutHandler   func()
	zoomInHandler    func()
	zoomResetHandler func()
	stopHandler      func()
}

// NewToolbar creates a new toolbar component
func NewToolbar() *Toolbar {
	t := &Toolbar{
		bufferButtons: make(map[models.PreviewBuffer]*widget.Button, len(models.PreviewBuffers)),
	}
	t.createComponents()
	t.buildLayout()
	return t
}

func (t *Toolbar) createComponents() {
	for _, buffer := range models.PreviewBuffers {
		b := buffer
		t.bufferButtons[b] = widget.NewButton(b.Label(), func() {
			if t.bufferHandler != nil {
				t.bufferHandler(b)
			}
		})
	}

	t.exposureEntry = widget.NewEntry()
	t.exposureEntry.SetPlaceHolder("Exposure (EV)")
	t.exposureEntry.OnSubmitted = func(text string) {
		t.apply(text)
	}
	t.applyButton = widget.NewButton("Apply", func() {
		t.apply(t.exposureEntry.Text)
	})
	t.autoButton = widget.NewButton("Auto", func() {
		if t.autoHandler != nil {
			t.autoHandler()
		}
	})
	t.exposureMode = widget.NewLabel("auto")

	t.saveButton = widget.NewButtonWithIcon("Save As...", theme.DocumentSaveIcon(), func() {
		if t.saveHandler != nil {
			t.saveHandler()
		}
	})

	t.zoomOutButton = widget.NewButtonWithIcon("", theme.ZoomOutIcon(), func() {
		if t.zoomOutHandler != nil {
			t.zoomOutHandler()
		}
	})
	t.zoomInButton = widget.NewButtonWithIcon("", theme.ZoomInIcon(), func() {
		if t.zoomInHandler != nil {
			t.zoomInHandler()
		}
	})
	t.zoomResetButton = widget.NewButton("100%", func() {
		if t.zoomResetHandler != nil {
			t.zoomResetHandler()
		}
	})
	t.zoomLabel = widget.NewLabel(models.FormatZoomPercentage(models.DefaultZoomScale) + "%")

	t.stopButton = widget.NewButtonWithIcon("Stop render", theme.MediaStopIcon(), func() {
		if t.stopHandler != nil {
			t.stopHandler()
		}
	})
	t.stopButton.Importance = widget.DangerImportance
	t.stopButton.Disable()
}

func (t *Toolbar) buildLayout() {
	buffers := container.NewHBox()
	for _, buffer := range models.PreviewBuffers {
		buffers.Add(t.bufferButtons[buffer])
	}

	exposureEntry := container.NewGridWrap(fyne.NewSize(110, t.exposureEntry.MinSize().Height), t.exposureEntry)

	t.container = container.NewHBox(
		buffers,
		widget.NewSeparator(),
		exposureEntry,
		t.applyButton,
		t.autoButton,
		t.exposureMode,
		widget.NewSeparator(),
		t.saveButton,
		widget.NewSeparator(),
		t.zoomOutButton,
		t.zoomInButton,
		t.zoomResetButton,
		t.zoomLabel,
		widget.NewSeparator(),
		t.stopButton,
	)
}

func (t *Toolbar) apply(text string) {
	if t.applyHandler != nil {
		t.applyHandler(text)
	}
}

// Event handler setters

func (t *Toolbar) SetBufferHandler(handler func(models.PreviewBuffer)) {
	t.bufferHandler = handler
}

func (t *Toolbar) SetExposureHandlers(apply func(string), auto func()) {
	t.applyHandler = apply
	t.autoHandler = auto
}

func (t *Toolbar) SetSaveHandler(handler func()) {
	t.saveHandler = handler
}

func (t *Toolbar) SetZoomHandlers(out, in, reset func()) {
	t.zoomOutHandler = out
	t.zoomInHandler = in
	t.zoomResetHandler = reset
}

func (t *Toolbar) SetStopHandler(handler func()) {
	t.stopHandler = handler
}

// State updates. Callers are expected to be on the fyne thread.

// SetActivePreview highlights the button of the active buffer
func (t *Toolbar) SetActivePreview(active models.PreviewBuffer) {
	for buffer, button := range t.bufferButtons {
		if buffer == active {
			button.Importance = widget.HighImportance
		} else {
			button.Importance = widget.MediumImportance
		}
		button.Refresh()
	}
}

// SetExposure mirrors the exposure mode in the entry and mode label
func (t *Toolbar) SetExposure(settings models.ExposureSettings) {
	if settings.Auto {
		t.exposureMode.SetText("auto")
		return
	}
	t.exposureEntry.SetText(strconv.FormatFloat(settings.Value, 'g', -1, 64))
	t.exposureMode.SetText("manual")
}

func (t *Toolbar) SetZoomPercentage(percentage string) {
	t.zoomLabel.SetText(percentage + "%")
}

// SetRendering enables the stop button while the renderer runs
func (t *Toolbar) SetRendering(running bool) {
	if running {
		t.stopButton.Enable()
	} else {
		t.stopButton.Disable()
	}
}

// Programmatic activation, used by keyboard shortcuts. Disabled
// controls stay inert.

// Trigger activates the button of the given buffer
func (t *Toolbar) Trigger(buffer models.PreviewBuffer) {
	if button, ok := t.bufferButtons[buffer]; ok {
		tap(button)
	}
}

// StepExposure adds delta stops to the value in the exposure entry and
// applies the result. An empty or unparsable entry counts as 0 EV.
func (t *Toolbar) StepExposure(delta float64) {
	value, err := strconv.ParseFloat(strings.TrimSpace(t.exposureEntry.Text), 64)
	if err != nil {
		value = 0
	}
	t.submitExposure(strconv.FormatFloat(value+delta, 'g', -1, 64))
}

func (t *Toolbar) submitExposure(text string) {
	t.exposureEntry.SetText(text)
	tap(t.applyButton)
}

func (t *Toolbar) TriggerAuto() {
	tap(t.autoButton)
}

func (t *Toolbar) TriggerSave() {
	tap(t.saveButton)
}

// TriggerZoom zooms out for a negative direction, in for a positive one
// and back to 100% for zero
func (t *Toolbar) TriggerZoom(direction int) {
	switch {
	case direction < 0:
		tap(t.zoomOutButton)
	case direction > 0:
		tap(t.zoomInButton)
	default:
		tap(t.zoomResetButton)
	}
}

func (t *Toolbar) TriggerStop() {
	tap(t.stopButton)
}

func tap(button *widget.Button) {
	if button.Disabled() || button.OnTapped == nil {
		return
	}
	button.OnTapped()
}

func (t *Toolbar) ZoomLabel() string {
	return t.zoomLabel.Text
}

func (t *Toolbar) ExposureText() string {
	return t.exposureEntry.Text
}

func (t *Toolbar) ExposureMode() string {
	return t.exposureMode.Text
}

func (t *Toolbar) ActivePreview() models.PreviewBuffer {
	for buffer, button := range t.bufferButtons {
		if button.Importance == widget.HighImportance {
			return buffer
		}
	}
	return ""
}

func (t *Toolbar) StopEnabled() bool {
	return !t.stopButton.Disabled()
}

func (t *Toolbar) GetContainer() *fyne.Container {
	return t.container
}
