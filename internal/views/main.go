package views

import (
	"image"

	"pbrt-iile/internal/models"
	"pbrt-iile/internal/views/components"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
)

// DefaultSaveFileName is offered in the save dialog
const DefaultSaveFileName = "render.png"

// Handlers are the controller callbacks behind the window controls
type Handlers struct {
	ShowCombined  func()
	ShowIndirect  func()
	ShowDirect    func()
	ApplyExposure func(text string)
	AutoExpose    func()
	SaveAs        func()
	ZoomOut       func()
	ZoomIn        func()
	Zoom100       func()
	StopRender    func()
}

// MainView is the preview window: toolbar, progress bars, image and status bar
type MainView struct {
	window        fyne.Window
	mainContainer *fyne.Container
	toolbar       *components.Toolbar
	progress      *components.ProgressPanel
	imageDisplay  *components.ImageDisplay
	statusBar     *components.StatusBar

	handlers Handlers
}

// NewMainView creates the main view and installs it as the window content
func NewMainView(window fyne.Window) *MainView {
	view := &MainView{
		window: window,
	}

	view.initializeComponents()
	view.buildLayout()
	view.setupEventHandlers()

	return view
}

func (mv *MainView) initializeComponents() {
	mv.toolbar = components.NewToolbar()
	mv.progress = components.NewProgressPanel()
	mv.imageDisplay = components.NewImageDisplay()
	mv.statusBar = components.NewStatusBar()
}

func (mv *MainView) buildLayout() {
	topArea := container.NewVBox(
		mv.toolbar.GetContainer(),
		mv.progress.GetContainer(),
	)

	mv.mainContainer = container.NewBorder(
		topArea,
		mv.statusBar.GetContainer(),
		nil,
		nil,
		mv.imageDisplay.GetContainer(),
	)

	mv.window.SetContent(mv.mainContainer)
}

// setupEventHandlers routes component events to whatever handlers are bound
func (mv *MainView) setupEventHandlers() {
	mv.toolbar.SetBufferHandler(func(buffer models.PreviewBuffer) {
		switch buffer {
		case models.PreviewCombined:
			call(mv.handlers.ShowCombined)
		case models.PreviewIndirect:
			call(mv.handlers.ShowIndirect)
		case models.PreviewDirect:
			call(mv.handlers.ShowDirect)
		}
	})

	mv.toolbar.SetExposureHandlers(
		func(text string) {
			if mv.handlers.ApplyExposure != nil {
				mv.handlers.ApplyExposure(text)
			}
		},
		func() { call(mv.handlers.AutoExpose) },
	)

	mv.toolbar.SetSaveHandler(func() { call(mv.handlers.SaveAs) })

	mv.toolbar.SetZoomHandlers(
		func() { call(mv.handlers.ZoomOut) },
		func() { call(mv.handlers.ZoomIn) },
		func() { call(mv.handlers.Zoom100) },
	)

	mv.toolbar.SetStopHandler(func() { call(mv.handlers.StopRender) })

	mv.window.Canvas().SetOnTypedRune(mv.handleRune)
	mv.window.Canvas().SetOnTypedKey(mv.handleKey)
}

// ExposureStep is the EV change of the [ and ] keys
const ExposureStep = 0.5

// handleRune maps unfocused key presses to toolbar actions:
// 1-3 select the buffer, + - 0 control the zoom, [ ] step the exposure,
// a switches to auto exposure and s saves.
func (mv *MainView) handleRune(r rune) {
	switch r {
	case '[':
		mv.toolbar.StepExposure(-ExposureStep)
	case ']':
		mv.toolbar.StepExposure(ExposureStep)
	case 'a':
		mv.toolbar.TriggerAuto()
	case 's':
		mv.toolbar.TriggerSave()
	case '1':
		mv.toolbar.Trigger(models.PreviewCombined)
	case '2':
		mv.toolbar.Trigger(models.PreviewIndirect)
	case '3':
		mv.toolbar.Trigger(models.PreviewDirect)
	case '+', '=':
		mv.toolbar.TriggerZoom(1)
	case '-':
		mv.toolbar.TriggerZoom(-1)
	case '0':
		mv.toolbar.TriggerZoom(0)
	}
}

// handleKey stops the render on Escape
func (mv *MainView) handleKey(ev *fyne.KeyEvent) {
	if ev.Name == fyne.KeyEscape {
		mv.toolbar.TriggerStop()
	}
}

func call(f func()) {
	if f != nil {
		f()
	}
}

// Bind installs the controller callbacks
func (mv *MainView) Bind(handlers Handlers) {
	mv.handlers = handlers
}

// UI update methods - safe to call from any goroutine

func (mv *MainView) SetTitle(title string) {
	fyne.Do(func() {
		mv.window.SetTitle(title)
	})
}

func (mv *MainView) SetActivePreview(buffer models.PreviewBuffer) {
	fyne.Do(func() {
		mv.toolbar.SetActivePreview(buffer)
		mv.statusBar.SetBuffer(buffer.Label())
	})
}

func (mv *MainView) SetPreviewImage(img image.Image) {
	fyne.Do(func() {
		mv.imageDisplay.SetImage(img)
	})
}

func (mv *MainView) SetZoom(scale float64, percentage string) {
	fyne.Do(func() {
		mv.toolbar.SetZoomPercentage(percentage)
		mv.imageDisplay.SetScale(scale)
	})
}

// SetProgress updates both progress bars, values in percent
func (mv *MainView) SetProgress(direct, indirect float64) {
	fyne.Do(func() {
		mv.progress.SetProgress(direct, indirect)
	})
}

func (mv *MainView) SetExposure(settings models.ExposureSettings) {
	fyne.Do(func() {
		mv.toolbar.SetExposure(settings)
		mv.statusBar.SetExposure(settings.Auto, settings.Value)
	})
}

func (mv *MainView) SetRendering(running bool) {
	fyne.Do(func() {
		mv.toolbar.SetRendering(running)
	})
}

func (mv *MainView) UpdateStatus(status string) {
	fyne.Do(func() {
		mv.statusBar.SetStatus(status)
	})
}

// ShowError displays an error dialog
func (mv *MainView) ShowError(title string, err error) {
	fyne.Do(func() {
		mv.statusBar.SetStatus(title)
		dialog.ShowError(err, mv.window)
	})
}

// ShowSaveDialog asks for a PNG destination
func (mv *MainView) ShowSaveDialog(title string, callback func(fyne.URIWriteCloser, error)) {
	fyne.Do(func() {
		save := dialog.NewFileSave(callback, mv.window)
		save.SetFilter(storage.NewExtensionFileFilter([]string{".png"}))
		save.SetFileName(DefaultSaveFileName)
		save.Resize(fyne.NewSize(720, 520))
		save.Show()
		mv.statusBar.SetStatus(title)
	})
}

func (mv *MainView) GetWindow() fyne.Window {
	return mv.window
}

func (mv *MainView) GetContainer() *fyne.Container {
	return mv.mainContainer
}

func (mv *MainView) GetToolbar() *components.Toolbar {
	return mv.toolbar
}

func (mv *MainView) GetProgressPanel() *components.ProgressPanel {
	return mv.progress
}

func (mv *MainView) GetImageDisplay() *components.ImageDisplay {
	return mv.imageDisplay
}

func (mv *MainView) GetStatusBar() *components.StatusBar {
	return mv.statusBar
}
