package components

import (
	"image"
	"testing"

	"pbrt-iile/internal/models"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToolbarRoutesEvents(t *testing.T) {
	test.NewTempApp(t)

	tb := NewToolbar()

	var buffers []models.PreviewBuffer
	var applied []string
	var calls []string

	tb.SetBufferHandler(func(b models.PreviewBuffer) { buffers = append(buffers, b) })
	tb.SetExposureHandlers(
		func(text string) { applied = append(applied, text) },
		func() { calls = append(calls, "auto") },
	)
	tb.SetSaveHandler(func() { calls = append(calls, "save") })
	tb.SetZoomHandlers(
		func() { calls = append(calls, "out") },
		func() { calls = append(calls, "in") },
		func() { calls = append(calls, "reset") },
	)
	tb.SetStopHandler(func() { calls = append(calls, "stop") })

	test.Tap(tb.bufferButtons[models.PreviewIndirect])
	test.Tap(tb.bufferButtons[models.PreviewDirect])
	test.Tap(tb.bufferButtons[models.PreviewCombined])
	assert.Equal(t, []models.PreviewBuffer{models.PreviewIndirect, models.PreviewDirect, models.PreviewCombined}, buffers)

	tb.exposureEntry.SetText("1.5")
	test.Tap(tb.applyButton)
	assert.Equal(t, []string{"1.5"}, applied)

	test.Tap(tb.autoButton)
	test.Tap(tb.saveButton)
	test.Tap(tb.zoomOutButton)
	test.Tap(tb.zoomInButton)
	test.Tap(tb.zoomResetButton)
	tb.SetRendering(true)
	test.Tap(tb.stopButton)

	assert.Equal(t, []string{"auto", "save", "out", "in", "reset", "stop"}, calls)
}

func TestToolbarNilHandlers(t *testing.T) {
	test.NewTempApp(t)

	tb := NewToolbar()
	tb.SetRendering(true)

	assert.NotPanics(t, func() {
		test.Tap(tb.bufferButtons[models.PreviewDirect])
		test.Tap(tb.applyButton)
		test.Tap(tb.autoButton)
		test.Tap(tb.saveButton)
		test.Tap(tb.zoomInButton)
		test.Tap(tb.stopButton)
	})
}

func TestToolbarState(t *testing.T) {
	test.NewTempApp(t)

	tb := NewToolbar()
	assert.Equal(t, "100.00%", tb.ZoomLabel())
	assert.False(t, tb.StopEnabled())

	tb.SetActivePreview(models.PreviewDirect)
	assert.Equal(t, models.PreviewDirect, tb.ActivePreview())
	tb.SetActivePreview(models.PreviewCombined)
	assert.Equal(t, models.PreviewCombined, tb.ActivePreview())

	tb.SetExposure(models.ExposureSettings{Auto: false, Value: -2.5})
	assert.Equal(t, "-2.5", tb.ExposureText())
	assert.Equal(t, "manual", tb.ExposureMode())

	tb.SetExposure(models.ExposureSettings{Auto: true})
	assert.Equal(t, "-2.5", tb.ExposureText(), "entry keeps the last manual value")
	assert.Equal(t, "auto", tb.ExposureMode())

	tb.SetZoomPercentage("85.00")
	assert.Equal(t, "85.00%", tb.ZoomLabel())

	tb.SetRendering(true)
	assert.True(t, tb.StopEnabled())
	tb.SetRendering(false)
	assert.False(t, tb.StopEnabled())
}

func TestImageDisplay(t *testing.T) {
	test.NewTempApp(t)

	display := NewImageDisplay()
	require.False(t, display.HasImage())
	w, h := display.ImageSize()
	assert.Zero(t, w)
	assert.Zero(t, h)

	display.SetImage(image.NewNRGBA(image.Rect(0, 0, 64, 48)))
	require.True(t, display.HasImage())
	w, h = display.ImageSize()
	assert.Equal(t, 64, w)
	assert.Equal(t, 48, h)

	display.SetImage(nil)
	assert.False(t, display.HasImage())
}

func TestImageDisplayZoomKeepsPixels(t *testing.T) {
	test.NewTempApp(t)

	display := NewImageDisplay()
	src := image.NewNRGBA(image.Rect(0, 0, 64, 48))
	display.SetImage(src)
	assert.Equal(t, fyne.NewSize(64, 48), display.DisplaySize())

	display.SetScale(200)
	assert.Equal(t, 200.0, display.Scale())
	assert.Equal(t, fyne.NewSize(12800, 9600), display.DisplaySize())
	w, h := display.ImageSize()
	assert.Equal(t, 64, w)
	assert.Equal(t, 48, h)
	assert.Same(t, src, display.image.Image)

	display.SetScale(0)
	assert.Equal(t, 200.0, display.Scale(), "non-positive scales are ignored")

	// A new preview keeps the current zoom
	display.SetImage(image.NewNRGBA(image.Rect(0, 0, 10, 5)))
	assert.Equal(t, fyne.NewSize(2000, 1000), display.DisplaySize())
}

func TestStatusBar(t *testing.T) {
	test.NewTempApp(t)

	sb := NewStatusBar()
	assert.Equal(t, "Ready", sb.GetStatus())

	sb.SetStatus("Rendering...")
	sb.SetBuffer("Indirect")
	assert.Equal(t, "Rendering...", sb.GetStatus())
	assert.Equal(t, "Buffer: Indirect", sb.GetBuffer())

	sb.SetExposure(false, 1.25)
	assert.Equal(t, "Exposure: +1.25 EV", sb.GetExposure())
	sb.SetExposure(true, 1.25)
	assert.Equal(t, "Exposure: auto", sb.GetExposure())
}

func TestProgressPanelClamps(t *testing.T) {
	test.NewTempApp(t)

	pp := NewProgressPanel()
	pp.SetProgress(42, 7.5)
	direct, indirect := pp.Progress()
	assert.Equal(t, 42.0, direct)
	assert.Equal(t, 7.5, indirect)

	pp.SetProgress(150, -3)
	direct, indirect = pp.Progress()
	assert.Equal(t, 100.0, direct)
	assert.Equal(t, 0.0, indirect)
}
