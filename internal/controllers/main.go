package controllers

import (
	"context"
	"errors"
	"fmt"
	"image"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"pbrt-iile/internal/logger"
	"pbrt-iile/internal/models"
	"pbrt-iile/internal/renderer"
	"pbrt-iile/internal/services"
	"pbrt-iile/internal/tonemap"
	"pbrt-iile/internal/views"

	"fyne.io/fyne/v2"
)

const (
	AppTitle        = "pbrt v3 IILE"
	SaveDialogTitle = "Save Image As PNG"
)

// View is the part of the main window the controller drives
type View interface {
	Bind(handlers views.Handlers)
	SetTitle(title string)
	SetActivePreview(buffer models.PreviewBuffer)
	SetPreviewImage(img image.Image)
	SetZoom(scale float64, percentage string)
	SetProgress(direct, indirect float64)
	SetExposure(settings models.ExposureSettings)
	SetRendering(running bool)
	UpdateStatus(status string)
	ShowError(title string, err error)
	ShowSaveDialog(title string, callback func(fyne.URIWriteCloser, error))
}

// Renderer starts and stops the external render job
type Renderer interface {
	Start(ctx context.Context, cb renderer.Callbacks) error
	Stop() error
	Running() bool
}

// Scheduler runs f once after d and returns a function cancelling it
type Scheduler func(d time.Duration, f func()) (stop func() bool)

// Options carries the timing and file layout settings
type Options struct {
	ControlDir         string
	Gamma              float64
	AutoupdateInterval time.Duration
	FinishGrace        time.Duration
	Scheduler          Scheduler
}

// MainController wires the preview window to the renderer and tonemapper
type MainController struct {
	state        *models.ViewState
	tonemapper   tonemap.Tonemapper
	imageService *services.ImageService
	renderer     Renderer
	logger       logger.Logger
	opts         Options

	mainView View

	mu          sync.Mutex
	ctx         context.Context
	cancel      context.CancelFunc
	timers      map[uint64]func() bool
	nextTimerID uint64
	shutdown    bool
}

// NewMainController creates a new main controller
func NewMainController(
	state *models.ViewState,
	tonemapper tonemap.Tonemapper,
	imageService *services.ImageService,
	rend Renderer,
	log logger.Logger,
	opts Options,
) *MainController {
	if opts.Scheduler == nil {
		opts.Scheduler = func(d time.Duration, f func()) func() bool {
			return time.AfterFunc(d, f).Stop
		}
	}
	if opts.Gamma <= 0 {
		opts.Gamma = tonemap.DefaultGamma
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &MainController{
		state:        state,
		tonemapper:   tonemapper,
		imageService: imageService,
		renderer:     rend,
		logger:       log,
		opts:         opts,
		ctx:          ctx,
		cancel:       cancel,
		timers:       make(map[uint64]func() bool),
	}
}

// SetMainView associates the main view with this controller
func (mc *MainController) SetMainView(view View) {
	mc.mainView = view
	mc.setupViewEventHandlers()
}

// setupViewEventHandlers connects view events to controller methods
func (mc *MainController) setupViewEventHandlers() {
	mc.mainView.Bind(views.Handlers{
		ShowCombined:  mc.ShowCombined,
		ShowIndirect:  mc.ShowIndirect,
		ShowDirect:    mc.ShowDirect,
		ApplyExposure: mc.ApplyExposureText,
		AutoExpose:    mc.AutoExpose,
		SaveAs:        mc.SaveAs,
		ZoomOut:       mc.ZoomOut,
		ZoomIn:        mc.ZoomIn,
		Zoom100:       mc.Zoom100,
		StopRender:    mc.StopRender,
	})
}

// State exposes the view model, mainly for tests and diagnostics
func (mc *MainController) State() *models.ViewState {
	return mc.state
}

// Preview buffers

func (mc *MainController) ShowCombined() {
	mc.showBuffer(models.PreviewCombined)
}

func (mc *MainController) ShowIndirect() {
	mc.showBuffer(models.PreviewIndirect)
}

func (mc *MainController) ShowDirect() {
	mc.showBuffer(models.PreviewDirect)
}

func (mc *MainController) showBuffer(buffer models.PreviewBuffer) {
	mc.state.SetActivePreview(buffer)
	mc.mainView.SetActivePreview(buffer)
	mc.ReloadImage(nil)
}

// ReloadImage tonemaps the active buffer and swaps the displayed image.
// Only one reload runs at a time; a call made while another is in flight
// just invokes done. done is always invoked once the attempt is over.
func (mc *MainController) ReloadImage(done func()) {
	if !mc.state.TryBeginReload() {
		if done != nil {
			done()
		}
		return
	}

	buffer := mc.state.ActivePreview()
	job := tonemap.Job{
		Source:      mc.controlFile(buffer.FloatFile()),
		Destination: mc.controlFile(buffer.ImageFile()),
		Exposure:    mc.state.Exposure(),
		Gamma:       mc.opts.Gamma,
	}

	mc.logger.Debug("MainController", "reloading image", map[string]interface{}{
		"buffer": string(buffer),
		"auto":   job.Exposure == nil,
	})

	go func() {
		defer func() {
			mc.state.EndReload()
			if done != nil {
				done()
			}
		}()

		result, err := mc.tonemapper.Tonemap(mc.context(), job)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			mc.logger.Warning("MainController", "tonemap failed", map[string]interface{}{
				"buffer": string(buffer),
				"error":  err.Error(),
			})
			mc.mainView.UpdateStatus(fmt.Sprintf("%s preview not available yet", buffer.Label()))
			return
		}

		preview, err := mc.imageService.LoadPreview(result.Destination)
		if err != nil {
			mc.logger.Error("MainController", err, map[string]interface{}{
				"buffer": string(buffer),
			})
			mc.mainView.UpdateStatus("Failed to load preview image")
			return
		}

		mc.presentPreview(preview)
		mc.mainView.UpdateStatus(fmt.Sprintf("%s %dx%d, exposure %s, updated %s",
			buffer.Label(), preview.Width, preview.Height, formatExposure(result),
			preview.LoadTime.Format(time.TimeOnly)))
	}()
}

// presentPreview hands the native preview to the view. The view applies
// the zoom factor at layout time.
func (mc *MainController) presentPreview(preview *services.PreviewImage) {
	if preview == nil {
		return
	}
	mc.mainView.SetPreviewImage(preview.Image)
}

// Exposure

// ApplyExposureText parses the exposure entry and applies it
func (mc *MainController) ApplyExposureText(text string) {
	value, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil {
		mc.handleError("Invalid exposure", fmt.Errorf("exposure %q is not a number", text))
		return
	}
	mc.ApplyExposure(value)
}

// ApplyExposure switches to a manual exposure value and refreshes
func (mc *MainController) ApplyExposure(value float64) {
	mc.logger.Info("MainController", "updating exposure control", map[string]interface{}{
		"exposure": value,
	})
	mc.state.SetExposureManual(value)
	mc.mainView.SetExposure(mc.state.Snapshot().Exposure)
	mc.RunAutoupdate()
}

// AutoExpose switches back to automatic exposure and refreshes
func (mc *MainController) AutoExpose() {
	mc.logger.Info("MainController", "enable autoexposure", nil)
	mc.state.SetExposureAuto()
	mc.mainView.SetExposure(mc.state.Snapshot().Exposure)
	mc.RunAutoupdate()
}

// Save

// SaveAs asks for a destination and copies the active preview PNG there
func (mc *MainController) SaveAs() {
	buffer := mc.state.ActivePreview()
	src := mc.controlFile(buffer.ImageFile())

	mc.mainView.ShowSaveDialog(SaveDialogTitle, func(writer fyne.URIWriteCloser, err error) {
		if err != nil {
			mc.handleError("Save failed", err)
			return
		}
		if writer == nil {
			return
		}

		mc.logger.Info("MainController", "save as", map[string]interface{}{
			"source":      src,
			"destination": writer.URI().String(),
		})

		err = mc.imageService.Export(mc.context(), src, writer, writer.URI().Extension())
		// Close flushes the destination, so its error counts as a failed save
		if closeErr := writer.Close(); err == nil && closeErr != nil {
			err = fmt.Errorf("failed to finish writing %s: %w", writer.URI().Name(), closeErr)
		}
		if err != nil {
			mc.handleError("Save failed", err)
			mc.mainView.UpdateStatus("Save failed")
			return
		}
		mc.mainView.UpdateStatus("Saved " + writer.URI().Name())
	})
}

// Autoupdate loop

// RunAutoupdate reloads the preview and, while autoupdate stays enabled,
// schedules the next run after the autoupdate interval. Calls made while a
// cycle is in flight are ignored.
func (mc *MainController) RunAutoupdate() {
	if !mc.state.TryBeginAutoupdate() {
		return
	}

	mc.logger.Debug("MainController", "autoupdate", nil)

	mc.ReloadImage(func() {
		if mc.state.EndAutoupdate() {
			mc.after(mc.opts.AutoupdateInterval, mc.RunAutoupdate)
		}
	})
}

// OnBufferChanged refreshes early when the renderer rewrote the active buffer
func (mc *MainController) OnBufferChanged(buffer models.PreviewBuffer) {
	if buffer != mc.state.ActivePreview() {
		return
	}
	mc.ReloadImage(nil)
}

// Zoom

func (mc *MainController) ZoomOut() {
	mc.applyZoom(mc.state.ZoomOut())
}

func (mc *MainController) ZoomIn() {
	mc.applyZoom(mc.state.ZoomIn())
}

func (mc *MainController) Zoom100() {
	mc.applyZoom(mc.state.ZoomReset())
}

func (mc *MainController) applyZoom(scale float64) {
	mc.mainView.SetZoom(scale, models.FormatZoomPercentage(scale))
}

// Renderer lifecycle

// Start performs the startup actions, begins the autoupdate loop and
// launches the renderer
func (mc *MainController) Start(ctx context.Context) error {
	mc.mu.Lock()
	mc.cancel()
	mc.ctx, mc.cancel = context.WithCancel(ctx)
	mc.mu.Unlock()

	mc.performStartupActions()
	mc.RunAutoupdate()

	if mc.renderer == nil {
		mc.mainView.UpdateStatus("Renderer not started")
		return nil
	}

	err := mc.renderer.Start(mc.context(), renderer.Callbacks{
		OnExit:             mc.onRendererExit,
		OnRenderFinish:     mc.onRenderFinish,
		OnIndirectProgress: mc.onIndirectProgress,
		OnDirectProgress:   mc.onDirectProgress,
	})
	if err != nil {
		mc.handleError("Renderer failed to start", err)
		mc.mainView.UpdateStatus("Renderer failed to start")
		return err
	}

	mc.mainView.SetRendering(true)
	mc.mainView.UpdateStatus("Rendering...")
	return nil
}

// performStartupActions pushes the initial view state to the window
func (mc *MainController) performStartupActions() {
	snap := mc.state.Snapshot()

	mc.mainView.SetTitle(AppTitle)
	mc.mainView.SetActivePreview(snap.ActivePreview)
	mc.mainView.SetExposure(snap.Exposure)
	mc.mainView.SetZoom(snap.ZoomScale, models.FormatZoomPercentage(snap.ZoomScale))
	mc.mainView.SetProgress(snap.Progress.Direct, snap.Progress.Indirect)
}

// StopRender terminates the renderer without closing the window
func (mc *MainController) StopRender() {
	if mc.renderer == nil || !mc.renderer.Running() {
		mc.mainView.UpdateStatus("Renderer is not running")
		return
	}

	mc.mainView.UpdateStatus("Stopping renderer...")
	go func() {
		if err := mc.renderer.Stop(); err != nil && !errors.Is(err, renderer.ErrNotRunning) {
			mc.handleError("Failed to stop renderer", err)
		}
	}()
}

func (mc *MainController) onRendererExit(code int, signal string) {
	mc.logger.Info("MainController", "renderer exited", map[string]interface{}{
		"code":   code,
		"signal": signal,
	})
	if mc.isShutdown() {
		return
	}

	mc.mainView.SetRendering(false)

	progress := mc.state.Progress()
	switch {
	case signal != "":
		mc.mainView.UpdateStatus(fmt.Sprintf("Renderer stopped (%s)", signal))
	case code != 0 && !progress.Finish:
		mc.logger.Warning("MainController", "renderer exited before finishing", map[string]interface{}{
			"code": code,
		})
		mc.mainView.UpdateStatus(fmt.Sprintf("Renderer exited with code %d", code))
	default:
		mc.mainView.UpdateStatus("Renderer exited")
	}
}

func (mc *MainController) onRenderFinish() {
	mc.state.FinishRender()
	if mc.isShutdown() {
		return
	}

	progress := mc.state.Progress()
	mc.mainView.SetProgress(progress.Direct, progress.Indirect)
	mc.mainView.UpdateStatus("Render finished")

	// Keep refreshing for a grace period so the final buffers get picked up
	mc.after(mc.opts.FinishGrace, func() {
		mc.logger.Info("MainController", "render finished, disabling autoupdate", nil)
		mc.state.SetAutoupdateEnabled(false)
	})
}

func (mc *MainController) onIndirectProgress(progress float64) {
	if mc.state.UpdateIndirectProgress(progress) && !mc.isShutdown() {
		p := mc.state.Progress()
		mc.mainView.SetProgress(p.Direct, p.Indirect)
	}
}

func (mc *MainController) onDirectProgress(progress float64) {
	if mc.state.UpdateDirectProgress(progress) && !mc.isShutdown() {
		p := mc.state.Progress()
		mc.mainView.SetProgress(p.Direct, p.Indirect)
	}
}

// Helpers

func (mc *MainController) controlFile(name string) string {
	return filepath.Join(mc.opts.ControlDir, name)
}

func (mc *MainController) context() context.Context {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	return mc.ctx
}

func (mc *MainController) isShutdown() bool {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	return mc.shutdown
}

// after schedules f unless the controller is shutting down
func (mc *MainController) after(d time.Duration, f func()) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	if mc.shutdown {
		return
	}

	id := mc.nextTimerID
	mc.nextTimerID++
	mc.timers[id] = mc.opts.Scheduler(d, func() {
		mc.mu.Lock()
		delete(mc.timers, id)
		stopped := mc.shutdown
		mc.mu.Unlock()

		if !stopped {
			f()
		}
	})
}

// handleError handles application errors with consistent UI feedback
func (mc *MainController) handleError(title string, err error) {
	mc.logger.Error("MainController", err, map[string]interface{}{
		"title": title,
	})
	mc.mainView.ShowError(title, err)
}

func formatExposure(result tonemap.Result) string {
	if result.Auto {
		return fmt.Sprintf("auto (%+.2f)", result.Exposure)
	}
	return fmt.Sprintf("%+.2f", result.Exposure)
}

// Shutdown stops pending timers and cancels in-flight tonemap jobs
func (mc *MainController) Shutdown() {
	mc.mu.Lock()
	mc.shutdown = true
	for id, stop := range mc.timers {
		stop()
		delete(mc.timers, id)
	}
	cancel := mc.cancel
	mc.mu.Unlock()

	cancel()
	mc.logger.Info("MainController", "controller shut down", nil)
}
