package main

import (
	"fmt"
	"os"
	"runtime"

	"pbrt-iile/internal/config"
	"pbrt-iile/internal/controllers"
	"pbrt-iile/internal/logger"
	"pbrt-iile/internal/models"
	"pbrt-iile/internal/renderer"
	"pbrt-iile/internal/services"
	"pbrt-iile/internal/shutdown"
	"pbrt-iile/internal/tonemap"
	"pbrt-iile/internal/views"
	"pbrt-iile/internal/watcher"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/dialog"
)

// Application owns the window and every long lived component
type Application struct {
	fyneApp fyne.App
	window  fyne.Window
	logger  logger.Logger
	config  *config.Config

	controller *controllers.MainController
	view       *views.MainView
	supervisor *renderer.Supervisor
	watcher    *watcher.Watcher

	shutdown *shutdown.Manager
}

// NewApplication builds the window and wires the components together
func NewApplication(cfg *config.Config) (*Application, error) {
	appLogger := logger.NewConsoleLogger(logger.ParseLevel(cfg.Log.Level))

	appLogger.Info("Application", "starting", map[string]interface{}{
		"version":     AppVersion,
		"go_version":  runtime.Version(),
		"control_dir": cfg.Renderer.ControlDir,
		"scene":       cfg.Renderer.Scene,
		"engine":      cfg.Tonemap.Engine,
	})

	if err := os.MkdirAll(cfg.Renderer.ControlDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create control directory: %w", err)
	}

	tonemapper, err := newTonemapper(cfg, appLogger)
	if err != nil {
		return nil, err
	}

	fyneApp := app.NewWithID(AppID)
	fyneApp.SetMetadata(&fyne.AppMetadata{
		ID:      AppID,
		Name:    AppName,
		Version: AppVersion,
	})

	window := fyneApp.NewWindow(AppName)
	window.Resize(fyne.NewSize(1100, 800))
	window.CenterOnScreen()

	var rend controllers.Renderer
	var supervisor *renderer.Supervisor
	if cfg.Renderer.Autostart {
		supervisor = renderer.NewSupervisor(renderer.Options{
			Binary:    cfg.Renderer.Binary,
			Scene:     cfg.Renderer.Scene,
			ExtraArgs: cfg.Renderer.Args,
			Dir:       cfg.Renderer.ControlDir,
		}, appLogger)
		rend = supervisor
	}

	initialBuffer, err := cfg.InitialBuffer()
	if err != nil {
		return nil, err
	}
	state := models.NewViewState()
	state.SetActivePreview(initialBuffer)

	mainController := controllers.NewMainController(
		state,
		tonemapper,
		services.NewImageService(appLogger),
		rend,
		appLogger,
		controllers.Options{
			ControlDir:         cfg.Renderer.ControlDir,
			Gamma:              cfg.Tonemap.Gamma,
			AutoupdateInterval: cfg.Preview.AutoupdateInterval.Duration,
			FinishGrace:        cfg.Preview.FinishGrace.Duration,
		},
	)
	mainView := views.NewMainView(window)
	mainController.SetMainView(mainView)

	application := &Application{
		fyneApp:    fyneApp,
		window:     window,
		logger:     appLogger,
		config:     cfg,
		controller: mainController,
		view:       mainView,
		supervisor: supervisor,
		shutdown:   shutdown.NewManager(appLogger),
	}

	if cfg.Preview.Watch {
		w, err := watcher.New(cfg.Renderer.ControlDir, cfg.Preview.WatchDebounce.Duration, mainController.OnBufferChanged, appLogger)
		if err != nil {
			// The timer loop still refreshes the preview without the watcher
			appLogger.Warning("Application", "control directory watcher unavailable", map[string]interface{}{
				"error": err.Error(),
			})
		} else {
			application.watcher = w
		}
	}

	application.registerComponents()
	application.setupWindowEvents()

	return application, nil
}

func newTonemapper(cfg *config.Config, log logger.Logger) (tonemap.Tonemapper, error) {
	switch cfg.Tonemap.Engine {
	case config.EngineCommand:
		cmd, err := tonemap.NewCommand(cfg.Tonemap.Command, log)
		if err != nil {
			return nil, err
		}
		return cmd, nil
	default:
		return tonemap.NewOpenCV(log), nil
	}
}

// registerComponents orders shutdown so the controller stops scheduling
// reloads before the watcher and the renderer go away
func (a *Application) registerComponents() {
	if a.supervisor != nil {
		a.shutdown.Register("renderer", a.supervisor)
	}
	if a.watcher != nil {
		a.shutdown.Register("watcher", a.watcher)
	}
	a.shutdown.Register("controller", a.controller)
}

// Run starts the controller and blocks in the fyne event loop
func (a *Application) Run() error {
	// Registered last, so the signal listener is the first thing to go
	a.shutdown.Register("signals", shutdown.Func(a.shutdown.Listen()))

	go func() {
		<-a.shutdown.Done()
		fyne.Do(a.fyneApp.Quit)
	}()

	a.fyneApp.Lifecycle().SetOnStarted(func() {
		if err := a.controller.Start(a.shutdown.Context()); err != nil {
			a.logger.Error("Application", err, nil)
		}
	})

	a.window.ShowAndRun()

	a.shutdown.Shutdown()
	a.logger.Info("Application", "terminated", nil)
	return nil
}

// setupWindowEvents asks for confirmation before closing a window with a
// render still in progress
func (a *Application) setupWindowEvents() {
	a.window.SetCloseIntercept(func() {
		if a.supervisor == nil || !a.supervisor.Running() {
			a.window.Close()
			return
		}

		dialog.ShowConfirm(
			"Exit",
			"The renderer is still running. Stop it and exit?",
			func(confirmed bool) {
				if confirmed {
					a.stopRendererThenClose()
				}
			},
			a.window,
		)
	})

	a.window.SetOnClosed(func() {
		a.logger.Info("Application", "window closed", nil)
		go a.shutdown.Shutdown()
	})
}

// stopRendererThenClose closes the window once the renderer has exited and
// its exit has been reported, so the last status reaches the log
func (a *Application) stopRendererThenClose() {
	done := a.supervisor.Done()
	a.controller.StopRender()

	go func() {
		<-done
		fyne.Do(a.window.Close)
	}()
}
