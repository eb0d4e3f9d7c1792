package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/xvierd/flow-reader/internal/adapters/clock"
	"github.com/xvierd/flow-reader/internal/adapters/library"
	"github.com/xvierd/flow-reader/internal/adapters/notification"
	"github.com/xvierd/flow-reader/internal/adapters/pdf"
	"github.com/xvierd/flow-reader/internal/adapters/tui"
	"github.com/xvierd/flow-reader/internal/config"
	"github.com/xvierd/flow-reader/internal/log"
	"github.com/xvierd/flow-reader/internal/services"
)

// appDeps groups the dependencies initialized before any command runs.
type appDeps struct {
	config     *config.Config
	configPath string
	logOutput  io.WriteCloser
}

// app holds all initialized dependencies.
// Populated by initializeServices() and accessible to all commands.
var app appDeps

// initializeServices loads the configuration and sets up logging.
func initializeServices() error {
	path := configPath
	if path == "" {
		var err error
		path, err = config.GetConfigPath()
		if err != nil {
			return fmt.Errorf("failed to get config path: %w", err)
		}
	}
	app.configPath = path

	cfg, err := config.LoadFrom(path)
	if err != nil {
		return err
	}
	if logFile != "" {
		cfg.Log.File = config.ExpandHome(logFile)
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if dirFlag != "" {
		cfg.Library.Dir = config.ExpandHome(dirFlag)
	}
	app.config = cfg

	var output io.Writer = io.Discard
	if cfg.Log.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Log.File), 0750); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
		f, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		app.logOutput = f
		output = f
	}
	log.Configure(log.Config{Level: cfg.Log.Level, Output: output})
	return nil
}

// cleanupServices closes all resources.
func cleanupServices() error {
	if app.logOutput != nil {
		err := app.logOutput.Close()
		app.logOutput = nil
		return err
	}
	return nil
}

// sessionStack is the wired set of services behind one reader run.
type sessionStack struct {
	scheduler  *clock.Scheduler
	display    *tui.Display
	controller *services.SessionController
	library    *library.Library
}

// newSessionStack wires the services for an interactive session.
func newSessionStack(cfg *config.Config, durationSeconds int, fullscreenSupported bool) *sessionStack {
	logger := log.Base()
	scheduler := clock.NewScheduler()
	display := tui.NewDisplay(fullscreenSupported)

	engine := services.NewCountdownEngine(scheduler, logger)
	coordinator := services.NewFullscreenCoordinator(display, logger)
	surface := services.NewRenderSurface(pdf.NewOpener(cfg.Viewer.BaseWidth), cfg.Viewer.InitialZoom, logger)
	controller := services.NewSessionController(engine, coordinator, surface, logger, services.SessionOptions{
		DurationSeconds:   durationSeconds,
		FullscreenTimeout: time.Duration(cfg.Fullscreen.RequestTimeout),
		Notifier:          notification.New(&cfg.Notifications),
	})

	return &sessionStack{
		scheduler:  scheduler,
		display:    display,
		controller: controller,
		library:    library.New(cfg.Library.Dir, logger),
	}
}

// Close abandons any active session and stops the clock.
func (s *sessionStack) Close(ctx context.Context) {
	s.controller.Close(ctx)
	s.scheduler.Close()
}

// setupSignalHandler sets up a context that cancels on interrupt signals.
func setupSignalHandler() context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		cancel()
	}()

	return ctx
}
