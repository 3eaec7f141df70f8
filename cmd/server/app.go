package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/phrazzld/taskman-api/internal/composition"
	"github.com/phrazzld/taskman-api/internal/config"
	"github.com/phrazzld/taskman-api/internal/events"
)

// application holds all the shared application dependencies to simplify
// management and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger

	// Event system
	bus *events.Bus

	// Wired core (repository, service, UI event subscriptions)
	container *composition.Container
}

// newApplication creates a new application instance with all dependencies
// initialized. The event bus is built from configuration and handed to the
// composition container, which selects the repository for the configured
// environment and wires the UI-facing event handlers.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
	}

	app.bus = events.NewBus(events.BusOptions{
		FlushDelay:   cfg.Events.FlushDelay(),
		MaxBatchSize: cfg.Events.MaxBatchSize,
		Immediate:    cfg.Events.Immediate,
		Logger:       logger,
	})

	container, err := composition.New(cfg, app.bus, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to build composition container: %w", err)
	}
	app.container = container

	if report := container.VerifyWiring(); !report.OK() {
		logger.Warn("wiring verification reported problems",
			"repository", report.RepositoryKind,
			"missing_ui_handlers", report.MissingUIHandlers,
			"config_errors", report.ConfigErrors)
	}

	logger.Info("Application initialized successfully")
	return app, nil
}

// Run starts the application server, handling lifecycle and cleanup.
func (app *application) Run(ctx context.Context) error {
	router := app.setupRouter()

	if err := app.startHTTPServer(ctx, router); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// cleanup handles graceful shutdown of application resources. Pending
// coalesced store writes and batched events are flushed before the
// storage backend closes.
func (app *application) cleanup() {
	if app.container != nil {
		app.container.Dispose()
	}

	if app.bus != nil {
		app.bus.Clear()
	}

	app.logger.Info("Application shutdown completed")
}
