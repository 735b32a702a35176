// Package app holds the assembled review service and manages its lifecycle.
package app

import (
	"log/slog"

	"github.com/sevigo/pr-reviewer/internal/config"
	"github.com/sevigo/pr-reviewer/internal/core"
	"github.com/sevigo/pr-reviewer/internal/github"
	"github.com/sevigo/pr-reviewer/internal/jobs"
	"github.com/sevigo/pr-reviewer/internal/server"
	"github.com/sevigo/pr-reviewer/internal/storage"
)

// App holds the main application components.
type App struct {
	Cfg          *config.Config
	Store        storage.Store
	Clients      github.ClientFactory
	Orchestrator *jobs.Orchestrator

	server     *server.Server
	dispatcher core.TaskDispatcher
	logger     *slog.Logger
}

// NewApp bundles already constructed components. Construction lives in the
// wire package.
func NewApp(
	cfg *config.Config,
	store storage.Store,
	clients github.ClientFactory,
	orchestrator *jobs.Orchestrator,
	dispatcher core.TaskDispatcher,
	srv *server.Server,
	logger *slog.Logger,
) *App {
	return &App{
		Cfg:          cfg,
		Store:        store,
		Clients:      clients,
		Orchestrator: orchestrator,
		server:       srv,
		dispatcher:   dispatcher,
		logger:       logger,
	}
}

// Start runs the HTTP server. It blocks until the server stops.
func (a *App) Start() error {
	a.logger.Info("starting PR reviewer",
		"server_port", a.Cfg.Server.Port,
		"max_workers", a.Cfg.Review.MaxWorkers,
		"queue_size", a.Cfg.Review.QueueSize,
		"llm_provider", a.Cfg.AI.Provider)

	if err := a.server.Start(); err != nil {
		a.logger.Error("failed to start HTTP server", "error", err)
		return err
	}
	return nil
}

// Stop shuts down the application cleanly. The database is closed by the
// cleanup function returned alongside the App.
func (a *App) Stop() error {
	a.logger.Info("shutting down PR reviewer")

	// Stop the HTTP server first to prevent new incoming deliveries.
	serverErr := a.server.Stop()
	if serverErr != nil {
		a.logger.Error("error during HTTP server shutdown", "error", serverErr)
	}

	// In-flight and queued reviews finish before this returns.
	a.StopWorkers()

	if serverErr != nil {
		return serverErr
	}
	a.logger.Info("PR reviewer stopped successfully")
	return nil
}

// StopWorkers drains the review queue without touching the HTTP server.
// Used by commands that never start it.
func (a *App) StopWorkers() {
	a.dispatcher.Stop()
}
