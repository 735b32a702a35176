// Package wire assembles the application's dependency graph.
package wire

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/google/wire"

	"github.com/sevigo/pr-reviewer/internal/app"
	"github.com/sevigo/pr-reviewer/internal/config"
	"github.com/sevigo/pr-reviewer/internal/core"
	"github.com/sevigo/pr-reviewer/internal/credentials"
	"github.com/sevigo/pr-reviewer/internal/db"
	"github.com/sevigo/pr-reviewer/internal/diff"
	"github.com/sevigo/pr-reviewer/internal/github"
	"github.com/sevigo/pr-reviewer/internal/jobs"
	"github.com/sevigo/pr-reviewer/internal/llm"
	"github.com/sevigo/pr-reviewer/internal/logger"
	"github.com/sevigo/pr-reviewer/internal/server"
	"github.com/sevigo/pr-reviewer/internal/server/handler"
	"github.com/sevigo/pr-reviewer/internal/storage"
)

// AppSet provides every component of the review service.
var AppSet = wire.NewSet(
	config.LoadConfig,
	provideLoggerConfig,
	provideLogWriter,
	logger.NewLogger,
	provideDBConfig,
	db.NewDatabase,
	provideStore,
	provideClientFactory,
	provideCredentialResolver,
	provideProviderFactory,
	llm.NewPromptManager,
	llm.NewAnalyzer,
	provideDiffFilter,
	jobs.NewReviewJob,
	wire.Bind(new(core.Job), new(*jobs.ReviewJob)),
	provideDispatcher,
	jobs.NewOrchestrator,
	wire.Bind(new(core.ReviewTriggerer), new(*jobs.Orchestrator)),
	provideWebhookHandler,
	provideRouter,
	server.NewServer,
	app.NewApp,
)

func provideLoggerConfig(cfg *config.Config) logger.Config {
	return cfg.Logging
}

func provideLogWriter(cfg *config.Config) io.Writer {
	return logger.Writer(cfg.Logging)
}

func provideDBConfig(cfg *config.Config) *config.DBConfig {
	return &cfg.Database
}

// provideStore fronts the Postgres store with the repository lookup cache.
func provideStore(conn *db.DB, cfg *config.Config) storage.Store {
	return storage.NewCachedStore(storage.NewStore(conn.DB), cfg.Review.RepoCacheTTL)
}

func provideClientFactory(cfg *config.Config, store storage.Store, logger *slog.Logger) github.ClientFactory {
	return github.NewClientFactory(cfg.GitHub, store, logger)
}

func provideCredentialResolver(cfg *config.Config, store storage.Store, logger *slog.Logger) core.CredentialResolver {
	return credentials.NewResolver(store, cfg.AI, logger)
}

func provideProviderFactory(cfg *config.Config, logger *slog.Logger) llm.ProviderFactory {
	return llm.NewProviderFactory(cfg.AI, logger)
}

func provideDiffFilter(cfg *config.Config) *diff.Filter {
	return diff.NewFilter(cfg.Review.ExcludePatterns...)
}

func provideDispatcher(job core.Job, cfg *config.Config, logger *slog.Logger) core.TaskDispatcher {
	return jobs.NewDispatcher(job, cfg.Review.MaxWorkers, cfg.Review.QueueSize, logger)
}

func provideWebhookHandler(store storage.Store, triggerer core.ReviewTriggerer, cfg *config.Config, logger *slog.Logger) *handler.WebhookHandler {
	return handler.NewWebhookHandler(store, triggerer, cfg.GitHub.WebhookSecret, logger)
}

func provideRouter(webhook *handler.WebhookHandler, conn *db.DB, logger *slog.Logger) http.Handler {
	return server.NewRouter(webhook, conn, logger)
}
