// Code generated manually. DO NOT EDIT.

//go:generate go run -mod=mod github.com/google/wire/cmd/wire
//go:build !wireinject
// +build !wireinject

package wire

import (
	"fmt"

	"github.com/sevigo/pr-reviewer/internal/app"
	"github.com/sevigo/pr-reviewer/internal/config"
	"github.com/sevigo/pr-reviewer/internal/db"
	"github.com/sevigo/pr-reviewer/internal/jobs"
	"github.com/sevigo/pr-reviewer/internal/llm"
	"github.com/sevigo/pr-reviewer/internal/logger"
	"github.com/sevigo/pr-reviewer/internal/server"
)

// InitializeApp creates and wires all application dependencies.
func InitializeApp() (*app.App, func(), error) {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Setup logger
	loggerConfig := provideLoggerConfig(cfg)
	logWriter := provideLogWriter(cfg)
	slogLogger := logger.NewLogger(loggerConfig, logWriter)

	// Database
	dbConfig := provideDBConfig(cfg)
	dbConn, dbCleanup, err := db.NewDatabase(dbConfig, slogLogger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Storage
	store := provideStore(dbConn, cfg)

	// GitHub, credentials and AI providers
	clientFactory := provideClientFactory(cfg, store, slogLogger)
	credentialResolver := provideCredentialResolver(cfg, store, slogLogger)
	providerFactory := provideProviderFactory(cfg, slogLogger)

	// Prompt Manager
	promptMgr, err := llm.NewPromptManager()
	if err != nil {
		dbCleanup()
		return nil, nil, fmt.Errorf("failed to create prompt manager: %w", err)
	}
	analyzer := llm.NewAnalyzer(promptMgr, slogLogger)
	filter := provideDiffFilter(cfg)

	// Review Job
	reviewJob := jobs.NewReviewJob(store, clientFactory, credentialResolver, providerFactory, analyzer, filter, slogLogger)

	// Dispatcher
	dispatcher := provideDispatcher(reviewJob, cfg, slogLogger)

	// Orchestrator
	orchestrator := jobs.NewOrchestrator(store, dispatcher, reviewJob, slogLogger)

	// Server
	webhookHandler := provideWebhookHandler(store, orchestrator, cfg, slogLogger)
	router := provideRouter(webhookHandler, dbConn, slogLogger)
	srv := server.NewServer(cfg, router, slogLogger)

	// App
	application := app.NewApp(cfg, store, clientFactory, orchestrator, dispatcher, srv, slogLogger)

	cleanup := func() {
		dbCleanup()
	}

	return application, cleanup, nil
}
