// Custodia - AI Data Access Transparency and Audit
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custodia

// Package main is the entry point for the Custodia server.
//
// Custodia is a transparency and audit service for AI data access. AI
// systems report every data access event to the log; scheduled audits
// select matching entries, run them through an analysis model, and persist
// the findings. Every programmatic entry point sits behind an API key gate.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: environment variables and an optional YAML file (Koanf v2)
//  2. Storage: BadgerDB collections for logs, keys, and audits
//  3. API key gate: bcrypt-hashed credentials, optional bootstrap key
//  4. Archival: optional Azure Blob Storage mirror of logs and audits
//  5. Analysis: OpenAI-compatible chat completions client
//  6. Audit scheduler: one-shot timers, re-armed from persisted records
//  7. HTTP server: REST API plus /metrics, under a suture supervision tree
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest
// priority wins):
//   - CUSTODIA_* environment variables
//   - Config file (config.yaml, or CUSTODIA_CONFIG_PATH)
//   - Built-in defaults
//
// # Signal Handling
//
// The server handles graceful shutdown on SIGINT and SIGTERM:
//   - Stops accepting new connections
//   - Waits for in-flight requests and audit executions to finish
//   - Closes the store; un-executed audits stay scheduled and are
//     re-armed on the next start
//
// # Example Usage
//
// Development, in-process bootstrap key printed to the log:
//
//	export CUSTODIA_STORAGE_PATH=./data
//	export CUSTODIA_SECURITY_BOOTSTRAP_OWNER=admin
//	./custodia
//
// Production with analysis and archival:
//
//	export CUSTODIA_ANALYSIS_API_KEY=sk-...
//	export CUSTODIA_ARCHIVE_ENABLED=true
//	export CUSTODIA_ARCHIVE_CONNECTION_STRING="DefaultEndpointsProtocol=..."
//	./custodia
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/tomtom215/custodia/internal/analysis"
	"github.com/tomtom215/custodia/internal/api"
	"github.com/tomtom215/custodia/internal/archive"
	"github.com/tomtom215/custodia/internal/audit"
	"github.com/tomtom215/custodia/internal/auth"
	"github.com/tomtom215/custodia/internal/config"
	"github.com/tomtom215/custodia/internal/ingest"
	"github.com/tomtom215/custodia/internal/logging"
	"github.com/tomtom215/custodia/internal/store"
	"github.com/tomtom215/custodia/internal/supervisor"
	"github.com/tomtom215/custodia/internal/supervisor/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
	})
	logging.Info().Str("version", api.Version).Msg("Custodia starting")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Storage
	db, err := store.Open(cfg.Storage.Path)
	if err != nil {
		logging.Fatal().Err(err).Str("path", cfg.Storage.Path).Msg("Failed to open store")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing store")
		}
	}()
	logging.Info().Str("path", cfg.Storage.Path).Msg("Store opened")

	// API key gate
	keyManager := auth.NewManager(db, &log.Logger)
	if cfg.Security.BootstrapOwner != "" {
		if err := keyManager.Bootstrap(ctx, cfg.Security.BootstrapOwner); err != nil {
			logging.Fatal().Err(err).Msg("Failed to bootstrap API key")
		}
	}

	// Archival (optional)
	var archiver archive.Archiver = archive.Noop{}
	if cfg.Archive.Enabled {
		azArchiver, err := archive.NewAzureArchiver(cfg.Archive.ConnectionString)
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to initialize Azure archiver")
		}
		archiver = azArchiver
		logging.Info().Msg("Azure Blob Storage archival enabled")
	}
	background := archive.NewBackground(archiver, cfg.Archive.Timeout, &log.Logger)

	// Ingest
	ingestService := ingest.NewService(db, background, &log.Logger)

	// Analysis
	analyzer := analysis.NewClient(analysis.ClientConfig{
		BaseURL: cfg.Analysis.BaseURL,
		APIKey:  cfg.Analysis.APIKey,
		Model:   cfg.Analysis.Model,
	})

	// Audit lifecycle engine
	executor := audit.NewExecutor(db, analyzer, background, &log.Logger, cfg.Analysis.Timeout)
	scheduler := audit.NewScheduler(db, executor, &log.Logger, audit.SchedulerConfig{
		RearmOnStart:            cfg.Audit.RearmOnStart,
		MaxConcurrentExecutions: cfg.Audit.MaxConcurrentExecutions,
	})

	// HTTP surface
	handler := api.NewHandler(keyManager, ingestService, scheduler, db)
	middleware := api.NewMiddleware(keyManager, api.MiddlewareConfig{
		CORSAllowedOrigins: cfg.Security.CORSOrigins,
		RateLimitRequests:  cfg.Security.RateLimitRequests,
		RateLimitWindow:    cfg.Security.RateLimitWindow,
		RateLimitDisabled:  cfg.Security.RateLimitDisabled,
	})
	router := api.NewRouter(handler, middleware)

	server := &http.Server{
		Addr:         cfg.Server.ListenAddr,
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Supervision tree
	treeConfig := supervisor.DefaultTreeConfig()
	treeConfig.ShutdownTimeout = cfg.Server.ShutdownTimeout
	tree := supervisor.NewTree(slog.New(logging.NewSlogHandler()), treeConfig)

	tree.AddJobService(services.NewAuditSchedulerService(scheduler))
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
	logging.Info().Str("addr", server.Addr).Msg("Services added to supervisor tree")

	// Signal handling
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish...")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	logging.Info().Msg("Application stopped gracefully")
}
