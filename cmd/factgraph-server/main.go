// Package main provides the factgraph HTTP server.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/mwierzba/factgraph/internal/config"
	"github.com/mwierzba/factgraph/internal/convert"
	"github.com/mwierzba/factgraph/internal/db"
	"github.com/mwierzba/factgraph/internal/embedding"
	"github.com/mwierzba/factgraph/internal/llm"
	"github.com/mwierzba/factgraph/internal/metrics"
	"github.com/mwierzba/factgraph/internal/pipeline"
	"github.com/mwierzba/factgraph/internal/server"
)

const version = "0.1.0"

func main() {
	wipeDB := flag.Bool("wipe", false, "wipe all data from database on startup (testing only)")
	host := flag.String("host", "0.0.0.0", "listen address")
	flag.Parse()

	cfg := config.Load()

	// Dual output: stderr text + file JSON
	logger, cleanup := config.SetupLogger(cfg.LogFile, cfg.LogLevel)
	defer cleanup()

	logger.Info("factgraph-server starting",
		"version", version,
		"surrealdb_url", cfg.SurrealDBURL,
		"llm_provider", cfg.LLMProvider,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	dbClient, err := db.NewClient(ctx, db.Config{
		URL:       cfg.SurrealDBURL,
		Namespace: cfg.SurrealDBNamespace,
		Database:  cfg.SurrealDBDatabase,
		Username:  cfg.SurrealDBUser,
		Password:  cfg.SurrealDBPass,
		AuthLevel: cfg.SurrealDBAuthLevel,
	}, logger)
	if err != nil {
		cancel()
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	if err := dbClient.InitSchema(ctx, cfg.EmbedDimension); err != nil {
		cancel()
		logger.Error("failed to initialize schema", "error", err)
		os.Exit(1)
	}

	if *wipeDB || os.Getenv("FACTGRAPH_WIPE_DB") == "true" {
		if err := dbClient.WipeData(ctx); err != nil {
			cancel()
			logger.Error("failed to wipe database", "error", err)
			os.Exit(1)
		}
		logger.Warn("wiped all data")
	}
	cancel()
	defer func() {
		if err := dbClient.Close(context.Background()); err != nil {
			logger.Error("failed to close database", "error", err)
		}
	}()

	model, err := llm.New(&cfg, logger)
	if err != nil {
		logger.Error("failed to initialize llm", "error", err)
		os.Exit(1)
	}

	embedder, err := embedding.New(&cfg)
	if err != nil {
		logger.Error("failed to initialize embedder", "error", err)
		os.Exit(1)
	}

	collector := metrics.NewCollector()

	var pipelineEmbedder pipeline.Embedder
	if embedder != nil {
		pipelineEmbedder = pipeline.InstrumentEmbedder(embedder, collector)
	}

	orchestrator := pipeline.New(
		dbClient,
		pipeline.InstrumentGenerator(model, collector),
		pipelineEmbedder,
		convert.New(&cfg),
		&cfg,
		logger,
	).WithMetrics(collector)

	manager := pipeline.NewManager(orchestrator, logger)

	port, err := strconv.Atoi(cfg.ServerPort)
	if err != nil {
		logger.Error("invalid server port", "port", cfg.ServerPort)
		os.Exit(1)
	}

	srv, err := server.New(dbClient, orchestrator, manager, collector, logger, &server.Config{
		Host: *host,
		Port: port,
	})
	if err != nil {
		logger.Error("failed to create server", "error", err)
		os.Exit(1)
	}
	if pipelineEmbedder != nil {
		srv.WithEmbedder(pipelineEmbedder)
	}

	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	// Let in-flight pipeline runs finish before closing the database.
	manager.Wait()

	logger.Info("server stopped")
}
