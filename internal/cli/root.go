// Package cli provides the command-line interface for factgraph.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/mwierzba/factgraph/internal/config"
	"github.com/mwierzba/factgraph/internal/convert"
	"github.com/mwierzba/factgraph/internal/db"
	"github.com/mwierzba/factgraph/internal/embedding"
	"github.com/mwierzba/factgraph/internal/llm"
	"github.com/mwierzba/factgraph/internal/pipeline"
	"github.com/spf13/cobra"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	serverURL string

	// Global config, logger and db client
	cfg      config.Config
	logger   *slog.Logger
	closeLog func() error
	dbClient *db.Client
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "factgraph",
	Short: "LLM-driven content analysis pipeline",
	Long: `Factgraph ingests batches of text, files and links, extracts facts with an
LLM, builds a knowledge graph of facts, predictions and information gaps,
and synthesizes a strategic analysis report.

Commands talk to the database directly; pass --server to go through a
running factgraph-server instead where supported.`,
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		cfg = config.Load()
		logger, closeLog = config.SetupLogger(cfg.LogFile, cfg.LogLevel)
		slog.SetDefault(logger)

		// Remote commands don't need a database connection.
		if serverURL != "" {
			return nil
		}

		ctx := context.Background()
		dbCfg := db.Config{
			URL:       cfg.SurrealDBURL,
			Namespace: cfg.SurrealDBNamespace,
			Database:  cfg.SurrealDBDatabase,
			Username:  cfg.SurrealDBUser,
			Password:  cfg.SurrealDBPass,
			AuthLevel: cfg.SurrealDBAuthLevel,
		}

		var err error
		dbClient, err = db.NewClient(ctx, dbCfg, logger)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}

		if err := dbClient.InitSchema(ctx, cfg.EmbedDimension); err != nil {
			return fmt.Errorf("initialize schema: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if dbClient != nil {
			if err := dbClient.Close(context.Background()); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
			}
		}
		if closeLog != nil {
			if err := closeLog(); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to close log file: %v\n", err)
			}
		}
	},
}

// newOrchestrator builds the pipeline against the connected database.
func newOrchestrator() (*pipeline.Orchestrator, error) {
	model, err := llm.New(&cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("init llm: %w", err)
	}

	embedder, err := embedding.New(&cfg)
	if err != nil {
		return nil, fmt.Errorf("init embedder: %w", err)
	}

	// The concrete embedder may be absent; keep the interface nil in
	// that case so the pipeline skips vectors.
	var pipelineEmbedder pipeline.Embedder
	if embedder != nil {
		pipelineEmbedder = embedder
	}

	return pipeline.New(dbClient, model, pipelineEmbedder, convert.New(&cfg), &cfg, logger), nil
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "factgraph server URL (use the HTTP API instead of a direct database connection)")
}

// exitWithError prints an error message and exits with code 1.
func exitWithError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
