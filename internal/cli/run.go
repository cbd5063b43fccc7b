package cli

import (
	"context"
	"fmt"

	"github.com/mwierzba/factgraph/internal/pipeline"
	"github.com/spf13/cobra"
)

var (
	runLanguage      string
	runToolLoop      bool
	runSkipScraping  bool
	runSkipFacts     bool
	runSkipValidate  bool
	runSkipReasoning bool
	runSkipScenarios bool
)

var runCmd = &cobra.Command{
	Use:   "run <job-uuid>",
	Short: "Run the analysis pipeline for a submitted job",
	Long: `Run the pipeline stages for a pending job and block until they finish.

Examples:
  factgraph run 7c9e6679-7425-40de-944b-e07fc1f90ae7
  factgraph run 7c9e6679-7425-40de-944b-e07fc1f90ae7 --language pl --tool-loop
  factgraph run 7c9e6679-7425-40de-944b-e07fc1f90ae7 --skip-scenarios`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVarP(&runLanguage, "language", "l", "en", "analysis language (en or pl)")
	runCmd.Flags().BoolVar(&runToolLoop, "tool-loop", false, "use iterative tool-calling reasoning")
	runCmd.Flags().BoolVar(&runSkipScraping, "skip-scraping", false, "skip the link scraping stage")
	runCmd.Flags().BoolVar(&runSkipFacts, "skip-facts", false, "skip fact extraction (and validation)")
	runCmd.Flags().BoolVar(&runSkipValidate, "skip-validation", false, "skip fact validation and corpus promotion")
	runCmd.Flags().BoolVar(&runSkipReasoning, "skip-reasoning", false, "skip prediction and gap reasoning")
	runCmd.Flags().BoolVar(&runSkipScenarios, "skip-scenarios", false, "skip report generation")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	orchestrator, err := newOrchestrator()
	if err != nil {
		return err
	}

	opts := pipeline.Options{
		Language:             runLanguage,
		EnableScraping:       !runSkipScraping,
		EnableFactExtraction: !runSkipFacts,
		EnableValidation:     !runSkipValidate,
		EnableReasoning:      !runSkipReasoning,
		EnableScenarios:      !runSkipScenarios,
		UseToolLoop:          runToolLoop,
	}

	jobUUID := args[0]
	fmt.Println("Processing...")
	if err := orchestrator.Run(context.Background(), jobUUID, opts); err != nil {
		return fmt.Errorf("run: %w", err)
	}
	fmt.Println("Completed. View it with: factgraph status", jobUUID)
	return nil
}
