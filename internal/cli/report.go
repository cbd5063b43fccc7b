package cli

import (
	"context"
	"fmt"

	"github.com/mwierzba/factgraph/internal/client"
	"github.com/mwierzba/factgraph/internal/models"
	"github.com/spf13/cobra"
)

var reportCmd = &cobra.Command{
	Use:   "report <job-uuid>",
	Short: "Show a completed job's analysis report",
	Args:  cobra.ExactArgs(1),
	RunE:  runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	jobUUID := args[0]

	var report *models.Report
	if serverURL != "" {
		var err error
		report, err = client.New(serverURL).GetReport(ctx, jobUUID)
		if err != nil {
			return fmt.Errorf("get report: %w", err)
		}
	} else {
		job, err := dbClient.GetJobByUUID(ctx, jobUUID)
		if err != nil {
			return fmt.Errorf("get job: %w", err)
		}
		if job == nil {
			return fmt.Errorf("job not found: %s", jobUUID)
		}
		if job.Report == nil {
			return fmt.Errorf("report not generated for job %s", jobUUID)
		}
		report = job.Report
	}

	fmt.Println("SUMMARY")
	fmt.Println(report.Summary)
	fmt.Println("\nPOSITIVE SCENARIO")
	fmt.Println(report.PositiveScenario)
	fmt.Println("\nNEGATIVE SCENARIO")
	fmt.Println(report.NegativeScenario)
	fmt.Println("\nRECOMMENDATIONS")
	fmt.Println(report.Recommendations)

	meta := report.Metadata
	fmt.Printf("\nBased on %d facts, %d predictions, %d information gaps, %d relations",
		meta.FactsCount, meta.PredictionsCount, meta.UnknownsCount, meta.RelationsCount)
	if meta.Fallback {
		fmt.Print(" (fallback report)")
	}
	fmt.Println()
	return nil
}
