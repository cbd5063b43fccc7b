package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/mwierzba/factgraph/internal/client"
	"github.com/mwierzba/factgraph/internal/models"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status <job-uuid>",
	Short: "Show a job with its items, steps and extracted facts",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	jobUUID := args[0]

	if serverURL != "" {
		status, err := client.New(serverURL).GetJob(ctx, jobUUID)
		if err != nil {
			return fmt.Errorf("get job: %w", err)
		}
		printJobStatus(status.JobDetail, status.Steps, status.Facts)
		return nil
	}

	detail, err := dbClient.GetJobDetail(ctx, jobUUID)
	if err != nil {
		return fmt.Errorf("get job: %w", err)
	}
	if detail == nil {
		return fmt.Errorf("job not found: %s", jobUUID)
	}

	steps, err := dbClient.GetJobSteps(ctx, jobUUID)
	if err != nil {
		return fmt.Errorf("get steps: %w", err)
	}
	facts, err := dbClient.GetFactsByJob(ctx, jobUUID)
	if err != nil {
		return fmt.Errorf("get facts: %w", err)
	}

	printJobStatus(*detail, steps, facts)
	return nil
}

func printJobStatus(detail models.JobDetail, steps []models.Step, facts []models.Fact) {
	job := detail.Job
	fmt.Printf("Job: %s\n", job.UUID)
	fmt.Printf("  Status: %s\n", job.Status)
	fmt.Printf("  Created: %s\n", job.CreatedAt.Format(time.RFC3339))
	if job.CompletedAt != nil {
		fmt.Printf("  Completed: %s\n", job.CompletedAt.Format(time.RFC3339))
	}
	if job.ErrorMessage != nil {
		fmt.Printf("  Error: %s\n", *job.ErrorMessage)
	}
	fmt.Printf("  Items: %d total, %d completed, %d failed\n",
		detail.TotalItems, detail.CompletedItems, detail.FailedItems)

	if len(detail.Items) > 0 {
		fmt.Println("\nItems:")
		for _, item := range detail.Items {
			line := fmt.Sprintf("  %2d. [%-4s] %-10s", item.Position+1, item.Type, item.Status)
			if item.ErrorMessage != nil {
				line += " " + *item.ErrorMessage
			}
			fmt.Println(line)
		}
	}

	if len(steps) > 0 {
		fmt.Println("\nSteps:")
		for _, step := range steps {
			duration := ""
			if step.CompletedAt != nil {
				duration = step.CompletedAt.Sub(step.CreatedAt).Round(time.Millisecond).String()
			}
			fmt.Printf("  %2d. %-20s %-10s %s\n", step.Seq, step.Type, step.Status, duration)
			if step.ErrorMessage != nil {
				fmt.Printf("      error: %s\n", *step.ErrorMessage)
			}
		}
	}

	if len(facts) > 0 {
		fmt.Printf("\nFacts (%d):\n", len(facts))
		for _, fact := range facts {
			marker := " "
			if fact.Validated {
				marker = "*"
			}
			fmt.Printf("  %s %s\n", marker, fact.Text)
		}
	}
}
