package cli

import (
	"context"
	"fmt"

	"github.com/mwierzba/factgraph/internal/client"
	"github.com/mwierzba/factgraph/internal/models"
	"github.com/spf13/cobra"
)

var jobsLimit int

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "List analysis jobs, newest first",
	RunE:  runJobs,
}

func init() {
	jobsCmd.Flags().IntVar(&jobsLimit, "limit", 100, "maximum number of jobs to list")
	rootCmd.AddCommand(jobsCmd)
}

func runJobs(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	var jobs []models.Job
	var err error
	if serverURL != "" {
		jobs, err = client.New(serverURL).ListJobs(ctx, jobsLimit)
	} else {
		jobs, err = dbClient.ListJobs(ctx, jobsLimit)
	}
	if err != nil {
		return fmt.Errorf("list jobs: %w", err)
	}

	if len(jobs) == 0 {
		fmt.Println("No jobs found")
		return nil
	}

	fmt.Printf("%-36s %-12s %-8s %s\n", "UUID", "STATUS", "REPORT", "CREATED")
	fmt.Println("----------------------------------------------------------------------")
	for _, job := range jobs {
		report := "-"
		if job.Report != nil {
			report = "yes"
		}
		fmt.Printf("%-36s %-12s %-8s %s\n", job.UUID, job.Status, report, job.CreatedAt.Format("2006-01-02 15:04"))
	}
	return nil
}
