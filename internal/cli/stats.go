package cli

import (
	"context"
	"fmt"

	"github.com/mwierzba/factgraph/internal/client"
	"github.com/mwierzba/factgraph/internal/db"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show database table counts",
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	var stats *db.Stats
	if serverURL != "" {
		remote, err := client.New(serverURL).GetStats(ctx)
		if err != nil {
			return fmt.Errorf("get stats: %w", err)
		}
		stats = remote.Database
		if remote.Runtime != nil {
			fmt.Printf("Server uptime: %.0fs\n", remote.Runtime.UptimeSeconds)
		}
	} else {
		var err error
		stats, err = dbClient.GetStats(ctx)
		if err != nil {
			return fmt.Errorf("get stats: %w", err)
		}
	}

	fmt.Printf("Jobs:         %d\n", stats.Jobs)
	fmt.Printf("Items:        %d\n", stats.Items)
	fmt.Printf("Steps:        %d\n", stats.Steps)
	fmt.Printf("Facts:        %d\n", stats.Facts)
	fmt.Printf("Corpus facts: %d\n", stats.CorpusFacts)
	fmt.Printf("Nodes:        %d\n", stats.Nodes)
	fmt.Printf("Relations:    %d\n", stats.Relations)
	return nil
}
