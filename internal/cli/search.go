package cli

import (
	"context"
	"fmt"

	"github.com/mwierzba/factgraph/internal/client"
	"github.com/mwierzba/factgraph/internal/db"
	"github.com/mwierzba/factgraph/internal/embedding"
	"github.com/spf13/cobra"
)

var searchLimit int

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Find validated facts similar to a query",
	Long: `Search the validated fact corpus by embedding similarity.

Requires an embedding provider; facts promoted without vectors are not
searchable.

Examples:
  factgraph search "defence spending"
  factgraph search "energy imports" --limit 10`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVar(&searchLimit, "limit", 5, "maximum number of matches")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	query := args[0]

	var matches []db.CorpusMatch
	if serverURL != "" {
		result, err := client.New(serverURL).Search(ctx, query, searchLimit)
		if err != nil {
			return fmt.Errorf("search: %w", err)
		}
		matches = result.Matches
	} else {
		embedder, err := embedding.New(&cfg)
		if err != nil {
			return fmt.Errorf("init embedder: %w", err)
		}
		if embedder == nil {
			return fmt.Errorf("no embedding provider configured, similarity search is unavailable")
		}

		vector, err := embedder.Embed(ctx, query)
		if err != nil {
			return fmt.Errorf("embed query: %w", err)
		}
		matches, err = dbClient.SearchCorpus(ctx, vector, searchLimit)
		if err != nil {
			return fmt.Errorf("search corpus: %w", err)
		}
	}

	if len(matches) == 0 {
		fmt.Println("No matches found")
		return nil
	}

	for _, match := range matches {
		fmt.Printf("%.3f  %s\n", match.Similarity, match.Text)
	}
	return nil
}
