package cli

import (
	"context"
	"fmt"

	"github.com/mwierzba/factgraph/internal/client"
	"github.com/mwierzba/factgraph/internal/models"
	"github.com/spf13/cobra"
)

var nodesKind string

var nodesCmd = &cobra.Command{
	Use:   "nodes <job-uuid>",
	Short: "List a job's knowledge graph nodes",
	Long: `List the graph nodes a job produced.

Examples:
  factgraph nodes 7c9e6679-7425-40de-944b-e07fc1f90ae7
  factgraph nodes 7c9e6679-7425-40de-944b-e07fc1f90ae7 --type prediction`,
	Args: cobra.ExactArgs(1),
	RunE: runNodes,
}

func init() {
	nodesCmd.Flags().StringVar(&nodesKind, "type", "", "filter by node type (fact, prediction, missing_information)")
	rootCmd.AddCommand(nodesCmd)
}

func runNodes(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	jobUUID := args[0]

	kind := models.NodeKind(nodesKind)
	if kind != "" && !kind.Valid() {
		return fmt.Errorf("invalid type %q: must be fact, prediction or missing_information", nodesKind)
	}

	var nodes []models.Node
	var err error
	if serverURL != "" {
		nodes, err = client.New(serverURL).GetJobNodes(ctx, jobUUID, kind)
	} else {
		nodes, err = dbClient.GetNodesByJob(ctx, jobUUID, kind)
	}
	if err != nil {
		return fmt.Errorf("get nodes: %w", err)
	}

	if len(nodes) == 0 {
		fmt.Println("No nodes found")
		return nil
	}

	for _, node := range nodes {
		id, err := models.RecordIDString(node.ID)
		if err != nil {
			id = fmt.Sprint(node.ID)
		}
		fmt.Printf("[%s] %s\n    id: %s\n", node.Kind, node.Value, id)
	}
	return nil
}
