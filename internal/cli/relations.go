package cli

import (
	"context"
	"fmt"

	"github.com/mwierzba/factgraph/internal/client"
	"github.com/mwierzba/factgraph/internal/models"
	"github.com/spf13/cobra"
)

var relationsDirection string

var relationsCmd = &cobra.Command{
	Use:   "relations <node-id>",
	Short: "List a node's relations",
	Long: `List the typed edges attached to a graph node.

Examples:
  factgraph relations k2h4j8...           # both directions
  factgraph relations k2h4j8... --direction outgoing`,
	Args: cobra.ExactArgs(1),
	RunE: runRelations,
}

func init() {
	relationsCmd.Flags().StringVar(&relationsDirection, "direction", "both", "incoming, outgoing or both")
	rootCmd.AddCommand(relationsCmd)
}

func runRelations(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	nodeID := args[0]

	direction := models.RelationDirection(relationsDirection)
	if !direction.Valid() {
		return fmt.Errorf("invalid direction %q: must be incoming, outgoing or both", relationsDirection)
	}

	var relations []models.Relation
	var err error
	if serverURL != "" {
		relations, err = client.New(serverURL).GetNodeRelations(ctx, nodeID, direction)
	} else {
		node, nodeErr := dbClient.GetNode(ctx, nodeID)
		if nodeErr != nil {
			return fmt.Errorf("get node: %w", nodeErr)
		}
		if node == nil {
			return fmt.Errorf("node not found: %s", nodeID)
		}
		relations, err = dbClient.GetNodeRelations(ctx, nodeID, direction)
	}
	if err != nil {
		return fmt.Errorf("get relations: %w", err)
	}

	if len(relations) == 0 {
		fmt.Println("No relations found")
		return nil
	}

	for _, rel := range relations {
		far := ""
		if rel.RelatedKind != nil && rel.RelatedValue != nil {
			far = fmt.Sprintf(" [%s] %s", *rel.RelatedKind, *rel.RelatedValue)
		}
		fmt.Printf("%-14s confidence=%.2f%s\n", rel.RelType, rel.Confidence, far)
	}
	return nil
}
