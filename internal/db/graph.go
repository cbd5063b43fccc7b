package db

import (
	"context"
	"fmt"

	"github.com/mwierzba/factgraph/internal/models"
	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// CreateNode inserts a knowledge graph node. The job reference is
// optional so corpus-level nodes can exist outside any job.
func (c *Client) CreateNode(ctx context.Context, jobID *surrealmodels.RecordID, kind models.NodeKind, value string, metadata map[string]any) (*models.Node, error) {
	results, err := surrealdb.Query[[]models.Node](ctx, c.db, `
		CREATE node SET
			job = $job,
			kind = $kind,
			value = $value,
			metadata = $metadata
	`, map[string]any{
		"job":      jobID,
		"kind":     string(kind),
		"value":    value,
		"metadata": metadata,
	})
	if err != nil {
		return nil, fmt.Errorf("create node: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, fmt.Errorf("create node: empty result")
	}
	return &(*results)[0].Result[0], nil
}

// GetNode retrieves a node by its record identifier.
// Returns nil if not found.
func (c *Client) GetNode(ctx context.Context, nodeID string) (*models.Node, error) {
	results, err := surrealdb.Query[[]models.Node](ctx, c.db, `
		SELECT * FROM type::thing("node", $id)
	`, map[string]any{"id": nodeID})
	if err != nil {
		return nil, fmt.Errorf("get node: %w", err)
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, nil
	}
	return &(*results)[0].Result[0], nil
}

// GetNodesByJob returns a job's graph nodes, optionally filtered by kind.
func (c *Client) GetNodesByJob(ctx context.Context, jobUUID string, kind models.NodeKind) ([]models.Node, error) {
	sql := `
		SELECT * FROM node
		WHERE job = (SELECT VALUE id FROM ONLY job WHERE uuid = $uuid LIMIT 1)
	`
	vars := map[string]any{"uuid": jobUUID}
	if kind != "" {
		sql += " AND kind = $kind"
		vars["kind"] = string(kind)
	}
	sql += " ORDER BY created_at"

	results, err := surrealdb.Query[[]models.Node](ctx, c.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("get nodes by job: %w", err)
	}

	if results == nil || len(*results) == 0 {
		return []models.Node{}, nil
	}
	return (*results)[0].Result, nil
}

// CreateRelation links two existing nodes with a typed edge. Both
// endpoints are checked first; a dangling reference throws and maps to
// ErrNodeNotFound. Repeated calls create parallel edges, duplicates are
// legal in the graph.
func (c *Client) CreateRelation(ctx context.Context, fromID, toID string, relType string, confidence float64, metadata map[string]any) error {
	sql := `
		LET $from_exists = (SELECT count() AS c FROM type::thing("node", $from_id)).c > 0;
		LET $to_exists = (SELECT count() AS c FROM type::thing("node", $to_id)).c > 0;

		IF !$from_exists OR !$to_exists {
			THROW "Node not found"
		};

		RELATE type::thing("node", $from_id)->relates->type::thing("node", $to_id) SET
			rel_type = $rel_type,
			confidence = $confidence,
			metadata = $metadata;
	`

	_, err := surrealdb.Query[any](ctx, c.db, sql, map[string]any{
		"from_id":    fromID,
		"to_id":      toID,
		"rel_type":   relType,
		"confidence": confidence,
		"metadata":   metadata,
	})
	if err != nil {
		return fmt.Errorf("create relation: %w", wrapQueryError(err))
	}
	return nil
}

// GetNodeRelations returns the edges touching a node. Each edge carries
// the kind and value of the far endpoint so callers can render
// neighbours without a second lookup.
func (c *Client) GetNodeRelations(ctx context.Context, nodeID string, direction models.RelationDirection) ([]models.Relation, error) {
	var relations []models.Relation

	if direction == models.DirectionOutgoing || direction == models.DirectionBoth {
		out, err := c.queryRelations(ctx, `
			SELECT *, out.kind AS related_kind, out.value AS related_value
			FROM relates WHERE in = type::thing("node", $id)
			ORDER BY created_at
		`, nodeID)
		if err != nil {
			return nil, err
		}
		relations = append(relations, out...)
	}

	if direction == models.DirectionIncoming || direction == models.DirectionBoth {
		in, err := c.queryRelations(ctx, `
			SELECT *, in.kind AS related_kind, in.value AS related_value
			FROM relates WHERE out = type::thing("node", $id)
			ORDER BY created_at
		`, nodeID)
		if err != nil {
			return nil, err
		}
		relations = append(relations, in...)
	}

	if relations == nil {
		relations = []models.Relation{}
	}
	return relations, nil
}

func (c *Client) queryRelations(ctx context.Context, sql, nodeID string) ([]models.Relation, error) {
	results, err := surrealdb.Query[[]models.Relation](ctx, c.db, sql, map[string]any{"id": nodeID})
	if err != nil {
		return nil, fmt.Errorf("get node relations: %w", err)
	}
	if results == nil || len(*results) == 0 {
		return nil, nil
	}
	return (*results)[0].Result, nil
}
