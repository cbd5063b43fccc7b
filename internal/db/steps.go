package db

import (
	"context"
	"fmt"

	"github.com/mwierzba/factgraph/internal/models"
	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// CreateStep records a new processing step for a job. The (job, seq)
// pair is unique, so a duplicated sequence number fails the insert.
func (c *Client) CreateStep(ctx context.Context, jobID surrealmodels.RecordID, seq int, stepType models.StepType, input map[string]any) (*models.Step, error) {
	results, err := surrealdb.Query[[]models.Step](ctx, c.db, `
		CREATE step SET
			job = $job,
			seq = $seq,
			type = $type,
			status = 'processing',
			input = $input
	`, map[string]any{
		"job":   jobID,
		"seq":   seq,
		"type":  string(stepType),
		"input": input,
	})
	if err != nil {
		return nil, fmt.Errorf("create step: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, fmt.Errorf("create step: empty result")
	}
	return &(*results)[0].Result[0], nil
}

// CompleteStep moves a step to a terminal status, storing its output
// payload or error message.
func (c *Client) CompleteStep(ctx context.Context, stepID surrealmodels.RecordID, status models.StepStatus, output map[string]any, errorMessage *string) error {
	_, err := surrealdb.Query[any](ctx, c.db, `
		UPDATE $id SET
			status = $status,
			output = $output,
			error_message = $error,
			completed_at = time::now()
	`, map[string]any{
		"id":     stepID,
		"status": string(status),
		"output": output,
		"error":  errorMessage,
	})
	if err != nil {
		return fmt.Errorf("complete step: %w", wrapQueryError(err))
	}
	return nil
}

// GetJobSteps returns a job's step ledger in execution order.
func (c *Client) GetJobSteps(ctx context.Context, jobUUID string) ([]models.Step, error) {
	results, err := surrealdb.Query[[]models.Step](ctx, c.db, `
		SELECT * FROM step
		WHERE job = (SELECT VALUE id FROM ONLY job WHERE uuid = $uuid LIMIT 1)
		ORDER BY seq
	`, map[string]any{"uuid": jobUUID})
	if err != nil {
		return nil, fmt.Errorf("get job steps: %w", err)
	}

	if results == nil || len(*results) == 0 {
		return []models.Step{}, nil
	}
	return (*results)[0].Result, nil
}
