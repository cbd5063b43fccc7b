// Package db provides SurrealDB query functions for pipeline entities.
package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/mwierzba/factgraph/internal/models"
	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// ItemInsert describes one item row created at job submission.
type ItemInsert struct {
	Type     models.ItemType
	Content  string
	Wage     *float64
	Position int
}

// CreateJobWithItems atomically creates one job row plus one item row per
// input, all pending. Runs as a single transaction: an invalid statement
// rolls everything back and no partial job is ever visible.
func (c *Client) CreateJobWithItems(ctx context.Context, jobUUID string, items []ItemInsert) error {
	var sb strings.Builder
	vars := map[string]any{"uuid": jobUUID}

	sb.WriteString("BEGIN TRANSACTION;\n")
	sb.WriteString("LET $j = (CREATE ONLY job SET uuid = $uuid, status = 'pending');\n")
	for i, item := range items {
		wageClause := ""
		if item.Wage != nil {
			wageClause = fmt.Sprintf(", wage = $wage_%d", i)
			vars[fmt.Sprintf("wage_%d", i)] = *item.Wage
		}
		sb.WriteString(fmt.Sprintf(
			"CREATE item SET job = $j.id, type = $type_%d, content = $content_%d, status = 'pending', position = %d%s;\n",
			i, i, item.Position, wageClause))
		vars[fmt.Sprintf("type_%d", i)] = string(item.Type)
		vars[fmt.Sprintf("content_%d", i)] = item.Content
	}
	sb.WriteString("COMMIT TRANSACTION;\n")

	if _, err := surrealdb.Query[any](ctx, c.db, sb.String(), vars); err != nil {
		return fmt.Errorf("create job with items: %w", wrapQueryError(err))
	}
	return nil
}

// GetJobByUUID retrieves a job by its external identifier.
// Returns nil if not found.
func (c *Client) GetJobByUUID(ctx context.Context, jobUUID string) (*models.Job, error) {
	results, err := surrealdb.Query[[]models.Job](ctx, c.db, `
		SELECT * FROM job WHERE uuid = $uuid LIMIT 1
	`, map[string]any{"uuid": jobUUID})
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, nil
	}
	return &(*results)[0].Result[0], nil
}

// GetJobItems returns a job's items in submission order.
func (c *Client) GetJobItems(ctx context.Context, jobUUID string) ([]models.Item, error) {
	results, err := surrealdb.Query[[]models.Item](ctx, c.db, `
		SELECT * FROM item
		WHERE job = (SELECT VALUE id FROM ONLY job WHERE uuid = $uuid LIMIT 1)
		ORDER BY position
	`, map[string]any{"uuid": jobUUID})
	if err != nil {
		return nil, fmt.Errorf("get job items: %w", err)
	}

	if results == nil || len(*results) == 0 {
		return []models.Item{}, nil
	}
	return (*results)[0].Result, nil
}

// GetJobDetail returns the job with its items and per-status counts.
// Returns nil if the job does not exist.
func (c *Client) GetJobDetail(ctx context.Context, jobUUID string) (*models.JobDetail, error) {
	job, err := c.GetJobByUUID(ctx, jobUUID)
	if err != nil || job == nil {
		return nil, err
	}

	items, err := c.GetJobItems(ctx, jobUUID)
	if err != nil {
		return nil, err
	}

	detail := &models.JobDetail{
		Job:        *job,
		Items:      items,
		TotalItems: len(items),
	}
	for _, item := range items {
		switch item.Status {
		case models.ItemStatusCompleted:
			detail.CompletedItems++
		case models.ItemStatusFailed:
			detail.FailedItems++
		}
	}
	return detail, nil
}

// UpdateJobStatus transitions a job's status, recording the completion
// timestamp for terminal states and the error message when given.
func (c *Client) UpdateJobStatus(ctx context.Context, jobUUID string, status models.JobStatus, errorMessage *string) error {
	_, err := surrealdb.Query[any](ctx, c.db, `
		UPDATE job SET
			status = $status,
			error_message = $error,
			updated_at = time::now(),
			completed_at = IF $terminal THEN time::now() ELSE completed_at END
		WHERE uuid = $uuid
	`, map[string]any{
		"uuid":     jobUUID,
		"status":   string(status),
		"error":    errorMessage,
		"terminal": status.Terminal(),
	})
	if err != nil {
		return fmt.Errorf("update job status: %w", wrapQueryError(err))
	}
	return nil
}

// SetJobReport stores the final report payload on the job.
func (c *Client) SetJobReport(ctx context.Context, jobUUID string, report models.Report) error {
	_, err := surrealdb.Query[any](ctx, c.db, `
		UPDATE job SET report = $report, updated_at = time::now() WHERE uuid = $uuid
	`, map[string]any{"uuid": jobUUID, "report": report})
	if err != nil {
		return fmt.Errorf("set job report: %w", wrapQueryError(err))
	}
	return nil
}

// ListJobs returns jobs ordered most recent first, up to limit.
func (c *Client) ListJobs(ctx context.Context, limit int) ([]models.Job, error) {
	if limit <= 0 {
		limit = 100
	}
	results, err := surrealdb.Query[[]models.Job](ctx, c.db, `
		SELECT * FROM job ORDER BY created_at DESC LIMIT $limit
	`, map[string]any{"limit": limit})
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}

	if results == nil || len(*results) == 0 {
		return []models.Job{}, nil
	}
	return (*results)[0].Result, nil
}

// UpdateItemStatus sets an item's status and error message. A nil
// processedContent leaves any previously stored content untouched, so
// status-only writes cannot erase what the scraping stage saved.
func (c *Client) UpdateItemStatus(ctx context.Context, itemID surrealmodels.RecordID, status models.ItemStatus, processedContent, errorMessage *string) error {
	sql := `UPDATE $id SET status = $status, error_message = $error, updated_at = time::now()`
	vars := map[string]any{
		"id":     itemID,
		"status": string(status),
		"error":  errorMessage,
	}
	if processedContent != nil {
		sql += `, processed_content = $processed`
		vars["processed"] = *processedContent
	}

	_, err := surrealdb.Query[any](ctx, c.db, sql, vars)
	if err != nil {
		return fmt.Errorf("update item status: %w", wrapQueryError(err))
	}
	return nil
}
