// Package models defines data structures for the Factgraph processing pipeline.
package models

import (
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// JobStatus represents the lifecycle state of a processing job.
// Transitions are monotonic: pending -> processing -> completed|failed.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Terminal reports whether the status is final.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// Job represents one submitted batch of items tracked through the pipeline.
type Job struct {
	ID           surrealmodels.RecordID `json:"id"`
	UUID         string                 `json:"uuid"`
	Status       JobStatus              `json:"status"`
	ErrorMessage *string                `json:"error_message,omitempty"`
	Report       *Report                `json:"report,omitempty"`
	CreatedAt    time.Time              `json:"created_at"`
	UpdatedAt    time.Time              `json:"updated_at"`
	CompletedAt  *time.Time             `json:"completed_at,omitempty"`
}

// JobDetail is a job together with its items and per-status counts,
// the shape returned by status queries.
type JobDetail struct {
	Job            Job    `json:"job"`
	Items          []Item `json:"items"`
	TotalItems     int    `json:"total_items"`
	CompletedItems int    `json:"completed_items"`
	FailedItems    int    `json:"failed_items"`
}
