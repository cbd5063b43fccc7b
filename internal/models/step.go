package models

import (
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// StepType identifies a pipeline stage.
type StepType string

const (
	StepTypeExtraction StepType = "extraction"
	StepTypeValidation StepType = "validation"
	StepTypeReasoning  StepType = "reasoning"
	StepTypeScenario   StepType = "scenario_generation"
	StepTypeScraping   StepType = "scraping"
)

// StepStatus represents the state of one audited stage execution.
type StepStatus string

const (
	StepStatusPending    StepStatus = "pending"
	StepStatusProcessing StepStatus = "processing"
	StepStatusCompleted  StepStatus = "completed"
	StepStatusFailed     StepStatus = "failed"
	StepStatusSkipped    StepStatus = "skipped"
)

// Terminal reports whether the step status is final.
func (s StepStatus) Terminal() bool {
	switch s {
	case StepStatusCompleted, StepStatusFailed, StepStatusSkipped:
		return true
	}
	return false
}

// Step is the audit record of one stage execution for a job. Sequence
// numbers are job-local and strictly reflect execution order. Input and
// output payloads are opaque to the ledger.
type Step struct {
	ID           surrealmodels.RecordID `json:"id"`
	Job          surrealmodels.RecordID `json:"job"`
	Seq          int                    `json:"seq"`
	Type         StepType               `json:"type"`
	Status       StepStatus             `json:"status"`
	Input        map[string]any         `json:"input,omitempty"`
	Output       map[string]any         `json:"output,omitempty"`
	ErrorMessage *string                `json:"error_message,omitempty"`
	CreatedAt    time.Time              `json:"created_at"`
	CompletedAt  *time.Time             `json:"completed_at,omitempty"`
}
