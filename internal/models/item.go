package models

import (
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// ItemType identifies how an item's content is interpreted.
type ItemType string

const (
	// ItemTypeText carries plain text content.
	ItemTypeText ItemType = "text"
	// ItemTypeFile carries a base64-encoded binary document.
	ItemTypeFile ItemType = "file"
	// ItemTypeLink carries an absolute http(s) URL.
	ItemTypeLink ItemType = "link"
)

// ItemStatus mirrors JobStatus at item granularity.
type ItemStatus string

const (
	ItemStatusPending    ItemStatus = "pending"
	ItemStatusProcessing ItemStatus = "processing"
	ItemStatusCompleted  ItemStatus = "completed"
	ItemStatusFailed     ItemStatus = "failed"
)

// Item is one unit of input content within a job. Items are created as an
// immutable batch at submission; only status, processed content and error
// change during processing.
type Item struct {
	ID               surrealmodels.RecordID `json:"id"`
	Job              surrealmodels.RecordID `json:"job"`
	Type             ItemType               `json:"type"`
	Content          string                 `json:"content"`
	Wage             *float64               `json:"wage,omitempty"`
	Status           ItemStatus             `json:"status"`
	ProcessedContent *string                `json:"processed_content,omitempty"`
	ErrorMessage     *string                `json:"error_message,omitempty"`
	Position         int                    `json:"position"`
	CreatedAt        time.Time              `json:"created_at"`
	UpdatedAt        time.Time              `json:"updated_at"`
}

// ItemSpec is the submission-time description of an item, before any
// persistence. Wage is untyped so validation can report non-numeric values
// (e.g. a quoted "abc") instead of failing opaquely at JSON decode time.
type ItemSpec struct {
	Type    string `json:"type"`
	Content string `json:"content"`
	Wage    any    `json:"wage,omitempty"`
}
