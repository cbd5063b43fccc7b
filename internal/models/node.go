package models

import (
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// NodeKind distinguishes the semantic type of a graph vertex. Facts,
// predictions and information gaps all share the node table so relation
// building and traversal stay type-agnostic.
type NodeKind string

const (
	NodeKindFact        NodeKind = "fact"
	NodeKindPrediction  NodeKind = "prediction"
	NodeKindMissingInfo NodeKind = "missing_information"
)

// Valid reports whether the kind is one of the known node kinds.
func (k NodeKind) Valid() bool {
	switch k {
	case NodeKindFact, NodeKindPrediction, NodeKindMissingInfo:
		return true
	}
	return false
}

// Node is a knowledge-graph vertex. Job is optional: nodes can exist
// independently of any job.
type Node struct {
	ID        surrealmodels.RecordID  `json:"id"`
	Job       *surrealmodels.RecordID `json:"job,omitempty"`
	Kind      NodeKind                `json:"kind"`
	Value     string                  `json:"value"`
	Metadata  map[string]any          `json:"metadata,omitempty"`
	CreatedAt time.Time               `json:"created_at"`
	UpdatedAt time.Time               `json:"updated_at"`
}
