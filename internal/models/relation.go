package models

import (
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// Conventional relation types. The field is free text; these are the values
// the reasoning prompts instruct the LLM to use.
const (
	RelationDerivedFrom = "derived_from"
	RelationSupports    = "supports"
	RelationContradicts = "contradicts"
	RelationRequires    = "requires"
	RelationSuggests    = "suggests"
)

// Relation is a directed, typed, confidence-weighted edge between two nodes.
// Duplicate edges are legal and represent independent justifications;
// relations are never mutated after creation.
type Relation struct {
	ID surrealmodels.RecordID `json:"id"`

	In  surrealmodels.RecordID `json:"in"`  // source node
	Out surrealmodels.RecordID `json:"out"` // target node

	RelType    string         `json:"rel_type"`
	Confidence float64        `json:"confidence"`
	Metadata   map[string]any `json:"metadata,omitempty"`

	CreatedAt time.Time `json:"created_at"`

	// Populated only by directional relation queries, for display: the kind
	// and value of the node on the far side of the edge.
	RelatedKind  *NodeKind `json:"related_kind,omitempty"`
	RelatedValue *string   `json:"related_value,omitempty"`
}

// RelationDirection selects which edges of a node a query returns.
type RelationDirection string

const (
	DirectionIncoming RelationDirection = "incoming"
	DirectionOutgoing RelationDirection = "outgoing"
	DirectionBoth     RelationDirection = "both"
)

// Valid reports whether the direction is one of the known values.
func (d RelationDirection) Valid() bool {
	switch d {
	case DirectionIncoming, DirectionOutgoing, DirectionBoth:
		return true
	}
	return false
}
