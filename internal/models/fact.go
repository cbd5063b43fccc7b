package models

import (
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// DefaultFactConfidence is assigned to facts the extraction stage stores
// when the LLM gives no per-fact signal.
const DefaultFactConfidence = 0.7

// Fact is an atomic statement extracted from an item during a job run.
// It is mutated exactly once, to set Validated during the validation stage,
// and never deleted.
type Fact struct {
	ID            surrealmodels.RecordID  `json:"id"`
	Job           surrealmodels.RecordID  `json:"job"`
	Step          surrealmodels.RecordID  `json:"step"`
	Item          *surrealmodels.RecordID `json:"item,omitempty"`
	Text          string                  `json:"text"`
	SourceType    string                  `json:"source_type"`
	SourceExcerpt string                  `json:"source_excerpt"`
	Confidence    float64                 `json:"confidence"`
	Validated     bool                    `json:"validated"`
	Language      string                  `json:"language"`
	Metadata      map[string]any          `json:"metadata,omitempty"`
	CreatedAt     time.Time               `json:"created_at"`
}

// CorpusFact is a validated fact promoted into the long-lived corpus,
// decoupled from any job. Embedding is optional; vector search only
// considers facts that carry one.
type CorpusFact struct {
	ID        surrealmodels.RecordID `json:"id"`
	Text      string                 `json:"text"`
	Language  string                 `json:"language"`
	Embedding []float32              `json:"embedding,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}
