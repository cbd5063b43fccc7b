package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/mwierzba/factgraph/internal/models"
	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// FactInsert describes one extracted fact row.
type FactInsert struct {
	Text          string
	SourceType    string
	SourceExcerpt string
	Language      string
	Item          *surrealmodels.RecordID
	Metadata      map[string]any
}

// CreateFacts inserts a batch of facts produced by one step in a single
// query. Returns the created rows in input order.
func (c *Client) CreateFacts(ctx context.Context, jobID, stepID surrealmodels.RecordID, facts []FactInsert) ([]models.Fact, error) {
	if len(facts) == 0 {
		return []models.Fact{}, nil
	}

	var sb strings.Builder
	vars := map[string]any{"job": jobID, "step": stepID}
	for i, f := range facts {
		itemClause := ""
		if f.Item != nil {
			itemClause = fmt.Sprintf(", item = $item_%d", i)
			vars[fmt.Sprintf("item_%d", i)] = *f.Item
		}
		sb.WriteString(fmt.Sprintf(
			"CREATE fact SET job = $job, step = $step, text = $text_%d, source_type = $source_%d, source_excerpt = $excerpt_%d, language = $lang_%d, metadata = $meta_%d%s;\n",
			i, i, i, i, i, itemClause))
		vars[fmt.Sprintf("text_%d", i)] = f.Text
		vars[fmt.Sprintf("source_%d", i)] = f.SourceType
		vars[fmt.Sprintf("excerpt_%d", i)] = f.SourceExcerpt
		vars[fmt.Sprintf("lang_%d", i)] = f.Language
		vars[fmt.Sprintf("meta_%d", i)] = f.Metadata
	}

	results, err := surrealdb.Query[[]models.Fact](ctx, c.db, sb.String(), vars)
	if err != nil {
		return nil, fmt.Errorf("create facts: %w", wrapQueryError(err))
	}

	created := make([]models.Fact, 0, len(facts))
	if results != nil {
		for _, r := range *results {
			created = append(created, r.Result...)
		}
	}
	return created, nil
}

// GetFactsByJob returns all facts extracted for a job, oldest first.
func (c *Client) GetFactsByJob(ctx context.Context, jobUUID string) ([]models.Fact, error) {
	results, err := surrealdb.Query[[]models.Fact](ctx, c.db, `
		SELECT * FROM fact
		WHERE job = (SELECT VALUE id FROM ONLY job WHERE uuid = $uuid LIMIT 1)
		ORDER BY created_at
	`, map[string]any{"uuid": jobUUID})
	if err != nil {
		return nil, fmt.Errorf("get facts: %w", err)
	}

	if results == nil || len(*results) == 0 {
		return []models.Fact{}, nil
	}
	return (*results)[0].Result, nil
}

// MarkFactValidated flags a fact as having passed validation, with an
// updated confidence score.
func (c *Client) MarkFactValidated(ctx context.Context, factID surrealmodels.RecordID, confidence float64) error {
	_, err := surrealdb.Query[any](ctx, c.db, `
		UPDATE $id SET validated = true, confidence = $confidence
	`, map[string]any{"id": factID, "confidence": confidence})
	if err != nil {
		return fmt.Errorf("mark fact validated: %w", wrapQueryError(err))
	}
	return nil
}

// PromoteFact copies a validated fact into the shared corpus together
// with its embedding vector. The corpus row is independent of the job.
// A nil embedding leaves the field unset, so the fact stays outside the
// vector index but remains text-searchable.
func (c *Client) PromoteFact(ctx context.Context, fact models.Fact, embedding []float32) (*models.CorpusFact, error) {
	sql := `
		CREATE corpus_fact SET
			text = $text,
			language = $language`
	vars := map[string]any{
		"text":     fact.Text,
		"language": fact.Language,
	}
	if embedding != nil {
		sql += ",\n\t\t\tembedding = $embedding"
		vars["embedding"] = embedding
	}

	results, err := surrealdb.Query[[]models.CorpusFact](ctx, c.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("promote fact: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, fmt.Errorf("promote fact: empty result")
	}
	return &(*results)[0].Result[0], nil
}

// CorpusMatch is a corpus fact with its similarity to a query vector.
type CorpusMatch struct {
	models.CorpusFact
	Similarity float64 `json:"similarity"`
}

// SearchCorpus finds the corpus facts nearest to the query embedding
// using the HNSW index, most similar first.
func (c *Client) SearchCorpus(ctx context.Context, embedding []float32, limit int) ([]CorpusMatch, error) {
	if limit <= 0 {
		limit = 5
	}
	sql := fmt.Sprintf(`
		SELECT *, vector::similarity::cosine(embedding, $embedding) AS similarity
		FROM corpus_fact
		WHERE embedding <|%d,40|> $embedding
		ORDER BY similarity DESC
	`, limit)
	results, err := surrealdb.Query[[]CorpusMatch](ctx, c.db, sql, map[string]any{"embedding": embedding})
	if err != nil {
		return nil, fmt.Errorf("search corpus: %w", err)
	}

	if results == nil || len(*results) == 0 {
		return []CorpusMatch{}, nil
	}
	return (*results)[0].Result, nil
}
