package db

import (
	"context"
	"fmt"

	"github.com/surrealdb/surrealdb.go"
)

// Stats holds row counts across the main tables.
type Stats struct {
	Jobs        int `json:"jobs"`
	Items       int `json:"items"`
	Steps       int `json:"steps"`
	Facts       int `json:"facts"`
	CorpusFacts int `json:"corpus_facts"`
	Nodes       int `json:"nodes"`
	Relations   int `json:"relations"`
}

type countRow struct {
	Count int `json:"count"`
}

// GetStats counts rows in each table in one round trip.
func (c *Client) GetStats(ctx context.Context) (*Stats, error) {
	results, err := surrealdb.Query[[]countRow](ctx, c.db, `
		SELECT count() FROM job GROUP ALL;
		SELECT count() FROM item GROUP ALL;
		SELECT count() FROM step GROUP ALL;
		SELECT count() FROM fact GROUP ALL;
		SELECT count() FROM corpus_fact GROUP ALL;
		SELECT count() FROM node GROUP ALL;
		SELECT count() FROM relates GROUP ALL;
	`, nil)
	if err != nil {
		return nil, fmt.Errorf("get stats: %w", err)
	}

	counts := make([]int, 7)
	if results != nil {
		for i, r := range *results {
			if i >= len(counts) {
				break
			}
			if len(r.Result) > 0 {
				counts[i] = r.Result[0].Count
			}
		}
	}

	return &Stats{
		Jobs:        counts[0],
		Items:       counts[1],
		Steps:       counts[2],
		Facts:       counts[3],
		CorpusFacts: counts[4],
		Nodes:       counts[5],
		Relations:   counts[6],
	}, nil
}
