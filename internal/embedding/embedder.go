// Package embedding provides text embedding generation with multiple backend support.
package embedding

import (
	"fmt"

	"context"

	"github.com/mwierzba/factgraph/internal/config"
)

// Embedder defines the interface for text embedding providers.
// Implementations include Ollama (local) and Voyage AI (API).
type Embedder interface {
	// Embed generates an embedding vector for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts.
	// More efficient than multiple Embed calls for bulk operations.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Model returns the name of the embedding model being used.
	Model() string

	// Dimension returns the embedding vector dimension.
	// CRITICAL: Must match the HNSW index dimension in the SurrealDB schema.
	Dimension() int
}

// New creates an Embedder from configuration. Returns (nil, nil) when no
// embedding provider is configured; facts are then promoted to the
// corpus without vectors and similarity search is unavailable.
func New(cfg *config.Config) (Embedder, error) {
	switch cfg.EmbedProvider {
	case "":
		return nil, nil

	case config.ProviderOllama:
		return NewOllamaClient(cfg.OllamaHost, cfg.EmbedModel, cfg.EmbedDimension)

	case config.ProviderVoyage:
		if cfg.VoyageAPIKey == "" {
			return nil, fmt.Errorf("voyage provider requires VOYAGE_API_KEY")
		}
		return NewVoyageClient(cfg.VoyageAPIKey, cfg.EmbedModel, cfg.EmbedDimension)

	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", cfg.EmbedProvider)
	}
}
