package domain

import (
	"context"
	"fmt"
)

// Embedder is the shared text vectorization contract between layers.
// Every vector it returns has Dimensions() components.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
	BatchEmbed(ctx context.Context, texts []string) (BatchEmbeddingResult, error)
	Dimensions() int
}

// HealthChecker verifies embedding provider availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// EmbeddingResult carries the embedding vector and token usage through the decorator chain.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// BatchEmbeddingResult carries multiple embedding vectors and aggregate token usage.
// Embeddings[i] belongs to the i-th input text.
type BatchEmbeddingResult struct {
	Embeddings   [][]float32
	PromptTokens int
	TotalTokens  int
}

// Check verifies the result holds n vectors of dims components (dims 0 skips the size check).
func (r BatchEmbeddingResult) Check(n, dims int) error {
	if len(r.Embeddings) != n {
		return fmt.Errorf("got %d embeddings for %d texts: %w", len(r.Embeddings), n, ErrEmbeddingProviderError)
	}
	if dims == 0 {
		return nil
	}
	for i, v := range r.Embeddings {
		if len(v) != dims {
			return fmt.Errorf("embedding %d has %d dimensions, want %d: %w", i, len(v), dims, ErrVectorDimMismatch)
		}
	}
	return nil
}
