package domain

import (
	"errors"
	"testing"
)

func TestBatchEmbeddingResult_Check(t *testing.T) {
	res := BatchEmbeddingResult{Embeddings: [][]float32{{1, 0}, {0, 1}}}

	if err := res.Check(2, 2); err != nil {
		t.Fatalf("Check: %v", err)
	}
	if err := res.Check(2, 0); err != nil {
		t.Fatalf("Check without dims: %v", err)
	}
	if err := res.Check(3, 2); !errors.Is(err, ErrEmbeddingProviderError) {
		t.Errorf("count mismatch: got %v", err)
	}
	if err := res.Check(2, 3); !errors.Is(err, ErrVectorDimMismatch) {
		t.Errorf("dims mismatch: got %v", err)
	}
}
