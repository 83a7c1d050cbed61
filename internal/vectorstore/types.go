// Package vectorstore is the backend-neutral vector index used by ingestion and
// search. A Manager fronts one of a closed set of backends selected by Kind.
package vectorstore

import (
	"fmt"
	"strings"
)

// Kind selects the backend variant.
type Kind string

const (
	// KindRedis stores records as Redis hashes indexed by RediSearch. It can index
	// text without an embedder and search it with BM25.
	KindRedis Kind = "redis"
	// KindQdrant stores points in Qdrant. It needs an embedder.
	KindQdrant Kind = "qdrant"
)

// Nominal ports applied when ConnectionParams.Port is 0.
const (
	DefaultRedisPort  = 6379
	DefaultQdrantPort = 6334
)

// ParseKind validates a backend name.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindRedis, KindQdrant:
		return k, nil
	default:
		return "", fmt.Errorf("unknown vector store backend %q", s)
	}
}

// DefaultPort returns the nominal port of the backend.
func (k Kind) DefaultPort() int {
	if k == KindQdrant {
		return DefaultQdrantPort
	}
	return DefaultRedisPort
}

// ConnectionParams describes how to reach the backend.
// PreferGRPC is accepted for compatibility; the Qdrant backend always speaks gRPC.
type ConnectionParams struct {
	Host       string
	Port       int
	APIKey     string
	HTTPS      bool
	PreferGRPC bool
	Password   string
}

func (p ConnectionParams) addr() string {
	return fmt.Sprintf("%s:%d", p.Host, p.Port)
}

// SearchResult is one ranked hit. Score is authoritative for ranking, higher is better.
// Distance is 1 - Score for cosine hits and nil for text (BM25) hits.
type SearchResult struct {
	ID       string
	Document string
	Metadata map[string]any
	Score    float64
	Distance *float64
}

// CollectionInfo describes a collection. The zero value is returned when the
// collection is missing or the store is not connected. Dimensions 0 means unknown.
type CollectionInfo struct {
	Name       string
	Count      int
	Metadata   map[string]any
	Dimensions int
}

// Query is a search input. Exactly one of Text and Embedding must be set.
type Query struct {
	Text      string
	Embedding []float32
}

func (q Query) validate() error {
	hasText := strings.TrimSpace(q.Text) != ""
	hasVec := len(q.Embedding) > 0
	if hasText == hasVec {
		return fmt.Errorf("exactly one of query text and query embedding is required")
	}
	return nil
}

func cosineResult(id, document string, metadata map[string]any, score float64) SearchResult {
	d := 1 - score
	if metadata == nil {
		metadata = map[string]any{}
	}
	return SearchResult{ID: id, Document: document, Metadata: metadata, Score: score, Distance: &d}
}

func textResult(id, document string, metadata map[string]any, score float64) SearchResult {
	if metadata == nil {
		metadata = map[string]any{}
	}
	return SearchResult{ID: id, Document: document, Metadata: metadata, Score: score}
}
