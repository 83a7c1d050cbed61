// Package search runs KNN and BM25 queries over a collection's FT index and maps
// hits back to records.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kailas-cloud/cvindex/internal/db"
	"github.com/kailas-cloud/cvindex/internal/domain"
	"github.com/kailas-cloud/cvindex/internal/domain/search/filter"
)

// store is the consumer interface for search operations (ISP).
type store interface {
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchBM25(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error)
}

// Hit is one matched record. Score is a cosine similarity for KNN hits and a BM25
// score for text hits.
type Hit struct {
	ID       string
	Document string
	Metadata map[string]any
	Score    float64
}

var returnFields = []string{db.FieldContent, db.FieldMetadata}

// Repo runs searches.
type Repo struct {
	store store
}

// New creates a search repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// SearchKNN performs a KNN (vector similarity) search on a collection with filter pre-filtering.
func (r *Repo) SearchKNN(
	ctx context.Context, collectionName string,
	vector []float32, filters filter.Expression, topK int,
) ([]Hit, error) {
	sr, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    indexName(collectionName),
		Filters:      filters,
		Vector:       vector,
		K:            topK,
		ReturnFields: returnFields,
	})
	if err != nil {
		return nil, fmt.Errorf("search knn %s: %w", collectionName, err)
	}

	return parseHits(sr, collectionName), nil
}

// SearchBM25 performs a BM25 keyword search over record content.
func (r *Repo) SearchBM25(
	ctx context.Context, collectionName string,
	query string, filters filter.Expression, topK int,
) ([]Hit, error) {
	sr, err := r.store.SearchBM25(ctx, &db.TextQuery{
		IndexName:    indexName(collectionName),
		Query:        query,
		Filters:      filters,
		TopK:         topK,
		ReturnFields: returnFields,
	})
	if err != nil {
		return nil, fmt.Errorf("search bm25 %s: %w", collectionName, err)
	}

	return parseHits(sr, collectionName), nil
}

// parseHits converts db.SearchResult into hits. The record id is the key suffix.
func parseHits(sr *db.SearchResult, collectionName string) []Hit {
	if sr == nil || len(sr.Entries) == 0 {
		return nil
	}

	prefix := fmt.Sprintf("%s%s:", domain.KeyPrefix, collectionName)
	hits := make([]Hit, 0, len(sr.Entries))
	for _, entry := range sr.Entries {
		hits = append(hits, Hit{
			ID:       strings.TrimPrefix(entry.Key, prefix),
			Document: entry.Fields[db.FieldContent],
			Metadata: parseMetadata(entry.Fields[db.FieldMetadata]),
			Score:    entry.Score,
		})
	}
	return hits
}

// parseMetadata decodes the stored payload; a missing or corrupt payload yields an empty map.
func parseMetadata(raw string) map[string]any {
	m := map[string]any{}
	if raw == "" {
		return m
	}
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return map[string]any{}
	}
	return m
}

func indexName(collectionName string) string {
	return fmt.Sprintf("%s%s:idx", domain.KeyPrefix, collectionName)
}
