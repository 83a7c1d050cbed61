package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/kailas-cloud/cvindex/internal/domain"
	"github.com/kailas-cloud/cvindex/internal/vectorstore"
)

// Search types reported in Response.SearchType.
const (
	TypeStandard = "standard"
	TypeFiltered = "filtered"
)

// Request is a text query with optional decoded JSON filters.
// Empty Collection and zero Limit select the service defaults.
type Request struct {
	Collection string
	Query      string
	Filters    any
	Limit      int
}

// Response lists results as plain maps ready for JSON encoding.
type Response struct {
	Results      []map[string]any `json:"results"`
	ResultsCount int              `json:"results_count"`
	SearchType   string           `json:"search_type"`
}

// Service runs standard and filtered searches.
type Service struct {
	store        Store
	collection   string
	defaultLimit int
	maxLimit     int
}

// New creates a search service querying collection by default.
func New(store Store, collection string) *Service {
	return &Service{store: store, collection: collection, defaultLimit: 10, maxLimit: 100}
}

// WithLimits configures the default and maximum result counts.
func (s *Service) WithLimits(defaultLimit, maxLimit int) *Service {
	if defaultLimit > 0 {
		s.defaultLimit = defaultLimit
	}
	if maxLimit > 0 {
		s.maxLimit = maxLimit
	}
	return s
}

// Search runs req. A non-nil Filters value makes it a filtered search; filters
// the store cannot use yield an empty result list, not an error.
func (s *Service) Search(ctx context.Context, req Request) (Response, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return Response{}, fmt.Errorf("query is required: %w", domain.ErrInvalidRequest)
	}
	if req.Limit < 0 {
		return Response{}, fmt.Errorf("limit must not be negative: %w", domain.ErrInvalidRequest)
	}

	collection := req.Collection
	if collection == "" {
		collection = s.collection
	}
	limit := req.Limit
	if limit == 0 {
		limit = s.defaultLimit
	}
	if limit > s.maxLimit {
		limit = s.maxLimit
	}

	q := vectorstore.Query{Text: query}
	var (
		results []vectorstore.SearchResult
		err     error
	)
	searchType := TypeStandard
	if req.Filters != nil {
		searchType = TypeFiltered
		results, err = s.store.FilteredSearchRaw(ctx, collection, q, req.Filters, limit)
	} else {
		results, err = s.store.Search(ctx, collection, q, limit)
	}
	if err != nil {
		return Response{}, fmt.Errorf("search %s: %w", collection, err)
	}

	out := make([]map[string]any, len(results))
	for i, r := range results {
		out[i] = toMap(r)
	}
	return Response{Results: out, ResultsCount: len(out), SearchType: searchType}, nil
}

func toMap(r vectorstore.SearchResult) map[string]any {
	m := map[string]any{
		"id":       r.ID,
		"document": r.Document,
		"metadata": r.Metadata,
		"score":    r.Score,
	}
	if r.Distance != nil {
		m["distance"] = *r.Distance
	} else {
		m["distance"] = nil
	}
	return m
}
