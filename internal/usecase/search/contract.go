package search

import (
	"context"

	"github.com/kailas-cloud/cvindex/internal/vectorstore"
)

// Store runs queries against the vector store.
type Store interface {
	Search(ctx context.Context, collection string, q vectorstore.Query, limit int) ([]vectorstore.SearchResult, error)
	FilteredSearchRaw(
		ctx context.Context, collection string, q vectorstore.Query, raw any, limit int,
	) ([]vectorstore.SearchResult, error)
}
