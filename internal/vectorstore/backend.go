package vectorstore

import (
	"context"

	"github.com/kailas-cloud/cvindex/internal/domain/search/filter"
)

// record is one position-aligned insert. vector is nil when no embedder is configured.
type record struct {
	id       string
	document string
	metadata map[string]any
	vector   []float32
}

// backend is implemented by every store variant. The Manager owns connection state,
// embedding and error absorption; backends only talk to their server.
//
//nolint:interfacebloat // one method per Manager operation
type backend interface {
	connect(ctx context.Context, params ConnectionParams) error
	close() error
	listCollections(ctx context.Context) ([]string, error)
	collectionInfo(ctx context.Context, name string) (CollectionInfo, error)
	collectionExists(ctx context.Context, name string) (bool, error)
	createCollection(ctx context.Context, name string, metadata map[string]any, dims int) error
	deleteCollection(ctx context.Context, name string) error
	insert(ctx context.Context, collection string, records []record) error
	searchVector(ctx context.Context, collection string, vector []float32, expr filter.Expression, limit int) ([]SearchResult, error)
	// searchText returns domain.ErrKeywordSearchNotSupported when the backend has no text index.
	searchText(ctx context.Context, collection, text string, expr filter.Expression, limit int) ([]SearchResult, error)
}
