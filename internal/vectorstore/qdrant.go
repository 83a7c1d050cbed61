package vectorstore

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/cvindex/internal/db/qdrant"
	"github.com/kailas-cloud/cvindex/internal/domain"
	"github.com/kailas-cloud/cvindex/internal/domain/search/filter"
)

// qdrantStore is the subset of qdrant.Store the backend uses (ISP).
//
//nolint:interfacebloat // collection lifecycle + points
type qdrantStore interface {
	Ping(ctx context.Context) error
	Close() error
	ListCollections(ctx context.Context) ([]string, error)
	CollectionExists(ctx context.Context, name string) (bool, error)
	CreateCollection(ctx context.Context, name string, dims int) error
	DeleteCollection(ctx context.Context, name string) error
	CollectionInfo(ctx context.Context, name string) (qdrant.CollectionInfo, error)
	Upsert(ctx context.Context, collection string, points []qdrant.Point) error
	Search(ctx context.Context, collection string, vector []float32, expr filter.Expression, limit int) ([]qdrant.Hit, error)
}

type qdrantDialer func(params ConnectionParams) (qdrantStore, error)

func dialQdrant(params ConnectionParams) (qdrantStore, error) {
	return qdrant.NewStore(qdrant.Config{
		Host:   params.Host,
		Port:   params.Port,
		APIKey: params.APIKey,
		TLS:    params.HTTPS,
	})
}

// qdrantBackend stores one point per record; the semantic id travels in the payload.
type qdrantBackend struct {
	dial  qdrantDialer
	store qdrantStore
}

func newQdrantBackend() *qdrantBackend {
	return &qdrantBackend{dial: dialQdrant}
}

func (b *qdrantBackend) connect(ctx context.Context, params ConnectionParams) error {
	s, err := b.dial(params)
	if err != nil {
		return fmt.Errorf("dial qdrant %s: %w", params.addr(), err)
	}
	if err := s.Ping(ctx); err != nil {
		_ = s.Close()
		return fmt.Errorf("qdrant %s not ready: %w", params.addr(), err)
	}
	b.store = s
	return nil
}

func (b *qdrantBackend) close() error {
	if b.store == nil {
		return nil
	}
	err := b.store.Close()
	b.store = nil
	return err
}

func (b *qdrantBackend) listCollections(ctx context.Context) ([]string, error) {
	return b.store.ListCollections(ctx)
}

// collectionInfo reports the vector parameters as metadata; Qdrant keeps no
// user metadata for a collection.
func (b *qdrantBackend) collectionInfo(ctx context.Context, name string) (CollectionInfo, error) {
	info, err := b.store.CollectionInfo(ctx, name)
	if err != nil {
		return CollectionInfo{}, err
	}
	return CollectionInfo{
		Name:       name,
		Count:      info.Count,
		Metadata:   info.Params,
		Dimensions: info.Dimensions,
	}, nil
}

func (b *qdrantBackend) collectionExists(ctx context.Context, name string) (bool, error) {
	return b.store.CollectionExists(ctx, name)
}

func (b *qdrantBackend) createCollection(ctx context.Context, name string, _ map[string]any, dims int) error {
	exists, err := b.store.CollectionExists(ctx, name)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("collection %s: %w", name, domain.ErrAlreadyExists)
	}
	return b.store.CreateCollection(ctx, name, dims)
}

func (b *qdrantBackend) deleteCollection(ctx context.Context, name string) error {
	return b.store.DeleteCollection(ctx, name)
}

func (b *qdrantBackend) insert(ctx context.Context, collection string, records []record) error {
	points := make([]qdrant.Point, len(records))
	for i, r := range records {
		if len(r.vector) == 0 {
			return fmt.Errorf("record %s has no vector: %w", r.id, domain.ErrInvalidRequest)
		}
		points[i] = qdrant.Point{TextID: r.id, Vector: r.vector, Document: r.document, Metadata: r.metadata}
	}
	return b.store.Upsert(ctx, collection, points)
}

func (b *qdrantBackend) searchVector(
	ctx context.Context, collection string, vector []float32, expr filter.Expression, limit int,
) ([]SearchResult, error) {
	hits, err := b.store.Search(ctx, collection, vector, expr, limit)
	if err != nil {
		return nil, err
	}
	out := make([]SearchResult, len(hits))
	for i, h := range hits {
		out[i] = cosineResult(h.TextID, h.Document, h.Metadata, h.Score)
	}
	return out, nil
}

func (b *qdrantBackend) searchText(context.Context, string, string, filter.Expression, int) ([]SearchResult, error) {
	return nil, domain.ErrKeywordSearchNotSupported
}
