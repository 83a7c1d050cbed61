package vectorstore

import (
	"context"
	"testing"
	"time"

	"github.com/kailas-cloud/cvindex/internal/db"
	"github.com/kailas-cloud/cvindex/internal/db/qdrant"
	"github.com/kailas-cloud/cvindex/internal/domain"
	"github.com/kailas-cloud/cvindex/internal/domain/search/filter"
)

// mockStore implements db.Store with overridable functions.
type mockStore struct {
	pingFn        func(ctx context.Context) error
	hsetFn        func(ctx context.Context, key string, fields map[string]string) error
	hsetMultiFn   func(ctx context.Context, items []db.HashSetItem) error
	hgetAllFn     func(ctx context.Context, key string) (map[string]string, error)
	delFn         func(ctx context.Context, key string) error
	existsFn      func(ctx context.Context, key string) (bool, error)
	scanFn        func(ctx context.Context, pattern string) ([]string, error)
	createIndexFn func(ctx context.Context, def *db.IndexDefinition) error
	dropIndexFn   func(ctx context.Context, name string, deleteDocs bool) error
	indexInfoFn   func(ctx context.Context, name string) (db.IndexInfo, error)
	searchKNNFn   func(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	searchBM25Fn  func(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error)
	closed        bool
}

func (m *mockStore) Ping(ctx context.Context) error {
	if m.pingFn != nil {
		return m.pingFn(ctx)
	}
	return nil
}

func (m *mockStore) HSet(ctx context.Context, key string, fields map[string]string) error {
	if m.hsetFn != nil {
		return m.hsetFn(ctx, key, fields)
	}
	return nil
}

func (m *mockStore) HSetMulti(ctx context.Context, items []db.HashSetItem) error {
	if m.hsetMultiFn != nil {
		return m.hsetMultiFn(ctx, items)
	}
	return nil
}

func (m *mockStore) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	if m.hgetAllFn != nil {
		return m.hgetAllFn(ctx, key)
	}
	return map[string]string{}, nil
}

func (m *mockStore) Del(ctx context.Context, key string) error {
	if m.delFn != nil {
		return m.delFn(ctx, key)
	}
	return nil
}

func (m *mockStore) Exists(ctx context.Context, key string) (bool, error) {
	if m.existsFn != nil {
		return m.existsFn(ctx, key)
	}
	return false, nil
}

func (m *mockStore) Scan(ctx context.Context, pattern string) ([]string, error) {
	if m.scanFn != nil {
		return m.scanFn(ctx, pattern)
	}
	return nil, nil
}

func (m *mockStore) Get(context.Context, string) ([]byte, error) { return nil, db.ErrKeyNotFound }
func (m *mockStore) Set(context.Context, string, []byte) error   { return nil }
func (m *mockStore) SetWithTTL(context.Context, string, []byte, time.Duration) error {
	return nil
}

func (m *mockStore) CreateIndex(ctx context.Context, def *db.IndexDefinition) error {
	if m.createIndexFn != nil {
		return m.createIndexFn(ctx, def)
	}
	return nil
}

func (m *mockStore) DropIndex(ctx context.Context, name string, deleteDocs bool) error {
	if m.dropIndexFn != nil {
		return m.dropIndexFn(ctx, name, deleteDocs)
	}
	return nil
}

func (m *mockStore) IndexExists(context.Context, string) (bool, error) { return true, nil }

func (m *mockStore) IndexInfo(ctx context.Context, name string) (db.IndexInfo, error) {
	if m.indexInfoFn != nil {
		return m.indexInfoFn(ctx, name)
	}
	return db.IndexInfo{}, nil
}

func (m *mockStore) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	if m.searchKNNFn != nil {
		return m.searchKNNFn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

func (m *mockStore) SearchBM25(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error) {
	if m.searchBM25Fn != nil {
		return m.searchBM25Fn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

func (m *mockStore) Close() { m.closed = true }

func (m *mockStore) WaitForReady(ctx context.Context, _ time.Duration) error { return m.Ping(ctx) }

// mockQdrant implements qdrantStore.
type mockQdrant struct {
	pingFn    func(ctx context.Context) error
	listFn    func(ctx context.Context) ([]string, error)
	existsFn  func(ctx context.Context, name string) (bool, error)
	createFn  func(ctx context.Context, name string, dims int) error
	deleteFn  func(ctx context.Context, name string) error
	infoFn    func(ctx context.Context, name string) (qdrant.CollectionInfo, error)
	upsertFn  func(ctx context.Context, collection string, points []qdrant.Point) error
	searchFn  func(ctx context.Context, collection string, vector []float32, expr filter.Expression, limit int) ([]qdrant.Hit, error)
	closeCall int
}

func (m *mockQdrant) Ping(ctx context.Context) error {
	if m.pingFn != nil {
		return m.pingFn(ctx)
	}
	return nil
}

func (m *mockQdrant) Close() error {
	m.closeCall++
	return nil
}

func (m *mockQdrant) ListCollections(ctx context.Context) ([]string, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, nil
}

func (m *mockQdrant) CollectionExists(ctx context.Context, name string) (bool, error) {
	if m.existsFn != nil {
		return m.existsFn(ctx, name)
	}
	return false, nil
}

func (m *mockQdrant) CreateCollection(ctx context.Context, name string, dims int) error {
	if m.createFn != nil {
		return m.createFn(ctx, name, dims)
	}
	return nil
}

func (m *mockQdrant) DeleteCollection(ctx context.Context, name string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, name)
	}
	return nil
}

func (m *mockQdrant) CollectionInfo(ctx context.Context, name string) (qdrant.CollectionInfo, error) {
	if m.infoFn != nil {
		return m.infoFn(ctx, name)
	}
	return qdrant.CollectionInfo{}, nil
}

func (m *mockQdrant) Upsert(ctx context.Context, collection string, points []qdrant.Point) error {
	if m.upsertFn != nil {
		return m.upsertFn(ctx, collection, points)
	}
	return nil
}

func (m *mockQdrant) Search(
	ctx context.Context, collection string, vector []float32, expr filter.Expression, limit int,
) ([]qdrant.Hit, error) {
	if m.searchFn != nil {
		return m.searchFn(ctx, collection, vector, expr, limit)
	}
	return nil, nil
}

// mockEmbedder returns one fixed-size vector per text.
type mockEmbedder struct {
	dims    int
	err     error
	short   bool
	batches [][]string
}

func (e *mockEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	res, err := e.BatchEmbed(ctx, []string{text})
	if err != nil {
		return domain.EmbeddingResult{}, err
	}
	return domain.EmbeddingResult{Embedding: res.Embeddings[0]}, nil
}

func (e *mockEmbedder) BatchEmbed(_ context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	e.batches = append(e.batches, texts)
	if e.err != nil {
		return domain.BatchEmbeddingResult{}, e.err
	}
	n := len(texts)
	if e.short {
		n--
	}
	out := make([][]float32, n)
	for i := range out {
		v := make([]float32, e.dims)
		v[0] = float32(i + 1)
		out[i] = v
	}
	return domain.BatchEmbeddingResult{Embeddings: out}, nil
}

func (e *mockEmbedder) Dimensions() int { return e.dims }

// allCollectionsExist answers EXISTS as if every collection were present.
func allCollectionsExist(context.Context, string) (bool, error) { return true, nil }

// newRedisManager returns a connected redis-backed Manager over ms.
func newRedisManager(t *testing.T, ms *mockStore, opts ...Option) *Manager {
	t.Helper()
	m, err := New(KindRedis, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	m.backend.(*redisBackend).dial = func(ConnectionParams) (db.Store, error) { return ms, nil }
	if !m.Connect(context.Background(), ConnectionParams{Host: "localhost"}) {
		t.Fatal("Connect returned false")
	}
	return m
}

// newQdrantManager returns a connected qdrant-backed Manager over mq.
func newQdrantManager(t *testing.T, mq *mockQdrant, emb domain.Embedder) *Manager {
	t.Helper()
	m, err := New(KindQdrant, WithEmbedder(emb))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	m.backend.(*qdrantBackend).dial = func(ConnectionParams) (qdrantStore, error) { return mq, nil }
	if !m.Connect(context.Background(), ConnectionParams{Host: "localhost"}) {
		t.Fatal("Connect returned false")
	}
	return m
}
