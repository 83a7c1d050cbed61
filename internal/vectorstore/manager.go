package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/cvindex/internal/domain"
	"github.com/kailas-cloud/cvindex/internal/domain/search/filter"
	"github.com/kailas-cloud/cvindex/internal/metrics"
	colrepo "github.com/kailas-cloud/cvindex/internal/repository/collection"
)

// DefaultCollectionMetadata is attached by RecreateCollection when none is given.
var DefaultCollectionMetadata = map[string]any{"about": "new collection"}

// Manager is the vector store facade. Backend failures and calls made while
// disconnected are logged and turned into false, nil or zero values; only
// embedding failures are returned as errors.
//
// A Manager is not safe for concurrent use; wrap it in Synchronized to share it.
type Manager struct {
	kind         Kind
	backend      backend
	embedder     domain.Embedder
	logger       *zap.Logger
	filterable   []string
	readyTimeout time.Duration
	hnsw         colrepo.HNSWConfig
	connected    bool
}

// Option configures a Manager.
type Option func(*Manager)

// WithEmbedder sets the embedder used for inserts and text queries.
func WithEmbedder(e domain.Embedder) Option {
	return func(m *Manager) { m.embedder = e }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithFilterableFields sets the metadata fields indexed for filtering (redis only;
// qdrant filters any payload field).
func WithFilterableFields(fields ...string) Option {
	return func(m *Manager) { m.filterable = append([]string(nil), fields...) }
}

// WithReadyTimeout makes Connect wait up to d for the backend to answer.
func WithReadyTimeout(d time.Duration) Option {
	return func(m *Manager) { m.readyTimeout = d }
}

// WithHNSW sets the redis HNSW graph parameters. Zero values keep the defaults.
func WithHNSW(m, efConstruction int) Option {
	return func(mgr *Manager) { mgr.hnsw = colrepo.HNSWConfig{M: m, EFConstruct: efConstruction} }
}

// New creates a Manager for kind. The qdrant backend requires an embedder.
func New(kind Kind, opts ...Option) (*Manager, error) {
	m := &Manager{kind: kind, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(m)
	}

	m.logger = m.logger.With(zap.String("backend", string(kind)))

	switch kind {
	case KindRedis:
		m.backend = newRedisBackend(m.filterable, m.readyTimeout, m.hnsw, m.logger)
	case KindQdrant:
		if m.embedder == nil {
			return nil, fmt.Errorf("qdrant backend requires an embedder: %w", domain.ErrInvalidRequest)
		}
		m.backend = newQdrantBackend()
	default:
		return nil, fmt.Errorf("unknown vector store backend %q: %w", kind, domain.ErrInvalidRequest)
	}

	return m, nil
}

// Kind returns the backend variant.
func (m *Manager) Kind() Kind { return m.kind }

// IsConnected reports whether Connect succeeded and Disconnect has not been called since.
func (m *Manager) IsConnected() bool { return m.connected }

// HasEmbedder reports whether an embedder is configured.
func (m *Manager) HasEmbedder() bool { return m.embedder != nil }

// Connect opens the backend session. Port 0 selects the backend's nominal port.
func (m *Manager) Connect(ctx context.Context, params ConnectionParams) bool {
	if m.connected {
		_ = m.backend.close()
		m.connected = false
	}
	if params.Port == 0 {
		params.Port = m.kind.DefaultPort()
	}

	start := time.Now()
	err := m.backend.connect(ctx, params)
	m.observe("connect", start, err)
	if err != nil {
		m.logger.Error("vector store connect failed",
			zap.String("addr", params.addr()),
			zap.Error(err),
		)
		return false
	}

	m.connected = true
	m.logger.Info("vector store connected", zap.String("addr", params.addr()))
	return true
}

// Disconnect releases the session. Calling it again is a no-op that returns true.
func (m *Manager) Disconnect() bool {
	if !m.connected {
		return true
	}
	m.connected = false
	if err := m.backend.close(); err != nil {
		m.logger.Warn("vector store close failed", zap.Error(err))
		return false
	}
	m.logger.Info("vector store disconnected")
	return true
}

// ListCollections returns the collection names, or nil when not connected.
func (m *Manager) ListCollections(ctx context.Context) []string {
	if !m.ready("list_collections") {
		return nil
	}
	start := time.Now()
	names, err := m.backend.listCollections(ctx)
	if m.failed("list_collections", start, err) {
		return nil
	}
	return names
}

// GetCollectionInfo describes a collection. A missing collection yields the zero value.
func (m *Manager) GetCollectionInfo(ctx context.Context, name string) CollectionInfo {
	if !m.ready("get_collection_info") {
		return CollectionInfo{}
	}
	start := time.Now()
	info, err := m.backend.collectionInfo(ctx, name)
	if m.failed("get_collection_info", start, err, zap.String("collection", name)) {
		return CollectionInfo{}
	}
	return info
}

// CollectionExists reports whether the collection exists.
func (m *Manager) CollectionExists(ctx context.Context, name string) bool {
	if !m.ready("collection_exists") {
		return false
	}
	start := time.Now()
	ok, err := m.backend.collectionExists(ctx, name)
	if m.failed("collection_exists", start, err, zap.String("collection", name)) {
		return false
	}
	return ok
}

// CreateCollection creates a collection. With an embedder the collection holds
// cosine vectors of the embedder's dimensions; without one it is text-only.
func (m *Manager) CreateCollection(ctx context.Context, name string, metadata map[string]any) bool {
	if !m.ready("create_collection") {
		return false
	}
	start := time.Now()
	err := m.backend.createCollection(ctx, name, metadata, m.dimensions())
	if m.failed("create_collection", start, err, zap.String("collection", name)) {
		return false
	}
	m.logger.Info("collection created", zap.String("collection", name), zap.Int("dimensions", m.dimensions()))
	return true
}

// DeleteCollection drops a collection and its records.
func (m *Manager) DeleteCollection(ctx context.Context, name string) bool {
	if !m.ready("delete_collection") {
		return false
	}
	start := time.Now()
	err := m.backend.deleteCollection(ctx, name)
	if m.failed("delete_collection", start, err, zap.String("collection", name)) {
		return false
	}
	m.logger.Info("collection deleted", zap.String("collection", name))
	return true
}

// RecreateCollection deletes the collection if present, then creates it.
// nil metadata is replaced by DefaultCollectionMetadata.
func (m *Manager) RecreateCollection(ctx context.Context, name string, metadata map[string]any) bool {
	if !m.ready("recreate_collection") {
		return false
	}
	if metadata == nil {
		metadata = DefaultCollectionMetadata
	}
	if m.CollectionExists(ctx, name) && !m.DeleteCollection(ctx, name) {
		return false
	}
	return m.CreateCollection(ctx, name, metadata)
}

// InsertDocuments stores position-aligned documents, metadatas and ids. With an
// embedder every document is embedded first; an embedding failure is returned.
// Mismatched lengths, an empty id and backend failures yield false.
func (m *Manager) InsertDocuments(
	ctx context.Context, collection string, documents []string, metadatas []map[string]any, ids []string,
) (bool, error) {
	if !m.ready("insert_documents") {
		return false, nil
	}
	if len(documents) != len(metadatas) || len(documents) != len(ids) {
		m.logger.Error("insert rejected: inputs are not position-aligned",
			zap.String("collection", collection),
			zap.Int("documents", len(documents)),
			zap.Int("metadatas", len(metadatas)),
			zap.Int("ids", len(ids)),
		)
		return false, nil
	}
	if len(documents) == 0 {
		return true, nil
	}

	vectors, err := m.embedAll(ctx, documents)
	if err != nil {
		return false, err
	}

	records := make([]record, len(documents))
	for i := range documents {
		records[i] = record{id: ids[i], document: documents[i], metadata: metadatas[i]}
		if vectors != nil {
			records[i].vector = vectors[i]
		}
	}

	start := time.Now()
	err = m.backend.insert(ctx, collection, records)
	if m.failed("insert_documents", start, err, zap.String("collection", collection)) {
		return false, nil
	}
	metrics.VectorStoreDocumentsInserted.WithLabelValues(string(m.kind), collection).Add(float64(len(records)))
	m.logger.Debug("documents inserted", zap.String("collection", collection), zap.Int("count", len(records)))
	return true, nil
}

// Search returns up to limit results by descending score. A text query is
// embedded when an embedder is configured and searched as text otherwise.
func (m *Manager) Search(ctx context.Context, collection string, q Query, limit int) ([]SearchResult, error) {
	return m.search(ctx, "search", collection, q, filter.Expression{}, limit)
}

// FilteredSearch is Search constrained by spec. An empty spec behaves as Search.
func (m *Manager) FilteredSearch(
	ctx context.Context, collection string, q Query, spec filter.Spec, limit int,
) ([]SearchResult, error) {
	expr, err := filter.Translate(spec)
	if err != nil {
		m.logger.Warn("filter rejected", zap.String("collection", collection), zap.Error(err))
		return nil, nil
	}
	return m.search(ctx, "filtered_search", collection, q, expr, limit)
}

// FilteredSearchRaw parses decoded JSON filters and runs FilteredSearch. Input that
// is not a field mapping is logged and yields no results; unusable fields are skipped.
func (m *Manager) FilteredSearchRaw(
	ctx context.Context, collection string, q Query, raw any, limit int,
) ([]SearchResult, error) {
	spec, skipped, err := filter.ParseSpec(raw)
	if err != nil {
		m.logger.Warn("invalid filters", zap.String("collection", collection), zap.Error(err))
		return nil, nil
	}
	for _, s := range skipped {
		m.logger.Warn("filter field skipped", zap.String("field", s.Field), zap.String("reason", s.Reason))
	}
	return m.FilteredSearch(ctx, collection, q, spec, limit)
}

// SearchByText embeds text when an embedder is configured and otherwise runs
// the backend's text search.
func (m *Manager) SearchByText(ctx context.Context, collection, text string, limit int) ([]SearchResult, error) {
	return m.search(ctx, "search_by_text", collection, Query{Text: text}, filter.Expression{}, limit)
}

func (m *Manager) search(
	ctx context.Context, op, collection string, q Query, expr filter.Expression, limit int,
) ([]SearchResult, error) {
	if !m.ready(op) {
		return nil, nil
	}
	if err := q.validate(); err != nil {
		m.logger.Warn("query rejected", zap.String("op", op), zap.Error(err))
		return nil, nil
	}
	if limit <= 0 {
		m.logger.Warn("query rejected", zap.String("op", op), zap.Int("limit", limit))
		return nil, nil
	}

	vector := q.Embedding
	if vector == nil && m.embedder != nil {
		res, err := m.embedder.Embed(ctx, q.Text)
		if err != nil {
			return nil, embeddingError(err)
		}
		vector = res.Embedding
	}

	start := time.Now()
	var (
		results []SearchResult
		err     error
	)
	if vector != nil {
		results, err = m.backend.searchVector(ctx, collection, vector, expr, limit)
	} else {
		results, err = m.backend.searchText(ctx, collection, q.Text, expr, limit)
	}
	if m.failed(op, start, err, zap.String("collection", collection)) {
		return nil, nil
	}
	return results, nil
}

// embedAll returns nil vectors when no embedder is configured.
func (m *Manager) embedAll(ctx context.Context, texts []string) ([][]float32, error) {
	if m.embedder == nil {
		return nil, nil
	}
	res, err := m.embedder.BatchEmbed(ctx, texts)
	if err != nil {
		return nil, embeddingError(err)
	}
	if err := res.Check(len(texts), m.embedder.Dimensions()); err != nil {
		return nil, embeddingError(err)
	}
	return res.Embeddings, nil
}

func (m *Manager) dimensions() int {
	if m.embedder == nil {
		return 0
	}
	return m.embedder.Dimensions()
}

// ready logs and reports false when the store is not connected.
func (m *Manager) ready(op string) bool {
	if !m.connected {
		m.logger.Warn("vector store not connected", zap.String("op", op))
		return false
	}
	return true
}

// failed records the operation and logs err; it reports whether err was non-nil.
func (m *Manager) failed(op string, start time.Time, err error, fields ...zap.Field) bool {
	m.observe(op, start, err)
	if err == nil {
		return false
	}
	m.logger.Error("vector store operation failed",
		append(fields, zap.String("op", op), zap.Error(err))...,
	)
	return true
}

func (m *Manager) observe(op string, start time.Time, err error) {
	metrics.ObserveVectorStoreOp(string(m.kind), op, start, err == nil)
}

func embeddingError(err error) error {
	if errors.Is(err, domain.ErrEmbeddingProviderError) {
		return err
	}
	return fmt.Errorf("%w: %w", domain.ErrEmbeddingProviderError, err)
}
