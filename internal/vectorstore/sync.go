package vectorstore

import (
	"context"
	"sync"

	"github.com/kailas-cloud/cvindex/internal/domain/search/filter"
)

// Synchronized serializes every call to the wrapped Manager.
type Synchronized struct {
	mu sync.Mutex
	m  *Manager
}

// NewSynchronized wraps m.
func NewSynchronized(m *Manager) *Synchronized {
	return &Synchronized{m: m}
}

// Kind returns the backend variant.
func (s *Synchronized) Kind() Kind { return s.m.Kind() }

// HasEmbedder reports whether an embedder is configured.
func (s *Synchronized) HasEmbedder() bool { return s.m.HasEmbedder() }

// Connect see Manager.Connect.
func (s *Synchronized) Connect(ctx context.Context, params ConnectionParams) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.m.Connect(ctx, params)
}

// Disconnect see Manager.Disconnect.
func (s *Synchronized) Disconnect() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.m.Disconnect()
}

// IsConnected see Manager.IsConnected.
func (s *Synchronized) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.m.IsConnected()
}

// ListCollections see Manager.ListCollections.
func (s *Synchronized) ListCollections(ctx context.Context) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.m.ListCollections(ctx)
}

// GetCollectionInfo see Manager.GetCollectionInfo.
func (s *Synchronized) GetCollectionInfo(ctx context.Context, name string) CollectionInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.m.GetCollectionInfo(ctx, name)
}

// CollectionExists see Manager.CollectionExists.
func (s *Synchronized) CollectionExists(ctx context.Context, name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.m.CollectionExists(ctx, name)
}

// CreateCollection see Manager.CreateCollection.
func (s *Synchronized) CreateCollection(ctx context.Context, name string, metadata map[string]any) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.m.CreateCollection(ctx, name, metadata)
}

// DeleteCollection see Manager.DeleteCollection.
func (s *Synchronized) DeleteCollection(ctx context.Context, name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.m.DeleteCollection(ctx, name)
}

// RecreateCollection see Manager.RecreateCollection.
func (s *Synchronized) RecreateCollection(ctx context.Context, name string, metadata map[string]any) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.m.RecreateCollection(ctx, name, metadata)
}

// InsertDocuments see Manager.InsertDocuments.
func (s *Synchronized) InsertDocuments(
	ctx context.Context, collection string, documents []string, metadatas []map[string]any, ids []string,
) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.m.InsertDocuments(ctx, collection, documents, metadatas, ids)
}

// Search see Manager.Search.
func (s *Synchronized) Search(ctx context.Context, collection string, q Query, limit int) ([]SearchResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.m.Search(ctx, collection, q, limit)
}

// FilteredSearch see Manager.FilteredSearch.
func (s *Synchronized) FilteredSearch(
	ctx context.Context, collection string, q Query, spec filter.Spec, limit int,
) ([]SearchResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.m.FilteredSearch(ctx, collection, q, spec, limit)
}

// FilteredSearchRaw see Manager.FilteredSearchRaw.
func (s *Synchronized) FilteredSearchRaw(
	ctx context.Context, collection string, q Query, raw any, limit int,
) ([]SearchResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.m.FilteredSearchRaw(ctx, collection, q, raw, limit)
}

// SearchByText see Manager.SearchByText.
func (s *Synchronized) SearchByText(ctx context.Context, collection, text string, limit int) ([]SearchResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.m.SearchByText(ctx, collection, text, limit)
}
