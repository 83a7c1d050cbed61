package vectorstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/cvindex/internal/db"
	dbredis "github.com/kailas-cloud/cvindex/internal/db/redis"
	"github.com/kailas-cloud/cvindex/internal/domain"
	"github.com/kailas-cloud/cvindex/internal/domain/search/filter"
	"github.com/kailas-cloud/cvindex/internal/repository/collection"
	"github.com/kailas-cloud/cvindex/internal/repository/document"
	"github.com/kailas-cloud/cvindex/internal/repository/search"
)

// redisDialer opens a store for the given params.
type redisDialer func(params ConnectionParams) (db.Store, error)

func dialRedis(params ConnectionParams) (db.Store, error) {
	return dbredis.NewStore(dbredis.Config{
		Addrs:    []string{params.addr()},
		Password: params.Password,
		TLS:      params.HTTPS,
	})
}

// redisBackend keeps each collection as a metadata hash plus an FT index over
// record hashes cvindex:<collection>:<id>.
type redisBackend struct {
	dial         redisDialer
	filterable   []string
	readyTimeout time.Duration
	hnsw         collection.HNSWConfig
	logger       *zap.Logger

	store       db.Store
	collections *collection.Repo
	records     *document.Repo
	search      *search.Repo
}

func newRedisBackend(
	filterable []string, readyTimeout time.Duration, hnsw collection.HNSWConfig, logger *zap.Logger,
) *redisBackend {
	return &redisBackend{
		dial:         dialRedis,
		filterable:   filterable,
		readyTimeout: readyTimeout,
		hnsw:         hnsw,
		logger:       logger,
	}
}

func (b *redisBackend) connect(ctx context.Context, params ConnectionParams) error {
	s, err := b.dial(params)
	if err != nil {
		return fmt.Errorf("dial redis %s: %w", params.addr(), err)
	}

	if b.readyTimeout > 0 {
		err = s.WaitForReady(ctx, b.readyTimeout)
	} else {
		err = s.Ping(ctx)
	}
	if err != nil {
		s.Close()
		return fmt.Errorf("redis %s not ready: %w", params.addr(), err)
	}

	b.store = s
	b.collections = collection.New(s, b.filterable).WithHNSW(b.hnsw)
	b.records = document.New(s, b.filterable)
	b.search = search.New(s)
	return nil
}

func (b *redisBackend) close() error {
	if b.store != nil {
		b.store.Close()
		b.store = nil
	}
	return nil
}

func (b *redisBackend) listCollections(ctx context.Context) ([]string, error) {
	infos, err := b.collections.List(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(infos))
	for i, info := range infos {
		names[i] = info.Name
	}
	return names, nil
}

func (b *redisBackend) collectionInfo(ctx context.Context, name string) (CollectionInfo, error) {
	info, err := b.collections.Get(ctx, name)
	if err != nil {
		return CollectionInfo{}, err
	}
	return CollectionInfo{
		Name:       info.Name,
		Count:      info.Count,
		Metadata:   info.Metadata,
		Dimensions: info.Dimensions,
	}, nil
}

func (b *redisBackend) collectionExists(ctx context.Context, name string) (bool, error) {
	return b.collections.Exists(ctx, name)
}

func (b *redisBackend) createCollection(ctx context.Context, name string, metadata map[string]any, dims int) error {
	return b.collections.Create(ctx, name, metadata, dims)
}

func (b *redisBackend) deleteCollection(ctx context.Context, name string) error {
	return b.collections.Delete(ctx, name)
}

func (b *redisBackend) insert(ctx context.Context, collectionName string, records []record) error {
	// Record hashes outside an existing collection would be orphaned, then
	// picked up by a later FT.CREATE over the same prefix.
	exists, err := b.collections.Exists(ctx, collectionName)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("collection %s: %w", collectionName, domain.ErrNotFound)
	}

	recs := make([]document.Record, len(records))
	for i, r := range records {
		recs[i] = document.Record{ID: r.id, Document: r.document, Metadata: r.metadata, Vector: r.vector}
	}
	return b.records.Upsert(ctx, collectionName, recs)
}

func (b *redisBackend) searchVector(
	ctx context.Context, collectionName string, vector []float32, expr filter.Expression, limit int,
) ([]SearchResult, error) {
	b.warnUnindexed(collectionName, expr)
	hits, err := b.search.SearchKNN(ctx, collectionName, vector, expr, limit)
	if err != nil {
		return nil, err
	}
	out := make([]SearchResult, len(hits))
	for i, h := range hits {
		out[i] = cosineResult(h.ID, h.Document, h.Metadata, h.Score)
	}
	return out, nil
}

func (b *redisBackend) searchText(
	ctx context.Context, collectionName, text string, expr filter.Expression, limit int,
) ([]SearchResult, error) {
	b.warnUnindexed(collectionName, expr)
	hits, err := b.search.SearchBM25(ctx, collectionName, text, expr, limit)
	if err != nil {
		return nil, err
	}
	out := make([]SearchResult, len(hits))
	for i, h := range hits {
		out[i] = textResult(h.ID, h.Document, h.Metadata, h.Score)
	}
	return out, nil
}

// warnUnindexed names filter fields that have no TAG field in the index. The
// server rejects such queries, which the Manager reports as empty results.
func (b *redisBackend) warnUnindexed(collectionName string, expr filter.Expression) {
	for _, field := range unindexedFields(expr, b.filterable) {
		b.logger.Warn("filter field is not indexed, query will return no results",
			zap.String("collection", collectionName),
			zap.String("field", field),
			zap.Strings("filterable_fields", b.filterable),
		)
	}
}

func unindexedFields(expr filter.Expression, filterable []string) []string {
	indexed := make(map[string]bool, len(filterable))
	for _, f := range filterable {
		indexed[f] = true
	}
	var out []string
	seen := make(map[string]bool)
	for _, group := range [][]filter.Condition{expr.Must(), expr.Should()} {
		for _, c := range group {
			field := strings.TrimPrefix(c.Key(), filter.MetadataPrefix)
			if !indexed[field] && !seen[field] {
				seen[field] = true
				out = append(out, field)
			}
		}
	}
	return out
}
