// Package collection manages Redis-side collections: a metadata hash plus an FT index
// over the collection's record hashes.
package collection

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/kailas-cloud/cvindex/internal/db"
	"github.com/kailas-cloud/cvindex/internal/domain"
)

// store is the consumer interface for collections (ISP).
//
//nolint:interfacebloat // collection repo needs hash + index management operations
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	Del(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	Scan(ctx context.Context, pattern string) ([]string, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	DropIndex(ctx context.Context, name string, deleteDocs bool) error
	IndexExists(ctx context.Context, name string) (bool, error)
	IndexInfo(ctx context.Context, name string) (db.IndexInfo, error)
}

// HNSWConfig HNSW index parameters.
type HNSWConfig struct {
	M           int
	EFConstruct int
}

// Info describes a stored collection. Dimensions is 0 for text-only collections.
type Info struct {
	Name       string
	Metadata   map[string]any
	Dimensions int
	Count      int
	CreatedAt  int64
}

// Repo stores collections in Redis.
type Repo struct {
	store      store
	filterable []string
	hnsw       HNSWConfig
	now        func() time.Time
}

// New creates a collection repository. filterable lists the metadata fields
// indexed as TAG fields in every collection.
func New(s store, filterable []string) *Repo {
	return &Repo{
		store:      s,
		filterable: filterable,
		hnsw:       HNSWConfig{M: 16, EFConstruct: 200},
		now:        time.Now,
	}
}

// WithHNSW configures HNSW index parameters.
func (r *Repo) WithHNSW(cfg HNSWConfig) *Repo {
	if cfg.M > 0 {
		r.hnsw.M = cfg.M
	}
	if cfg.EFConstruct > 0 {
		r.hnsw.EFConstruct = cfg.EFConstruct
	}
	return r
}

// Create stores a collection: HSET metadata then FT.CREATE index.
// On FT.CREATE failure, rolls back the HSET via DEL.
func (r *Repo) Create(ctx context.Context, name string, metadata map[string]any, dims int) error {
	indexDef, err := buildIndex(name, dims, r.filterable, r.hnsw)
	if err != nil {
		return fmt.Errorf("build index: %w: %w", domain.ErrInvalidRequest, err)
	}
	hashData, err := infoToHash(Info{
		Name:       name,
		Metadata:   metadata,
		Dimensions: dims,
		CreatedAt:  r.now().UnixMilli(),
	})
	if err != nil {
		return err
	}

	key := metaKey(name)
	exists, err := r.store.Exists(ctx, key)
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	if exists {
		return domain.ErrAlreadyExists
	}

	if err := r.store.HSet(ctx, key, hashData); err != nil {
		return fmt.Errorf("hset collection %s: %w", name, err)
	}

	if err := r.store.CreateIndex(ctx, indexDef); err != nil {
		cleanupErr := r.store.Del(ctx, key)
		return errors.Join(err, cleanupErr)
	}

	return nil
}

// Get returns a collection with its current record count.
func (r *Repo) Get(ctx context.Context, name string) (Info, error) {
	m, err := r.store.HGetAll(ctx, metaKey(name))
	if err != nil {
		return Info{}, fmt.Errorf("hgetall collection %s: %w", name, err)
	}
	if len(m) == 0 {
		return Info{}, domain.ErrNotFound
	}

	info, err := infoFromHash(m)
	if err != nil {
		return Info{}, fmt.Errorf("parse collection %s: %w", name, err)
	}

	stats, err := r.store.IndexInfo(ctx, indexName(name))
	if err != nil {
		if errors.Is(err, db.ErrIndexNotFound) {
			return Info{}, domain.ErrNotFound
		}
		return Info{}, fmt.Errorf("index info %s: %w", name, err)
	}
	info.Count = stats.NumDocs

	return info, nil
}

// Exists reports whether the collection metadata is present.
func (r *Repo) Exists(ctx context.Context, name string) (bool, error) {
	ok, err := r.store.Exists(ctx, metaKey(name))
	if err != nil {
		return false, fmt.Errorf("exists collection %s: %w", name, err)
	}
	return ok, nil
}

// List returns all collections sorted by CreatedAt. Counts are not loaded.
func (r *Repo) List(ctx context.Context) ([]Info, error) {
	keys, err := r.store.Scan(ctx, metaKey("*"))
	if err != nil {
		return nil, fmt.Errorf("scan collections: %w", err)
	}

	infos := make([]Info, 0, len(keys))
	for _, key := range keys {
		m, err := r.store.HGetAll(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("hgetall %s: %w", key, err)
		}
		if len(m) == 0 {
			continue
		}
		info, err := infoFromHash(m)
		if err != nil {
			return nil, fmt.Errorf("parse collection %s: %w", key, err)
		}
		infos = append(infos, info)
	}

	sort.Slice(infos, func(i, j int) bool {
		if infos[i].CreatedAt != infos[j].CreatedAt {
			return infos[i].CreatedAt < infos[j].CreatedAt
		}
		return infos[i].Name < infos[j].Name
	})

	return infos, nil
}

// Delete removes a collection with its records: backup metadata, DEL hash,
// FT.DROPINDEX DD (rollback HSET on error).
func (r *Repo) Delete(ctx context.Context, name string) error {
	key := metaKey(name)

	metaBackup, err := r.store.HGetAll(ctx, key)
	if err != nil {
		return fmt.Errorf("hgetall collection %s: %w", name, err)
	}
	if len(metaBackup) == 0 {
		return domain.ErrNotFound
	}

	idxName := indexName(name)
	idxExists, err := r.store.IndexExists(ctx, idxName)
	if err != nil {
		return fmt.Errorf("check index exists: %w", err)
	}

	if err := r.store.Del(ctx, key); err != nil {
		return fmt.Errorf("del collection %s: %w", name, err)
	}
	if !idxExists {
		return nil
	}

	if err := r.store.DropIndex(ctx, idxName, true); err != nil {
		cleanupErr := r.store.HSet(ctx, key, metaBackup)
		return errors.Join(err, cleanupErr)
	}

	return nil
}

// Key patterns: cvindex:collection:{name}, cvindex:{name}:idx, cvindex:{name}:{id}

func metaKey(name string) string {
	return fmt.Sprintf("%scollection:%s", domain.KeyPrefix, name)
}

func indexName(name string) string {
	return fmt.Sprintf("%s%s:idx", domain.KeyPrefix, name)
}

func collectionPrefix(name string) string {
	return fmt.Sprintf("%s%s:", domain.KeyPrefix, name)
}
