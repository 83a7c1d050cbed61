// Package document writes indexed records into a collection's Redis hashes.
package document

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/cvindex/internal/db"
	"github.com/kailas-cloud/cvindex/internal/domain"
)

// store is the consumer interface for records (ISP).
type store interface {
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
}

// Record is one indexed passage. Vector is empty for text-only collections.
type Record struct {
	ID       string
	Document string
	Metadata map[string]any
	Vector   []float32
}

// Repo writes records.
type Repo struct {
	store      store
	filterable []string
}

// New creates a record repository. filterable lists the metadata fields
// flattened into TAG fields.
func New(s store, filterable []string) *Repo {
	return &Repo{store: s, filterable: filterable}
}

// Upsert writes all records in one pipeline. Existing records with the same id are replaced field by field.
func (r *Repo) Upsert(ctx context.Context, collectionName string, records []Record) error {
	if len(records) == 0 {
		return nil
	}

	items := make([]db.HashSetItem, len(records))
	for i := range records {
		if records[i].ID == "" {
			return fmt.Errorf("record %d: empty id: %w", i, domain.ErrInvalidRequest)
		}
		fields, err := buildHashFields(&records[i], r.filterable)
		if err != nil {
			return fmt.Errorf("record %s: %w", records[i].ID, err)
		}
		items[i] = db.HashSetItem{Key: recordKey(collectionName, records[i].ID), Fields: fields}
	}

	if err := r.store.HSetMulti(ctx, items); err != nil {
		return fmt.Errorf("hset records %s: %w", collectionName, err)
	}
	return nil
}

func recordKey(collectionName, id string) string {
	return fmt.Sprintf("%s%s:%s", domain.KeyPrefix, collectionName, id)
}
