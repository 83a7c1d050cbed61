package collection

import (
	"github.com/kailas-cloud/cvindex/internal/db"
	"github.com/kailas-cloud/cvindex/internal/domain/search/filter"
)

// buildIndex creates the FT index definition of a collection: a TEXT field over
// record content, one TAG field per filterable metadata field and, when dims > 0,
// an HNSW/COSINE vector field. Without a vector field the collection is text-only.
func buildIndex(name string, dims int, filterable []string, hnsw HNSWConfig) (*db.IndexDefinition, error) {
	b := db.NewIndex(indexName(name)).
		Prefix(collectionPrefix(name)).
		Text(db.FieldContent)

	for _, f := range filterable {
		b.Tag(db.TagField(filter.MetadataPrefix+f), db.TagSeparator)
	}

	if dims > 0 {
		b.VectorHNSW(db.FieldVector, dims, db.DistanceCosine, hnsw.M, hnsw.EFConstruct)
	}

	return b.Build()
}
