package db

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kailas-cloud/cvindex/internal/domain/search/filter"
)

// Reserved hash fields of an indexed record.
const (
	FieldContent  = "__content"
	FieldMetadata = "__metadata"
	FieldVector   = "vector"
)

// TagSeparator joins list values inside one TAG field.
const TagSeparator = "|"

// TagField maps a filter key such as "metadata.level" to its hash field "metadata_level".
func TagField(key string) string {
	return strings.ReplaceAll(key, ".", "_")
}

// TagValue renders a scalar the way it is stored in a TAG field.
func TagValue(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case int:
		return strconv.Itoa(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}

// KNNQuery is the input for vector similarity search.
type KNNQuery struct {
	IndexName    string
	Filters      filter.Expression
	Vector       []float32
	K            int
	ReturnFields []string
}

// TextQuery is the input for BM25 text search.
type TextQuery struct {
	IndexName    string
	Query        string
	Filters      filter.Expression
	TopK         int
	ReturnFields []string
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single document hit from a search.
// Score is a cosine similarity for KNN hits and a BM25 score for text hits.
type SearchEntry struct {
	Key    string
	Score  float64
	Fields map[string]string
}

// IndexInfo is the subset of FT.INFO the service reads.
type IndexInfo struct {
	NumDocs int
}
