package document

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/kailas-cloud/cvindex/internal/db"
	"github.com/kailas-cloud/cvindex/internal/domain/search/filter"
)

// buildHashFields converts a Record into a flat map[string]string for HSET.
// __metadata keeps the full payload; filterable fields are also flattened into TAG fields.
func buildHashFields(rec *Record, filterable []string) (map[string]string, error) {
	meta := rec.Metadata
	if meta == nil {
		meta = map[string]any{}
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("marshal metadata: %w", err)
	}

	m := make(map[string]string, 3+len(filterable))
	m[db.FieldContent] = rec.Document
	m[db.FieldMetadata] = string(metaJSON)
	if len(rec.Vector) > 0 {
		m[db.FieldVector] = vectorToBytes(rec.Vector)
	}
	for _, f := range filterable {
		if tag, ok := tagValue(meta[f]); ok {
			m[db.TagField(filter.MetadataPrefix+f)] = tag
		}
	}
	return m, nil
}

// tagValue flattens a metadata value; lists are joined with the TAG separator.
func tagValue(v any) (string, bool) {
	switch x := v.(type) {
	case nil:
		return "", false
	case []string:
		if len(x) == 0 {
			return "", false
		}
		return strings.Join(x, db.TagSeparator), true
	case []any:
		parts := make([]string, 0, len(x))
		for _, e := range x {
			if e != nil {
				parts = append(parts, db.TagValue(e))
			}
		}
		if len(parts) == 0 {
			return "", false
		}
		return strings.Join(parts, db.TagSeparator), true
	case string:
		return x, x != ""
	default:
		return db.TagValue(x), true
	}
}

// vectorToBytes serializes []float32 to a binary string (4 bytes per float, little-endian).
func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}
