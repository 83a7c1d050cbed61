package collection

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// infoToHash converts collection Info into a map for HSET.
func infoToHash(info Info) (map[string]string, error) {
	meta := info.Metadata
	if meta == nil {
		meta = map[string]any{}
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("marshal metadata: %w", err)
	}
	return map[string]string{
		"name":          info.Name,
		"metadata_json": string(metaJSON),
		"vector_dim":    strconv.Itoa(info.Dimensions),
		"created_at":    strconv.FormatInt(info.CreatedAt, 10),
	}, nil
}

// infoFromHash hydrates collection Info from an HGETALL result map.
func infoFromHash(m map[string]string) (Info, error) {
	createdAt, err := strconv.ParseInt(m["created_at"], 10, 64)
	if err != nil {
		return Info{}, fmt.Errorf("invalid created_at: %w", err)
	}

	meta := map[string]any{}
	if raw := m["metadata_json"]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &meta); err != nil {
			return Info{}, fmt.Errorf("unmarshal metadata: %w", err)
		}
	}

	var dims int
	if s := m["vector_dim"]; s != "" {
		if parsed, err := strconv.Atoi(s); err == nil {
			dims = parsed
		}
	}

	return Info{
		Name:       m["name"],
		Metadata:   meta,
		Dimensions: dims,
		CreatedAt:  createdAt,
	}, nil
}
