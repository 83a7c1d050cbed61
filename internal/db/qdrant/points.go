package qdrant

import (
	"context"
	"fmt"

	"github.com/cespare/xxhash/v2"
	pb "github.com/qdrant/go-client/qdrant"

	"github.com/kailas-cloud/cvindex/internal/domain/search/filter"
)

// Payload keys of every point.
const (
	PayloadDocument = "document"
	PayloadMetadata = "metadata"
	PayloadTextID   = "text_id"
)

// Point is one record to upsert.
type Point struct {
	TextID   string
	Vector   []float32
	Document string
	Metadata map[string]any
}

// Hit is one scored search result.
type Hit struct {
	TextID   string
	Document string
	Metadata map[string]any
	Score    float64
}

// PointID maps a semantic record id to a stable numeric point id.
func PointID(textID string) uint64 {
	return xxhash.Sum64String(textID)
}

// Upsert stores points and waits for the write to be applied.
func (s *Store) Upsert(ctx context.Context, collection string, points []Point) error {
	if len(points) == 0 {
		return nil
	}

	structs := make([]*pb.PointStruct, len(points))
	for i, p := range points {
		meta, err := toValue(p.Metadata)
		if err != nil {
			return fmt.Errorf("qdrant: point %s: %w", p.TextID, err)
		}
		structs[i] = &pb.PointStruct{
			Id: &pb.PointId{PointIdOptions: &pb.PointId_Num{Num: PointID(p.TextID)}},
			Vectors: &pb.Vectors{
				VectorsOptions: &pb.Vectors_Vector{Vector: &pb.Vector{Data: p.Vector}},
			},
			Payload: map[string]*pb.Value{
				PayloadDocument: stringValue(p.Document),
				PayloadMetadata: meta,
				PayloadTextID:   stringValue(p.TextID),
			},
		}
	}

	wait := true
	_, err := s.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: collection,
		Wait:           &wait,
		Points:         structs,
	})
	if err != nil {
		return fmt.Errorf("qdrant: upsert %d points into %s: %w", len(points), collection, err)
	}
	return nil
}

// Search runs a k-NN query with an optional metadata filter.
func (s *Store) Search(ctx context.Context, collection string, vector []float32, expr filter.Expression, limit int) ([]Hit, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("qdrant: limit must be positive")
	}

	req := &pb.SearchPoints{
		CollectionName: collection,
		Vector:         vector,
		Limit:          uint64(limit),
		Filter:         buildFilter(expr),
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	}

	resp, err := s.points.Search(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("qdrant: search %s: %w", collection, err)
	}

	hits := make([]Hit, len(resp.GetResult()))
	for i, r := range resp.GetResult() {
		payload := r.GetPayload()
		meta, _ := fromValue(payload[PayloadMetadata]).(map[string]any)
		if meta == nil {
			meta = map[string]any{}
		}
		hits[i] = Hit{
			TextID:   payload[PayloadTextID].GetStringValue(),
			Document: payload[PayloadDocument].GetStringValue(),
			Metadata: meta,
			Score:    float64(r.GetScore()),
		}
	}
	return hits, nil
}
