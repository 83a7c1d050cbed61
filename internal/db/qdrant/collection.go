package qdrant

import (
	"context"
	"fmt"
	"slices"

	pb "github.com/qdrant/go-client/qdrant"
)

// CollectionInfo is what Qdrant reports about a collection.
type CollectionInfo struct {
	Count      int
	Dimensions int
	Params     map[string]any
}

// ListCollections returns collection names in server order.
func (s *Store) ListCollections(ctx context.Context) ([]string, error) {
	resp, err := s.collections.List(ctx, &pb.ListCollectionsRequest{})
	if err != nil {
		return nil, fmt.Errorf("qdrant: list collections: %w", err)
	}
	names := make([]string, 0, len(resp.GetCollections()))
	for _, c := range resp.GetCollections() {
		names = append(names, c.GetName())
	}
	return names, nil
}

// CollectionExists reports whether name is listed by the server.
func (s *Store) CollectionExists(ctx context.Context, name string) (bool, error) {
	names, err := s.ListCollections(ctx)
	if err != nil {
		return false, err
	}
	return slices.Contains(names, name), nil
}

// CreateCollection creates a cosine collection with vectors of dims size.
func (s *Store) CreateCollection(ctx context.Context, name string, dims int) error {
	if dims <= 0 {
		return fmt.Errorf("qdrant: create collection %s: dimensions must be positive", name)
	}
	_, err := s.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: name,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     uint64(dims),
					Distance: pb.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("qdrant: create collection %s: %w", name, err)
	}
	return nil
}

// DeleteCollection deletes the collection.
func (s *Store) DeleteCollection(ctx context.Context, name string) error {
	if _, err := s.collections.Delete(ctx, &pb.DeleteCollection{CollectionName: name}); err != nil {
		return fmt.Errorf("qdrant: delete collection %s: %w", name, err)
	}
	return nil
}

// CollectionInfo reads vector params and the exact point count.
func (s *Store) CollectionInfo(ctx context.Context, name string) (CollectionInfo, error) {
	resp, err := s.collections.Get(ctx, &pb.GetCollectionInfoRequest{CollectionName: name})
	if err != nil {
		return CollectionInfo{}, fmt.Errorf("qdrant: get collection %s: %w", name, err)
	}

	exact := true
	count, err := s.points.Count(ctx, &pb.CountPoints{CollectionName: name, Exact: &exact})
	if err != nil {
		return CollectionInfo{}, fmt.Errorf("qdrant: count %s: %w", name, err)
	}

	vp := resp.GetResult().GetConfig().GetParams().GetVectorsConfig().GetParams()
	return CollectionInfo{
		Count:      int(count.GetResult().GetCount()),
		Dimensions: int(vp.GetSize()),
		Params: map[string]any{
			"size":     int64(vp.GetSize()),
			"distance": vp.GetDistance().String(),
		},
	}, nil
}
