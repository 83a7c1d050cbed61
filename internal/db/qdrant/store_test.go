package qdrant

import (
	"context"
	"errors"
	"reflect"
	"testing"

	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"

	"github.com/kailas-cloud/cvindex/internal/domain/search/filter"
)

// --- fakes ---

type fakePoints struct {
	upserted  *pb.UpsertPoints
	upsertErr error
	searched  *pb.SearchPoints
	searchRes *pb.SearchResponse
	searchErr error
	count     uint64
	countErr  error
}

func (f *fakePoints) Upsert(_ context.Context, in *pb.UpsertPoints, _ ...grpc.CallOption) (*pb.PointsOperationResponse, error) {
	f.upserted = in
	return &pb.PointsOperationResponse{}, f.upsertErr
}

func (f *fakePoints) Search(_ context.Context, in *pb.SearchPoints, _ ...grpc.CallOption) (*pb.SearchResponse, error) {
	f.searched = in
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.searchRes, nil
}

func (f *fakePoints) Count(_ context.Context, _ *pb.CountPoints, _ ...grpc.CallOption) (*pb.CountResponse, error) {
	if f.countErr != nil {
		return nil, f.countErr
	}
	return &pb.CountResponse{Result: &pb.CountResult{Count: f.count}}, nil
}

type fakeCollections struct {
	names     []string
	listErr   error
	created   *pb.CreateCollection
	createErr error
	deleted   string
	deleteErr error
	info      *pb.CollectionInfo
	getErr    error
}

func (f *fakeCollections) List(_ context.Context, _ *pb.ListCollectionsRequest, _ ...grpc.CallOption) (*pb.ListCollectionsResponse, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	resp := &pb.ListCollectionsResponse{}
	for _, n := range f.names {
		resp.Collections = append(resp.Collections, &pb.CollectionDescription{Name: n})
	}
	return resp, nil
}

func (f *fakeCollections) Get(_ context.Context, _ *pb.GetCollectionInfoRequest, _ ...grpc.CallOption) (*pb.GetCollectionInfoResponse, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return &pb.GetCollectionInfoResponse{Result: f.info}, nil
}

func (f *fakeCollections) Create(_ context.Context, in *pb.CreateCollection, _ ...grpc.CallOption) (*pb.CollectionOperationResponse, error) {
	f.created = in
	return &pb.CollectionOperationResponse{Result: f.createErr == nil}, f.createErr
}

func (f *fakeCollections) Delete(_ context.Context, in *pb.DeleteCollection, _ ...grpc.CallOption) (*pb.CollectionOperationResponse, error) {
	f.deleted = in.GetCollectionName()
	return &pb.CollectionOperationResponse{Result: f.deleteErr == nil}, f.deleteErr
}

// --- collections ---

func TestPing(t *testing.T) {
	s := NewWithClients(&fakePoints{}, &fakeCollections{})
	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	s = NewWithClients(&fakePoints{}, &fakeCollections{listErr: errors.New("unavailable")})
	if err := s.Ping(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close without connection: %v", err)
	}
}

func TestCollectionExists(t *testing.T) {
	s := NewWithClients(&fakePoints{}, &fakeCollections{names: []string{"cvs", "projects"}})

	for name, want := range map[string]bool{"cvs": true, "projects": true, "other": false} {
		got, err := s.CollectionExists(context.Background(), name)
		if err != nil {
			t.Fatalf("CollectionExists(%q): %v", name, err)
		}
		if got != want {
			t.Errorf("CollectionExists(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestCreateCollection(t *testing.T) {
	cols := &fakeCollections{}
	s := NewWithClients(&fakePoints{}, cols)

	if err := s.CreateCollection(context.Background(), "cvs", 1536); err != nil {
		t.Fatalf("CreateCollection: %v", err)
	}
	params := cols.created.GetVectorsConfig().GetParams()
	if params.GetSize() != 1536 || params.GetDistance() != pb.Distance_Cosine {
		t.Errorf("unexpected vector params: %v", params)
	}

	if err := s.CreateCollection(context.Background(), "cvs", 0); err == nil {
		t.Error("expected error for zero dimensions")
	}
}

func TestCreateCollection_Error(t *testing.T) {
	s := NewWithClients(&fakePoints{}, &fakeCollections{createErr: errors.New("already exists")})
	if err := s.CreateCollection(context.Background(), "cvs", 4); err == nil {
		t.Fatal("expected error")
	}
}

func TestDeleteCollection(t *testing.T) {
	cols := &fakeCollections{}
	s := NewWithClients(&fakePoints{}, cols)
	if err := s.DeleteCollection(context.Background(), "cvs"); err != nil {
		t.Fatalf("DeleteCollection: %v", err)
	}
	if cols.deleted != "cvs" {
		t.Errorf("deleted %q", cols.deleted)
	}
}

func TestCollectionInfo(t *testing.T) {
	cols := &fakeCollections{info: &pb.CollectionInfo{
		Config: &pb.CollectionConfig{
			Params: &pb.CollectionParams{
				VectorsConfig: &pb.VectorsConfig{
					Config: &pb.VectorsConfig_Params{Params: &pb.VectorParams{Size: 8, Distance: pb.Distance_Cosine}},
				},
			},
		},
	}}
	s := NewWithClients(&fakePoints{count: 42}, cols)

	info, err := s.CollectionInfo(context.Background(), "cvs")
	if err != nil {
		t.Fatalf("CollectionInfo: %v", err)
	}
	if info.Count != 42 || info.Dimensions != 8 {
		t.Errorf("unexpected info: %+v", info)
	}
	if info.Params["distance"] != "Cosine" {
		t.Errorf("params = %v", info.Params)
	}
}

func TestCollectionInfo_Errors(t *testing.T) {
	s := NewWithClients(&fakePoints{}, &fakeCollections{getErr: errors.New("not found")})
	if _, err := s.CollectionInfo(context.Background(), "cvs"); err == nil {
		t.Error("expected get error")
	}

	s = NewWithClients(&fakePoints{countErr: errors.New("boom")}, &fakeCollections{info: &pb.CollectionInfo{}})
	if _, err := s.CollectionInfo(context.Background(), "cvs"); err == nil {
		t.Error("expected count error")
	}
}

// --- points ---

func TestPointID_Stable(t *testing.T) {
	a := PointID("Jane Doe_1700000000_abcd1234_chunk#1")
	if a != PointID("Jane Doe_1700000000_abcd1234_chunk#1") {
		t.Fatal("point id must be stable")
	}
	if a == PointID("Jane Doe_1700000000_abcd1234_chunk#2") {
		t.Fatal("distinct ids must not collide")
	}
}

func TestUpsert(t *testing.T) {
	points := &fakePoints{}
	s := NewWithClients(points, &fakeCollections{})

	err := s.Upsert(context.Background(), "cvs", []Point{{
		TextID:   "cv1_chunk#1",
		Vector:   []float32{0.1, 0.2},
		Document: "builds recommendation systems",
		Metadata: map[string]any{"level": "SENIOR", "roles": []string{"ml engineer"}, "chunk_number": 1},
	}})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	req := points.upserted
	if req.GetCollectionName() != "cvs" || !req.GetWait() || len(req.GetPoints()) != 1 {
		t.Fatalf("unexpected request: %v", req)
	}
	p := req.GetPoints()[0]
	if p.GetId().GetNum() != PointID("cv1_chunk#1") {
		t.Errorf("point id = %d", p.GetId().GetNum())
	}
	if p.GetPayload()[PayloadTextID].GetStringValue() != "cv1_chunk#1" {
		t.Errorf("text_id payload = %v", p.GetPayload()[PayloadTextID])
	}
	meta := fromValue(p.GetPayload()[PayloadMetadata]).(map[string]any)
	want := map[string]any{"level": "SENIOR", "roles": []any{"ml engineer"}, "chunk_number": int64(1)}
	if !reflect.DeepEqual(meta, want) {
		t.Errorf("metadata = %#v, want %#v", meta, want)
	}
}

func TestUpsert_Empty(t *testing.T) {
	points := &fakePoints{}
	s := NewWithClients(points, &fakeCollections{})
	if err := s.Upsert(context.Background(), "cvs", nil); err != nil {
		t.Fatalf("Upsert(nil): %v", err)
	}
	if points.upserted != nil {
		t.Error("empty upsert must not call the server")
	}
}

func TestUpsert_UnsupportedPayload(t *testing.T) {
	s := NewWithClients(&fakePoints{}, &fakeCollections{})
	err := s.Upsert(context.Background(), "cvs", []Point{{TextID: "x", Metadata: map[string]any{"c": make(chan int)}}})
	if err == nil {
		t.Fatal("expected error for unsupported payload type")
	}
}

func TestSearch(t *testing.T) {
	meta, _ := toValue(map[string]any{"name": "Jane Doe", "level": nil})
	points := &fakePoints{searchRes: &pb.SearchResponse{Result: []*pb.ScoredPoint{{
		Score: 0.75,
		Payload: map[string]*pb.Value{
			PayloadTextID:   stringValue("cv1_chunk#1"),
			PayloadDocument: stringValue("go developer"),
			PayloadMetadata: meta,
		},
	}}}}
	s := NewWithClients(points, &fakeCollections{})

	level, _ := filter.NewMatch("metadata.level", "SENIOR")
	expr, _ := filter.NewExpression([]filter.Condition{level}, nil)

	hits, err := s.Search(context.Background(), "cvs", []float32{1, 0}, expr, 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("expected 1 hit, got %d", len(hits))
	}
	h := hits[0]
	if h.TextID != "cv1_chunk#1" || h.Document != "go developer" || h.Score != 0.75 {
		t.Errorf("unexpected hit: %+v", h)
	}
	if h.Metadata["name"] != "Jane Doe" || h.Metadata["level"] != nil {
		t.Errorf("metadata = %v", h.Metadata)
	}
	if points.searched.GetLimit() != 5 || len(points.searched.GetFilter().GetMust()) != 1 {
		t.Errorf("unexpected request: %v", points.searched)
	}
}

func TestSearch_Errors(t *testing.T) {
	s := NewWithClients(&fakePoints{searchErr: errors.New("unavailable")}, &fakeCollections{})
	if _, err := s.Search(context.Background(), "cvs", []float32{1}, filter.Expression{}, 5); err == nil {
		t.Error("expected rpc error")
	}
	if _, err := s.Search(context.Background(), "cvs", []float32{1}, filter.Expression{}, 0); err == nil {
		t.Error("expected error for zero limit")
	}
}

// --- filter ---

func TestBuildFilter_Empty(t *testing.T) {
	if f := buildFilter(filter.Expression{}); f != nil {
		t.Errorf("expected nil filter, got %v", f)
	}
}

func TestBuildFilter_MustAndShould(t *testing.T) {
	eng, _ := filter.NewMatch("metadata.languages", "english b2")
	ger, _ := filter.NewMatch("metadata.languages", "german a1")
	domains, _ := filter.NewMatchAny("metadata.domains", []any{"fintech", "ai"})

	expr, _ := filter.NewExpression([]filter.Condition{eng, ger}, []filter.Condition{domains})
	f := buildFilter(expr)

	if len(f.GetMust()) != 2 || len(f.GetShould()) != 1 {
		t.Fatalf("unexpected filter: %v", f)
	}
	first := f.GetMust()[0].GetField()
	if first.GetKey() != "metadata.languages" || first.GetMatch().GetKeyword() != "english b2" {
		t.Errorf("must[0] = %v", first)
	}
	kw := f.GetShould()[0].GetField().GetMatch().GetKeywords().GetStrings()
	if !reflect.DeepEqual(kw, []string{"fintech", "ai"}) {
		t.Errorf("should keywords = %v", kw)
	}
}

func TestCondition_ValueTypes(t *testing.T) {
	num, _ := filter.NewMatch("metadata.chunk_number", 2)
	flag, _ := filter.NewMatch("metadata.remote", true)
	nums, _ := filter.NewMatchAny("metadata.year", []any{2021, 2022})
	mixed, _ := filter.NewMatchAny("metadata.tag", []any{"x", int64(3)})

	if got := condition(num).GetField().GetMatch().GetInteger(); got != 2 {
		t.Errorf("integer match = %d", got)
	}
	if !condition(flag).GetField().GetMatch().GetBoolean() {
		t.Error("boolean match lost")
	}
	if got := condition(nums).GetField().GetMatch().GetIntegers().GetIntegers(); !reflect.DeepEqual(got, []int64{2021, 2022}) {
		t.Errorf("integers match = %v", got)
	}
	nested := condition(mixed).GetFilter()
	if nested == nil || len(nested.GetShould()) != 2 {
		t.Fatalf("mixed any-of must nest a should filter, got %v", condition(mixed))
	}
}

func TestFromValue_RoundTrip(t *testing.T) {
	in := map[string]any{
		"CV_id":     "cv1",
		"level":     nil,
		"roles":     []any{"go developer"},
		"score":     0.5,
		"published": false,
	}
	v, err := toValue(in)
	if err != nil {
		t.Fatalf("toValue: %v", err)
	}
	if got := fromValue(v); !reflect.DeepEqual(got, in) {
		t.Errorf("round trip = %#v, want %#v", got, in)
	}
}
