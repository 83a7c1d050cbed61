package collection

import (
	"context"
	"errors"
	"testing"

	"github.com/kailas-cloud/cvindex/internal/db"
	"github.com/kailas-cloud/cvindex/internal/domain"
)

// --- Create ---

func TestCreate_HappyPath(t *testing.T) {
	repo, ms := newTestRepo(t)
	ctx := context.Background()

	ms.hsetFn = func(_ context.Context, key string, fields map[string]string) error {
		if key != "cvindex:collection:personal" {
			t.Errorf("unexpected key: %s", key)
		}
		if fields["metadata_json"] != `{"about":"cvs"}` || fields["vector_dim"] != "8" {
			t.Errorf("unexpected fields: %v", fields)
		}
		if fields["created_at"] != "1700000000000" {
			t.Errorf("created_at = %q", fields["created_at"])
		}
		return nil
	}
	ms.createIndexFn = func(_ context.Context, def *db.IndexDefinition) error {
		if def.Name != "cvindex:personal:idx" {
			t.Errorf("unexpected index name: %s", def.Name)
		}
		if len(def.Prefixes) != 1 || def.Prefixes[0] != "cvindex:personal:" {
			t.Errorf("unexpected prefixes: %v", def.Prefixes)
		}
		return nil
	}

	if err := repo.Create(ctx, "personal", map[string]any{"about": "cvs"}, 8); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCreate_AlreadyExists(t *testing.T) {
	repo, ms := newTestRepo(t)

	ms.existsFn = func(_ context.Context, _ string) (bool, error) { return true, nil }

	err := repo.Create(context.Background(), "personal", nil, 8)
	if !errors.Is(err, domain.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestCreate_InvalidName(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.existsFn = func(_ context.Context, _ string) (bool, error) {
		t.Fatal("store must not be touched for an invalid name")
		return false, nil
	}

	err := repo.Create(context.Background(), "bad name", nil, 8)
	if !errors.Is(err, domain.ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
}

func TestCreate_HSetError(t *testing.T) {
	repo, ms := newTestRepo(t)

	ms.hsetFn = func(_ context.Context, _ string, _ map[string]string) error {
		return errors.New("connection lost")
	}

	if err := repo.Create(context.Background(), "personal", nil, 8); err == nil {
		t.Fatal("expected error on HSET failure")
	}
}

func TestCreate_FTCreateError_Rollback(t *testing.T) {
	repo, ms := newTestRepo(t)

	var delKey string
	ms.createIndexFn = func(_ context.Context, _ *db.IndexDefinition) error {
		return errors.New("index limit reached")
	}
	ms.delFn = func(_ context.Context, key string) error {
		delKey = key
		return nil
	}

	if err := repo.Create(context.Background(), "personal", nil, 8); err == nil {
		t.Fatal("expected error on FT.CREATE failure")
	}
	if delKey != "cvindex:collection:personal" {
		t.Errorf("rollback DEL key = %q", delKey)
	}
}

// --- Get ---

func TestGet_HappyPath(t *testing.T) {
	repo, ms := newTestRepo(t)

	ms.hgetAllFn = func(_ context.Context, _ string) (map[string]string, error) { return storedMeta(), nil }
	ms.indexInfoFn = func(_ context.Context, name string) (db.IndexInfo, error) {
		if name != "cvindex:personal:idx" {
			t.Errorf("unexpected index: %s", name)
		}
		return db.IndexInfo{NumDocs: 42}, nil
	}

	info, err := repo.Get(context.Background(), "personal")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info.Name != "personal" || info.Count != 42 || info.Dimensions != 8 {
		t.Errorf("unexpected info: %+v", info)
	}
	if info.Metadata["about"] != "cvs" {
		t.Errorf("metadata = %v", info.Metadata)
	}
}

func TestGet_NotFound(t *testing.T) {
	repo, _ := newTestRepo(t)

	_, err := repo.Get(context.Background(), "missing")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGet_IndexMissing(t *testing.T) {
	repo, ms := newTestRepo(t)

	ms.hgetAllFn = func(_ context.Context, _ string) (map[string]string, error) { return storedMeta(), nil }
	ms.indexInfoFn = func(_ context.Context, _ string) (db.IndexInfo, error) {
		return db.IndexInfo{}, &db.Error{Op: db.OpIndexInfo, Err: db.ErrIndexNotFound}
	}

	_, err := repo.Get(context.Background(), "personal")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

// --- List ---

func TestList_SortedByCreatedAt(t *testing.T) {
	repo, ms := newTestRepo(t)

	ms.scanFn = func(_ context.Context, pattern string) ([]string, error) {
		if pattern != "cvindex:collection:*" {
			t.Errorf("unexpected pattern: %s", pattern)
		}
		return []string{"cvindex:collection:b", "cvindex:collection:a", "cvindex:collection:gone"}, nil
	}
	ms.hgetAllFn = func(_ context.Context, key string) (map[string]string, error) {
		switch key {
		case "cvindex:collection:a":
			return map[string]string{"name": "a", "created_at": "100"}, nil
		case "cvindex:collection:b":
			return map[string]string{"name": "b", "created_at": "50"}, nil
		}
		return map[string]string{}, nil
	}

	infos, err := repo.List(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(infos) != 2 || infos[0].Name != "b" || infos[1].Name != "a" {
		t.Errorf("unexpected order: %+v", infos)
	}
}

func TestList_Empty(t *testing.T) {
	repo, _ := newTestRepo(t)

	infos, err := repo.List(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(infos) != 0 {
		t.Errorf("expected empty list, got %d", len(infos))
	}
}

// --- Delete ---

func TestDelete_HappyPath(t *testing.T) {
	repo, ms := newTestRepo(t)

	var dropped, withDocs bool
	ms.hgetAllFn = func(_ context.Context, _ string) (map[string]string, error) { return storedMeta(), nil }
	ms.dropIndexFn = func(_ context.Context, name string, deleteDocs bool) error {
		dropped = name == "cvindex:personal:idx"
		withDocs = deleteDocs
		return nil
	}

	if err := repo.Delete(context.Background(), "personal"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !dropped || !withDocs {
		t.Errorf("expected FT.DROPINDEX DD, dropped=%v withDocs=%v", dropped, withDocs)
	}
}

func TestDelete_NotFound(t *testing.T) {
	repo, _ := newTestRepo(t)

	err := repo.Delete(context.Background(), "missing")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDelete_DropError_RestoresMetadata(t *testing.T) {
	repo, ms := newTestRepo(t)

	var restored map[string]string
	ms.hgetAllFn = func(_ context.Context, _ string) (map[string]string, error) { return storedMeta(), nil }
	ms.dropIndexFn = func(_ context.Context, _ string, _ bool) error { return errors.New("busy") }
	ms.hsetFn = func(_ context.Context, _ string, fields map[string]string) error {
		restored = fields
		return nil
	}

	if err := repo.Delete(context.Background(), "personal"); err == nil {
		t.Fatal("expected error")
	}
	if restored["name"] != "personal" {
		t.Errorf("metadata not restored: %v", restored)
	}
}

// --- Index ---

func TestBuildIndex(t *testing.T) {
	def, err := buildIndex("personal", 8, []string{"level", "roles"}, HNSWConfig{M: 16, EFConstruct: 200})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := "FT.CREATE cvindex:personal:idx ON HASH PREFIX cvindex:personal: SCHEMA " +
		"__content TEXT metadata_level TAG metadata_roles TAG vector VECTOR HNSW"
	if got := def.String(); got != want {
		t.Errorf("index = %q\nwant    %q", got, want)
	}
	if def.Fields[1].TagSeparator != "|" {
		t.Errorf("tag separator = %q", def.Fields[1].TagSeparator)
	}
}

func TestBuildIndex_TextOnly(t *testing.T) {
	def, err := buildIndex("projects", 0, nil, HNSWConfig{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, f := range def.Fields {
		if f.Type == db.IndexFieldVector {
			t.Fatal("text-only collection must not carry a vector field")
		}
	}
}
