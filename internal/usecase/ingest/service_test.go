package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kailas-cloud/cvindex/internal/chunker"
	"github.com/kailas-cloud/cvindex/internal/docx/docxtest"
	"github.com/kailas-cloud/cvindex/internal/domain"
	"github.com/kailas-cloud/cvindex/internal/domain/chunk"
	"github.com/kailas-cloud/cvindex/internal/domain/cv"
	"github.com/kailas-cloud/cvindex/internal/parser"
)

// --- Mocks ---

type insertCall struct {
	collection string
	documents  []string
	metadatas  []map[string]any
	ids        []string
}

type mockStore struct {
	existing  map[string]bool
	created   []string
	recreated []string
	inserts   []insertCall
	createOK  bool
	insertOK  bool
	insertErr error
}

func newMockStore() *mockStore {
	return &mockStore{existing: map[string]bool{}, createOK: true, insertOK: true}
}

func (m *mockStore) CollectionExists(_ context.Context, name string) bool { return m.existing[name] }

func (m *mockStore) CreateCollection(_ context.Context, name string, _ map[string]any) bool {
	m.created = append(m.created, name)
	return m.createOK
}

func (m *mockStore) RecreateCollection(_ context.Context, name string, _ map[string]any) bool {
	m.recreated = append(m.recreated, name)
	return m.createOK
}

func (m *mockStore) InsertDocuments(
	_ context.Context, collection string, documents []string, metadatas []map[string]any, ids []string,
) (bool, error) {
	m.inserts = append(m.inserts, insertCall{collection, documents, metadatas, ids})
	return m.insertOK, m.insertErr
}

func newService(t *testing.T, store *mockStore) *Service {
	t.Helper()
	c, err := chunker.New(1000, 100)
	if err != nil {
		t.Fatalf("chunker.New: %v", err)
	}
	p := parser.New(nil).
		WithClock(func() time.Time { return time.Unix(1700000000, 0) }).
		WithToken(func() string { return "tok" })
	return New(p, c, store, "personal", "projects")
}

func writeResume(t *testing.T, dir, file, name string) string {
	t.Helper()
	paragraphs, tables := docxtest.Resume(name, "SENIOR DATA SCIENTIST")
	path := filepath.Join(dir, file)
	docxtest.WriteFile(t, path, paragraphs, tables...)
	return path
}

// --- Tests ---

func TestIngestFile(t *testing.T) {
	store := newMockStore()
	svc := newService(t, store)
	path := writeResume(t, t.TempDir(), "jane.docx", "Jane Doe")

	res, err := svc.IngestFile(context.Background(), path)
	if err != nil {
		t.Fatalf("IngestFile: %v", err)
	}

	wantID := "Jane Doe_1700000000_tok"
	if res.CVID != wantID || res.Candidate != "Jane Doe" {
		t.Errorf("report = %+v", res)
	}
	if res.PersonalChunks != 1 || res.Projects != 1 || res.ProjectChunks != 1 {
		t.Errorf("counts = %+v", res)
	}
	if len(store.inserts) != 2 {
		t.Fatalf("inserts = %d, want 2", len(store.inserts))
	}

	personal := store.inserts[0]
	if personal.collection != "personal" {
		t.Errorf("first insert into %q", personal.collection)
	}
	if personal.ids[0] != wantID+"_chunk#1" {
		t.Errorf("personal id = %q", personal.ids[0])
	}
	meta := personal.metadatas[0]
	if meta[cv.KeyCVID] != wantID || meta[cv.KeyLevel] != "SENIOR" {
		t.Errorf("personal metadata = %v", meta)
	}
	if meta[chunk.KeyNumber] != 1 || meta[chunk.KeyOverall] != 1 {
		t.Errorf("chunk position = %v/%v", meta[chunk.KeyNumber], meta[chunk.KeyOverall])
	}

	project := store.inserts[1]
	if project.collection != "projects" {
		t.Errorf("second insert into %q", project.collection)
	}
	if project.ids[0] != wantID+"_project1_chunk#1" {
		t.Errorf("project id = %q", project.ids[0])
	}
	if project.metadatas[0][cv.KeyProjectName] != "payments platform" {
		t.Errorf("project metadata = %v", project.metadatas[0])
	}
	if !strings.Contains(project.documents[0], "fraud scoring") {
		t.Errorf("project text = %q", project.documents[0])
	}

	if svc.Arena().Len() != 1 {
		t.Errorf("arena len = %d, want 1", svc.Arena().Len())
	}
	if got := svc.Arena().ProjectChunks(wantID); len(got) != 1 {
		t.Errorf("arena project chunks = %d", len(got))
	}
}

func TestIngestFile_ProjectIDsDistinct(t *testing.T) {
	store := newMockStore()
	svc := newService(t, store)

	paragraphs, tables := docxtest.Resume("Jane Doe", "DATA SCIENTIST")
	tables[1] = append(tables[1], []string{
		"Search Engine\nProduct search",
		"Built ranking.\nProject roles\nML Engineer\nPeriod\n2020",
	})
	path := filepath.Join(t.TempDir(), "jane.docx")
	docxtest.WriteFile(t, path, paragraphs, tables...)

	res, err := svc.IngestFile(context.Background(), path)
	if err != nil {
		t.Fatalf("IngestFile: %v", err)
	}
	if res.Projects != 2 {
		t.Fatalf("projects = %d, want 2", res.Projects)
	}
	ids := store.inserts[1].ids
	if len(ids) != 2 || ids[0] == ids[1] {
		t.Errorf("project ids = %v", ids)
	}
}

func TestIngestFile_ParseError(t *testing.T) {
	store := newMockStore()
	svc := newService(t, store)

	_, err := svc.IngestFile(context.Background(), filepath.Join(t.TempDir(), "notes.txt"))
	if !errors.Is(err, domain.ErrUnsupportedDocument) {
		t.Fatalf("err = %v, want ErrUnsupportedDocument", err)
	}
	var perr *parser.StructuralParseError
	if !errors.As(err, &perr) {
		t.Errorf("err %v is not a StructuralParseError", err)
	}
	if len(store.inserts) != 0 {
		t.Error("nothing should be inserted")
	}
}

func TestIngestFile_InsertFailures(t *testing.T) {
	tests := []struct {
		name    string
		ok      bool
		err     error
		wantErr error
	}{
		{name: "store rejects", ok: false, wantErr: domain.ErrStoreUnavailable},
		{name: "embedding fails", err: domain.ErrEmbeddingProviderError, wantErr: domain.ErrEmbeddingProviderError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMockStore()
			store.insertOK = tt.ok
			store.insertErr = tt.err
			svc := newService(t, store)
			path := writeResume(t, t.TempDir(), "jane.docx", "Jane Doe")

			if _, err := svc.IngestFile(context.Background(), path); !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if svc.Arena().Len() != 0 {
				t.Errorf("arena len = %d, want 0 after a failed insert", svc.Arena().Len())
			}
		})
	}
}

func TestIngestFile_DuplicateNotReinserted(t *testing.T) {
	store := newMockStore()
	svc := newService(t, store)
	path := writeResume(t, t.TempDir(), "jane.docx", "Jane Doe")

	if _, err := svc.IngestFile(context.Background(), path); err != nil {
		t.Fatalf("first IngestFile: %v", err)
	}
	if _, err := svc.IngestFile(context.Background(), path); !errors.Is(err, domain.ErrAlreadyExists) {
		t.Fatalf("err = %v, want ErrAlreadyExists", err)
	}
	if len(store.inserts) != 2 {
		t.Errorf("inserts = %d, want 2", len(store.inserts))
	}
}

func TestIngestDir(t *testing.T) {
	store := newMockStore()
	svc := newService(t, store)
	dir := t.TempDir()

	writeResume(t, dir, "b.docx", "Bob Stone")
	writeResume(t, dir, "a.docx", "Ann Lee")
	writeResume(t, dir, "~$a.docx", "Lock File")
	if err := os.WriteFile(filepath.Join(dir, "broken.docx"), []byte("not a zip"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "readme.md"), []byte("#"), 0o600); err != nil {
		t.Fatal(err)
	}

	report, err := svc.IngestDir(context.Background(), dir)
	if err != nil {
		t.Fatalf("IngestDir: %v", err)
	}
	if len(report.Ingested) != 2 {
		t.Fatalf("ingested = %d, want 2", len(report.Ingested))
	}
	if report.Ingested[0].Candidate != "Ann Lee" || report.Ingested[1].Candidate != "Bob Stone" {
		t.Errorf("order = %s, %s", report.Ingested[0].Candidate, report.Ingested[1].Candidate)
	}
	if _, ok := report.Failed[filepath.Join(dir, "broken.docx")]; !ok || len(report.Failed) != 1 {
		t.Errorf("failed = %v", report.Failed)
	}
}

func TestIngestDir_Cancelled(t *testing.T) {
	svc := newService(t, newMockStore())
	dir := t.TempDir()
	writeResume(t, dir, "a.docx", "Ann Lee")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := svc.IngestDir(ctx, dir); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestEnsureCollections(t *testing.T) {
	t.Run("creates missing", func(t *testing.T) {
		store := newMockStore()
		store.existing["personal"] = true
		if err := newService(t, store).EnsureCollections(context.Background(), false); err != nil {
			t.Fatalf("EnsureCollections: %v", err)
		}
		if len(store.created) != 1 || store.created[0] != "projects" {
			t.Errorf("created = %v", store.created)
		}
	})

	t.Run("recreate", func(t *testing.T) {
		store := newMockStore()
		store.existing["personal"] = true
		if err := newService(t, store).EnsureCollections(context.Background(), true); err != nil {
			t.Fatalf("EnsureCollections: %v", err)
		}
		if len(store.recreated) != 2 {
			t.Errorf("recreated = %v", store.recreated)
		}
	})

	t.Run("store failure", func(t *testing.T) {
		store := newMockStore()
		store.createOK = false
		err := newService(t, store).EnsureCollections(context.Background(), false)
		if !errors.Is(err, domain.ErrStoreUnavailable) {
			t.Fatalf("err = %v, want ErrStoreUnavailable", err)
		}
	})
}

func TestIsDocx(t *testing.T) {
	tests := map[string]bool{
		"cv.docx":         true,
		"CV.DOCX":         true,
		"/inbox/a.docx":   true,
		"~$cv.docx":       false,
		"cv.doc":          false,
		"cv.docx.tmp":     false,
		"/inbox/~$x.docx": false,
	}
	for name, want := range tests {
		if got := IsDocx(name); got != want {
			t.Errorf("IsDocx(%q) = %v, want %v", name, got, want)
		}
	}
}
