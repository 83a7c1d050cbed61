package watcher

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/kailas-cloud/cvindex/internal/docx/docxtest"
	ingestuc "github.com/kailas-cloud/cvindex/internal/usecase/ingest"
)

// --- Mocks ---

type mockIngester struct {
	mu    sync.Mutex
	paths []string
	err   error
	done  chan string
}

func (m *mockIngester) IngestFile(_ context.Context, path string) (ingestuc.Ingested, error) {
	m.mu.Lock()
	m.paths = append(m.paths, path)
	m.mu.Unlock()
	if m.done != nil {
		m.done <- path
	}
	return ingestuc.Ingested{CVID: "id"}, m.err
}

// --- Tests ---

func TestObserve_Debounce(t *testing.T) {
	w := New("/inbox", &mockIngester{}, nil).WithDebounce(time.Second)
	t0 := time.Unix(1000, 0)

	if !w.observe(fsnotify.Event{Name: "/inbox/a.docx", Op: fsnotify.Create}, t0) {
		t.Fatal("create should be observed")
	}
	w.observe(fsnotify.Event{Name: "/inbox/a.docx", Op: fsnotify.Write}, t0.Add(800*time.Millisecond))

	if got := w.due(t0.Add(time.Second)); len(got) != 0 {
		t.Errorf("due before quiet period ended: %v", got)
	}
	got := w.due(t0.Add(1800 * time.Millisecond))
	if len(got) != 1 || got[0] != "/inbox/a.docx" {
		t.Errorf("due = %v", got)
	}
	if len(w.pending) != 0 {
		t.Error("due paths must leave the pending set")
	}
}

func TestObserve_Filters(t *testing.T) {
	w := New("/inbox", &mockIngester{}, nil)
	now := time.Now()

	tests := []struct {
		event fsnotify.Event
		want  bool
	}{
		{fsnotify.Event{Name: "/inbox/a.txt", Op: fsnotify.Create}, false},
		{fsnotify.Event{Name: "/inbox/~$a.docx", Op: fsnotify.Create}, false},
		{fsnotify.Event{Name: "/inbox/a.docx", Op: fsnotify.Chmod}, false},
		{fsnotify.Event{Name: "/inbox/a.docx", Op: fsnotify.Write}, true},
	}
	for _, tt := range tests {
		if got := w.observe(tt.event, now); got != tt.want {
			t.Errorf("observe(%v) = %v, want %v", tt.event, got, tt.want)
		}
	}

	w.observe(fsnotify.Event{Name: "/inbox/a.docx", Op: fsnotify.Remove}, now)
	if len(w.pending) != 0 {
		t.Errorf("removed file still pending: %v", w.pending)
	}
}

func TestDue_SortedAndNextDeadline(t *testing.T) {
	w := New("/inbox", &mockIngester{}, nil).WithDebounce(time.Second)
	t0 := time.Unix(1000, 0)
	w.observe(fsnotify.Event{Name: "/inbox/b.docx", Op: fsnotify.Create}, t0)
	w.observe(fsnotify.Event{Name: "/inbox/a.docx", Op: fsnotify.Create}, t0)
	w.observe(fsnotify.Event{Name: "/inbox/c.docx", Op: fsnotify.Create}, t0.Add(5*time.Second))

	next, ok := w.nextDeadline()
	if !ok || !next.Equal(t0.Add(time.Second)) {
		t.Errorf("next deadline = %v, %v", next, ok)
	}

	got := w.due(t0.Add(2 * time.Second))
	if len(got) != 2 || got[0] != "/inbox/a.docx" || got[1] != "/inbox/b.docx" {
		t.Errorf("due = %v", got)
	}
}

func TestFlush_ContinuesAfterFailure(t *testing.T) {
	ing := &mockIngester{err: errors.New("bad document")}
	w := New("/inbox", ing, nil).WithDebounce(time.Millisecond)
	t0 := time.Unix(1000, 0)
	w.observe(fsnotify.Event{Name: "/inbox/a.docx", Op: fsnotify.Create}, t0)
	w.observe(fsnotify.Event{Name: "/inbox/b.docx", Op: fsnotify.Create}, t0)

	w.flush(context.Background(), t0.Add(time.Second))

	if len(ing.paths) != 2 {
		t.Errorf("ingested %v, want both files attempted", ing.paths)
	}
}

func TestRun_IngestsDroppedFile(t *testing.T) {
	dir := t.TempDir()
	ing := &mockIngester{done: make(chan string, 4)}
	w := New(dir, ing, nil).WithDebounce(50 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- w.Run(ctx) }()

	// Give the watcher time to register the directory.
	time.Sleep(100 * time.Millisecond)
	paragraphs, tables := docxtest.Resume("Jane Doe", "DATA SCIENTIST")
	path := filepath.Join(dir, "jane.docx")
	docxtest.WriteFile(t, path, paragraphs, tables...)

	select {
	case got := <-ing.done:
		if got != path {
			t.Errorf("ingested %q, want %q", got, path)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("file was not ingested")
	}

	cancel()
	if err := <-errc; err != nil {
		t.Errorf("Run: %v", err)
	}

	ing.mu.Lock()
	defer ing.mu.Unlock()
	if len(ing.paths) != 1 {
		t.Errorf("ingest calls = %d, want 1 after debounce", len(ing.paths))
	}
}

func TestRun_MissingDir(t *testing.T) {
	w := New(filepath.Join(t.TempDir(), "missing"), &mockIngester{}, nil)
	if err := w.Run(context.Background()); err == nil {
		t.Fatal("expected error for missing directory")
	}
}
