// Package watcher ingests résumés dropped into an inbox directory.
package watcher

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	ingestuc "github.com/kailas-cloud/cvindex/internal/usecase/ingest"
)

// DefaultDebounce is the quiet period a file must see before it is ingested.
const DefaultDebounce = 500 * time.Millisecond

// Ingester stores one document file.
type Ingester interface {
	IngestFile(ctx context.Context, path string) (ingestuc.Ingested, error)
}

// Watcher hands .docx files created or written in dir to an Ingester, one at a
// time, after each file has been quiet for the debounce period.
type Watcher struct {
	dir      string
	ingester Ingester
	debounce time.Duration
	logger   *zap.Logger
	pending  map[string]time.Time
}

// New creates a watcher for dir.
func New(dir string, ingester Ingester, logger *zap.Logger) *Watcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{
		dir:      dir,
		ingester: ingester,
		debounce: DefaultDebounce,
		logger:   logger.With(zap.String("dir", dir)),
		pending:  make(map[string]time.Time),
	}
}

// WithDebounce sets the quiet period.
func (w *Watcher) WithDebounce(d time.Duration) *Watcher {
	if d > 0 {
		w.debounce = d
	}
	return w
}

// Run watches until ctx is cancelled. It returns nil on cancellation.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() { _ = fw.Close() }()

	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}
	w.logger.Info("inbox watcher started", zap.Duration("debounce", w.debounce))

	timer := time.NewTimer(time.Hour)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("inbox watcher stopped")
			return nil
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if w.observe(event, time.Now()) {
				resetTimer(timer, w.debounce)
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", zap.Error(err))
		case now := <-timer.C:
			w.flush(ctx, now)
			if next, ok := w.nextDeadline(); ok {
				resetTimer(timer, time.Until(next))
			}
		}
	}
}

// observe records a relevant event and reports whether it was one.
func (w *Watcher) observe(event fsnotify.Event, now time.Time) bool {
	if !ingestuc.IsDocx(event.Name) {
		return false
	}
	switch {
	case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
		w.pending[event.Name] = now.Add(w.debounce)
		return true
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		delete(w.pending, event.Name)
	}
	return false
}

// due removes and returns the paths whose quiet period ended by now, in name order.
func (w *Watcher) due(now time.Time) []string {
	var paths []string
	for path, deadline := range w.pending {
		if !deadline.After(now) {
			paths = append(paths, path)
			delete(w.pending, path)
		}
	}
	sort.Strings(paths)
	return paths
}

func (w *Watcher) nextDeadline() (time.Time, bool) {
	var next time.Time
	for _, deadline := range w.pending {
		if next.IsZero() || deadline.Before(next) {
			next = deadline
		}
	}
	return next, !next.IsZero()
}

func (w *Watcher) flush(ctx context.Context, now time.Time) {
	for _, path := range w.due(now) {
		if ctx.Err() != nil {
			return
		}
		res, err := w.ingester.IngestFile(ctx, path)
		if err != nil {
			w.logger.Warn("inbox document rejected", zap.String("path", path), zap.Error(err))
			continue
		}
		w.logger.Info("inbox document ingested",
			zap.String("path", path),
			zap.String("cv_id", res.CVID),
		)
	}
}

func resetTimer(t *time.Timer, d time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	if d < 0 {
		d = 0
	}
	t.Reset(d)
}
