package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/cvindex/internal/chunker"
	"github.com/kailas-cloud/cvindex/internal/docx"
	"github.com/kailas-cloud/cvindex/internal/domain"
	"github.com/kailas-cloud/cvindex/internal/domain/chunk"
	"github.com/kailas-cloud/cvindex/internal/domain/cv"
)

// Ingested reports one stored CV.
type Ingested struct {
	CVID           string
	Candidate      string
	Source         string
	PersonalChunks int
	Projects       int
	ProjectChunks  int
}

// DirReport summarizes an IngestDir run.
type DirReport struct {
	Ingested []Ingested
	Failed   map[string]error
}

// Service runs the parse, chunk and store pipeline for résumé documents.
type Service struct {
	parser     Parser
	splitter   Splitter
	store      VectorStore
	arena      *cv.Collection
	strategy   chunker.Strategy
	personal   string
	projects   string
	collection map[string]any
	logger     *zap.Logger
}

// New creates an ingest service writing to the personal and projects collections.
func New(p Parser, s Splitter, store VectorStore, personal, projects string) *Service {
	return &Service{
		parser:     p,
		splitter:   s,
		store:      store,
		arena:      cv.NewCollection(),
		strategy:   chunker.Sentences,
		personal:   personal,
		projects:   projects,
		collection: map[string]any{"about": "cv chunks"},
		logger:     zap.NewNop(),
	}
}

// WithStrategy sets the chunking strategy.
func (s *Service) WithStrategy(strategy chunker.Strategy) *Service {
	if strategy != "" {
		s.strategy = strategy
	}
	return s
}

// WithLogger sets the logger.
func (s *Service) WithLogger(l *zap.Logger) *Service {
	if l != nil {
		s.logger = l
	}
	return s
}

// Arena returns the in-memory collection of every CV ingested so far.
func (s *Service) Arena() *cv.Collection { return s.arena }

// EnsureCollections creates both target collections. With recreate, existing
// collections are dropped first.
func (s *Service) EnsureCollections(ctx context.Context, recreate bool) error {
	for _, name := range []string{s.personal, s.projects} {
		var ok bool
		switch {
		case recreate:
			ok = s.store.RecreateCollection(ctx, name, s.collection)
		case s.store.CollectionExists(ctx, name):
			continue
		default:
			ok = s.store.CreateCollection(ctx, name, s.collection)
		}
		if !ok {
			return fmt.Errorf("ensure collection %q: %w", name, domain.ErrStoreUnavailable)
		}
	}
	return nil
}

// IngestFile parses the .docx at path and stores its chunks.
func (s *Service) IngestFile(ctx context.Context, path string) (Ingested, error) {
	v, err := s.parser.ParseFile(path)
	if err != nil {
		return Ingested{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return s.index(ctx, v, path)
}

// IngestDocument stores the chunks of an already opened document.
func (s *Service) IngestDocument(ctx context.Context, doc *docx.Document, source string) (Ingested, error) {
	v, err := s.parser.Parse(doc, source)
	if err != nil {
		return Ingested{}, fmt.Errorf("parse %s: %w", source, err)
	}
	return s.index(ctx, v, source)
}

// IngestDir ingests every .docx file in dir in name order. A failing document is
// recorded in the report and does not stop the run; only a context error aborts it.
func (s *Service) IngestDir(ctx context.Context, dir string) (DirReport, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return DirReport{}, fmt.Errorf("read dir %s: %w", dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !IsDocx(e.Name()) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	report := DirReport{Failed: make(map[string]error)}
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		path := filepath.Join(dir, name)
		res, err := s.IngestFile(ctx, path)
		if err != nil {
			s.logger.Warn("skip document", zap.String("path", path), zap.Error(err))
			report.Failed[path] = err
			continue
		}
		report.Ingested = append(report.Ingested, res)
	}
	return report, nil
}

// IsDocx reports whether name has a .docx extension and is not an editor lock file.
func IsDocx(name string) bool {
	base := filepath.Base(name)
	return strings.EqualFold(filepath.Ext(base), ".docx") && !strings.HasPrefix(base, "~$")
}

func (s *Service) index(ctx context.Context, v cv.CV, source string) (Ingested, error) {
	if _, ok := s.arena.Get(v.ID()); ok {
		return Ingested{}, fmt.Errorf("add cv %q: %w", v.ID(), domain.ErrAlreadyExists)
	}

	personal := s.splitter.Split(s.strategy, v.Text(), v.Metadata())

	projects := v.Projects()
	perProject := make([][]chunk.Chunk, len(projects))
	var projectChunks []chunk.Chunk
	for k, p := range projects {
		chunks := s.splitter.Split(s.strategy, p.Description, p.Metadata())
		renumber(chunks, v.ID()+"_project"+strconv.Itoa(k+1))
		perProject[k] = chunks
		projectChunks = append(projectChunks, chunks...)
	}

	if err := s.insert(ctx, s.personal, personal); err != nil {
		return Ingested{}, err
	}
	if err := s.insert(ctx, s.projects, projectChunks); err != nil {
		return Ingested{}, err
	}

	// The arena only holds CVs whose chunks reached the index.
	if err := s.remember(v, personal, perProject); err != nil {
		return Ingested{}, err
	}

	res := Ingested{
		CVID:           v.ID(),
		Candidate:      v.PersonalInfo().CandidateName,
		Source:         source,
		PersonalChunks: len(personal),
		Projects:       len(projects),
		ProjectChunks:  len(projectChunks),
	}
	s.logger.Info("cv ingested",
		zap.String("cv_id", res.CVID),
		zap.String("source", source),
		zap.Int("personal_chunks", res.PersonalChunks),
		zap.Int("projects", res.Projects),
		zap.Int("project_chunks", res.ProjectChunks),
	)
	return res, nil
}

func (s *Service) remember(v cv.CV, personal []chunk.Chunk, perProject [][]chunk.Chunk) error {
	if err := s.arena.Add(v); err != nil {
		return fmt.Errorf("add cv: %w", err)
	}
	if err := s.arena.SetPersonalChunks(v.ID(), personal); err != nil {
		return err
	}
	for _, chunks := range perProject {
		if err := s.arena.AppendProjectChunks(v.ID(), chunks); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) insert(ctx context.Context, collection string, chunks []chunk.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	ok, err := s.store.InsertDocuments(ctx, collection,
		chunk.Texts(chunks), chunk.Metadatas(chunks), chunk.IDs(chunks))
	if err != nil {
		return fmt.Errorf("insert into %s: %w", collection, err)
	}
	if !ok {
		return fmt.Errorf("insert into %s: %w", collection, domain.ErrStoreUnavailable)
	}
	return nil
}

// renumber gives every chunk of one project an id under source. Projects of one
// CV share its CV_id, so the chunker's default ids would collide across them.
func renumber(chunks []chunk.Chunk, source string) {
	for i := range chunks {
		chunks[i].ID = chunk.ID(source, i+1)
	}
}
