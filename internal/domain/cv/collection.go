package cv

import (
	"fmt"
	"sync"

	"github.com/kailas-cloud/cvindex/internal/domain"
	"github.com/kailas-cloud/cvindex/internal/domain/chunk"
)

// PersonalData is the indexable view of one CV.
type PersonalData struct {
	Metadata map[string]any
	Text     string
}

// Collection aggregates parsed CVs in insertion order together with their chunk lists.
// Chunks carry owner metadata by value. Safe for concurrent use.
type Collection struct {
	mu       sync.RWMutex
	cvs      []CV
	index    map[string]int
	personal map[string][]chunk.Chunk
	projects map[string][]chunk.Chunk
}

// NewCollection creates an empty collection.
func NewCollection() *Collection {
	return &Collection{
		index:    make(map[string]int),
		personal: make(map[string][]chunk.Chunk),
		projects: make(map[string][]chunk.Chunk),
	}
}

// Add appends a CV. Duplicate ids are rejected.
func (c *Collection) Add(v CV) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.index[v.ID()]; ok {
		return fmt.Errorf("cv %q: %w", v.ID(), domain.ErrAlreadyExists)
	}
	c.index[v.ID()] = len(c.cvs)
	c.cvs = append(c.cvs, v)
	return nil
}

// Get returns the CV with the given id.
func (c *Collection) Get(id string) (CV, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	i, ok := c.index[id]
	if !ok {
		return CV{}, false
	}
	return c.cvs[i], true
}

// CVs returns all CVs in insertion order.
func (c *Collection) CVs() []CV {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]CV, len(c.cvs))
	copy(out, c.cvs)
	return out
}

// AllMetadata returns the metadata of every CV in insertion order.
func (c *Collection) AllMetadata() []map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]map[string]any, len(c.cvs))
	for i := range c.cvs {
		out[i] = c.cvs[i].Metadata()
	}
	return out
}

// AllTexts returns the text of every CV in insertion order.
func (c *Collection) AllTexts() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]string, len(c.cvs))
	for i := range c.cvs {
		out[i] = c.cvs[i].Text()
	}
	return out
}

// PersonalData returns metadata and text of one CV.
func (c *Collection) PersonalData(id string) (PersonalData, bool) {
	v, ok := c.Get(id)
	if !ok {
		return PersonalData{}, false
	}
	return PersonalData{Metadata: v.Metadata(), Text: v.Text()}, true
}

// SetPersonalChunks stores the chunks of a CV's personal description.
func (c *Collection) SetPersonalChunks(id string, chunks []chunk.Chunk) error {
	return c.setChunks(c.personal, id, chunks)
}

// AppendProjectChunks adds chunks of one project description to the CV.
func (c *Collection) AppendProjectChunks(id string, chunks []chunk.Chunk) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.index[id]; !ok {
		return fmt.Errorf("cv %q: %w", id, domain.ErrNotFound)
	}
	c.projects[id] = append(c.projects[id], chunks...)
	return nil
}

func (c *Collection) setChunks(dst map[string][]chunk.Chunk, id string, chunks []chunk.Chunk) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.index[id]; !ok {
		return fmt.Errorf("cv %q: %w", id, domain.ErrNotFound)
	}
	dst[id] = chunks
	return nil
}

// PersonalChunks returns the personal description chunks of a CV.
func (c *Collection) PersonalChunks(id string) []chunk.Chunk {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]chunk.Chunk(nil), c.personal[id]...)
}

// ProjectChunks returns the project description chunks of a CV.
func (c *Collection) ProjectChunks(id string) []chunk.Chunk {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]chunk.Chunk(nil), c.projects[id]...)
}

// Len returns the number of CVs.
func (c *Collection) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cvs)
}

// Clear drops every CV and chunk list.
func (c *Collection) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cvs = nil
	c.index = make(map[string]int)
	c.personal = make(map[string][]chunk.Chunk)
	c.projects = make(map[string][]chunk.Chunk)
}
