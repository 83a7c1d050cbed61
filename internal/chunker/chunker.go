// Package chunker splits text into bounded, overlapping passages for embedding.
package chunker

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/kailas-cloud/cvindex/internal/domain/chunk"
	"github.com/kailas-cloud/cvindex/internal/domain/cv"
)

// Strategy selects how text is split.
type Strategy string

const (
	// Sentences packs whole sentences up to the chunk size.
	Sentences Strategy = "sentences"
	// Words slides a fixed word window.
	Words Strategy = "words"
	// FixedSize slides a fixed character window.
	FixedSize Strategy = "fixed"
)

// DefaultWordsPerChunk is the word window used by Split for the Words strategy.
const DefaultWordsPerChunk = 200

var sentenceEnd = regexp.MustCompile(`[.!?]+`)

// Chunker splits text using character budgets. size and overlap count runes.
type Chunker struct {
	size          int
	overlap       int
	wordsPerChunk int
	newSource     func() string
}

// New creates a chunker. overlap is expected to be smaller than size.
func New(size, overlap int) (*Chunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if overlap < 0 {
		return nil, fmt.Errorf("overlap must not be negative, got %d", overlap)
	}
	return &Chunker{
		size:          size,
		overlap:       overlap,
		wordsPerChunk: DefaultWordsPerChunk,
		newSource:     uuid.NewString,
	}, nil
}

// WithWordsPerChunk sets the word window Split uses for the Words strategy.
func (c *Chunker) WithWordsPerChunk(n int) *Chunker {
	if n > 0 {
		c.wordsPerChunk = n
	}
	return c
}

// Size returns the chunk size budget.
func (c *Chunker) Size() int { return c.size }

// Overlap returns the overlap budget.
func (c *Chunker) Overlap() int { return c.overlap }

// Split dispatches to the given strategy. Unknown strategies fall back to Sentences.
func (c *Chunker) Split(s Strategy, text string, meta map[string]any) []chunk.Chunk {
	switch s {
	case Words:
		return c.ByWords(text, c.wordsPerChunk, meta)
	case FixedSize:
		return c.ByFixedSize(text, meta)
	default:
		return c.BySentences(text, meta)
	}
}

// BySentences greedily packs sentences into chunks of at most size runes.
// When the next sentence does not fit, the buffer is flushed and the new one
// starts with the last overlap/10 words of the flushed chunk, followed by that
// sentence whatever its length. Only a sentence that overflows an empty buffer
// is split into groups of size/10 words.
func (c *Chunker) BySentences(text string, meta map[string]any) []chunk.Chunk {
	var texts []string
	var buf string

	for _, sentence := range splitSentences(text) {
		if utf8.RuneCountInString(buf)+utf8.RuneCountInString(sentence) > c.size {
			if buf == "" {
				texts = append(texts, c.splitLongSentence(sentence)...)
				continue
			}
			texts = append(texts, strings.TrimSpace(buf))
			buf = c.overlapSeed(buf)
		}
		buf += sentence + ". "
	}
	if buf != "" {
		texts = append(texts, strings.TrimSpace(buf))
	}

	return chunk.Wrap(texts, c.sourceID(meta), meta)
}

// ByWords slides a window of wordsPerChunk words with stride wordsPerChunk - overlap/5.
func (c *Chunker) ByWords(text string, wordsPerChunk int, meta map[string]any) []chunk.Chunk {
	if wordsPerChunk < 1 {
		wordsPerChunk = 1
	}
	stride := max(wordsPerChunk-c.overlap/5, 1)

	words := strings.Fields(text)
	var texts []string
	for i := 0; i < len(words); i += stride {
		end := min(i+wordsPerChunk, len(words))
		texts = append(texts, strings.Join(words[i:end], " "))
	}
	return chunk.Wrap(texts, c.sourceID(meta), meta)
}

// ByFixedSize slides a window of size runes with stride size - overlap.
func (c *Chunker) ByFixedSize(text string, meta map[string]any) []chunk.Chunk {
	stride := max(c.size-c.overlap, 1)

	runes := []rune(text)
	var texts []string
	for i := 0; i < len(runes); i += stride {
		end := min(i+c.size, len(runes))
		texts = append(texts, string(runes[i:end]))
	}
	return chunk.Wrap(texts, c.sourceID(meta), meta)
}

func (c *Chunker) overlapSeed(flushed string) string {
	n := c.overlap / 10
	if n == 0 {
		return ""
	}
	words := strings.Fields(flushed)
	if n > len(words) {
		n = len(words)
	}
	return strings.Join(words[len(words)-n:], " ") + " "
}

func (c *Chunker) splitLongSentence(sentence string) []string {
	per := max(c.size/10, 1)

	words := strings.Fields(sentence)
	out := make([]string, 0, len(words)/per+1)
	for i := 0; i < len(words); i += per {
		end := min(i+per, len(words))
		out = append(out, strings.Join(words[i:end], " "))
	}
	return out
}

// sourceID is the owner's CV id, or a random id for anonymous text.
func (c *Chunker) sourceID(meta map[string]any) string {
	if id, ok := meta[cv.KeyCVID].(string); ok && id != "" {
		return id
	}
	return c.newSource()
}

func splitSentences(text string) []string {
	parts := sentenceEnd.Split(text, -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
