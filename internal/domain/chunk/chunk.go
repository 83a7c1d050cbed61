package chunk

import "strconv"

// Metadata keys added to every chunk.
const (
	KeyNumber  = "chunk_number"
	KeyOverall = "chunks_overall"
)

// Chunk is a passage of source text sized for embedding, with positional metadata.
type Chunk struct {
	Text     string
	ID       string
	Metadata map[string]any
}

// ID builds the chunk identifier "{source}_chunk#{n}".
func ID(source string, n int) string {
	return source + "_chunk#" + strconv.Itoa(n)
}

// Wrap turns raw passages of one source into chunks numbered from 1.
// meta is copied into every chunk; it may be nil.
func Wrap(texts []string, source string, meta map[string]any) []Chunk {
	out := make([]Chunk, len(texts))
	for i, text := range texts {
		m := make(map[string]any, len(meta)+2)
		for k, v := range meta {
			m[k] = v
		}
		m[KeyNumber] = i + 1
		m[KeyOverall] = len(texts)
		out[i] = Chunk{Text: text, ID: ID(source, i+1), Metadata: m}
	}
	return out
}

// Texts returns the chunk texts in order.
func Texts(chunks []Chunk) []string {
	out := make([]string, len(chunks))
	for i := range chunks {
		out[i] = chunks[i].Text
	}
	return out
}

// IDs returns the chunk ids in order.
func IDs(chunks []Chunk) []string {
	out := make([]string, len(chunks))
	for i := range chunks {
		out[i] = chunks[i].ID
	}
	return out
}

// Metadatas returns the chunk metadata maps in order.
func Metadatas(chunks []Chunk) []map[string]any {
	out := make([]map[string]any, len(chunks))
	for i := range chunks {
		out[i] = chunks[i].Metadata
	}
	return out
}
