package ingest

import (
	"context"

	"github.com/kailas-cloud/cvindex/internal/chunker"
	"github.com/kailas-cloud/cvindex/internal/docx"
	"github.com/kailas-cloud/cvindex/internal/domain/chunk"
	"github.com/kailas-cloud/cvindex/internal/domain/cv"
)

// Parser extracts CVs from documents.
type Parser interface {
	ParseFile(path string) (cv.CV, error)
	Parse(doc *docx.Document, source string) (cv.CV, error)
}

// Splitter turns text into chunks.
type Splitter interface {
	Split(s chunker.Strategy, text string, meta map[string]any) []chunk.Chunk
}

// VectorStore is the part of the vector store facade ingestion writes through.
type VectorStore interface {
	CollectionExists(ctx context.Context, name string) bool
	CreateCollection(ctx context.Context, name string, metadata map[string]any) bool
	RecreateCollection(ctx context.Context, name string, metadata map[string]any) bool
	InsertDocuments(
		ctx context.Context, collection string, documents []string, metadatas []map[string]any, ids []string,
	) (bool, error)
}
