package chi

import (
	"context"

	"github.com/kailas-cloud/cvindex/internal/docx"
	healthuc "github.com/kailas-cloud/cvindex/internal/usecase/health"
	ingestuc "github.com/kailas-cloud/cvindex/internal/usecase/ingest"
	searchuc "github.com/kailas-cloud/cvindex/internal/usecase/search"
	"github.com/kailas-cloud/cvindex/internal/vectorstore"
)

// Collections manages vector store collections.
type Collections interface {
	ListCollections(ctx context.Context) []string
	GetCollectionInfo(ctx context.Context, name string) vectorstore.CollectionInfo
	CollectionExists(ctx context.Context, name string) bool
	CreateCollection(ctx context.Context, name string, metadata map[string]any) bool
	RecreateCollection(ctx context.Context, name string, metadata map[string]any) bool
	DeleteCollection(ctx context.Context, name string) bool
}

// Searcher runs search requests.
type Searcher interface {
	Search(ctx context.Context, req searchuc.Request) (searchuc.Response, error)
}

// Ingester stores uploaded résumés.
type Ingester interface {
	IngestDocument(ctx context.Context, doc *docx.Document, source string) (ingestuc.Ingested, error)
}

// HealthChecker reports component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}
