package health

import "context"

// Status is the aggregated health status.
type Status string

const (
	// Healthy means every check passed.
	Healthy Status = "ok"
	// Degraded means the store is up but the embedder failed.
	Degraded Status = "degraded"
	// Unhealthy means the vector store is unreachable.
	Unhealthy Status = "error"
)

// CheckResult is the outcome of one component check.
type CheckResult string

const (
	// CheckOK marks a passing check.
	CheckOK CheckResult = "ok"
	// CheckError marks a failing check.
	CheckError CheckResult = "error"
)

// Component names used in Report.Checks.
const (
	ComponentVectorStore = "vector_store"
	ComponentEmbedding   = "embedding"
)

// Report aggregates check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service runs health checks.
type Service struct {
	store     StoreChecker
	embedding EmbeddingChecker
}

// New creates a Service. embedding may be nil when no embedder is configured.
func New(store StoreChecker, embedding EmbeddingChecker) *Service {
	return &Service{store: store, embedding: embedding}
}

// Check runs every check. Without the vector store nothing works, so its failure
// is Unhealthy; an embedder failure alone is Degraded.
func (s *Service) Check(ctx context.Context) Report {
	checks := map[string]CheckResult{ComponentVectorStore: CheckOK}
	status := Healthy

	if !s.store.IsConnected() {
		checks[ComponentVectorStore] = CheckError
		status = Unhealthy
	}

	if s.embedding != nil {
		checks[ComponentEmbedding] = CheckOK
		if err := s.embedding.HealthCheck(ctx); err != nil {
			checks[ComponentEmbedding] = CheckError
			if status == Healthy {
				status = Degraded
			}
		}
	}

	return Report{Status: status, Checks: checks}
}
