package health

import "context"

// StoreChecker reports vector store session state.
type StoreChecker interface {
	IsConnected() bool
}

// EmbeddingChecker checks embedding provider availability.
type EmbeddingChecker interface {
	HealthCheck(ctx context.Context) error
}
