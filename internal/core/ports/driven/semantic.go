package driven

import (
	"context"

	"github.com/clauseguard/clauseguard-core/internal/core/domain"
)

// SemanticSearcher provides embedding-based nearest-neighbour retrieval over
// the chunk corpus mirror held by an external vector store.
type SemanticSearcher interface {
	// Embed generates an embedding for a query text
	Embed(ctx context.Context, text string) ([]float32, error)

	// Query returns the k nearest chunks for the embedding, rank 1-based,
	// nearest first. Ranks are unique within the returned list.
	Query(ctx context.Context, embedding []float32, k int) ([]domain.RankedEntry, error)

	// HealthCheck verifies the vector store is reachable
	HealthCheck(ctx context.Context) error

	// Close releases resources held by the searcher
	Close() error
}
