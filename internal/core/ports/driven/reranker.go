package driven

import (
	"context"

	"github.com/clauseguard/clauseguard-core/internal/core/domain"
)

// RerankCandidate is one fused result offered to the reranker.
// Content is the chunk text the cross-encoder scores against the query.
type RerankCandidate struct {
	ChunkID string
	Content string
	Score   float64 // fused score, for logging only
}

// Reranker reorders a small candidate set with a higher-cost relevance model.
// Implementations must honor the context deadline; callers treat any error,
// including deadline expiry, as a signal to fall back to the fusion ordering.
type Reranker interface {
	// Rerank scores candidates against the query and returns at most topN
	// entries ordered by descending relevance.
	Rerank(ctx context.Context, query string, candidates []RerankCandidate, topN int) ([]domain.RerankedEntry, error)

	// Model returns the model identifier for logging
	Model() string
}
