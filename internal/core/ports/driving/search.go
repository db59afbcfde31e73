package driving

import (
	"context"

	"github.com/clauseguard/clauseguard-core/internal/core/domain"
)

// SearchService executes hybrid retrieval over an indexed document
type SearchService interface {
	// Search runs the keyword and semantic paths, fuses the rankings
	// and reranks the fused candidates. The returned context carries
	// per-phase statistics and a degradation flag when one retrieval
	// path was unavailable.
	Search(ctx context.Context, query string, opts domain.SearchOptions) (*domain.SearchContext, error)
}
