package domain

import "time"

// RetrievalMethod identifies which path produced a result
type RetrievalMethod string

const (
	RetrievalKeyword  RetrievalMethod = "keyword"
	RetrievalSemantic RetrievalMethod = "semantic"
	RetrievalFused    RetrievalMethod = "rrf_fusion"
	RetrievalReranked RetrievalMethod = "rerank"
)

// RankedEntry is one result from a single retrieval path.
// Rank is 1-based, strictly increasing and unique within its source list.
type RankedEntry struct {
	ChunkID string  `json:"chunk_id"`
	Rank    int     `json:"rank"`
	Score   float64 `json:"score"`
}

// FusedEntry is one result of reciprocal-rank fusion.
// BestRank is the smallest rank the chunk held in any contributing list;
// it is the first tie-breaker after FusedScore.
type FusedEntry struct {
	ChunkID    string  `json:"chunk_id"`
	FusedScore float64 `json:"fused_score"`
	BestRank   int     `json:"best_rank"`
}

// RerankedEntry is one result of the precision rerank pass.
// Relevance is provider-defined and used only for ordering.
type RerankedEntry struct {
	ChunkID   string  `json:"chunk_id"`
	Relevance float64 `json:"relevance"`
}

// SearchOptions configures one hybrid search
type SearchOptions struct {
	RetrievalK int `json:"retrieval_k"` // per-path retrieval cap (default 50)
	FusionK    int `json:"fusion_k"`    // post-fusion cap (default 20)
	RerankK    int `json:"rerank_k"`    // final result cap (default 10)
}

// DefaultSearchOptions returns the standard retrieval funnel sizes
func DefaultSearchOptions() SearchOptions {
	return SearchOptions{
		RetrievalK: 50,
		FusionK:    20,
		RerankK:    10,
	}
}

// SearchStatistics records per-phase counts and durations for one search
type SearchStatistics struct {
	KeywordCount  int `json:"keyword_count"`
	SemanticCount int `json:"semantic_count"`
	FusedCount    int `json:"fused_count"`
	RerankedCount int `json:"reranked_count"`

	KeywordDuration  time.Duration `json:"keyword_duration"`
	SemanticDuration time.Duration `json:"semantic_duration"`
	FusionDuration   time.Duration `json:"fusion_duration"`
	RerankDuration   time.Duration `json:"rerank_duration"`
	TotalDuration    time.Duration `json:"total_duration"`

	KeywordFailed  bool `json:"keyword_failed"`
	SemanticFailed bool `json:"semantic_failed"`
	RerankSkipped  bool `json:"rerank_skipped"`
	CacheHit       bool `json:"cache_hit"`
}

// SearchContext is the retrieval evidence handed to the review pipeline.
// Degraded marks results produced with one retrieval path or without rerank;
// degraded contexts are still valid results, never errors.
type SearchContext struct {
	Query      string           `json:"query"`
	Results    []RerankedEntry  `json:"results"`
	Chunks     map[string]Chunk `json:"chunks,omitempty"` // resolved chunk content by ID
	Statistics SearchStatistics `json:"statistics"`
	Degraded   bool             `json:"degraded"`
}

// HasResults reports whether any evidence was retrieved
func (c *SearchContext) HasResults() bool {
	return len(c.Results) > 0
}

// ChunkIDs returns the result chunk IDs in rank order
func (c *SearchContext) ChunkIDs() []string {
	ids := make([]string, len(c.Results))
	for i, r := range c.Results {
		ids[i] = r.ChunkID
	}
	return ids
}
