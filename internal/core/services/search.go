package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/clauseguard/clauseguard-core/internal/core/domain"
	"github.com/clauseguard/clauseguard-core/internal/core/ports/driven"
	"github.com/clauseguard/clauseguard-core/internal/core/ports/driving"
	"github.com/clauseguard/clauseguard-core/internal/fusion"
	"github.com/clauseguard/clauseguard-core/internal/index"
	"github.com/clauseguard/clauseguard-core/internal/metrics"
	"github.com/clauseguard/clauseguard-core/internal/runtime"
)

// Ensure searchService implements SearchService
var _ driving.SearchService = (*searchService)(nil)

// searchService runs the hybrid retrieval funnel: keyword and semantic
// paths in parallel, rank fusion, then a bounded precision rerank.
type searchService struct {
	keywordIndex *index.KeywordIndex
	fuser        *fusion.Fuser
	services     *runtime.Services // Dynamic AI services
	chunks       map[string]domain.Chunk

	defaults      domain.SearchOptions
	rerankTimeout time.Duration
	logger        *slog.Logger
}

// SearchServiceConfig holds dependencies for the search service.
type SearchServiceConfig struct {
	KeywordIndex *index.KeywordIndex
	Fuser        *fusion.Fuser
	Services     *runtime.Services
	Corpus       []domain.Chunk
	// DefaultOptions are the funnel sizes used when a caller passes zero
	// values; unset fields fall back to the standard sizes
	DefaultOptions domain.SearchOptions
	RerankTimeout  time.Duration
	Logger         *slog.Logger
}

// NewSearchService creates a new SearchService over a fixed corpus.
// AI services (semantic search, reranker) are accessed dynamically via
// runtime.Services, so their availability can change between calls.
func NewSearchService(cfg SearchServiceConfig) driving.SearchService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.RerankTimeout <= 0 {
		cfg.RerankTimeout = 10 * time.Second
	}

	chunks := make(map[string]domain.Chunk, len(cfg.Corpus))
	for _, c := range cfg.Corpus {
		chunks[c.ID] = c
	}

	standard := domain.DefaultSearchOptions()
	defaults := cfg.DefaultOptions
	if defaults.RetrievalK <= 0 {
		defaults.RetrievalK = standard.RetrievalK
	}
	if defaults.FusionK <= 0 {
		defaults.FusionK = standard.FusionK
	}
	if defaults.RerankK <= 0 {
		defaults.RerankK = standard.RerankK
	}

	return &searchService{
		keywordIndex:  cfg.KeywordIndex,
		fuser:         cfg.Fuser,
		services:      cfg.Services,
		chunks:        chunks,
		defaults:      defaults,
		rerankTimeout: cfg.RerankTimeout,
		logger:        logger.With("component", "search"),
	}
}

// Search runs both retrieval paths, fuses and reranks.
// One failed path degrades the result, both failing is fatal. Rerank
// failures always fall back to fusion order, never to an error.
func (s *searchService) Search(ctx context.Context, query string, opts domain.SearchOptions) (*domain.SearchContext, error) {
	start := time.Now()

	if query == "" {
		return nil, fmt.Errorf("%w: empty query", domain.ErrInvalidInput)
	}
	if opts.RetrievalK <= 0 {
		opts.RetrievalK = s.defaults.RetrievalK
	}
	if opts.FusionK <= 0 {
		opts.FusionK = s.defaults.FusionK
	}
	if opts.RerankK <= 0 {
		opts.RerankK = s.defaults.RerankK
	}

	stats := domain.SearchStatistics{}

	var (
		wg                           sync.WaitGroup
		keywordList, semanticList    []domain.RankedEntry
		keywordErr, semanticErr      error
		keywordTook, semanticTook    time.Duration
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		t := time.Now()
		keywordList, keywordErr = s.keywordIndex.Search(query, opts.RetrievalK)
		keywordTook = time.Since(t)
	}()
	go func() {
		defer wg.Done()
		t := time.Now()
		semanticList, semanticErr = s.semanticSearch(ctx, query, opts.RetrievalK)
		semanticTook = time.Since(t)
	}()
	wg.Wait()

	stats.KeywordDuration = keywordTook
	stats.SemanticDuration = semanticTook
	s.observePath(domain.RetrievalKeyword, keywordErr, keywordTook)
	s.observePath(domain.RetrievalSemantic, semanticErr, semanticTook)

	if keywordErr != nil && semanticErr != nil {
		metrics.Errors.WithLabelValues("search", "retrieval").Inc()
		return nil, fmt.Errorf("%w: keyword: %v; semantic: %v",
			domain.ErrRetrievalFailed, keywordErr, semanticErr)
	}

	degraded := false
	var lists [][]domain.RankedEntry
	if keywordErr != nil {
		stats.KeywordFailed = true
		degraded = true
		s.logger.Warn("keyword path failed, degrading to semantic only", "error", keywordErr)
		metrics.SearchDegraded.WithLabelValues("keyword_failed").Inc()
		lists = [][]domain.RankedEntry{semanticList}
	} else if semanticErr != nil {
		stats.SemanticFailed = true
		degraded = true
		s.logger.Warn("semantic path failed, degrading to keyword only", "error", semanticErr)
		metrics.SearchDegraded.WithLabelValues("semantic_failed").Inc()
		lists = [][]domain.RankedEntry{keywordList}
	} else {
		lists = [][]domain.RankedEntry{keywordList, semanticList}
	}
	stats.KeywordCount = len(keywordList)
	stats.SemanticCount = len(semanticList)

	fusionStart := time.Now()
	fused := s.fuser.Fuse(lists, opts.FusionK)
	stats.FusionDuration = time.Since(fusionStart)
	stats.FusedCount = len(fused)

	results, rerankStats := s.rerank(ctx, query, fused, opts.RerankK)
	stats.RerankDuration = rerankStats.duration
	stats.RerankSkipped = rerankStats.skipped
	stats.RerankedCount = len(results)
	if rerankStats.skipped {
		degraded = true
	}

	stats.TotalDuration = time.Since(start)

	return &domain.SearchContext{
		Query:      query,
		Results:    results,
		Chunks:     s.resolveChunks(results),
		Statistics: stats,
		Degraded:   degraded,
	}, nil
}

// semanticSearch embeds the query and searches the vector store.
// A missing semantic service is reported as an error so the caller
// degrades the same way as for a provider failure.
func (s *searchService) semanticSearch(ctx context.Context, query string, k int) ([]domain.RankedEntry, error) {
	searcher := s.services.SemanticSearcher()
	if searcher == nil {
		return nil, domain.ErrServiceUnavailable
	}
	embedding, err := searcher.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	return searcher.Query(ctx, embedding, k)
}

type rerankOutcome struct {
	duration time.Duration
	skipped  bool
}

// rerank runs the precision pass under its own timeout. Any failure
// falls back to fusion order truncated to topN.
func (s *searchService) rerank(ctx context.Context, query string, fused []domain.FusedEntry, topN int) ([]domain.RerankedEntry, rerankOutcome) {
	start := time.Now()

	fallback := func() []domain.RerankedEntry {
		n := topN
		if n > len(fused) {
			n = len(fused)
		}
		out := make([]domain.RerankedEntry, n)
		for i := 0; i < n; i++ {
			out[i] = domain.RerankedEntry{ChunkID: fused[i].ChunkID, Relevance: fused[i].FusedScore}
		}
		return out
	}

	reranker := s.services.Reranker()
	if reranker == nil || len(fused) == 0 {
		return fallback(), rerankOutcome{duration: time.Since(start), skipped: reranker == nil && len(fused) > 0}
	}

	candidates := make([]driven.RerankCandidate, len(fused))
	for i, f := range fused {
		candidates[i] = driven.RerankCandidate{
			ChunkID: f.ChunkID,
			Content: s.chunks[f.ChunkID].Text,
			Score:   f.FusedScore,
		}
	}

	rerankCtx, cancel := context.WithTimeout(ctx, s.rerankTimeout)
	defer cancel()

	results, err := reranker.Rerank(rerankCtx, query, candidates, topN)
	took := time.Since(start)
	if err != nil {
		s.logger.Warn("rerank failed, falling back to fusion order", "error", err)
		metrics.SearchDegraded.WithLabelValues("rerank_failed").Inc()
		metrics.RetrievalRequests.WithLabelValues(string(domain.RetrievalReranked), "error").Inc()
		return fallback(), rerankOutcome{duration: took, skipped: true}
	}
	metrics.RetrievalRequests.WithLabelValues(string(domain.RetrievalReranked), "ok").Inc()
	metrics.RetrievalDuration.WithLabelValues(string(domain.RetrievalReranked)).Observe(took.Seconds())
	return results, rerankOutcome{duration: took}
}

func (s *searchService) resolveChunks(results []domain.RerankedEntry) map[string]domain.Chunk {
	out := make(map[string]domain.Chunk, len(results))
	for _, r := range results {
		if c, ok := s.chunks[r.ChunkID]; ok {
			out[r.ChunkID] = c
		}
	}
	return out
}

func (s *searchService) observePath(method domain.RetrievalMethod, err error, took time.Duration) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.RetrievalRequests.WithLabelValues(string(method), status).Inc()
	metrics.RetrievalDuration.WithLabelValues(string(method)).Observe(took.Seconds())
}
