package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/clauseguard/clauseguard-core/internal/core/domain"
	"github.com/clauseguard/clauseguard-core/internal/core/ports/driven"
	"github.com/clauseguard/clauseguard-core/internal/core/ports/driving"
	"github.com/clauseguard/clauseguard-core/internal/metrics"
)

// Ensure analysisService implements AnalysisService
var _ driving.AnalysisService = (*analysisService)(nil)

// analysisService sequences retrieval, the review pipeline and assembly
// for one analysis request. It owns the end-to-end timeout and the
// content-addressed report cache.
type analysisService struct {
	documents driven.DocumentSource
	search    driving.SearchService
	pipeline  *ReviewPipeline
	assembler *Assembler
	cache     driven.ReportCache
	store     driven.RunStore
	queue     driven.TaskQueue

	analyzeTimeout time.Duration
	cacheTTL       time.Duration
	logger         *slog.Logger
}

// AnalysisServiceConfig holds dependencies for the analysis service.
// Cache, store and queue are optional; a missing queue disables
// AnalyzeAsync, a missing cache disables memoization.
type AnalysisServiceConfig struct {
	Documents driven.DocumentSource
	Search    driving.SearchService
	Pipeline  *ReviewPipeline
	Assembler *Assembler
	Cache     driven.ReportCache
	Store     driven.RunStore
	Queue     driven.TaskQueue

	AnalyzeTimeout time.Duration
	CacheTTL       time.Duration
	Logger         *slog.Logger
}

// NewAnalysisService creates an AnalysisService
func NewAnalysisService(cfg AnalysisServiceConfig) driving.AnalysisService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.AnalyzeTimeout <= 0 {
		cfg.AnalyzeTimeout = 120 * time.Second
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 24 * time.Hour
	}
	return &analysisService{
		documents:      cfg.Documents,
		search:         cfg.Search,
		pipeline:       cfg.Pipeline,
		assembler:      cfg.Assembler,
		cache:          cfg.Cache,
		store:          cfg.Store,
		queue:          cfg.Queue,
		analyzeTimeout: cfg.AnalyzeTimeout,
		cacheTTL:       cfg.CacheTTL,
		logger:         logger.With("component", "orchestrator"),
	}
}

// Analyze runs the full flow for one document. On end-to-end timeout the
// last completed stage's output is returned as a PartialResult alongside
// the error instead of being dropped.
func (s *analysisService) Analyze(ctx context.Context, documentID string, analysisType domain.AnalysisType) (*domain.AnalysisReport, *domain.PartialResult, error) {
	if !analysisType.Valid() {
		return nil, nil, fmt.Errorf("%w: unknown analysis type %q", domain.ErrInvalidInput, analysisType)
	}

	start := time.Now()
	metrics.ActiveAnalyses.Inc()
	defer metrics.ActiveAnalyses.Dec()

	doc, err := s.documents.Fetch(ctx, documentID)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch document %s: %w", documentID, err)
	}

	cacheKey := doc.ContentHash + ":" + string(analysisType)
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey); err == nil {
			metrics.CacheHits.WithLabelValues("report").Inc()
			s.logger.Info("report cache hit", "document_id", documentID, "analysis_type", string(analysisType))
			return cached, nil, nil
		} else if !errors.Is(err, domain.ErrNotFound) {
			s.logger.Warn("report cache read failed", "error", err)
		} else {
			metrics.CacheMisses.WithLabelValues("report").Inc()
		}
	}

	ctx, cancel := context.WithTimeout(ctx, s.analyzeTimeout)
	defer cancel()

	// Retrieval
	searchCtx, err := s.search.Search(ctx, buildQuery(doc, analysisType), domain.SearchOptions{})
	if err != nil {
		if partial := s.partialOn(ctx, domain.StageDrafting, nil, nil, nil); partial != nil {
			return nil, partial, err
		}
		return nil, nil, domain.NewStageError(domain.StageDrafting, err)
	}

	// Review pipeline
	run := &domain.PipelineRun{
		RunID:        domain.GenerateID(),
		DocumentID:   doc.ID,
		AnalysisType: analysisType,
		Stage:        domain.StageDrafting,
		StartedAt:    start,
	}
	if err := s.pipeline.Run(ctx, run, doc, searchCtx); err != nil {
		s.saveRun(run)
		// The run itself ends failed; the partial tag carries the stage
		// the pipeline had reached when it died.
		reached := run.Stage
		var stageErr *domain.StageError
		if errors.As(err, &stageErr) {
			reached = stageErr.Stage
		}
		if partial := s.partialOn(ctx, reached, searchCtx, run, nil); partial != nil {
			return nil, partial, err
		}
		return nil, nil, err
	}

	// Assembly
	run.Stage = domain.StageAssembling
	report, err := s.assembler.Assemble(run, doc, searchCtx, time.Now())
	if err != nil {
		run.Stage = domain.StageFailed
		run.Error = err.Error()
		s.saveRun(run)
		return nil, nil, domain.NewStageError(domain.StageAssembling, err)
	}
	run.Stage = domain.StageDone
	s.saveRun(run)
	s.saveReport(report)

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, report, s.cacheTTL); err != nil {
			s.logger.Warn("report cache write failed", "error", err)
		}
	}

	metrics.ReportGenerationDuration.Observe(time.Since(start).Seconds())
	s.logger.Info("analysis complete",
		"document_id", documentID,
		"run_id", run.RunID,
		"iterations", report.Iterations,
		"degraded", report.Degraded,
		"duration", time.Since(start))
	return report, nil, nil
}

// AnalyzeAsync enqueues the analysis for background processing
func (s *analysisService) AnalyzeAsync(ctx context.Context, documentID string, analysisType domain.AnalysisType) (string, error) {
	if s.queue == nil {
		return "", fmt.Errorf("%w: no task queue configured", domain.ErrServiceUnavailable)
	}
	if !analysisType.Valid() {
		return "", fmt.Errorf("%w: unknown analysis type %q", domain.ErrInvalidInput, analysisType)
	}
	task := domain.NewAnalyzeTask(documentID, analysisType)
	if err := s.queue.Enqueue(ctx, task); err != nil {
		return "", fmt.Errorf("enqueue analysis: %w", err)
	}
	s.logger.Info("analysis enqueued", "task_id", task.ID, "document_id", documentID)
	return task.ID, nil
}

// partialOn returns a PartialResult when the failure was the end-to-end
// deadline, nil for any other cause.
func (s *analysisService) partialOn(ctx context.Context, stage domain.PipelineStage, searchCtx *domain.SearchContext, run *domain.PipelineRun, report *domain.AnalysisReport) *domain.PartialResult {
	if !errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return nil
	}
	return &domain.PartialResult{
		Stage:         stage,
		SearchContext: searchCtx,
		Run:           run,
		Report:        report,
		Reason:        "analysis timeout exceeded",
	}
}

func (s *analysisService) saveRun(run *domain.PipelineRun) {
	if s.store == nil {
		return
	}
	if err := s.store.SaveRun(context.Background(), run); err != nil {
		s.logger.Warn("failed to persist run", "run_id", run.RunID, "error", err)
	}
}

func (s *analysisService) saveReport(report *domain.AnalysisReport) {
	if s.store == nil {
		return
	}
	if err := s.store.SaveReport(context.Background(), report); err != nil {
		s.logger.Warn("failed to persist report", "report_id", report.ReportID, "error", err)
	}
}

// buildQuery derives the retrieval query from the document and analysis
// focus. Clause titles carry most of the signal for legal corpora.
func buildQuery(doc *domain.Document, analysisType domain.AnalysisType) string {
	focus := map[domain.AnalysisType]string{
		domain.AnalysisContractReview:   "contract obligations liability termination",
		domain.AnalysisComplianceCheck:  "compliance statutory requirements mandatory clauses",
		domain.AnalysisRiskAssessment:   "risk liability indemnification penalty",
		domain.AnalysisClauseExtraction: "clause definitions obligations terms",
	}

	parts := []string{doc.Title}
	for _, clause := range doc.Clauses {
		if clause.Title != "" {
			parts = append(parts, clause.Title)
		}
	}
	parts = append(parts, focus[analysisType])
	return strings.Join(parts, " ")
}
