package services

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/clauseguard/clauseguard-core/internal/core/domain"
	"github.com/clauseguard/clauseguard-core/internal/metrics"
)

// ReviewPipeline drives one analysis run through the draft, review,
// arbitrate, revise state machine until convergence or the iteration
// budget is exhausted.
type ReviewPipeline struct {
	writer        *Writer
	reviewers     []*Reviewer
	arbitrator    *Arbitrator
	maxIterations int
	logger        *slog.Logger
	now           func() time.Time
}

// ReviewPipelineConfig holds dependencies for the review pipeline.
type ReviewPipelineConfig struct {
	Writer        *Writer
	Reviewers     []*Reviewer
	Arbitrator    *Arbitrator
	MaxIterations int
	Logger        *slog.Logger
}

// NewReviewPipeline creates a ReviewPipeline.
// Reviewers are stored in canonical kind order so arbitration input does
// not depend on completion order.
func NewReviewPipeline(cfg ReviewPipelineConfig) *ReviewPipeline {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = 3
	}

	ordered := make([]*Reviewer, 0, len(cfg.Reviewers))
	for _, kind := range domain.ReviewerKinds {
		for _, r := range cfg.Reviewers {
			if r.Kind() == kind {
				ordered = append(ordered, r)
			}
		}
	}

	return &ReviewPipeline{
		writer:        cfg.Writer,
		reviewers:     ordered,
		arbitrator:    cfg.Arbitrator,
		maxIterations: cfg.MaxIterations,
		logger:        logger.With("component", "pipeline"),
	}
}

// Run executes the state machine, mutating run in place. The run always
// ends in a terminal stage; a returned error means StageFailed and is a
// StageError identifying where the pipeline died.
func (p *ReviewPipeline) Run(ctx context.Context, run *domain.PipelineRun, doc *domain.Document, search *domain.SearchContext) error {
	clock := p.now
	if clock == nil {
		clock = time.Now
	}

	fail := func(stage domain.PipelineStage, err error) error {
		stageErr := domain.NewStageError(stage, err)
		run.Stage = domain.StageFailed
		run.Error = stageErr.Error()
		metrics.PipelineRuns.WithLabelValues(string(domain.StageFailed)).Inc()
		return stageErr
	}

	for {
		// DRAFTING
		run.Stage = domain.StageDrafting
		if err := ctx.Err(); err != nil {
			return fail(domain.StageDrafting, err)
		}

		var (
			content domain.DraftContent
			err     error
		)
		if run.CurrentDraft() == nil {
			content, err = p.writer.Draft(ctx, doc, run.AnalysisType, search)
		} else {
			content, err = p.writer.Revise(ctx, doc, *run.CurrentDraft(), run.LastFeedback())
		}
		if err != nil {
			p.logger.Error("writer failed", "run_id", run.RunID, "error", err)
			return fail(domain.StageDrafting, err)
		}
		draft := run.AppendDraft(content, clock())
		run.Iteration++

		// REVIEWING
		run.Stage = domain.StageReviewing
		feedbacks, failed := p.fanOutReviews(ctx, doc, draft, search)
		for kind, reason := range failed {
			if run.FailedReviewers == nil {
				run.FailedReviewers = make(map[domain.ReviewerKind]string)
			}
			run.FailedReviewers[kind] = reason
		}
		if len(feedbacks) == 0 {
			return fail(domain.StageReviewing, domain.ErrAllReviewersFailed)
		}

		// ARBITRATING
		run.Stage = domain.StageArbitrating
		if err := ctx.Err(); err != nil {
			return fail(domain.StageArbitrating, err)
		}
		consolidated := p.arbitrator.Consolidate(ctx, feedbacks, run.Iteration, clock())
		run.FeedbackHistory = append(run.FeedbackHistory, *consolidated)

		// REVISING
		run.Stage = domain.StageRevising
		actionable := consolidated.ActionableIssues()
		if len(actionable) == 0 || run.Iteration >= p.maxIterations {
			run.Stage = domain.StageDone
			now := clock()
			run.FinishedAt = &now
			metrics.PipelineRuns.WithLabelValues(string(domain.StageDone)).Inc()
			metrics.PipelineIterations.Observe(float64(run.Iteration))
			p.logger.Info("pipeline converged",
				"run_id", run.RunID,
				"iterations", run.Iteration,
				"open_issues", len(actionable))
			return nil
		}

		p.logger.Info("pipeline revising",
			"run_id", run.RunID,
			"iteration", run.Iteration,
			"actionable_issues", len(actionable))
	}
}

// fanOutReviews runs every reviewer concurrently against the draft and
// joins the results into canonical reviewer order. Individual failures
// are captured per reviewer and never block the others.
func (p *ReviewPipeline) fanOutReviews(ctx context.Context, doc *domain.Document, draft domain.Draft, search *domain.SearchContext) ([]domain.ReviewFeedback, map[domain.ReviewerKind]string) {
	results := make([]*domain.ReviewFeedback, len(p.reviewers))
	errs := make([]error, len(p.reviewers))

	var g errgroup.Group
	for i, reviewer := range p.reviewers {
		i, reviewer := i, reviewer
		g.Go(func() error {
			feedback, err := reviewer.Review(ctx, doc, draft, search)
			results[i] = feedback
			errs[i] = err
			return nil
		})
	}
	_ = g.Wait()

	var feedbacks []domain.ReviewFeedback
	failed := make(map[domain.ReviewerKind]string)
	for i, reviewer := range p.reviewers {
		if errs[i] != nil {
			p.logger.Warn("reviewer failed",
				"kind", string(reviewer.Kind()),
				"error", errs[i])
			failed[reviewer.Kind()] = errs[i].Error()
			continue
		}
		feedbacks = append(feedbacks, *results[i])
	}
	return feedbacks, failed
}
