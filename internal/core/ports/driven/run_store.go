package driven

import (
	"context"

	"github.com/clauseguard/clauseguard-core/internal/core/domain"
)

// RunStore persists pipeline runs and finished reports for audit.
type RunStore interface {
	// SaveRun upserts the run record, including draft and feedback history
	SaveRun(ctx context.Context, run *domain.PipelineRun) error

	SaveReport(ctx context.Context, report *domain.AnalysisReport) error

	// GetReport returns domain.ErrNotFound when no report exists
	GetReport(ctx context.Context, reportID string) (*domain.AnalysisReport, error)

	// ListRuns returns the most recent runs for a document, newest first
	ListRuns(ctx context.Context, documentID string, limit int) ([]*domain.PipelineRun, error)

	Close() error
}
