package driving

import (
	"context"

	"github.com/clauseguard/clauseguard-core/internal/core/domain"
)

// AnalysisService runs the full document analysis flow
type AnalysisService interface {
	// Analyze fetches the document, retrieves supporting evidence and
	// drives the review pipeline to a validated report. When the run
	// exceeds its deadline a PartialResult is returned alongside the
	// error so callers can inspect intermediate output.
	Analyze(ctx context.Context, documentID string, analysisType domain.AnalysisType) (*domain.AnalysisReport, *domain.PartialResult, error)

	// AnalyzeAsync enqueues an analysis task for background processing
	// and returns the task ID.
	AnalyzeAsync(ctx context.Context, documentID string, analysisType domain.AnalysisType) (string, error)
}
