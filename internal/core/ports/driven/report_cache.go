package driven

import (
	"context"
	"time"

	"github.com/clauseguard/clauseguard-core/internal/core/domain"
)

// ReportCache memoizes finished analysis reports keyed by document
// content hash plus analysis type. A miss returns domain.ErrNotFound.
type ReportCache interface {
	Get(ctx context.Context, key string) (*domain.AnalysisReport, error)
	Set(ctx context.Context, key string, report *domain.AnalysisReport, ttl time.Duration) error
	Close() error
}
