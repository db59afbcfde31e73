package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/clauseguard/clauseguard-core/internal/core/domain"
	"github.com/clauseguard/clauseguard-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.ReportCache = (*ReportCache)(nil)

const reportPrefix = "report:"

// ReportCache implements driven.ReportCache using Redis.
// Entries are keyed by content hash and analysis type so a re-uploaded
// document with unchanged content reuses the finished report. Redis TTL
// handles expiry.
type ReportCache struct {
	client *redis.Client
}

// NewReportCache creates a new Redis-backed ReportCache
func NewReportCache(client *redis.Client) *ReportCache {
	return &ReportCache{client: client}
}

// Get retrieves a memoized report. Returns domain.ErrNotFound on miss.
func (c *ReportCache) Get(ctx context.Context, key string) (*domain.AnalysisReport, error) {
	data, err := c.client.Get(ctx, reportPrefix+key).Bytes()
	if err == redis.Nil {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get report: %w", err)
	}

	var report domain.AnalysisReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("failed to unmarshal report: %w", err)
	}

	return &report, nil
}

// Set stores a report with the given TTL
func (c *ReportCache) Set(ctx context.Context, key string, report *domain.AnalysisReport, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("%w: non-positive TTL", domain.ErrInvalidInput)
	}

	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	if err := c.client.Set(ctx, reportPrefix+key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set report: %w", err)
	}

	return nil
}

// Close closes the underlying Redis client
func (c *ReportCache) Close() error {
	return c.client.Close()
}
