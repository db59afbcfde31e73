package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/clauseguard/clauseguard-core/internal/core/domain"
)

// setupTestReportCache creates a miniredis-backed ReportCache
func setupTestReportCache(t *testing.T) (*ReportCache, *miniredis.Miniredis, func()) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	cache := NewReportCache(client)

	return cache, mr, func() {
		client.Close()
		mr.Close()
	}
}

func testReport() *domain.AnalysisReport {
	return &domain.AnalysisReport{
		ReportID:     "report-1",
		RunID:        "run-1",
		DocumentID:   "doc-1",
		AnalysisType: domain.AnalysisContractReview,
		ExecutiveSummary: domain.ExecutiveSummary{
			OverallRating:      9.5,
			OneSentenceSummary: "Low-risk agreement.",
		},
		GeneratedAt: time.Now().UTC().Truncate(time.Second),
	}
}

func TestReportCache_SetAndGet(t *testing.T) {
	cache, _, cleanup := setupTestReportCache(t)
	defer cleanup()

	report := testReport()
	key := "hash-abc:contract_review"

	if err := cache.Set(context.Background(), key, report, time.Hour); err != nil {
		t.Fatalf("unexpected set error: %v", err)
	}

	got, err := cache.Get(context.Background(), key)
	if err != nil {
		t.Fatalf("unexpected get error: %v", err)
	}
	if got.ReportID != report.ReportID || got.ExecutiveSummary.OverallRating != 9.5 {
		t.Errorf("round trip mismatch: %+v", got)
	}
}

func TestReportCache_GetMiss(t *testing.T) {
	cache, _, cleanup := setupTestReportCache(t)
	defer cleanup()

	_, err := cache.Get(context.Background(), "missing")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestReportCache_EntryExpires(t *testing.T) {
	cache, mr, cleanup := setupTestReportCache(t)
	defer cleanup()

	key := "hash-abc:contract_review"
	if err := cache.Set(context.Background(), key, testReport(), time.Minute); err != nil {
		t.Fatalf("unexpected set error: %v", err)
	}

	mr.FastForward(2 * time.Minute)

	_, err := cache.Get(context.Background(), key)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound after expiry, got %v", err)
	}
}

func TestReportCache_RejectsNonPositiveTTL(t *testing.T) {
	cache, _, cleanup := setupTestReportCache(t)
	defer cleanup()

	err := cache.Set(context.Background(), "k", testReport(), 0)
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}
