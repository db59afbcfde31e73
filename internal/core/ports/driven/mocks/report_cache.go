package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/clauseguard/clauseguard-core/internal/core/domain"
)

// MockReportCache is an in-memory mock implementation of ReportCache for testing
type MockReportCache struct {
	mu      sync.RWMutex
	reports map[string]*domain.AnalysisReport
	getErr  error
	setErr  error
	hits    int
	misses  int
}

// NewMockReportCache creates a new MockReportCache
func NewMockReportCache() *MockReportCache {
	return &MockReportCache{
		reports: make(map[string]*domain.AnalysisReport),
	}
}

func (m *MockReportCache) Get(ctx context.Context, key string) (*domain.AnalysisReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	report, ok := m.reports[key]
	if !ok {
		m.misses++
		return nil, domain.ErrNotFound
	}
	m.hits++
	return report, nil
}

func (m *MockReportCache) Set(ctx context.Context, key string, report *domain.AnalysisReport, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	m.reports[key] = report
	return nil
}

func (m *MockReportCache) Close() error {
	return nil
}

// Helper methods for testing

func (m *MockReportCache) SetGetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getErr = err
}

func (m *MockReportCache) SetSetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setErr = err
}

func (m *MockReportCache) Hits() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.hits
}

func (m *MockReportCache) Misses() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.misses
}

func (m *MockReportCache) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.reports)
}
