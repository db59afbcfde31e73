package mocks

import (
	"context"
	"sort"
	"sync"

	"github.com/clauseguard/clauseguard-core/internal/core/domain"
)

// MockRunStore is an in-memory mock implementation of RunStore for testing
type MockRunStore struct {
	mu      sync.RWMutex
	runs    map[string]*domain.PipelineRun
	reports map[string]*domain.AnalysisReport
	saveErr error
}

// NewMockRunStore creates a new MockRunStore
func NewMockRunStore() *MockRunStore {
	return &MockRunStore{
		runs:    make(map[string]*domain.PipelineRun),
		reports: make(map[string]*domain.AnalysisReport),
	}
}

func (m *MockRunStore) SaveRun(ctx context.Context, run *domain.PipelineRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.runs[run.RunID] = run
	return nil
}

func (m *MockRunStore) SaveReport(ctx context.Context, report *domain.AnalysisReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.reports[report.ReportID] = report
	return nil
}

func (m *MockRunStore) GetReport(ctx context.Context, reportID string) (*domain.AnalysisReport, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	report, ok := m.reports[reportID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return report, nil
}

func (m *MockRunStore) ListRuns(ctx context.Context, documentID string, limit int) ([]*domain.PipelineRun, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*domain.PipelineRun
	for _, run := range m.runs {
		if run.DocumentID == documentID {
			out = append(out, run)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MockRunStore) Close() error {
	return nil
}

// Helper methods for testing

func (m *MockRunStore) SetSaveError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveErr = err
}

func (m *MockRunStore) RunCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.runs)
}

func (m *MockRunStore) GetRun(runID string) *domain.PipelineRun {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.runs[runID]
}
