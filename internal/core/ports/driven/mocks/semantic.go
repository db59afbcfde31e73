package mocks

import (
	"context"
	"hash/fnv"

	"github.com/clauseguard/clauseguard-core/internal/core/domain"
)

// MockSemanticSearcher is a mock implementation of SemanticSearcher for testing
type MockSemanticSearcher struct {
	dimensions int
	results    []domain.RankedEntry
	failNext   bool
	queryErr   error
}

// NewMockSemanticSearcher creates a new MockSemanticSearcher
func NewMockSemanticSearcher() *MockSemanticSearcher {
	return &MockSemanticSearcher{
		dimensions: 384,
	}
}

func (m *MockSemanticSearcher) Embed(ctx context.Context, text string) ([]float32, error) {
	if m.failNext {
		m.failNext = false
		return nil, context.DeadlineExceeded
	}

	h := fnv.New32a()
	h.Write([]byte(text))
	seed := h.Sum32()

	embedding := make([]float32, m.dimensions)
	for i := range embedding {
		seed = seed*1103515245 + 12345
		embedding[i] = float32(seed%1000) / 1000.0
	}
	return embedding, nil
}

func (m *MockSemanticSearcher) Query(ctx context.Context, embedding []float32, k int) ([]domain.RankedEntry, error) {
	if m.queryErr != nil {
		return nil, m.queryErr
	}
	if k > len(m.results) {
		k = len(m.results)
	}
	out := make([]domain.RankedEntry, k)
	copy(out, m.results[:k])
	return out, nil
}

func (m *MockSemanticSearcher) HealthCheck(ctx context.Context) error {
	return nil
}

func (m *MockSemanticSearcher) Close() error {
	return nil
}

// Helper methods for testing

func (m *MockSemanticSearcher) SetResults(results []domain.RankedEntry) {
	m.results = results
}

func (m *MockSemanticSearcher) SetQueryError(err error) {
	m.queryErr = err
}

func (m *MockSemanticSearcher) SetFailNext(fail bool) {
	m.failNext = fail
}
