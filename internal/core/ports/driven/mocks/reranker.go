package mocks

import (
	"context"

	"github.com/clauseguard/clauseguard-core/internal/core/domain"
	"github.com/clauseguard/clauseguard-core/internal/core/ports/driven"
)

// MockReranker is a mock implementation of Reranker for testing.
// By default it echoes candidates back in input order with descending
// relevance, which keeps fusion-order assertions simple.
type MockReranker struct {
	err     error
	delay   bool
	results []domain.RerankedEntry
	calls   int
}

// NewMockReranker creates a new MockReranker
func NewMockReranker() *MockReranker {
	return &MockReranker{}
}

func (m *MockReranker) Rerank(ctx context.Context, query string, candidates []driven.RerankCandidate, topN int) ([]domain.RerankedEntry, error) {
	m.calls++
	if m.delay {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if m.err != nil {
		return nil, m.err
	}
	if m.results != nil {
		return m.results, nil
	}

	if topN > len(candidates) {
		topN = len(candidates)
	}
	out := make([]domain.RerankedEntry, topN)
	for i := 0; i < topN; i++ {
		out[i] = domain.RerankedEntry{
			ChunkID:   candidates[i].ChunkID,
			Relevance: 1.0 - float64(i)*0.01,
		}
	}
	return out, nil
}

func (m *MockReranker) Model() string {
	return "mock-rerank-model"
}

// Helper methods for testing

func (m *MockReranker) SetError(err error) {
	m.err = err
}

// SetBlockUntilCancel makes Rerank block until the context is cancelled,
// simulating a slow provider for timeout tests.
func (m *MockReranker) SetBlockUntilCancel(block bool) {
	m.delay = block
}

func (m *MockReranker) SetResults(results []domain.RerankedEntry) {
	m.results = results
}

func (m *MockReranker) Calls() int {
	return m.calls
}
