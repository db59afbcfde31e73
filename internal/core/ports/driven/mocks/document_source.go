package mocks

import (
	"context"
	"sync"

	"github.com/clauseguard/clauseguard-core/internal/core/domain"
)

// MockDocumentSource is an in-memory mock implementation of DocumentSource for testing
type MockDocumentSource struct {
	mu   sync.RWMutex
	docs map[string]*domain.Document
	err  error
}

// NewMockDocumentSource creates a new MockDocumentSource
func NewMockDocumentSource() *MockDocumentSource {
	return &MockDocumentSource{
		docs: make(map[string]*domain.Document),
	}
}

func (m *MockDocumentSource) Fetch(ctx context.Context, id string) (*domain.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	doc, ok := m.docs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return doc, nil
}

// Helper methods for testing

func (m *MockDocumentSource) AddDocument(doc *domain.Document) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if doc.ContentHash == "" {
		doc.ContentHash = domain.ContentHash(doc.Text)
	}
	m.docs[doc.ID] = doc
}

func (m *MockDocumentSource) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}
