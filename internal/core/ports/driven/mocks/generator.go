package mocks

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/clauseguard/clauseguard-core/internal/core/ports/driven"
)

// MockGenerator is a mock implementation of Generator for testing.
// Responses are returned in FIFO order so a test can script a whole
// pipeline run (draft, reviews, revision) with one mock.
type MockGenerator struct {
	mu        sync.Mutex
	responses []json.RawMessage
	byRole    map[string][]json.RawMessage
	err       error
	requests  []driven.GenerationRequest
}

// NewMockGenerator creates a new MockGenerator
func NewMockGenerator() *MockGenerator {
	return &MockGenerator{
		byRole: make(map[string][]json.RawMessage),
	}
}

func (m *MockGenerator) Generate(ctx context.Context, req driven.GenerationRequest) (json.RawMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.requests = append(m.requests, req)
	if m.err != nil {
		return nil, m.err
	}
	if queue := m.byRole[req.Role]; len(queue) > 0 {
		next := queue[0]
		m.byRole[req.Role] = queue[1:]
		return next, nil
	}
	if len(m.responses) > 0 {
		next := m.responses[0]
		m.responses = m.responses[1:]
		return next, nil
	}
	return json.RawMessage(`{}`), nil
}

func (m *MockGenerator) Model() string {
	return "mock-generation-model"
}

func (m *MockGenerator) Ping(ctx context.Context) error {
	return nil
}

func (m *MockGenerator) Close() error {
	return nil
}

// Helper methods for testing

// QueueResponse appends a response returned to any role once role-specific
// queues are drained.
func (m *MockGenerator) QueueResponse(raw string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, json.RawMessage(raw))
}

// QueueRoleResponse appends a response served only to requests with the
// given role.
func (m *MockGenerator) QueueRoleResponse(role, raw string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byRole[role] = append(m.byRole[role], json.RawMessage(raw))
}

func (m *MockGenerator) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *MockGenerator) Requests() []driven.GenerationRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]driven.GenerationRequest, len(m.requests))
	copy(out, m.requests)
	return out
}
