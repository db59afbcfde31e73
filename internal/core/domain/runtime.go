package domain

import "sync"

// RuntimeConfig tracks which AI services are available at runtime.
// Availability is determined at startup and updated when services are
// swapped. Thread-safe for concurrent access.
type RuntimeConfig struct {
	mu sync.RWMutex

	// Static (set at startup, read-only)
	QueueBackend string // "redis" or "memory"

	// Dynamic capability flags
	semanticAvailable  bool
	rerankerAvailable  bool
	generatorAvailable bool
}

// NewRuntimeConfig creates a new RuntimeConfig with initial values
func NewRuntimeConfig(queueBackend string) *RuntimeConfig {
	return &RuntimeConfig{
		QueueBackend: queueBackend,
	}
}

// SemanticAvailable returns whether the semantic search path is available
func (c *RuntimeConfig) SemanticAvailable() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.semanticAvailable
}

// RerankerAvailable returns whether a reranker is configured
func (c *RuntimeConfig) RerankerAvailable() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.rerankerAvailable
}

// GeneratorAvailable returns whether a generation service is configured
func (c *RuntimeConfig) GeneratorAvailable() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.generatorAvailable
}

// SetSemanticAvailable updates the semantic availability flag
func (c *RuntimeConfig) SetSemanticAvailable(available bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.semanticAvailable = available
}

// SetRerankerAvailable updates the reranker availability flag
func (c *RuntimeConfig) SetRerankerAvailable(available bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rerankerAvailable = available
}

// SetGeneratorAvailable updates the generator availability flag
func (c *RuntimeConfig) SetGeneratorAvailable(available bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generatorAvailable = available
}

// CanDoHybridSearch returns true if both retrieval paths can run
func (c *RuntimeConfig) CanDoHybridSearch() bool {
	return c.SemanticAvailable()
}

// CanDoAnalysis returns true if the review pipeline can run
func (c *RuntimeConfig) CanDoAnalysis() bool {
	return c.GeneratorAvailable()
}
