package runtime

import (
	"context"
	"sync"

	"github.com/clauseguard/clauseguard-core/internal/core/domain"
	"github.com/clauseguard/clauseguard-core/internal/core/ports/driven"
)

// Services holds references to dynamically configurable AI services.
// Each can be absent; consumers check the capability flags on Config
// and degrade accordingly. Thread-safe for concurrent access.
type Services struct {
	mu sync.RWMutex

	// Config tracks capability flags
	config *domain.RuntimeConfig

	// Dynamic services (can be nil, updated at runtime)
	semanticSearcher driven.SemanticSearcher
	reranker         driven.Reranker
	generator        driven.Generator
}

// NewServices creates a new Services registry
func NewServices(config *domain.RuntimeConfig) *Services {
	return &Services{
		config: config,
	}
}

// Config returns the runtime configuration
func (s *Services) Config() *domain.RuntimeConfig {
	return s.config
}

// SemanticSearcher returns the current semantic searcher (may be nil)
func (s *Services) SemanticSearcher() driven.SemanticSearcher {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.semanticSearcher
}

// Reranker returns the current reranker (may be nil)
func (s *Services) Reranker() driven.Reranker {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reranker
}

// Generator returns the current generator (may be nil)
func (s *Services) Generator() driven.Generator {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generator
}

// SetSemanticSearcher updates the semantic searcher.
// Closes the old service if present. Updates config flags.
func (s *Services) SetSemanticSearcher(svc driven.SemanticSearcher) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.semanticSearcher != nil {
		_ = s.semanticSearcher.Close()
	}

	s.semanticSearcher = svc
	s.config.SetSemanticAvailable(svc != nil)
}

// SetReranker updates the reranker. Updates config flags.
func (s *Services) SetReranker(svc driven.Reranker) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reranker = svc
	s.config.SetRerankerAvailable(svc != nil)
}

// SetGenerator updates the generation service.
// Closes the old service if present. Updates config flags.
func (s *Services) SetGenerator(svc driven.Generator) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.generator != nil {
		_ = s.generator.Close()
	}

	s.generator = svc
	s.config.SetGeneratorAvailable(svc != nil)
}

// Close shuts down all services
func (s *Services) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.semanticSearcher != nil {
		_ = s.semanticSearcher.Close()
		s.semanticSearcher = nil
	}
	if s.generator != nil {
		_ = s.generator.Close()
		s.generator = nil
	}
	s.reranker = nil

	s.config.SetSemanticAvailable(false)
	s.config.SetRerankerAvailable(false)
	s.config.SetGeneratorAvailable(false)

	return nil
}

// ValidateAndSetSemantic validates connectivity before setting the semantic searcher
func (s *Services) ValidateAndSetSemantic(ctx context.Context, svc driven.SemanticSearcher) error {
	if svc == nil {
		s.SetSemanticSearcher(nil)
		return nil
	}

	if err := svc.HealthCheck(ctx); err != nil {
		_ = svc.Close()
		return err
	}

	s.SetSemanticSearcher(svc)
	return nil
}

// ValidateAndSetGenerator validates connectivity before setting the generator
func (s *Services) ValidateAndSetGenerator(ctx context.Context, svc driven.Generator) error {
	if svc == nil {
		s.SetGenerator(nil)
		return nil
	}

	if err := svc.Ping(ctx); err != nil {
		_ = svc.Close()
		return err
	}

	s.SetGenerator(svc)
	return nil
}
