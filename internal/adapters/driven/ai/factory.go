package ai

import (
	"fmt"

	"github.com/clauseguard/clauseguard-core/internal/core/domain"
	"github.com/clauseguard/clauseguard-core/internal/core/ports/driven"
)

// Supported AI providers
const (
	ProviderOpenAI = "openai"
	ProviderCohere = "cohere"
)

// ProviderSettings configures one AI provider client
type ProviderSettings struct {
	Provider string
	APIKey   string
	Model    string
	BaseURL  string
}

// IsConfigured reports whether the settings carry enough to build a client
func (s ProviderSettings) IsConfigured() bool {
	return s.Provider != "" && s.APIKey != ""
}

// Factory creates AI service clients from provider settings
type Factory struct{}

// NewFactory creates a new AI service factory
func NewFactory() *Factory {
	return &Factory{}
}

// CreateGenerator creates a generation client from settings.
// Returns nil, nil if settings are not configured.
func (f *Factory) CreateGenerator(settings ProviderSettings) (driven.Generator, error) {
	if !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case ProviderOpenAI:
		return NewOpenAIGenerator(settings.APIKey, settings.Model, settings.BaseURL)
	default:
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidProvider, settings.Provider)
	}
}

// CreateEmbedding creates an embedding client from settings.
// Returns nil, nil if settings are not configured.
func (f *Factory) CreateEmbedding(settings ProviderSettings) (*OpenAIEmbedding, error) {
	if !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case ProviderOpenAI:
		return NewOpenAIEmbedding(settings.APIKey, settings.Model, settings.BaseURL)
	default:
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidProvider, settings.Provider)
	}
}

// CreateReranker creates a rerank client from settings.
// Returns nil, nil if settings are not configured.
func (f *Factory) CreateReranker(settings ProviderSettings) (driven.Reranker, error) {
	if !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case ProviderCohere:
		return NewCohereReranker(settings.APIKey, settings.Model, settings.BaseURL)
	default:
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidProvider, settings.Provider)
	}
}
