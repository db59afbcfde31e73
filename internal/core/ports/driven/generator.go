package driven

import (
	"context"
	"encoding/json"
)

// GenerationRequest is one structured-output request to the language model.
// The caller validates the returned JSON against its schema; a generation
// that fails validation is treated as a role failure, not retried here.
type GenerationRequest struct {
	// Role identifies the requesting agent role (writer, reviewer, arbitrator)
	Role string

	// Instructions is the role's standing system prompt
	Instructions string

	// Prompt is the task-specific user prompt
	Prompt string

	// MaxTokens bounds the response size; 0 means provider default
	MaxTokens int

	// Temperature controls sampling; analysis roles run at 0 for determinism
	Temperature float64
}

// Generator produces structured JSON output from a language model.
// Used by the writer, reviewer and arbitrator roles.
type Generator interface {
	// Generate returns the model's JSON output for the request.
	// Transient provider errors are retried internally with backoff;
	// exhausted retries surface as domain.ErrGenerationFailed.
	Generate(ctx context.Context, req GenerationRequest) (json.RawMessage, error)

	// Model returns the model name being used
	Model() string

	// Ping verifies the generation service is available
	Ping(ctx context.Context) error

	// Close releases resources held by the generator
	Close() error
}
