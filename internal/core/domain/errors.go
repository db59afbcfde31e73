package domain

import (
	"errors"
	"fmt"
)

// Domain errors - used across all layers
var (
	// ErrNotFound indicates the requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates the input is invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrIndexNotBuilt indicates the keyword index has not been built yet
	ErrIndexNotBuilt = errors.New("keyword index not built")

	// ErrRetrievalFailed indicates both retrieval paths failed for a query
	ErrRetrievalFailed = errors.New("all retrieval paths failed")

	// ErrAllReviewersFailed indicates every reviewer in a pass failed
	ErrAllReviewersFailed = errors.New("all reviewers failed")

	// ErrSchemaValidation indicates generated output did not match its schema
	ErrSchemaValidation = errors.New("schema validation failed")

	// ErrInvalidReport indicates the assembled report failed structural validation
	ErrInvalidReport = errors.New("invalid report")

	// ErrInvalidProvider indicates an unknown AI provider was specified
	ErrInvalidProvider = errors.New("invalid provider")

	// ErrServiceUnavailable indicates an AI service could not be reached
	ErrServiceUnavailable = errors.New("service unavailable")

	// ErrGenerationFailed indicates the language model call failed after retries
	ErrGenerationFailed = errors.New("generation failed")
)

// StageError is a fatal pipeline failure carrying the stage that caused it.
// It wraps the underlying error so callers can still use errors.Is/As.
type StageError struct {
	Stage PipelineStage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// NewStageError wraps err with the stage it occurred in.
func NewStageError(stage PipelineStage, err error) *StageError {
	return &StageError{Stage: stage, Err: err}
}
