package services

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/clauseguard/clauseguard-core/internal/core/domain"
)

// Generated output is validated against a JSON schema before it is
// unmarshalled. A schema violation counts as a failure of the producing
// agent, never as partially-usable output.

const draftSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"required": ["summary", "assessment"],
	"properties": {
		"summary": {"type": "string", "minLength": 1},
		"key_clauses": {"type": "array", "items": {"type": "string"}},
		"assessment": {"type": "string", "minLength": 1},
		"risk_indicators": {"type": "array", "items": {"type": "string"}},
		"cited_chunk_ids": {"type": "array", "items": {"type": "string"}}
	}
}`

const reviewSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"required": ["issues", "overall_rating", "confidence"],
	"properties": {
		"issues": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["severity", "title", "description"],
				"properties": {
					"severity": {"enum": ["critical", "high", "medium", "low", "info"]},
					"category": {"type": "string"},
					"title": {"type": "string", "minLength": 1},
					"description": {"type": "string"},
					"location": {
						"type": "object",
						"properties": {
							"clause_id": {"type": "integer", "minimum": 0},
							"paragraph_index": {"type": "integer", "minimum": 0},
							"excerpt": {"type": "string"}
						}
					},
					"suggested_fix": {"type": "string"},
					"legal_basis": {"type": "array"},
					"cited_chunk_ids": {"type": "array", "items": {"type": "string"}}
				}
			}
		},
		"overall_rating": {"type": "number", "minimum": 0, "maximum": 10},
		"confidence": {"type": "number", "minimum": 0, "maximum": 1},
		"summary": {"type": "string"},
		"key_findings": {"type": "array", "items": {"type": "string"}}
	}
}`

// validateSchema checks raw generated output against a JSON schema.
// Violations are wrapped in domain.ErrSchemaValidation.
func validateSchema(raw json.RawMessage, schema string) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(schema),
		gojsonschema.NewBytesLoader(raw),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrSchemaValidation, err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("%w: %s", domain.ErrSchemaValidation, strings.Join(msgs, "; "))
	}
	return nil
}
