package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
)

// GenerateID creates a unique random ID.
func GenerateID() string {
	return uuid.NewString()
}

// ContentHash returns the stable content hash used for cache keys and
// document identity. Two documents with identical text hash identically.
func ContentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// AnalysisType selects the review focus for a document
type AnalysisType string

const (
	AnalysisContractReview   AnalysisType = "contract_review"
	AnalysisComplianceCheck  AnalysisType = "compliance_check"
	AnalysisRiskAssessment   AnalysisType = "risk_assessment"
	AnalysisClauseExtraction AnalysisType = "clause_extraction"
)

// Valid reports whether the analysis type is one the pipeline knows
func (t AnalysisType) Valid() bool {
	switch t {
	case AnalysisContractReview, AnalysisComplianceCheck, AnalysisRiskAssessment, AnalysisClauseExtraction:
		return true
	}
	return false
}

// Document is the raw legal document under analysis.
// The core never parses file formats; a DocumentSource supplies text and hash.
type Document struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Text        string    `json:"text"`
	ContentHash string    `json:"content_hash"`
	Clauses     []Clause  `json:"clauses,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Clause is one numbered clause of the document, as supplied by the source.
// Clause identity is positional; the core does not re-segment text.
type Clause struct {
	ID    int    `json:"id"` // 1-based
	Title string `json:"title,omitempty"`
	Text  string `json:"text"`
}

// Chunk represents an indexed unit of corpus text.
// Chunks are immutable once indexed.
type Chunk struct {
	ID               string `json:"id"`
	Text             string `json:"text"`
	TokenCount       int    `json:"token_count"`
	SourceDocumentID string `json:"source_document_id"`
}
