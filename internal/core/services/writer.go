package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/clauseguard/clauseguard-core/internal/core/domain"
	"github.com/clauseguard/clauseguard-core/internal/core/ports/driven"
	"github.com/clauseguard/clauseguard-core/internal/metrics"
	"github.com/clauseguard/clauseguard-core/internal/runtime"
)

const writerRole = "writer"

var writerInstructions = strings.Join([]string{
	"You are the writer of a legal document analysis team.",
	"Produce a structured analysis draft of the given document using the supplied retrieval evidence.",
	"Cite evidence chunks by their IDs in cited_chunk_ids.",
	"Respond with a single JSON object matching the requested structure, nothing else.",
}, " ")

// Writer produces and revises analysis drafts via the generation service.
// Writer failure is fatal to the pipeline; there is nothing to degrade to.
type Writer struct {
	services *runtime.Services
	logger   *slog.Logger
}

// NewWriter creates a Writer backed by the runtime generation service
func NewWriter(services *runtime.Services, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{
		services: services,
		logger:   logger.With("component", "writer"),
	}
}

// Draft produces the first draft from the document and retrieval evidence
func (w *Writer) Draft(ctx context.Context, doc *domain.Document, analysisType domain.AnalysisType, search *domain.SearchContext) (domain.DraftContent, error) {
	prompt := w.draftPrompt(doc, analysisType, search)
	return w.generate(ctx, "drafting", prompt)
}

// Revise produces a new draft from the previous one and the arbitrated
// revision instructions.
func (w *Writer) Revise(ctx context.Context, doc *domain.Document, prev domain.Draft, feedback *domain.ConsolidatedFeedback) (domain.DraftContent, error) {
	prompt := w.revisePrompt(doc, prev, feedback)
	return w.generate(ctx, "revising", prompt)
}

func (w *Writer) generate(ctx context.Context, stage, prompt string) (domain.DraftContent, error) {
	generator := w.services.Generator()
	if generator == nil {
		return domain.DraftContent{}, domain.ErrServiceUnavailable
	}

	start := time.Now()
	raw, err := generator.Generate(ctx, driven.GenerationRequest{
		Role:         writerRole,
		Instructions: writerInstructions,
		Prompt:       prompt,
	})
	took := time.Since(start)
	if err != nil {
		metrics.AgentRequests.WithLabelValues(writerRole, stage, "error").Inc()
		return domain.DraftContent{}, fmt.Errorf("%w: %v", domain.ErrGenerationFailed, err)
	}

	if err := validateSchema(raw, draftSchema); err != nil {
		metrics.AgentRequests.WithLabelValues(writerRole, stage, "invalid").Inc()
		w.logger.Error("draft failed schema validation", "stage", stage, "error", err)
		return domain.DraftContent{}, err
	}

	var content domain.DraftContent
	if err := json.Unmarshal(raw, &content); err != nil {
		metrics.AgentRequests.WithLabelValues(writerRole, stage, "invalid").Inc()
		return domain.DraftContent{}, fmt.Errorf("%w: %v", domain.ErrSchemaValidation, err)
	}

	metrics.AgentRequests.WithLabelValues(writerRole, stage, "ok").Inc()
	metrics.AgentDuration.WithLabelValues(writerRole, stage).Observe(took.Seconds())
	return content, nil
}

func (w *Writer) draftPrompt(doc *domain.Document, analysisType domain.AnalysisType, search *domain.SearchContext) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Analysis task: %s\n\n", analysisType)
	fmt.Fprintf(&b, "## Document: %s\n\n%s\n\n", doc.Title, doc.Text)

	if len(doc.Clauses) > 0 {
		b.WriteString("## Clauses\n")
		for _, c := range doc.Clauses {
			fmt.Fprintf(&b, "%d. %s: %s\n", c.ID, c.Title, c.Text)
		}
		b.WriteString("\n")
	}

	if search != nil && search.HasResults() {
		b.WriteString("## Retrieval evidence\n")
		for _, r := range search.Results {
			chunk := search.Chunks[r.ChunkID]
			fmt.Fprintf(&b, "- [%s] %s\n", r.ChunkID, chunk.Text)
		}
		b.WriteString("\n")
	}

	b.WriteString("Produce the structured analysis draft as JSON with fields: ")
	b.WriteString("summary, key_clauses, assessment, risk_indicators, cited_chunk_ids.")
	return b.String()
}

func (w *Writer) revisePrompt(doc *domain.Document, prev domain.Draft, feedback *domain.ConsolidatedFeedback) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Revision task (draft v%d)\n\n", prev.Version)
	fmt.Fprintf(&b, "## Document: %s\n\n", doc.Title)
	fmt.Fprintf(&b, "## Previous draft\nSummary: %s\nAssessment: %s\n\n",
		prev.Content.Summary, prev.Content.Assessment)

	fmt.Fprintf(&b, "## Revision instructions\n%s\n\n", feedback.RevisionInstructions)
	if len(feedback.PriorityActions) > 0 {
		b.WriteString("## Priority actions\n")
		for _, a := range feedback.PriorityActions {
			fmt.Fprintf(&b, "- %s\n", a)
		}
		b.WriteString("\n")
	}

	b.WriteString("Produce the revised analysis draft as JSON with fields: ")
	b.WriteString("summary, key_clauses, assessment, risk_indicators, cited_chunk_ids.")
	return b.String()
}
