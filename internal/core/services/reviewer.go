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

// reviewerFocus configures the single polymorphic reviewer per kind.
// Only the instructions differ between kinds, never the control flow.
var reviewerFocus = map[domain.ReviewerKind]string{
	domain.ReviewerLegal: "You review legal compliance. Check statutory conformance, " +
		"mandatory clauses, jurisdiction and governing law, and cite the legal basis " +
		"for every issue you raise.",
	domain.ReviewerRisk: "You review risk exposure. Check liability caps, " +
		"indemnification, termination rights, penalty clauses and asymmetric " +
		"obligations between the parties.",
	domain.ReviewerBusiness: "You review business logic. Check payment terms, " +
		"deliverables, service levels and whether obligations are commercially " +
		"coherent and performable.",
	domain.ReviewerFormat: "You review formal quality. Check clause numbering, " +
		"defined-term consistency, cross references and completeness of the " +
		"document structure.",
}

// Reviewer evaluates a draft from one domain perspective. All four kinds
// share this implementation; they differ only in focus instructions and
// arbitration priority.
type Reviewer struct {
	kind     domain.ReviewerKind
	services *runtime.Services
	logger   *slog.Logger
}

// NewReviewer creates a reviewer of the given kind
func NewReviewer(kind domain.ReviewerKind, services *runtime.Services, logger *slog.Logger) *Reviewer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reviewer{
		kind:     kind,
		services: services,
		logger:   logger.With("component", "reviewer", "kind", string(kind)),
	}
}

// Kind returns the reviewer's kind
func (r *Reviewer) Kind() domain.ReviewerKind {
	return r.kind
}

// Review evaluates the draft against the document and evidence, returning
// one feedback. Schema violations and generation errors are reviewer
// failures; the caller records them without blocking other reviewers.
func (r *Reviewer) Review(ctx context.Context, doc *domain.Document, draft domain.Draft, search *domain.SearchContext) (*domain.ReviewFeedback, error) {
	generator := r.services.Generator()
	if generator == nil {
		return nil, domain.ErrServiceUnavailable
	}

	start := time.Now()
	raw, err := generator.Generate(ctx, driven.GenerationRequest{
		Role:         string(r.kind),
		Instructions: r.instructions(),
		Prompt:       r.prompt(doc, draft, search),
	})
	took := time.Since(start)
	if err != nil {
		metrics.AgentRequests.WithLabelValues(string(r.kind), "reviewing", "error").Inc()
		return nil, fmt.Errorf("%w: %v", domain.ErrGenerationFailed, err)
	}

	if err := validateSchema(raw, reviewSchema); err != nil {
		metrics.AgentRequests.WithLabelValues(string(r.kind), "reviewing", "invalid").Inc()
		r.logger.Error("review failed schema validation", "error", err)
		return nil, err
	}

	var feedback domain.ReviewFeedback
	if err := json.Unmarshal(raw, &feedback); err != nil {
		metrics.AgentRequests.WithLabelValues(string(r.kind), "reviewing", "invalid").Inc()
		return nil, fmt.Errorf("%w: %v", domain.ErrSchemaValidation, err)
	}

	// The reviewer identity and issue IDs are assigned here, not trusted
	// from generated output.
	feedback.ReviewerKind = r.kind
	feedback.Duration = took
	for i := range feedback.Issues {
		feedback.Issues[i].ID = domain.GenerateID()
		feedback.Issues[i].ReviewerKind = r.kind
		if feedback.Issues[i].Category == "" {
			feedback.Issues[i].Category = domain.CategoryOther
		}
	}

	if err := feedback.Validate(); err != nil {
		metrics.AgentRequests.WithLabelValues(string(r.kind), "reviewing", "invalid").Inc()
		return nil, err
	}

	metrics.AgentRequests.WithLabelValues(string(r.kind), "reviewing", "ok").Inc()
	metrics.AgentDuration.WithLabelValues(string(r.kind), "reviewing").Observe(took.Seconds())
	return &feedback, nil
}

func (r *Reviewer) instructions() string {
	return strings.Join([]string{
		"You are a specialized reviewer in a legal document analysis team.",
		reviewerFocus[r.kind],
		"Report every issue with severity, title, description and location.",
		"Respond with a single JSON object matching the requested structure, nothing else.",
	}, " ")
}

func (r *Reviewer) prompt(doc *domain.Document, draft domain.Draft, search *domain.SearchContext) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Review task (%s, draft v%d)\n\n", r.kind, draft.Version)
	fmt.Fprintf(&b, "## Document: %s\n\n%s\n\n", doc.Title, doc.Text)
	fmt.Fprintf(&b, "## Draft under review\nSummary: %s\nAssessment: %s\n",
		draft.Content.Summary, draft.Content.Assessment)
	if len(draft.Content.RiskIndicators) > 0 {
		fmt.Fprintf(&b, "Risk indicators: %s\n", strings.Join(draft.Content.RiskIndicators, "; "))
	}
	b.WriteString("\n")

	if search != nil && search.HasResults() {
		b.WriteString("## Retrieval evidence\n")
		for _, res := range search.Results {
			chunk := search.Chunks[res.ChunkID]
			fmt.Fprintf(&b, "- [%s] %s\n", res.ChunkID, chunk.Text)
		}
		b.WriteString("\n")
	}

	b.WriteString("Report your findings as JSON with fields: ")
	b.WriteString("issues, overall_rating, confidence, summary, key_findings.")
	return b.String()
}
