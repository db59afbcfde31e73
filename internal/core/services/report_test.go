package services

import (
	"errors"
	"testing"
	"time"

	"github.com/clauseguard/clauseguard-core/internal/core/domain"
)

func finishedRun(issues []domain.ReviewIssue, citedByWriter []string) *domain.PipelineRun {
	started := time.Now().Add(-30 * time.Second)
	finished := time.Now()
	run := &domain.PipelineRun{
		RunID:        domain.GenerateID(),
		DocumentID:   "doc-1",
		AnalysisType: domain.AnalysisContractReview,
		Stage:        domain.StageDone,
		Iteration:    1,
		StartedAt:    started,
		FinishedAt:   &finished,
	}
	run.AppendDraft(domain.DraftContent{
		Summary:       "The agreement favors the supplier. Several clauses need work.",
		Assessment:    "moderate risk",
		CitedChunkIDs: citedByWriter,
	}, started)
	run.FeedbackHistory = append(run.FeedbackHistory, domain.ConsolidatedFeedback{
		ID:                domain.GenerateID(),
		Iteration:         1,
		PrioritizedIssues: issues,
		CreatedAt:         finished,
	})
	return run
}

func reportSearchContext() *domain.SearchContext {
	return &domain.SearchContext{
		Query: "liability indemnification",
		Results: []domain.RerankedEntry{
			{ChunkID: "chunk-1", Relevance: 0.95},
			{ChunkID: "chunk-2", Relevance: 0.80},
		},
		Chunks: map[string]domain.Chunk{
			"chunk-1": {ID: "chunk-1", Text: "liability precedent"},
			"chunk-2": {ID: "chunk-2", Text: "indemnification standard"},
		},
	}
}

func TestAssembler_CleanRunProducesValidReport(t *testing.T) {
	asm := NewAssembler(nil)
	run := finishedRun(nil, []string{"chunk-1"})

	report, err := asm.Assemble(run, testDocument(), reportSearchContext(), time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.ExecutiveSummary.OverallRating != 10 {
		t.Errorf("expected rating 10 with no issues, got %.1f", report.ExecutiveSummary.OverallRating)
	}
	if report.DetailedAnalysis.ComplianceRate != 1 {
		t.Errorf("expected compliance rate 1, got %.2f", report.DetailedAnalysis.ComplianceRate)
	}
	if report.DetailedAnalysis.TotalClauses != 2 {
		t.Errorf("expected 2 clauses, got %d", report.DetailedAnalysis.TotalClauses)
	}
	if report.ExecutiveSummary.OneSentenceSummary != "The agreement favors the supplier." {
		t.Errorf("unexpected one-sentence summary: %q", report.ExecutiveSummary.OneSentenceSummary)
	}
	if err := report.Validate(); err != nil {
		t.Errorf("assembled report must validate: %v", err)
	}
}

func TestAssembler_SeverityWeightedRating(t *testing.T) {
	asm := NewAssembler(nil)
	issues := []domain.ReviewIssue{
		{ID: "i1", ReviewerKind: domain.ReviewerLegal, Severity: domain.SeverityCritical,
			Title: "unlimited liability", Location: domain.IssueLocation{ClauseID: 2}},
		{ID: "i2", ReviewerKind: domain.ReviewerRisk, Severity: domain.SeverityHigh,
			Title: "one-sided termination", Location: domain.IssueLocation{ClauseID: 1}},
	}
	run := finishedRun(issues, nil)

	report, err := asm.Assemble(run, testDocument(), reportSearchContext(), time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 10 - 3 (critical) - 2 (high) = 5
	if report.ExecutiveSummary.OverallRating != 5 {
		t.Errorf("expected rating 5, got %.1f", report.ExecutiveSummary.OverallRating)
	}
	if report.ExecutiveSummary.RiskSummary[domain.SeverityCritical] != 1 {
		t.Error("expected 1 critical in risk summary")
	}
	if len(report.ExecutiveSummary.CriticalIssues) != 1 {
		t.Errorf("expected 1 critical issue listed, got %d", len(report.ExecutiveSummary.CriticalIssues))
	}
	// both clauses have issues
	if report.DetailedAnalysis.ComplianceRate != 0 {
		t.Errorf("expected compliance rate 0, got %.2f", report.DetailedAnalysis.ComplianceRate)
	}
	if report.DetailedAnalysis.ClausesWithIssues != 2 {
		t.Errorf("expected 2 clauses with issues, got %d", report.DetailedAnalysis.ClausesWithIssues)
	}
}

func TestAssembler_RatingNeverBelowZero(t *testing.T) {
	asm := NewAssembler(nil)
	var issues []domain.ReviewIssue
	for i := 0; i < 6; i++ {
		issues = append(issues, domain.ReviewIssue{
			ID: domain.GenerateID(), Severity: domain.SeverityCritical,
			Title: "critical finding", Location: domain.IssueLocation{ClauseID: 1},
		})
	}
	run := finishedRun(issues, nil)

	report, err := asm.Assemble(run, testDocument(), reportSearchContext(), time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.ExecutiveSummary.OverallRating != 0 {
		t.Errorf("expected rating clamped to 0, got %.1f", report.ExecutiveSummary.OverallRating)
	}
}

func TestAssembler_KeyRisksCappedAtFive(t *testing.T) {
	asm := NewAssembler(nil)
	var issues []domain.ReviewIssue
	for i := 0; i < 8; i++ {
		issues = append(issues, domain.ReviewIssue{
			ID: domain.GenerateID(), Severity: domain.SeverityMedium,
			Title: "finding", Location: domain.IssueLocation{ClauseID: 1},
		})
	}
	run := finishedRun(issues, nil)

	report, err := asm.Assemble(run, testDocument(), reportSearchContext(), time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(report.ExecutiveSummary.KeyRisks) != 5 {
		t.Errorf("expected 5 key risks, got %d", len(report.ExecutiveSummary.KeyRisks))
	}
}

func TestAssembler_EvidenceGroupedByCitingStage(t *testing.T) {
	asm := NewAssembler(nil)
	issues := []domain.ReviewIssue{
		{ID: "i1", ReviewerKind: domain.ReviewerLegal, Severity: domain.SeverityHigh,
			Title: "t", Location: domain.IssueLocation{ClauseID: 1},
			CitedChunkIDs: []string{"chunk-2"}},
	}
	run := finishedRun(issues, []string{"chunk-1"})
	run.FeedbackHistory[0].Feedback = []domain.ReviewFeedback{
		{ReviewerKind: domain.ReviewerLegal, Issues: issues, OverallRating: 5, Confidence: 0.8},
	}

	report, err := asm.Assemble(run, testDocument(), reportSearchContext(), time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(report.EvidenceSources) != 2 {
		t.Fatalf("expected 2 evidence sources, got %d", len(report.EvidenceSources))
	}
	// writer group comes first, then reviewers
	if report.EvidenceSources[0].CitedBy != "writer" || report.EvidenceSources[0].ChunkID != "chunk-1" {
		t.Errorf("expected writer citation first, got %+v", report.EvidenceSources[0])
	}
	if report.EvidenceSources[1].CitedBy != "legal" || report.EvidenceSources[1].ChunkID != "chunk-2" {
		t.Errorf("expected legal citation second, got %+v", report.EvidenceSources[1])
	}
	if report.EvidenceSources[0].Relevance != 0.95 {
		t.Errorf("expected relevance carried over, got %.2f", report.EvidenceSources[0].Relevance)
	}
}

func TestAssembler_NoDraftIsError(t *testing.T) {
	asm := NewAssembler(nil)
	run := &domain.PipelineRun{RunID: "r", DocumentID: "d", StartedAt: time.Now()}

	_, err := asm.Assemble(run, testDocument(), nil, time.Now())
	if !errors.Is(err, domain.ErrInvalidReport) {
		t.Fatalf("expected ErrInvalidReport, got %v", err)
	}
}

func TestAssembler_EmptySummaryFailsValidation(t *testing.T) {
	asm := NewAssembler(nil)
	run := finishedRun(nil, nil)
	run.DraftHistory[0].Content.Summary = ""

	_, err := asm.Assemble(run, testDocument(), nil, time.Now())
	if !errors.Is(err, domain.ErrInvalidReport) {
		t.Fatalf("expected validation failure, got %v", err)
	}
}

func TestAssembler_HumanReviewIssuesInSpecialNotes(t *testing.T) {
	asm := NewAssembler(nil)
	issues := []domain.ReviewIssue{
		{ID: "i1", ReviewerKind: domain.ReviewerLegal, Severity: domain.SeverityCritical,
			Title: "contradictory edits", Location: domain.IssueLocation{ClauseID: 1},
			NeedsHumanReview: true},
	}
	run := finishedRun(issues, nil)

	report, err := asm.Assemble(run, testDocument(), reportSearchContext(), time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(report.DetailedAnalysis.SpecialNotes) != 1 {
		t.Fatalf("expected 1 special note, got %d", len(report.DetailedAnalysis.SpecialNotes))
	}
	// human-review issues never become recommendations
	if len(report.ExecutiveSummary.Recommendations) != 0 {
		t.Errorf("expected no recommendations, got %d", len(report.ExecutiveSummary.Recommendations))
	}
}
