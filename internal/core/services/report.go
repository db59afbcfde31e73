package services

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/clauseguard/clauseguard-core/internal/core/domain"
	"github.com/clauseguard/clauseguard-core/internal/metrics"
)

// severityWeight drives the severity-weighted overall rating: the report
// starts at 10 and loses weight per unresolved issue in the final pass.
var severityWeight = map[domain.Severity]float64{
	domain.SeverityCritical: 3.0,
	domain.SeverityHigh:     2.0,
	domain.SeverityMedium:   1.0,
	domain.SeverityLow:      0.5,
	domain.SeverityInfo:     0.1,
}

// Assembler builds the final three-tier report from a finished run.
// Assembly is a pure function of its inputs; it fails only on structural
// validation, and a report failing validation is never emitted.
type Assembler struct {
	logger *slog.Logger
}

// NewAssembler creates an Assembler
func NewAssembler(logger *slog.Logger) *Assembler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Assembler{logger: logger.With("component", "assembler")}
}

// Assemble packages the run's final draft and feedback history into a
// validated AnalysisReport.
func (a *Assembler) Assemble(run *domain.PipelineRun, doc *domain.Document, search *domain.SearchContext, now time.Time) (*domain.AnalysisReport, error) {
	draft := run.CurrentDraft()
	if draft == nil {
		return nil, fmt.Errorf("%w: run has no draft", domain.ErrInvalidReport)
	}

	var finalIssues []domain.ReviewIssue
	if last := run.LastFeedback(); last != nil {
		finalIssues = last.PrioritizedIssues
	}

	report := &domain.AnalysisReport{
		ReportID:         domain.GenerateID(),
		RunID:            run.RunID,
		DocumentID:       doc.ID,
		DocumentHash:     doc.ContentHash,
		AnalysisType:     run.AnalysisType,
		ExecutiveSummary: a.executiveSummary(run, doc, draft, finalIssues, now),
		DetailedAnalysis: a.detailedAnalysis(doc, finalIssues),
		EvidenceSources:  a.evidenceSources(run, search),
		Iterations:       run.Iteration,
		Degraded:         search != nil && search.Degraded,
		GeneratedAt:      now,
		Duration:         a.runDuration(run, now),
	}

	if err := report.Validate(); err != nil {
		metrics.ReportsGenerated.WithLabelValues(string(run.AnalysisType), "invalid").Inc()
		a.logger.Error("report failed validation", "run_id", run.RunID, "error", err)
		return nil, err
	}
	metrics.ReportsGenerated.WithLabelValues(string(run.AnalysisType), "ok").Inc()
	return report, nil
}

func (a *Assembler) executiveSummary(run *domain.PipelineRun, doc *domain.Document, draft *domain.Draft, issues []domain.ReviewIssue, now time.Time) domain.ExecutiveSummary {
	riskSummary := make(map[domain.Severity]int)
	for _, issue := range issues {
		riskSummary[issue.Severity]++
	}

	rating := 10.0
	for _, issue := range issues {
		rating -= severityWeight[issue.Severity]
	}
	if rating < 0 {
		rating = 0
	}

	// issues arrive prioritized, so the first five are the key risks
	var keyRisks []string
	for _, issue := range issues {
		keyRisks = append(keyRisks, issue.Title)
		if len(keyRisks) == 5 {
			break
		}
	}
	var criticalIssues []string
	for _, issue := range issues {
		if issue.Severity == domain.SeverityCritical {
			criticalIssues = append(criticalIssues, issue.Title)
			if len(criticalIssues) == 3 {
				break
			}
		}
	}

	var recommendations []domain.QuickRecommendation
	for _, issue := range issues {
		if issue.NeedsHumanReview || issue.SuggestedFix == "" {
			continue
		}
		urgency := "optional"
		switch issue.Severity {
		case domain.SeverityCritical:
			urgency = "immediate"
		case domain.SeverityHigh:
			urgency = "soon"
		}
		recommendations = append(recommendations, domain.QuickRecommendation{
			Priority: issue.Severity,
			Action:   issue.SuggestedFix,
			Urgency:  urgency,
		})
		if len(recommendations) == 5 {
			break
		}
	}

	return domain.ExecutiveSummary{
		DocumentTitle:      doc.Title,
		AnalysisType:       run.AnalysisType,
		AnalysisDate:       now,
		OverallRating:      rating,
		RatingExplanation:  ratingExplanation(rating, len(issues), riskSummary),
		RiskSummary:        riskSummary,
		KeyRisks:           keyRisks,
		CriticalIssues:     criticalIssues,
		Recommendations:    recommendations,
		OneSentenceSummary: oneSentence(draft.Content.Summary),
	}
}

func (a *Assembler) detailedAnalysis(doc *domain.Document, issues []domain.ReviewIssue) domain.DetailedAnalysis {
	byClause := make(map[int][]domain.ReviewIssue)
	for _, issue := range issues {
		byClause[issue.Location.ClauseID] = append(byClause[issue.Location.ClauseID], issue)
	}

	var breakdown []domain.ClauseAnalysis
	var checklist []domain.ComplianceCheck
	clausesWithIssues := 0
	for _, clause := range doc.Clauses {
		clauseIssues := byClause[clause.ID]
		analysis := domain.ClauseAnalysis{
			ClauseID:    clause.ID,
			ClauseTitle: clause.Title,
			ClauseText:  clause.Text,
			RiskLevel:   domain.SeverityInfo,
		}
		for _, issue := range clauseIssues {
			analysis.Issues = append(analysis.Issues, issue.Title)
			if issue.SuggestedFix != "" {
				analysis.Suggestions = append(analysis.Suggestions, issue.SuggestedFix)
			}
			analysis.LegalBasis = append(analysis.LegalBasis, issue.LegalBasis...)
			if issue.Severity.Order() < analysis.RiskLevel.Order() {
				analysis.RiskLevel = issue.Severity
			}
		}
		analysis.RiskScore = clauseRiskScore(clauseIssues)
		breakdown = append(breakdown, analysis)

		compliant := len(clauseIssues) == 0
		if !compliant {
			clausesWithIssues++
		}
		check := domain.ComplianceCheck{
			Item:      clause.Title,
			Compliant: compliant,
		}
		if !compliant {
			check.Severity = analysis.RiskLevel
			check.Explanation = strings.Join(analysis.Issues, "; ")
		}
		checklist = append(checklist, check)
	}

	complianceRate := 1.0
	if len(doc.Clauses) > 0 {
		complianceRate = float64(len(doc.Clauses)-clausesWithIssues) / float64(len(doc.Clauses))
	}

	var notes []string
	for _, issue := range issues {
		if issue.NeedsHumanReview {
			notes = append(notes, fmt.Sprintf("requires human review: %s", issue.Title))
		}
	}

	return domain.DetailedAnalysis{
		TotalClauses:      len(doc.Clauses),
		ClausesWithIssues: clausesWithIssues,
		ComplianceRate:    complianceRate,
		ClauseBreakdown:   breakdown,
		Checklist:         checklist,
		SpecialNotes:      notes,
	}
}

// evidenceSources lists every retrieval result actually cited, grouped
// by citing stage: the writer's draft first, then reviewers in canonical
// order, preserving citation order within each group.
func (a *Assembler) evidenceSources(run *domain.PipelineRun, search *domain.SearchContext) []domain.EvidenceSource {
	if search == nil {
		return nil
	}

	method := domain.RetrievalReranked
	if search.Statistics.RerankSkipped {
		method = domain.RetrievalFused
	}
	relevance := make(map[string]float64, len(search.Results))
	for _, r := range search.Results {
		relevance[r.ChunkID] = r.Relevance
	}

	var sources []domain.EvidenceSource
	seen := make(map[string]bool)
	cite := func(chunkID, citedBy string) {
		key := chunkID + "|" + citedBy
		if seen[key] {
			return
		}
		seen[key] = true
		sources = append(sources, domain.EvidenceSource{
			ChunkID:   chunkID,
			Content:   search.Chunks[chunkID].Text,
			Relevance: relevance[chunkID],
			Method:    method,
			CitedBy:   citedBy,
		})
	}

	if draft := run.CurrentDraft(); draft != nil {
		for _, id := range draft.Content.CitedChunkIDs {
			cite(id, writerRole)
		}
	}
	if last := run.LastFeedback(); last != nil {
		for _, kind := range domain.ReviewerKinds {
			for _, feedback := range last.Feedback {
				if feedback.ReviewerKind != kind {
					continue
				}
				for _, issue := range feedback.Issues {
					for _, id := range issue.CitedChunkIDs {
						cite(id, string(kind))
					}
				}
			}
		}
	}
	return sources
}

func (a *Assembler) runDuration(run *domain.PipelineRun, now time.Time) time.Duration {
	end := now
	if run.FinishedAt != nil {
		end = *run.FinishedAt
	}
	return end.Sub(run.StartedAt)
}

func clauseRiskScore(issues []domain.ReviewIssue) float64 {
	if len(issues) == 0 {
		return 0
	}
	base := map[domain.Severity]float64{
		domain.SeverityCritical: 90,
		domain.SeverityHigh:     70,
		domain.SeverityMedium:   50,
		domain.SeverityLow:      30,
		domain.SeverityInfo:     10,
	}
	score := 0.0
	for _, issue := range issues {
		if b := base[issue.Severity]; b > score {
			score = b
		}
	}
	score += float64(len(issues)-1) * 5
	if score > 100 {
		score = 100
	}
	return score
}

func ratingExplanation(rating float64, issueCount int, riskSummary map[domain.Severity]int) string {
	if issueCount == 0 {
		return "no unresolved findings in the final review pass"
	}
	return fmt.Sprintf("%.1f/10 after %d unresolved findings (%d critical, %d high)",
		rating, issueCount,
		riskSummary[domain.SeverityCritical], riskSummary[domain.SeverityHigh])
}

// oneSentence truncates text to its first sentence
func oneSentence(text string) string {
	text = strings.TrimSpace(text)
	if idx := strings.IndexAny(text, ".!?"); idx >= 0 {
		return text[:idx+1]
	}
	return text
}
