package domain

import (
	"fmt"
	"time"
)

// QuickRecommendation is one prioritized action item in the executive summary
type QuickRecommendation struct {
	Priority Severity `json:"priority"`
	Action   string   `json:"action"`
	Urgency  string   `json:"urgency"` // immediate | soon | optional
}

// ExecutiveSummary is the first report tier, written for decision makers
type ExecutiveSummary struct {
	DocumentTitle string       `json:"document_title"`
	AnalysisType  AnalysisType `json:"analysis_type"`
	AnalysisDate  time.Time    `json:"analysis_date"`

	OverallRating      float64               `json:"overall_rating"` // 0-10
	RatingExplanation  string                `json:"rating_explanation"`
	RiskSummary        map[Severity]int      `json:"risk_summary"`
	KeyRisks           []string              `json:"key_risks"`       // at most 5
	CriticalIssues     []string              `json:"critical_issues"` // at most 3
	Recommendations    []QuickRecommendation `json:"recommendations"`
	OneSentenceSummary string                `json:"one_sentence_summary"`
}

// ClauseAnalysis is the per-clause breakdown in the detailed tier
type ClauseAnalysis struct {
	ClauseID    int          `json:"clause_id"`
	ClauseTitle string       `json:"clause_title,omitempty"`
	ClauseText  string       `json:"clause_text"`
	RiskLevel   Severity     `json:"risk_level"`
	RiskScore   float64      `json:"risk_score"` // 0-100
	Issues      []string     `json:"issues,omitempty"`
	Suggestions []string     `json:"suggestions,omitempty"`
	LegalBasis  []LegalBasis `json:"legal_basis,omitempty"`
}

// ComplianceCheck is one entry of the compliance checklist
type ComplianceCheck struct {
	Item        string   `json:"item"`
	Compliant   bool     `json:"compliant"`
	Explanation string   `json:"explanation,omitempty"`
	Severity    Severity `json:"severity,omitempty"` // set when non-compliant
}

// DetailedAnalysis is the second report tier, written for legal professionals
type DetailedAnalysis struct {
	TotalClauses      int               `json:"total_clauses"`
	ClausesWithIssues int               `json:"clauses_with_issues"`
	ComplianceRate    float64           `json:"compliance_rate"` // 0-1
	ClauseBreakdown   []ClauseAnalysis  `json:"clause_breakdown"`
	Checklist         []ComplianceCheck `json:"checklist,omitempty"`
	SpecialNotes      []string          `json:"special_notes,omitempty"`
}

// EvidenceSource is one retrieval result actually cited during analysis
type EvidenceSource struct {
	ChunkID   string          `json:"chunk_id"`
	Content   string          `json:"content,omitempty"`
	Relevance float64         `json:"relevance"`
	Method    RetrievalMethod `json:"method"`

	// CitedBy identifies the stage or reviewer that used this evidence;
	// entries preserve the reasoning chain order within each group.
	CitedBy string `json:"cited_by"`
}

// AnalysisReport is the final three-tier output. Immutable after assembly.
type AnalysisReport struct {
	ReportID     string       `json:"report_id"`
	RunID        string       `json:"run_id"`
	DocumentID   string       `json:"document_id"`
	DocumentHash string       `json:"document_hash"`
	AnalysisType AnalysisType `json:"analysis_type"`

	ExecutiveSummary ExecutiveSummary `json:"executive_summary"`
	DetailedAnalysis DetailedAnalysis `json:"detailed_analysis"`
	EvidenceSources  []EvidenceSource `json:"evidence_sources"`

	Iterations  int           `json:"iterations"`
	Degraded    bool          `json:"degraded"` // retrieval or rerank ran degraded
	GeneratedAt time.Time     `json:"generated_at"`
	Duration    time.Duration `json:"duration"`
}

// Validate checks the structural invariants of the report.
// A report failing validation is never emitted, not even partially.
func (r *AnalysisReport) Validate() error {
	if r.ReportID == "" || r.RunID == "" || r.DocumentID == "" {
		return fmt.Errorf("%w: missing identifier", ErrInvalidReport)
	}
	es := r.ExecutiveSummary
	if es.OverallRating < 0 || es.OverallRating > 10 {
		return fmt.Errorf("%w: overall_rating %.2f outside [0,10]", ErrInvalidReport, es.OverallRating)
	}
	if len(es.KeyRisks) > 5 {
		return fmt.Errorf("%w: %d key risks, at most 5 allowed", ErrInvalidReport, len(es.KeyRisks))
	}
	if len(es.CriticalIssues) > 3 {
		return fmt.Errorf("%w: %d critical issues, at most 3 allowed", ErrInvalidReport, len(es.CriticalIssues))
	}
	if es.OneSentenceSummary == "" {
		return fmt.Errorf("%w: missing one-sentence summary", ErrInvalidReport)
	}
	da := r.DetailedAnalysis
	if da.ComplianceRate < 0 || da.ComplianceRate > 1 {
		return fmt.Errorf("%w: compliance_rate %.3f outside [0,1]", ErrInvalidReport, da.ComplianceRate)
	}
	if da.ClausesWithIssues > da.TotalClauses {
		return fmt.Errorf("%w: clauses_with_issues exceeds total_clauses", ErrInvalidReport)
	}
	for _, src := range r.EvidenceSources {
		if src.ChunkID == "" || src.CitedBy == "" {
			return fmt.Errorf("%w: evidence source missing chunk_id or cited_by", ErrInvalidReport)
		}
	}
	return nil
}

// PartialResult wraps the last completed stage's output when the end-to-end
// analysis timeout expires mid-pipeline. It is returned in place of a report,
// explicitly tagged, never silently dropped.
type PartialResult struct {
	Stage         PipelineStage   `json:"stage"`
	SearchContext *SearchContext  `json:"search_context,omitempty"`
	Run           *PipelineRun    `json:"run,omitempty"`
	Report        *AnalysisReport `json:"report,omitempty"`
	Reason        string          `json:"reason"`
}
