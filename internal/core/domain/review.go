package domain

import "time"

// ReviewerKind identifies a reviewer role
type ReviewerKind string

const (
	ReviewerLegal    ReviewerKind = "legal"
	ReviewerRisk     ReviewerKind = "risk"
	ReviewerFormat   ReviewerKind = "format"
	ReviewerBusiness ReviewerKind = "business"
)

// ReviewerKinds is the canonical reviewer ordering used everywhere reviewer
// output is collected: domain priority, highest first. Arbitration depends on
// this order being stable regardless of completion order.
var ReviewerKinds = []ReviewerKind{
	ReviewerLegal,
	ReviewerRisk,
	ReviewerBusiness,
	ReviewerFormat,
}

// Priority returns the domain priority of the reviewer kind.
// Lower is more authoritative: legal > risk > business > format.
func (k ReviewerKind) Priority() int {
	switch k {
	case ReviewerLegal:
		return 1
	case ReviewerRisk:
		return 2
	case ReviewerBusiness:
		return 3
	case ReviewerFormat:
		return 4
	}
	return 99
}

// Severity is the issue severity tier
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
	SeverityInfo     Severity = "info"
)

// severityOrder maps tiers to sort weight, most severe first
var severityOrder = map[Severity]int{
	SeverityCritical: 0,
	SeverityHigh:     1,
	SeverityMedium:   2,
	SeverityLow:      3,
	SeverityInfo:     4,
}

// Order returns the sort weight of the severity, most severe first.
// Unknown severities sort last.
func (s Severity) Order() int {
	if o, ok := severityOrder[s]; ok {
		return o
	}
	return 99
}

// Valid reports whether s is a known severity tier
func (s Severity) Valid() bool {
	_, ok := severityOrder[s]
	return ok
}

// Escalate raises the severity exactly one tier, capped at critical.
func (s Severity) Escalate() Severity {
	switch s {
	case SeverityHigh, SeverityCritical:
		return SeverityCritical
	case SeverityMedium:
		return SeverityHigh
	case SeverityLow:
		return SeverityMedium
	case SeverityInfo:
		return SeverityLow
	}
	return s
}

// IssueCategory classifies what an issue is about
type IssueCategory string

const (
	CategoryLegalCompliance IssueCategory = "legal_compliance"
	CategoryRiskAssessment  IssueCategory = "risk_assessment"
	CategoryFormatStandard  IssueCategory = "format_standard"
	CategoryBusinessLogic   IssueCategory = "business_logic"
	CategoryContractTerm    IssueCategory = "contract_term"
	CategoryJurisdiction    IssueCategory = "jurisdiction"
	CategoryTermination     IssueCategory = "termination"
	CategoryLiability       IssueCategory = "liability"
	CategoryPayment         IssueCategory = "payment"
	CategoryConfidentiality IssueCategory = "confidentiality"
	CategoryOther           IssueCategory = "other"
)

// IssueLocation pins an issue to a place in the document.
// Key() gives the identity used for conflict detection: two issues at the
// same clause and paragraph are "the same location".
type IssueLocation struct {
	ClauseID       int    `json:"clause_id,omitempty"` // 1-based, 0 = document level
	ParagraphIndex int    `json:"paragraph_index,omitempty"`
	Excerpt        string `json:"excerpt"`
}

// Key returns the location identity used for conflict grouping
func (l IssueLocation) Key() [2]int {
	return [2]int{l.ClauseID, l.ParagraphIndex}
}

// LegalBasis is a statutory citation backing an issue
type LegalBasis struct {
	Article   string `json:"article"`
	LawName   string `json:"law_name"`
	Citation  string `json:"citation,omitempty"`
	Relevance string `json:"relevance,omitempty"`
}

// ReviewIssue is one finding emitted by a reviewer during a pass.
// Issues are immutable once emitted; arbitration copies before escalating.
type ReviewIssue struct {
	ID           string        `json:"id"`
	ReviewerKind ReviewerKind  `json:"reviewer_kind"`
	Severity     Severity      `json:"severity"`
	Category     IssueCategory `json:"category"`
	Title        string        `json:"title"`
	Description  string        `json:"description"`
	Location     IssueLocation `json:"location"`
	SuggestedFix string        `json:"suggested_fix,omitempty"`
	LegalBasis   []LegalBasis  `json:"legal_basis,omitempty"`

	// NeedsHumanReview marks issues arbitration could not resolve; they are
	// reported but excluded from automatic revision instructions.
	NeedsHumanReview bool `json:"needs_human_review,omitempty"`

	// CitedChunkIDs references retrieval evidence supporting this finding
	CitedChunkIDs []string `json:"cited_chunk_ids,omitempty"`
}

// ReviewFeedback is one reviewer's complete output for one pass
type ReviewFeedback struct {
	ReviewerKind  ReviewerKind  `json:"reviewer_kind"`
	Issues        []ReviewIssue `json:"issues"`
	OverallRating float64       `json:"overall_rating"` // 0-10
	Confidence    float64       `json:"confidence"`     // 0-1
	Summary       string        `json:"summary,omitempty"`
	KeyFindings   []string      `json:"key_findings,omitempty"`
	Duration      time.Duration `json:"duration"`
}

// Validate checks feedback field ranges
func (f *ReviewFeedback) Validate() error {
	if f.OverallRating < 0 || f.OverallRating > 10 {
		return ErrSchemaValidation
	}
	if f.Confidence < 0 || f.Confidence > 1 {
		return ErrSchemaValidation
	}
	for _, issue := range f.Issues {
		if !issue.Severity.Valid() {
			return ErrSchemaValidation
		}
	}
	return nil
}

// ConflictResolution documents how arbitration settled overlapping findings
type ConflictResolution struct {
	ID                string         `json:"id"`
	Location          IssueLocation  `json:"location"`
	InvolvedReviewers []ReviewerKind `json:"involved_reviewers"`
	IssueIDs          []string       `json:"issue_ids"`
	Strategy          string         `json:"strategy"` // prioritize_<kind> | escalate | needs_human_review
	Decision          string         `json:"decision"`
	NeedsHumanReview  bool           `json:"needs_human_review"`
}

// ConsolidatedFeedback is the arbitrator's output for one pass. Immutable.
type ConsolidatedFeedback struct {
	ID                   string               `json:"id"`
	Iteration            int                  `json:"iteration"`
	PrioritizedIssues    []ReviewIssue        `json:"prioritized_issues"`
	ResolvedConflicts    []ConflictResolution `json:"resolved_conflicts,omitempty"`
	RevisionInstructions string               `json:"revision_instructions"`
	PriorityActions      []string             `json:"priority_actions,omitempty"`
	FocusAreas           []string             `json:"focus_areas,omitempty"`
	Feedback             []ReviewFeedback     `json:"feedback"` // canonical reviewer order
	CreatedAt            time.Time            `json:"created_at"`
}

// ActionableIssues returns the prioritized issues that drive revision,
// i.e. everything not deferred to a human.
func (c *ConsolidatedFeedback) ActionableIssues() []ReviewIssue {
	var out []ReviewIssue
	for _, issue := range c.PrioritizedIssues {
		if !issue.NeedsHumanReview {
			out = append(out, issue)
		}
	}
	return out
}

// DraftContent is the structured body of one draft version
type DraftContent struct {
	Summary        string   `json:"summary"`
	KeyClauses     []string `json:"key_clauses,omitempty"`
	Assessment     string   `json:"assessment"`
	RiskIndicators []string `json:"risk_indicators,omitempty"`
	CitedChunkIDs  []string `json:"cited_chunk_ids,omitempty"`
}

// Draft is one versioned snapshot of the analysis output.
// Versions start at 1 and strictly increase; prior versions are retained
// in PipelineRun.DraftHistory for audit, never edited in place.
type Draft struct {
	Version   int          `json:"version"`
	Content   DraftContent `json:"content"`
	CreatedAt time.Time    `json:"created_at"`
}

// PipelineStage is one state of the review pipeline state machine
type PipelineStage string

const (
	StageDrafting    PipelineStage = "drafting"
	StageReviewing   PipelineStage = "reviewing"
	StageArbitrating PipelineStage = "arbitrating"
	StageRevising    PipelineStage = "revising"
	StageAssembling  PipelineStage = "assembling"
	StageDone        PipelineStage = "done"
	StageFailed      PipelineStage = "failed"
)

// Terminal reports whether the stage ends the pipeline
func (s PipelineStage) Terminal() bool {
	return s == StageDone || s == StageFailed
}

// PipelineRun tracks one analysis request through the review pipeline.
// Owned exclusively by the orchestrating goroutine for the request lifetime.
type PipelineRun struct {
	RunID           string                 `json:"run_id"`
	DocumentID      string                 `json:"document_id"`
	AnalysisType    AnalysisType           `json:"analysis_type"`
	Stage           PipelineStage          `json:"stage"`
	Iteration       int                    `json:"iteration"`
	DraftHistory    []Draft                `json:"draft_history"`
	FeedbackHistory []ConsolidatedFeedback `json:"feedback_history"`

	// FailedReviewers records per-pass reviewer failures: recorded, not fatal
	// unless every reviewer in a pass failed.
	FailedReviewers map[ReviewerKind]string `json:"failed_reviewers,omitempty"`

	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Error      string     `json:"error,omitempty"`
}

// CurrentDraft returns the latest draft version, or nil before drafting
func (r *PipelineRun) CurrentDraft() *Draft {
	if len(r.DraftHistory) == 0 {
		return nil
	}
	return &r.DraftHistory[len(r.DraftHistory)-1]
}

// LastFeedback returns the most recent consolidated feedback, or nil
func (r *PipelineRun) LastFeedback() *ConsolidatedFeedback {
	if len(r.FeedbackHistory) == 0 {
		return nil
	}
	return &r.FeedbackHistory[len(r.FeedbackHistory)-1]
}

// AppendDraft records a new draft version, enforcing strict version increase
func (r *PipelineRun) AppendDraft(content DraftContent, now time.Time) Draft {
	draft := Draft{
		Version:   len(r.DraftHistory) + 1,
		Content:   content,
		CreatedAt: now,
	}
	r.DraftHistory = append(r.DraftHistory, draft)
	return draft
}
