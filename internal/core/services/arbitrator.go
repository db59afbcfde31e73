package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/clauseguard/clauseguard-core/internal/core/domain"
	"github.com/clauseguard/clauseguard-core/internal/core/ports/driven"
	"github.com/clauseguard/clauseguard-core/internal/metrics"
	"github.com/clauseguard/clauseguard-core/internal/runtime"
)

const arbitratorRole = "arbitrator"

var arbitratorInstructions = strings.Join([]string{
	"You are the arbitrator of a legal document analysis team.",
	"Turn the prioritized review findings into clear, actionable revision guidance for the writer.",
	"Cover the overall revision strategy, the main directions of change and their priority order.",
	`Respond with a single JSON object of the form {"instructions": "..."}, nothing else.`,
}, " ")

// Arbitrator consolidates reviewer feedback into one prioritized,
// conflict-resolved list. Consolidation is fully deterministic: given
// the same feedback in canonical order it always produces the same
// output, which makes every arbitration decision reproducible.
//
// Resolution rules, in priority order:
//  1. the highest severity tier present is always kept first;
//  2. among equal severity, domain priority legal > risk > business > format;
//  3. an issue flagged by more than one reviewer at the same location is
//     escalated exactly one severity tier, capped at critical;
//  4. conflicts the rules cannot settle are marked needsHumanReview and
//     excluded from automatic revision instructions.
// Revision instructions are the one non-deterministic output: when a
// generation service is available it phrases them, with the deterministic
// rendering as fallback. The prioritized list itself never depends on it.
type Arbitrator struct {
	services *runtime.Services
	logger   *slog.Logger
}

// NewArbitrator creates an Arbitrator. A nil services registry disables
// the generation pass; revision instructions then always use the
// deterministic rendering.
func NewArbitrator(services *runtime.Services, logger *slog.Logger) *Arbitrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Arbitrator{
		services: services,
		logger:   logger.With("component", "arbitrator"),
	}
}

// Consolidate merges one pass's feedback. The feedbacks slice must be in
// canonical reviewer order; the caller guarantees this regardless of
// reviewer completion order.
func (a *Arbitrator) Consolidate(ctx context.Context, feedbacks []domain.ReviewFeedback, iteration int, now time.Time) *domain.ConsolidatedFeedback {
	issues := collectIssues(feedbacks)
	conflicts := a.resolveConflicts(issues)

	// Apply conflict outcomes to issue copies before prioritization
	escalated := make(map[string]bool)
	humanReview := make(map[string]bool)
	for _, c := range conflicts {
		if c.NeedsHumanReview {
			for _, id := range c.IssueIDs {
				humanReview[id] = true
			}
			continue
		}
		// The representative issue of a settled conflict is escalated one tier
		if len(c.IssueIDs) > 0 {
			escalated[c.IssueIDs[0]] = true
		}
	}
	for i := range issues {
		if escalated[issues[i].ID] {
			issues[i].Severity = issues[i].Severity.Escalate()
		}
		if humanReview[issues[i].ID] {
			issues[i].NeedsHumanReview = true
		}
	}

	prioritized := prioritizeIssues(issues)

	consolidated := &domain.ConsolidatedFeedback{
		ID:                domain.GenerateID(),
		Iteration:         iteration,
		PrioritizedIssues: prioritized,
		ResolvedConflicts: conflicts,
		Feedback:          feedbacks,
		CreatedAt:         now,
	}
	consolidated.RevisionInstructions = a.revisionInstructions(ctx, consolidated)
	consolidated.PriorityActions = extractPriorityActions(consolidated.ActionableIssues())
	consolidated.FocusAreas = extractFocusAreas(prioritized)
	return consolidated
}

// collectIssues flattens feedback into issue copies, preserving canonical
// reviewer order so downstream sorting is stable across runs.
func collectIssues(feedbacks []domain.ReviewFeedback) []domain.ReviewIssue {
	var issues []domain.ReviewIssue
	for _, f := range feedbacks {
		issues = append(issues, f.Issues...)
	}
	return issues
}

// resolveConflicts finds locations flagged by more than one reviewer kind
// and settles each group by severity then domain priority.
func (a *Arbitrator) resolveConflicts(issues []domain.ReviewIssue) []domain.ConflictResolution {
	byLocation := make(map[[2]int][]domain.ReviewIssue)
	var order [][2]int
	for _, issue := range issues {
		key := issue.Location.Key()
		if _, seen := byLocation[key]; !seen {
			order = append(order, key)
		}
		byLocation[key] = append(byLocation[key], issue)
	}

	var resolutions []domain.ConflictResolution
	for _, key := range order {
		group := byLocation[key]
		kinds := distinctKinds(group)
		if len(group) < 2 || len(kinds) < 2 {
			continue
		}

		winner := group[0]
		for _, issue := range group[1:] {
			if issue.Severity.Order() < winner.Severity.Order() ||
				(issue.Severity.Order() == winner.Severity.Order() &&
					issue.ReviewerKind.Priority() < winner.ReviewerKind.Priority()) {
				winner = issue
			}
		}

		needsHuman := irreconcilable(group)
		strategy := "prioritize_" + string(winner.ReviewerKind)
		decision := fmt.Sprintf("kept %s finding %q, escalated one tier", winner.ReviewerKind, winner.Title)
		if needsHuman {
			strategy = "needs_human_review"
			decision = "conflicting recommendations deferred to human review"
		}

		// Winner first: Consolidate escalates IssueIDs[0]
		ids := []string{winner.ID}
		for _, issue := range group {
			if issue.ID != winner.ID {
				ids = append(ids, issue.ID)
			}
		}

		resolutions = append(resolutions, domain.ConflictResolution{
			ID:                domain.GenerateID(),
			Location:          group[0].Location,
			InvolvedReviewers: kinds,
			IssueIDs:          ids,
			Strategy:          strategy,
			Decision:          decision,
			NeedsHumanReview:  needsHuman,
		})
	}
	return resolutions
}

// irreconcilable reports whether a conflict group cannot be settled by
// the priority rules: multiple critical findings, or two authoritative
// reviewers both raising critical/high issues at the same spot.
func irreconcilable(group []domain.ReviewIssue) bool {
	criticalCount := 0
	authoritative := make(map[domain.ReviewerKind]bool)
	for _, issue := range group {
		if issue.Severity == domain.SeverityCritical {
			criticalCount++
		}
		if issue.ReviewerKind.Priority() <= 2 &&
			(issue.Severity == domain.SeverityCritical || issue.Severity == domain.SeverityHigh) {
			authoritative[issue.ReviewerKind] = true
		}
	}
	return criticalCount > 1 || len(authoritative) > 1
}

func distinctKinds(group []domain.ReviewIssue) []domain.ReviewerKind {
	seen := make(map[domain.ReviewerKind]bool)
	var kinds []domain.ReviewerKind
	for _, issue := range group {
		if !seen[issue.ReviewerKind] {
			seen[issue.ReviewerKind] = true
			kinds = append(kinds, issue.ReviewerKind)
		}
	}
	return kinds
}

// prioritizeIssues orders issues by severity tier, then reviewer domain
// priority, then category and ID for a stable total order.
func prioritizeIssues(issues []domain.ReviewIssue) []domain.ReviewIssue {
	out := make([]domain.ReviewIssue, len(issues))
	copy(out, issues)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Severity.Order() != out[j].Severity.Order() {
			return out[i].Severity.Order() < out[j].Severity.Order()
		}
		if out[i].ReviewerKind.Priority() != out[j].ReviewerKind.Priority() {
			return out[i].ReviewerKind.Priority() < out[j].ReviewerKind.Priority()
		}
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// revisionInstructions asks the generation service to phrase the revision
// guidance. When the service is missing, errors, or returns an empty or
// malformed object, the deterministic rendering is used instead; a failed
// generation never fails arbitration.
func (a *Arbitrator) revisionInstructions(ctx context.Context, consolidated *domain.ConsolidatedFeedback) string {
	actionable := consolidated.ActionableIssues()
	if len(actionable) == 0 {
		return ""
	}
	fallback := buildRevisionInstructions(actionable)

	var generator driven.Generator
	if a.services != nil {
		generator = a.services.Generator()
	}
	if generator == nil {
		return fallback
	}

	start := time.Now()
	raw, err := generator.Generate(ctx, driven.GenerationRequest{
		Role:         arbitratorRole,
		Instructions: arbitratorInstructions,
		Prompt:       instructionsPrompt(actionable, consolidated.ResolvedConflicts),
	})
	took := time.Since(start)
	if err != nil {
		metrics.AgentRequests.WithLabelValues(arbitratorRole, "arbitrating", "error").Inc()
		a.logger.Warn("revision instruction generation failed, using deterministic rendering", "error", err)
		return fallback
	}

	var out struct {
		Instructions string `json:"instructions"`
	}
	if err := json.Unmarshal(raw, &out); err != nil || strings.TrimSpace(out.Instructions) == "" {
		metrics.AgentRequests.WithLabelValues(arbitratorRole, "arbitrating", "invalid").Inc()
		return fallback
	}

	metrics.AgentRequests.WithLabelValues(arbitratorRole, "arbitrating", "ok").Inc()
	metrics.AgentDuration.WithLabelValues(arbitratorRole, "arbitrating").Observe(took.Seconds())
	return out.Instructions
}

func instructionsPrompt(actionable []domain.ReviewIssue, conflicts []domain.ConflictResolution) string {
	var critical, high []domain.ReviewIssue
	for _, issue := range actionable {
		switch issue.Severity {
		case domain.SeverityCritical:
			critical = append(critical, issue)
		case domain.SeverityHigh:
			high = append(high, issue)
		}
	}

	var b strings.Builder
	b.WriteString("# Revision guidance task\n\n")
	fmt.Fprintf(&b, "## Findings\nTotal: %d\nCritical: %d\nHigh: %d\nConflicts resolved: %d\n\n",
		len(actionable), len(critical), len(high), len(conflicts))

	b.WriteString("## Key findings\n")
	key := critical
	if len(key) == 0 {
		key = actionable
	}
	for i, issue := range key {
		if i == 5 {
			break
		}
		fmt.Fprintf(&b, "- [%s] %s: %s\n", strings.ToUpper(string(issue.Severity)), issue.Title, issue.Description)
	}

	b.WriteString("\nWrite concise, professional revision guidance as JSON: ")
	b.WriteString(`{"instructions": "..."}`)
	return b.String()
}

func buildRevisionInstructions(actionable []domain.ReviewIssue) string {
	if len(actionable) == 0 {
		return ""
	}
	var critical, high []domain.ReviewIssue
	for _, issue := range actionable {
		switch issue.Severity {
		case domain.SeverityCritical:
			critical = append(critical, issue)
		case domain.SeverityHigh:
			high = append(high, issue)
		}
	}

	var b strings.Builder
	b.WriteString("Revise the draft in the following priority order:\n")
	writeSection := func(header string, issues []domain.ReviewIssue) {
		if len(issues) == 0 {
			return
		}
		fmt.Fprintf(&b, "\n%s:\n", header)
		for i, issue := range issues {
			if i == 5 {
				break
			}
			fmt.Fprintf(&b, "- %s: %s\n", issue.Title, issue.Description)
		}
	}
	writeSection("Must fix (critical)", critical)
	writeSection("Important (high)", high)
	if len(critical) == 0 && len(high) == 0 {
		b.WriteString("\nAddress the remaining findings:\n")
		for i, issue := range actionable {
			if i == 5 {
				break
			}
			fmt.Fprintf(&b, "- [%s] %s: %s\n", issue.Severity, issue.Title, issue.Description)
		}
	}
	return b.String()
}

func extractPriorityActions(actionable []domain.ReviewIssue) []string {
	var actions []string
	for _, issue := range actionable {
		if issue.Severity != domain.SeverityCritical && issue.Severity != domain.SeverityHigh {
			continue
		}
		if issue.SuggestedFix != "" {
			actions = append(actions, fmt.Sprintf("[%s] %s", strings.ToUpper(string(issue.Severity)), issue.SuggestedFix))
		} else {
			actions = append(actions, fmt.Sprintf("[%s] fix: %s", strings.ToUpper(string(issue.Severity)), issue.Title))
		}
		if len(actions) == 10 {
			break
		}
	}
	return actions
}

// extractFocusAreas returns the up-to-3 categories holding the most
// critical/high findings.
func extractFocusAreas(issues []domain.ReviewIssue) []string {
	counts := make(map[domain.IssueCategory]int)
	for _, issue := range issues {
		if issue.Severity == domain.SeverityCritical || issue.Severity == domain.SeverityHigh {
			counts[issue.Category]++
		}
	}
	categories := make([]domain.IssueCategory, 0, len(counts))
	for c := range counts {
		categories = append(categories, c)
	}
	sort.Slice(categories, func(i, j int) bool {
		if counts[categories[i]] != counts[categories[j]] {
			return counts[categories[i]] > counts[categories[j]]
		}
		return categories[i] < categories[j]
	})
	if len(categories) > 3 {
		categories = categories[:3]
	}
	out := make([]string, len(categories))
	for i, c := range categories {
		out[i] = string(c)
	}
	return out
}
