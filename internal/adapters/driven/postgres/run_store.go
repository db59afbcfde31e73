package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/clauseguard/clauseguard-core/internal/core/domain"
	"github.com/clauseguard/clauseguard-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.RunStore = (*RunStore)(nil)

// RunStore implements driven.RunStore using PostgreSQL.
// Runs and reports are written at terminal stages only, so the histories
// go in as JSONB blobs instead of normalized rows.
type RunStore struct {
	db *DB
}

// NewRunStore creates a new RunStore
func NewRunStore(db *DB) *RunStore {
	return &RunStore{db: db}
}

// SaveRun creates or updates a pipeline run record
func (s *RunStore) SaveRun(ctx context.Context, run *domain.PipelineRun) error {
	draftJSON, err := json.Marshal(run.DraftHistory)
	if err != nil {
		return fmt.Errorf("marshal draft history: %w", err)
	}
	feedbackJSON, err := json.Marshal(run.FeedbackHistory)
	if err != nil {
		return fmt.Errorf("marshal feedback history: %w", err)
	}

	var failedJSON []byte
	if len(run.FailedReviewers) > 0 {
		failedJSON, err = json.Marshal(run.FailedReviewers)
		if err != nil {
			return fmt.Errorf("marshal failed reviewers: %w", err)
		}
	}

	query := `
		INSERT INTO pipeline_runs (run_id, document_id, analysis_type, stage, iteration,
			draft_history, feedback_history, failed_reviewers, started_at, finished_at, error)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (run_id) DO UPDATE SET
			stage = EXCLUDED.stage,
			iteration = EXCLUDED.iteration,
			draft_history = EXCLUDED.draft_history,
			feedback_history = EXCLUDED.feedback_history,
			failed_reviewers = EXCLUDED.failed_reviewers,
			finished_at = EXCLUDED.finished_at,
			error = EXCLUDED.error
	`

	_, err = s.db.ExecContext(ctx, query,
		run.RunID,
		run.DocumentID,
		string(run.AnalysisType),
		string(run.Stage),
		run.Iteration,
		draftJSON,
		feedbackJSON,
		failedJSON,
		run.StartedAt,
		NullTime(run.FinishedAt),
		run.Error,
	)
	if err != nil {
		return fmt.Errorf("save run: %w", err)
	}
	return nil
}

// SaveReport stores a finished analysis report
func (s *RunStore) SaveReport(ctx context.Context, report *domain.AnalysisReport) error {
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	query := `
		INSERT INTO analysis_reports (report_id, run_id, document_id, analysis_type, report, generated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (report_id) DO NOTHING
	`

	_, err = s.db.ExecContext(ctx, query,
		report.ReportID,
		report.RunID,
		report.DocumentID,
		string(report.AnalysisType),
		reportJSON,
		report.GeneratedAt,
	)
	if err != nil {
		return fmt.Errorf("save report: %w", err)
	}
	return nil
}

// GetReport retrieves a stored report by ID
func (s *RunStore) GetReport(ctx context.Context, reportID string) (*domain.AnalysisReport, error) {
	var reportJSON []byte
	query := `SELECT report FROM analysis_reports WHERE report_id = $1`

	err := s.db.QueryRowContext(ctx, query, reportID).Scan(&reportJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get report: %w", err)
	}

	var report domain.AnalysisReport
	if err := json.Unmarshal(reportJSON, &report); err != nil {
		return nil, fmt.Errorf("unmarshal report: %w", err)
	}
	return &report, nil
}

// ListRuns returns the most recent runs for a document, newest first
func (s *RunStore) ListRuns(ctx context.Context, documentID string, limit int) ([]*domain.PipelineRun, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT run_id, document_id, analysis_type, stage, iteration,
			draft_history, feedback_history, failed_reviewers, started_at, finished_at, error
		FROM pipeline_runs
		WHERE document_id = $1
		ORDER BY started_at DESC
		LIMIT $2
	`

	rows, err := s.db.QueryContext(ctx, query, documentID, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []*domain.PipelineRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

// Close is a no-op; the DB pool is shared and closed by its owner
func (s *RunStore) Close() error {
	return nil
}

func scanRun(rows *sql.Rows) (*domain.PipelineRun, error) {
	var (
		run          domain.PipelineRun
		analysisType string
		stage        string
		draftJSON    []byte
		feedbackJSON []byte
		failedJSON   []byte
		finishedAt   sql.NullTime
	)

	err := rows.Scan(
		&run.RunID,
		&run.DocumentID,
		&analysisType,
		&stage,
		&run.Iteration,
		&draftJSON,
		&feedbackJSON,
		&failedJSON,
		&run.StartedAt,
		&finishedAt,
		&run.Error,
	)
	if err != nil {
		return nil, fmt.Errorf("scan run: %w", err)
	}

	run.AnalysisType = domain.AnalysisType(analysisType)
	run.Stage = domain.PipelineStage(stage)
	run.FinishedAt = TimePtr(finishedAt)

	if err := json.Unmarshal(draftJSON, &run.DraftHistory); err != nil {
		return nil, fmt.Errorf("unmarshal draft history: %w", err)
	}
	if err := json.Unmarshal(feedbackJSON, &run.FeedbackHistory); err != nil {
		return nil, fmt.Errorf("unmarshal feedback history: %w", err)
	}
	if len(failedJSON) > 0 {
		if err := json.Unmarshal(failedJSON, &run.FailedReviewers); err != nil {
			return nil, fmt.Errorf("unmarshal failed reviewers: %w", err)
		}
	}

	return &run, nil
}
