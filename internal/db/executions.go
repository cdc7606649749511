package db

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jonathan/job-rematcher/internal/types"
)

// -----------------------------------------------------------------------------
// Workflow Execution Methods
// -----------------------------------------------------------------------------

const executionColumns = `id, candidate_id, rejected_application_id, rejected_job_id, status, state,
	final_analysis, analysis_summary, matched_job_ids, error, duration_ms,
	created_at, started_at, completed_at, updated_at`

func scanExecution(row pgx.Row) (*Execution, error) {
	var e Execution
	err := row.Scan(&e.ID, &e.CandidateID, &e.RejectedApplicationID, &e.RejectedJobID, &e.Status, &e.State,
		&e.FinalAnalysis, &e.AnalysisSummary, &e.MatchedJobIDs, &e.Error, &e.DurationMs,
		&e.CreatedAt, &e.StartedAt, &e.CompletedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// CreateExecution inserts a queued execution. When a row already exists for the same id or the
// same (candidate, application) pair, the existing row is returned and created is false.
func (db *DB) CreateExecution(ctx context.Context, input *ExecutionInput) (exec *Execution, created bool, err error) {
	id := input.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	exec, err = scanExecution(db.pool.QueryRow(ctx,
		`INSERT INTO workflow_executions (id, candidate_id, rejected_application_id, rejected_job_id, status)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT DO NOTHING
		 RETURNING `+executionColumns,
		id, input.CandidateID, input.ApplicationID, input.JobID, types.StatusQueued,
	))
	if err == nil {
		return exec, true, nil
	}
	if err != pgx.ErrNoRows {
		return nil, false, fmt.Errorf("failed to create execution: %w", err)
	}

	exec, err = scanExecution(db.pool.QueryRow(ctx,
		`SELECT `+executionColumns+`
		 FROM workflow_executions
		 WHERE id = $1 OR (candidate_id = $2 AND rejected_application_id = $3)
		 ORDER BY (id = $1) DESC
		 LIMIT 1`,
		id, input.CandidateID, input.ApplicationID,
	))
	if err != nil {
		return nil, false, fmt.Errorf("failed to load existing execution: %w", err)
	}
	return exec, false, nil
}

// GetExecution retrieves an execution by ID, returning nil when it does not exist
func (db *DB) GetExecution(ctx context.Context, id uuid.UUID) (*Execution, error) {
	exec, err := scanExecution(db.pool.QueryRow(ctx,
		`SELECT `+executionColumns+` FROM workflow_executions WHERE id = $1`, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get execution: %w", err)
	}
	return exec, nil
}

// ExecutionFilters holds optional filters for listing executions
type ExecutionFilters struct {
	CandidateID uuid.UUID
	Status      types.ExecutionStatus
	Limit       int
}

// ListExecutions retrieves recent executions with optional filters
func (db *DB) ListExecutions(ctx context.Context, filters ExecutionFilters) ([]Execution, error) {
	if filters.Limit <= 0 {
		filters.Limit = 50
	}

	query := `SELECT ` + executionColumns + ` FROM workflow_executions WHERE 1=1`
	args := []any{}
	argPos := 1

	if filters.CandidateID != uuid.Nil {
		query += fmt.Sprintf(" AND candidate_id = $%d", argPos)
		args = append(args, filters.CandidateID)
		argPos++
	}
	if filters.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argPos)
		args = append(args, filters.Status)
		argPos++
	}

	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", argPos)
	args = append(args, filters.Limit)

	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list executions: %w", err)
	}
	defer rows.Close()

	var executions []Execution
	for rows.Next() {
		exec, err := scanExecution(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan execution: %w", err)
		}
		executions = append(executions, *exec)
	}
	return executions, rows.Err()
}

// UpdateExecution applies a partial update in a single statement
func (db *DB) UpdateExecution(ctx context.Context, id uuid.UUID, patch ExecutionPatch) error {
	return updateExecution(ctx, db.pool, id, patch)
}

// UpdateExecutionWithMatches replaces the execution's match results and applies the patch atomically
func (db *DB) UpdateExecutionWithMatches(ctx context.Context, id uuid.UUID, patch ExecutionPatch, matches []types.ConsolidatedMatch) error {
	return db.withTx(ctx, func(tx pgx.Tx) error {
		if err := replaceMatchResults(ctx, tx, id, matches); err != nil {
			return err
		}
		return updateExecution(ctx, tx, id, patch)
	})
}

func updateExecution(ctx context.Context, q querier, id uuid.UUID, patch ExecutionPatch) error {
	if patch.IsEmpty() {
		return nil
	}

	query, args := buildExecutionUpdate(id, patch)
	result, err := q.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update execution: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("execution %s: %w", id, ErrNotFound)
	}
	return nil
}

// buildExecutionUpdate renders the UPDATE statement for a patch
func buildExecutionUpdate(id uuid.UUID, patch ExecutionPatch) (string, []any) {
	sets := []string{}
	args := []any{}
	argPos := 1

	add := func(column string, value any) {
		sets = append(sets, fmt.Sprintf("%s = $%d", column, argPos))
		args = append(args, value)
		argPos++
	}

	if patch.Status != nil {
		add("status", string(*patch.Status))
	}
	if patch.State != nil {
		add("state", []byte(patch.State))
	}
	if patch.FinalAnalysis != nil {
		add("final_analysis", *patch.FinalAnalysis)
	}
	if patch.AnalysisSummary != nil {
		add("analysis_summary", *patch.AnalysisSummary)
	}
	if patch.MatchedJobIDs != nil {
		add("matched_job_ids", patch.MatchedJobIDs)
	}
	if patch.Error != nil {
		add("error", *patch.Error)
	}
	if patch.MarkStarted {
		sets = append(sets, "started_at = COALESCE(started_at, NOW())")
	}
	if patch.MarkCompleted {
		sets = append(sets,
			"completed_at = NOW()",
			"duration_ms = (EXTRACT(EPOCH FROM (NOW() - COALESCE(started_at, created_at))) * 1000)::BIGINT")
	}
	sets = append(sets, "updated_at = NOW()")

	query := fmt.Sprintf("UPDATE workflow_executions SET %s WHERE id = $%d", strings.Join(sets, ", "), argPos)
	args = append(args, id)
	return query, args
}

// -----------------------------------------------------------------------------
// Match Result Methods
// -----------------------------------------------------------------------------

func replaceMatchResults(ctx context.Context, q querier, id uuid.UUID, matches []types.ConsolidatedMatch) error {
	if _, err := q.Exec(ctx, `DELETE FROM match_results WHERE workflow_execution_id = $1`, id); err != nil {
		return fmt.Errorf("failed to clear match results: %w", err)
	}

	for _, m := range matches {
		scoresJSON, err := json.Marshal(m.SourceScores)
		if err != nil {
			return fmt.Errorf("failed to marshal source scores: %w", err)
		}
		_, err = q.Exec(ctx,
			`INSERT INTO match_results (workflow_execution_id, job_id, rank, composite_score, hit_count, source_scores)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			id, m.JobID, m.Rank, m.CompositeScore, m.HitCount, scoresJSON,
		)
		if err != nil {
			return fmt.Errorf("failed to save match result for job %s: %w", m.JobID, err)
		}
	}
	return nil
}

// ListMatchResults returns the persisted matches of an execution in rank order
func (db *DB) ListMatchResults(ctx context.Context, id uuid.UUID) ([]MatchResult, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT m.id, m.workflow_execution_id, m.job_id, COALESCE(j.title, ''), COALESCE(j.company, ''),
		        m.rank, m.composite_score, m.hit_count, m.source_scores, m.created_at
		 FROM match_results m
		 LEFT JOIN jobs j ON j.id = m.job_id
		 WHERE m.workflow_execution_id = $1
		 ORDER BY m.rank`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list match results: %w", err)
	}
	defer rows.Close()

	var results []MatchResult
	for rows.Next() {
		var r MatchResult
		var scoresJSON []byte
		if err := rows.Scan(&r.ID, &r.WorkflowExecutionID, &r.JobID, &r.JobTitle, &r.Company,
			&r.Rank, &r.CompositeScore, &r.HitCount, &scoresJSON, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan match result: %w", err)
		}
		if r.SourceScores, err = decodeSourceScores(scoresJSON); err != nil {
			return nil, fmt.Errorf("failed to decode source scores of match %s: %w", r.ID, err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// decodeSourceScores reads the source_scores column; NULL yields a nil map
func decodeSourceScores(raw []byte) (map[types.Source]float64, error) {
	if raw == nil {
		return nil, nil
	}
	var scores map[types.Source]float64
	if err := json.Unmarshal(raw, &scores); err != nil {
		return nil, err
	}
	return scores, nil
}
