package db

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/job-rematcher/internal/types"
)

// Execution is one persisted workflow run
type Execution struct {
	ID                    uuid.UUID             `json:"id"`
	CandidateID           uuid.UUID             `json:"candidate_id"`
	RejectedApplicationID uuid.UUID             `json:"rejected_application_id"`
	RejectedJobID         uuid.UUID             `json:"rejected_job_id"`
	Status                types.ExecutionStatus `json:"status"`
	State                 json.RawMessage       `json:"state,omitempty"`
	FinalAnalysis         *string               `json:"final_analysis,omitempty"`
	AnalysisSummary       *string               `json:"analysis_summary,omitempty"`
	MatchedJobIDs         []uuid.UUID           `json:"matched_job_ids"`
	Error                 *string               `json:"error,omitempty"`
	DurationMs            *int64                `json:"duration_ms,omitempty"`
	CreatedAt             time.Time             `json:"created_at"`
	StartedAt             *time.Time            `json:"started_at,omitempty"`
	CompletedAt           *time.Time            `json:"completed_at,omitempty"`
	UpdatedAt             time.Time             `json:"updated_at"`
}

// ExecutionInput holds the identifiers of a new execution
type ExecutionInput struct {
	ID            uuid.UUID
	CandidateID   uuid.UUID
	ApplicationID uuid.UUID
	JobID         uuid.UUID
}

// ExecutionPatch describes a partial update. Nil fields are left untouched.
type ExecutionPatch struct {
	Status          *types.ExecutionStatus
	State           json.RawMessage
	FinalAnalysis   *string
	AnalysisSummary *string
	MatchedJobIDs   []uuid.UUID
	Error           *string
	// MarkStarted stamps started_at unless an earlier attempt already did
	MarkStarted bool
	// MarkCompleted stamps completed_at and computes duration_ms from started_at
	MarkCompleted bool
}

// IsEmpty reports whether the patch would change nothing
func (p ExecutionPatch) IsEmpty() bool {
	return p.Status == nil && p.State == nil && p.FinalAnalysis == nil && p.AnalysisSummary == nil &&
		p.MatchedJobIDs == nil && p.Error == nil && !p.MarkStarted && !p.MarkCompleted
}

// MatchResult is one persisted consolidated match
type MatchResult struct {
	ID                  uuid.UUID                `json:"id"`
	WorkflowExecutionID uuid.UUID                `json:"workflow_execution_id"`
	JobID               uuid.UUID                `json:"job_id"`
	JobTitle            string                   `json:"job_title"`
	Company             string                   `json:"company"`
	Rank                int                      `json:"rank"`
	CompositeScore      float64                  `json:"composite_score"`
	HitCount            int                      `json:"hit_count"`
	SourceScores        map[types.Source]float64 `json:"source_scores"`
	CreatedAt           time.Time                `json:"created_at"`
}
