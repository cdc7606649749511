package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
	"go.uber.org/zap"

	"github.com/jonathan/job-rematcher/internal/db"
	"github.com/jonathan/job-rematcher/internal/logging"
	"github.com/jonathan/job-rematcher/internal/types"
	"github.com/jonathan/job-rematcher/internal/workflow"
)

// executionNamespace seeds the deterministic execution ids derived by Submit
var executionNamespace = uuid.MustParse("6f1c1f4e-3a52-4c1b-9a0e-1d6d2b7e9c41")

// Inserter is the part of the River client the service needs
type Inserter interface {
	Insert(ctx context.Context, args river.JobArgs, opts *river.InsertOpts) (*rivertype.JobInsertResult, error)
}

// ServiceStore is the persistence the service reads and seeds
type ServiceStore interface {
	CreateExecution(ctx context.Context, input *db.ExecutionInput) (*db.Execution, bool, error)
	GetExecution(ctx context.Context, id uuid.UUID) (*db.Execution, error)
	ListMatchResults(ctx context.Context, id uuid.UUID) ([]db.MatchResult, error)
	GetJob(ctx context.Context, id uuid.UUID) (*types.JobRecord, error)
}

// EnqueueResult reports what Enqueue did
type EnqueueResult struct {
	ExecutionID uuid.UUID             `json:"execution_id"`
	QueueJobID  int64                 `json:"queue_job_id,omitempty"`
	Status      types.ExecutionStatus `json:"status"`
	// Duplicate is true when the execution already existed or was already queued
	Duplicate bool `json:"duplicate"`
}

// StatusView is the pollable summary of one execution
type StatusView struct {
	ExecutionID uuid.UUID             `json:"execution_id"`
	Status      types.ExecutionStatus `json:"status"`
	MatchCount  int                   `json:"match_count"`
	HasAnalysis bool                  `json:"has_analysis"`
	Summary     string                `json:"summary,omitempty"`
	DurationMs  *int64                `json:"duration_ms,omitempty"`
	Error       string                `json:"error,omitempty"`
	CreatedAt   time.Time             `json:"created_at"`
	StartedAt   *time.Time            `json:"started_at,omitempty"`
	CompletedAt *time.Time            `json:"completed_at,omitempty"`
	UpdatedAt   time.Time             `json:"updated_at"`
}

// Service is the surface consumed by the HTTP layer and the CLI
type Service struct {
	store       ServiceStore
	queue       Inserter
	maxAttempts int
	logger      *zap.Logger
}

// NewService creates the service. maxAttempts caps retries of queued executions.
func NewService(store ServiceStore, queue Inserter, maxAttempts int, logger *zap.Logger) *Service {
	return &Service{
		store:       store,
		queue:       queue,
		maxAttempts: maxAttempts,
		logger:      logging.OrNop(logger).Named("service"),
	}
}

// ExecutionIDFor derives the execution id of a (candidate, application) pair
func ExecutionIDFor(candidateID, applicationID uuid.UUID) uuid.UUID {
	name := make([]byte, 0, 32)
	name = append(name, candidateID[:]...)
	name = append(name, applicationID[:]...)
	return uuid.NewSHA1(executionNamespace, name)
}

// Enqueue creates the execution row if absent and queues it. Re-enqueuing an execution that is
// queued, running or finished does not start a second run.
func (s *Service) Enqueue(ctx context.Context, req types.EnqueueRequest) (*EnqueueResult, error) {
	if err := req.Validate(); err != nil {
		return nil, toValidationError(err)
	}

	exec, created, err := s.store.CreateExecution(ctx, &db.ExecutionInput{
		ID:            req.ExecutionID,
		CandidateID:   req.CandidateID,
		ApplicationID: req.ApplicationID,
		JobID:         req.JobID,
	})
	if err != nil {
		return nil, &workflow.PersistenceError{Op: "create execution", Cause: err}
	}

	log := s.logger.With(zap.String(logging.FieldExecutionID, exec.ID.String()))
	result := &EnqueueResult{ExecutionID: exec.ID, Status: exec.Status, Duplicate: !created}

	if exec.Status.IsTerminal() {
		log.Info("execution already finished, not re-queued", zap.String("status", string(exec.Status)))
		return result, nil
	}

	args := RematchArgs{
		ExecutionID:   exec.ID,
		CandidateID:   exec.CandidateID,
		ApplicationID: exec.RejectedApplicationID,
		JobID:         exec.RejectedJobID,
		CVText:        req.CVText,
	}
	opts := args.InsertOpts()
	opts.Priority = ClampPriority(req.Priority)
	if s.maxAttempts > 0 {
		opts.MaxAttempts = s.maxAttempts
	}

	inserted, err := s.queue.Insert(ctx, args, &opts)
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue execution: %w", err)
	}

	result.QueueJobID = inserted.Job.ID
	result.Duplicate = result.Duplicate || inserted.UniqueSkippedAsDuplicate
	log.Info("execution enqueued",
		zap.Int64("queue_job_id", inserted.Job.ID),
		zap.Int("priority", opts.Priority),
		zap.Bool("duplicate", result.Duplicate))
	return result, nil
}

// Submit enqueues with an execution id derived from the candidate and application
func (s *Service) Submit(ctx context.Context, req types.SubmitRequest) (*EnqueueResult, error) {
	if err := req.Validate(); err != nil {
		return nil, toValidationError(err)
	}
	return s.Enqueue(ctx, types.EnqueueRequest{
		ExecutionID:   ExecutionIDFor(req.CandidateID, req.ApplicationID),
		CandidateID:   req.CandidateID,
		ApplicationID: req.ApplicationID,
		JobID:         req.JobID,
		CVText:        req.CVText,
		Priority:      req.Priority,
	})
}

// GetStatus returns the pollable view of an execution
func (s *Service) GetStatus(ctx context.Context, id uuid.UUID) (*StatusView, error) {
	exec, err := s.execution(ctx, id)
	if err != nil {
		return nil, err
	}

	view := &StatusView{
		ExecutionID: exec.ID,
		Status:      exec.Status,
		MatchCount:  len(exec.MatchedJobIDs),
		HasAnalysis: exec.FinalAnalysis != nil && *exec.FinalAnalysis != "",
		DurationMs:  exec.DurationMs,
		CreatedAt:   exec.CreatedAt,
		StartedAt:   exec.StartedAt,
		CompletedAt: exec.CompletedAt,
		UpdatedAt:   exec.UpdatedAt,
	}
	if exec.AnalysisSummary != nil {
		view.Summary = *exec.AnalysisSummary
	}
	if exec.Error != nil {
		view.Error = *exec.Error
	}
	return view, nil
}

// Analysis returns the markdown report of a completed execution, or "" while none exists
func (s *Service) Analysis(ctx context.Context, id uuid.UUID) (string, error) {
	exec, err := s.execution(ctx, id)
	if err != nil {
		return "", err
	}
	if exec.FinalAnalysis == nil {
		return "", nil
	}
	return *exec.FinalAnalysis, nil
}

// Matches lists the persisted matches of an execution in rank order
func (s *Service) Matches(ctx context.Context, id uuid.UUID) ([]db.MatchResult, error) {
	if _, err := s.execution(ctx, id); err != nil {
		return nil, err
	}
	matches, err := s.store.ListMatchResults(ctx, id)
	if err != nil {
		return nil, &workflow.PersistenceError{Op: "list match results", Cause: err}
	}
	if matches == nil {
		matches = []db.MatchResult{}
	}
	return matches, nil
}

// IndexJob queues a (re)build of one job's embeddings on the indexing queue
func (s *Service) IndexJob(ctx context.Context, jobID uuid.UUID) (int64, error) {
	if jobID == uuid.Nil {
		return 0, &workflow.ValidationError{Field: "job_id", Message: "is required"}
	}
	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return 0, &workflow.PersistenceError{Op: "load job", Cause: err}
	}
	if job == nil {
		return 0, &workflow.NotFoundError{Resource: "job", ID: jobID.String()}
	}

	inserted, err := s.queue.Insert(ctx, IndexJobArgs{JobID: jobID}, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to enqueue index job: %w", err)
	}
	s.logger.Info("index job enqueued",
		zap.String(logging.FieldJobID, jobID.String()),
		zap.Bool("duplicate", inserted.UniqueSkippedAsDuplicate))
	return inserted.Job.ID, nil
}

func (s *Service) execution(ctx context.Context, id uuid.UUID) (*db.Execution, error) {
	exec, err := s.store.GetExecution(ctx, id)
	if err != nil {
		return nil, &workflow.PersistenceError{Op: "load execution", Cause: err}
	}
	if exec == nil {
		return nil, &workflow.NotFoundError{Resource: "execution", ID: id.String()}
	}
	return exec, nil
}

// toValidationError reports the first failed field of a validator error
func toValidationError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return &workflow.ValidationError{Field: fe.Field(), Message: fmt.Sprintf("failed %q check", fe.Tag())}
	}
	return &workflow.ValidationError{Message: err.Error()}
}
