package jobs

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/riverqueue/river"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/jonathan/job-rematcher/internal/db"
	"github.com/jonathan/job-rematcher/internal/logging"
	"github.com/jonathan/job-rematcher/internal/types"
	"github.com/jonathan/job-rematcher/internal/workflow"
)

const (
	// DefaultJobTimeout bounds one attempt when no timeout is configured
	DefaultJobTimeout = 5 * time.Minute
	markFailedTimeout = 10 * time.Second
)

// Runner executes one attempt of a workflow execution
type Runner interface {
	Run(ctx context.Context, in workflow.Input) (workflow.State, error)
}

// ExecutionStore reads execution rows and records terminal failures the state machine could not write
type ExecutionStore interface {
	GetExecution(ctx context.Context, id uuid.UUID) (*db.Execution, error)
	UpdateExecution(ctx context.Context, id uuid.UUID, patch db.ExecutionPatch) error
}

// RematchWorker runs workflow executions pulled from the workflow queue
type RematchWorker struct {
	river.WorkerDefaults[RematchArgs]
	runner  Runner
	store   ExecutionStore
	limiter *rate.Limiter
	timeout time.Duration
	logger  *zap.Logger
}

// NewRematchWorker creates the workflow worker. A nil limiter disables backpressure.
func NewRematchWorker(runner Runner, store ExecutionStore, limiter *rate.Limiter, timeout time.Duration, logger *zap.Logger) *RematchWorker {
	if timeout <= 0 {
		timeout = DefaultJobTimeout
	}
	return &RematchWorker{
		runner:  runner,
		store:   store,
		limiter: limiter,
		timeout: timeout,
		logger:  logging.OrNop(logger).Named("jobs"),
	}
}

// Timeout bounds one attempt
func (w *RematchWorker) Timeout(*river.Job[RematchArgs]) time.Duration {
	return w.timeout
}

// Work runs one attempt of the execution named by the job
func (w *RematchWorker) Work(ctx context.Context, job *river.Job[RematchArgs]) error {
	return w.process(ctx, job.Args, job.Attempt, job.MaxAttempts)
}

func (w *RematchWorker) process(ctx context.Context, args RematchArgs, attempt, maxAttempts int) error {
	log := w.logger.With(
		zap.String(logging.FieldExecutionID, args.ExecutionID.String()),
		zap.Int(logging.FieldAttempt, attempt))

	if w.limiter != nil {
		if err := w.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	exec, err := w.store.GetExecution(ctx, args.ExecutionID)
	if err != nil {
		return &workflow.PersistenceError{Op: "load execution", Cause: err}
	}
	if exec == nil {
		log.Warn("execution row missing, cancelling job")
		return river.JobCancel(&workflow.NotFoundError{Resource: "execution", ID: args.ExecutionID.String()})
	}
	if exec.Status.IsTerminal() {
		log.Info("execution already terminal, nothing to do", zap.String("status", string(exec.Status)))
		return nil
	}

	final := attempt >= maxAttempts
	state, err := w.runner.Run(ctx, workflow.Input{
		ExecutionID:   args.ExecutionID,
		CandidateID:   args.CandidateID,
		ApplicationID: args.ApplicationID,
		RejectedJobID: args.JobID,
		CVText:        args.CVText,
		FinalAttempt:  final,
	})
	if err == nil {
		return nil
	}

	retryable := workflow.IsRetryable(err)
	if !retryable || final {
		if state.Status != types.StatusFailed {
			w.markFailed(ctx, log, args.ExecutionID, err)
		}
		if !retryable {
			return river.JobCancel(err)
		}
		log.Error("final attempt failed", zap.Error(err))
		return err
	}

	log.Warn("attempt failed, queue will retry", zap.Error(err))
	return err
}

// markFailed records a terminal failure when the state machine could not. It runs detached from
// the job context, which may already be past its deadline.
func (w *RematchWorker) markFailed(ctx context.Context, log *zap.Logger, id uuid.UUID, cause error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), markFailedTimeout)
	defer cancel()

	status := types.StatusFailed
	message := cause.Error()
	err := w.store.UpdateExecution(ctx, id, db.ExecutionPatch{
		Status:        &status,
		Error:         &message,
		MarkCompleted: true,
	})
	if err != nil {
		log.Error("failed to mark execution failed", zap.Error(err), zap.NamedError("cause", cause))
	}
}
