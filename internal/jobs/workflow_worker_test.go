package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/jonathan/job-rematcher/internal/db"
	"github.com/jonathan/job-rematcher/internal/types"
	"github.com/jonathan/job-rematcher/internal/workflow"
)

type fakeRunner struct {
	state workflow.State
	err   error
	calls []workflow.Input
}

func (f *fakeRunner) Run(_ context.Context, in workflow.Input) (workflow.State, error) {
	f.calls = append(f.calls, in)
	return f.state, f.err
}

type fakeExecStore struct {
	exec    *db.Execution
	getErr  error
	patches []db.ExecutionPatch
}

func (f *fakeExecStore) GetExecution(context.Context, uuid.UUID) (*db.Execution, error) {
	return f.exec, f.getErr
}

func (f *fakeExecStore) UpdateExecution(_ context.Context, _ uuid.UUID, patch db.ExecutionPatch) error {
	f.patches = append(f.patches, patch)
	return nil
}

func rematchArgs() RematchArgs {
	return RematchArgs{
		ExecutionID:   uuid.New(),
		CandidateID:   uuid.New(),
		ApplicationID: uuid.New(),
		JobID:         uuid.New(),
		CVText:        "Go engineer",
	}
}

func execWithStatus(status types.ExecutionStatus) *db.Execution {
	return &db.Execution{ID: uuid.New(), Status: status}
}

func TestRematchWorker_RunsExecution(t *testing.T) {
	runner := &fakeRunner{state: workflow.State{Status: types.StatusCompleted}}
	store := &fakeExecStore{exec: execWithStatus(types.StatusQueued)}
	w := NewRematchWorker(runner, store, nil, 0, nil)

	args := rematchArgs()
	require.NoError(t, w.process(context.Background(), args, 1, 3))

	require.Len(t, runner.calls, 1)
	in := runner.calls[0]
	assert.Equal(t, args.ExecutionID, in.ExecutionID)
	assert.Equal(t, args.JobID, in.RejectedJobID)
	assert.Equal(t, "Go engineer", in.CVText)
	assert.False(t, in.FinalAttempt)
	assert.Empty(t, store.patches)
}

func TestRematchWorker_MissingExecutionCancels(t *testing.T) {
	runner := &fakeRunner{}
	w := NewRematchWorker(runner, &fakeExecStore{}, nil, 0, nil)

	err := w.process(context.Background(), rematchArgs(), 1, 3)

	var notFound *workflow.NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "execution", notFound.Resource)
	assert.Empty(t, runner.calls)
}

func TestRematchWorker_TerminalExecutionIsNoop(t *testing.T) {
	for _, status := range []types.ExecutionStatus{types.StatusCompleted, types.StatusFailed} {
		runner := &fakeRunner{}
		w := NewRematchWorker(runner, &fakeExecStore{exec: execWithStatus(status)}, nil, 0, nil)

		assert.NoError(t, w.process(context.Background(), rematchArgs(), 1, 3), status)
		assert.Empty(t, runner.calls, status)
	}
}

func TestRematchWorker_LoadFailureIsRetryable(t *testing.T) {
	w := NewRematchWorker(&fakeRunner{}, &fakeExecStore{getErr: errors.New("pool exhausted")}, nil, 0, nil)

	err := w.process(context.Background(), rematchArgs(), 1, 3)

	var persistErr *workflow.PersistenceError
	require.ErrorAs(t, err, &persistErr)
	assert.True(t, workflow.IsRetryable(err))
}

func TestRematchWorker_RetryableFailureBeforeFinalAttempt(t *testing.T) {
	cause := &workflow.CollaboratorError{Stage: types.StatusParsing, Message: "timeout"}
	runner := &fakeRunner{state: workflow.State{Status: types.StatusParsing}, err: cause}
	store := &fakeExecStore{exec: execWithStatus(types.StatusParsing)}
	w := NewRematchWorker(runner, store, nil, 0, nil)

	err := w.process(context.Background(), rematchArgs(), 2, 3)

	assert.Same(t, cause, err)
	assert.Empty(t, store.patches, "row is left for the next attempt")
}

func TestRematchWorker_FinalAttemptFlag(t *testing.T) {
	runner := &fakeRunner{state: workflow.State{Status: types.StatusCompleted}}
	w := NewRematchWorker(runner, &fakeExecStore{exec: execWithStatus(types.StatusQueued)}, nil, 0, nil)

	require.NoError(t, w.process(context.Background(), rematchArgs(), 3, 3))
	assert.True(t, runner.calls[0].FinalAttempt)
}

func TestRematchWorker_MarksFailedWhenMachineCouldNot(t *testing.T) {
	cause := &workflow.PersistenceError{Op: "persist failed", Cause: errors.New("deadline exceeded")}
	runner := &fakeRunner{state: workflow.State{Status: types.StatusAnalyzing}, err: cause}
	store := &fakeExecStore{exec: execWithStatus(types.StatusQueued)}
	w := NewRematchWorker(runner, store, nil, 0, nil)

	err := w.process(context.Background(), rematchArgs(), 3, 3)
	assert.ErrorIs(t, err, cause)

	require.Len(t, store.patches, 1)
	patch := store.patches[0]
	require.NotNil(t, patch.Status)
	assert.Equal(t, types.StatusFailed, *patch.Status)
	require.NotNil(t, patch.Error)
	assert.Contains(t, *patch.Error, "deadline exceeded")
	assert.True(t, patch.MarkCompleted)
}

func TestRematchWorker_NonRetryableFailureAlreadyPersisted(t *testing.T) {
	cause := &workflow.ValidationError{Field: "cv_text", Message: "CV produced an empty profile"}
	runner := &fakeRunner{state: workflow.State{Status: types.StatusFailed}, err: cause}
	store := &fakeExecStore{exec: execWithStatus(types.StatusQueued)}
	w := NewRematchWorker(runner, store, nil, 0, nil)

	err := w.process(context.Background(), rematchArgs(), 1, 3)

	var validationErr *workflow.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.NotSame(t, cause, err, "non-retryable failures are wrapped as a cancellation")
	assert.Empty(t, store.patches, "the state machine already wrote the failed row")
}

func TestRematchWorker_RateLimiterHonoursContext(t *testing.T) {
	limiter := rate.NewLimiter(rate.Every(time.Hour), 1)
	require.True(t, limiter.Allow(), "drain the only token")

	runner := &fakeRunner{}
	w := NewRematchWorker(runner, &fakeExecStore{exec: execWithStatus(types.StatusQueued)}, limiter, 0, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := w.process(ctx, rematchArgs(), 1, 3)
	require.Error(t, err)
	assert.Empty(t, runner.calls)
}

func TestRematchWorker_Timeout(t *testing.T) {
	assert.Equal(t, DefaultJobTimeout, NewRematchWorker(nil, nil, nil, 0, nil).Timeout(nil))
	assert.Equal(t, time.Minute, NewRematchWorker(nil, nil, nil, time.Minute, nil).Timeout(nil))
}
