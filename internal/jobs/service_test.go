package jobs

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/job-rematcher/internal/db"
	"github.com/jonathan/job-rematcher/internal/types"
	"github.com/jonathan/job-rematcher/internal/workflow"
)

// fakeQueue mimics River's by-args uniqueness on the args' unique key
type fakeQueue struct {
	inserts []river.JobArgs
	opts    []*river.InsertOpts
	seen    map[string]int64
	nextID  int64
	err     error
}

func (f *fakeQueue) Insert(_ context.Context, args river.JobArgs, opts *river.InsertOpts) (*rivertype.JobInsertResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.seen == nil {
		f.seen = map[string]int64{}
	}
	key := args.Kind()
	switch a := args.(type) {
	case RematchArgs:
		key += a.ExecutionID.String()
	case IndexJobArgs:
		key += a.JobID.String()
	}
	if id, ok := f.seen[key]; ok {
		return &rivertype.JobInsertResult{Job: &rivertype.JobRow{ID: id}, UniqueSkippedAsDuplicate: true}, nil
	}
	f.nextID++
	f.seen[key] = f.nextID
	f.inserts = append(f.inserts, args)
	f.opts = append(f.opts, opts)
	return &rivertype.JobInsertResult{Job: &rivertype.JobRow{ID: f.nextID}}, nil
}

// fakeServiceStore keeps executions keyed by id and enforces the (candidate, application) pair
type fakeServiceStore struct {
	execs   map[uuid.UUID]*db.Execution
	matches map[uuid.UUID][]db.MatchResult
	jobs    map[uuid.UUID]*types.JobRecord
	err     error
}

func newFakeServiceStore() *fakeServiceStore {
	return &fakeServiceStore{
		execs:   map[uuid.UUID]*db.Execution{},
		matches: map[uuid.UUID][]db.MatchResult{},
		jobs:    map[uuid.UUID]*types.JobRecord{},
	}
}

func (f *fakeServiceStore) CreateExecution(_ context.Context, in *db.ExecutionInput) (*db.Execution, bool, error) {
	if f.err != nil {
		return nil, false, f.err
	}
	if e, ok := f.execs[in.ID]; ok {
		return e, false, nil
	}
	for _, e := range f.execs {
		if e.CandidateID == in.CandidateID && e.RejectedApplicationID == in.ApplicationID {
			return e, false, nil
		}
	}
	e := &db.Execution{
		ID:                    in.ID,
		CandidateID:           in.CandidateID,
		RejectedApplicationID: in.ApplicationID,
		RejectedJobID:         in.JobID,
		Status:                types.StatusQueued,
		MatchedJobIDs:         []uuid.UUID{},
	}
	f.execs[in.ID] = e
	return e, true, nil
}

func (f *fakeServiceStore) GetExecution(_ context.Context, id uuid.UUID) (*db.Execution, error) {
	return f.execs[id], f.err
}

func (f *fakeServiceStore) ListMatchResults(_ context.Context, id uuid.UUID) ([]db.MatchResult, error) {
	return f.matches[id], nil
}

func (f *fakeServiceStore) GetJob(_ context.Context, id uuid.UUID) (*types.JobRecord, error) {
	return f.jobs[id], nil
}

func enqueueRequest() types.EnqueueRequest {
	return types.EnqueueRequest{
		ExecutionID:   uuid.New(),
		CandidateID:   uuid.New(),
		ApplicationID: uuid.New(),
		JobID:         uuid.New(),
		CVText:        "Senior Go engineer with payments background.",
		Priority:      1,
	}
}

func TestService_Enqueue(t *testing.T) {
	store := newFakeServiceStore()
	queue := &fakeQueue{}
	svc := NewService(store, queue, 5, nil)

	req := enqueueRequest()
	res, err := svc.Enqueue(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, req.ExecutionID, res.ExecutionID)
	assert.Equal(t, types.StatusQueued, res.Status)
	assert.False(t, res.Duplicate)
	assert.Equal(t, int64(1), res.QueueJobID)

	require.Len(t, queue.inserts, 1)
	args := queue.inserts[0].(RematchArgs)
	assert.Equal(t, req.JobID, args.JobID)
	assert.Equal(t, req.CVText, args.CVText)

	opts := queue.opts[0]
	assert.Equal(t, QueueWorkflow, opts.Queue)
	assert.Equal(t, 1, opts.Priority)
	assert.Equal(t, 5, opts.MaxAttempts)
	assert.True(t, opts.UniqueOpts.ByArgs)
}

func TestService_EnqueueIsIdempotent(t *testing.T) {
	store := newFakeServiceStore()
	queue := &fakeQueue{}
	svc := NewService(store, queue, 3, nil)

	req := enqueueRequest()
	first, err := svc.Enqueue(context.Background(), req)
	require.NoError(t, err)
	second, err := svc.Enqueue(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, first.ExecutionID, second.ExecutionID)
	assert.Equal(t, first.QueueJobID, second.QueueJobID)
	assert.True(t, second.Duplicate)
	assert.Len(t, queue.inserts, 1, "no second run is queued")
}

func TestService_EnqueueCompletedExecutionIsNoop(t *testing.T) {
	store := newFakeServiceStore()
	queue := &fakeQueue{}
	svc := NewService(store, queue, 3, nil)

	req := enqueueRequest()
	_, err := svc.Enqueue(context.Background(), req)
	require.NoError(t, err)
	store.execs[req.ExecutionID].Status = types.StatusCompleted
	queue.seen = nil

	res, err := svc.Enqueue(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, res.Duplicate)
	assert.Equal(t, types.StatusCompleted, res.Status)
	assert.Len(t, queue.inserts, 1, "finished executions are never re-queued")
}

func TestService_EnqueueSamePairDifferentID(t *testing.T) {
	store := newFakeServiceStore()
	svc := NewService(store, &fakeQueue{}, 3, nil)

	req := enqueueRequest()
	first, err := svc.Enqueue(context.Background(), req)
	require.NoError(t, err)

	req.ExecutionID = uuid.New()
	second, err := svc.Enqueue(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, first.ExecutionID, second.ExecutionID)
	assert.True(t, second.Duplicate)
}

func TestService_EnqueueValidation(t *testing.T) {
	queue := &fakeQueue{}
	svc := NewService(newFakeServiceStore(), queue, 3, nil)

	req := enqueueRequest()
	req.CVText = ""
	_, err := svc.Enqueue(context.Background(), req)

	var validationErr *workflow.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "CVText", validationErr.Field)
	assert.Empty(t, queue.inserts)
}

func TestService_EnqueueStoreFailure(t *testing.T) {
	store := newFakeServiceStore()
	store.err = errors.New("connection refused")
	_, err := NewService(store, &fakeQueue{}, 3, nil).Enqueue(context.Background(), enqueueRequest())

	var persistErr *workflow.PersistenceError
	require.ErrorAs(t, err, &persistErr)
}

func TestService_SubmitDerivesExecutionID(t *testing.T) {
	svc := NewService(newFakeServiceStore(), &fakeQueue{}, 3, nil)

	req := types.SubmitRequest{
		CandidateID:   uuid.New(),
		ApplicationID: uuid.New(),
		JobID:         uuid.New(),
		CVText:        "Go engineer",
	}
	res, err := svc.Submit(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, ExecutionIDFor(req.CandidateID, req.ApplicationID), res.ExecutionID)

	again, err := svc.Submit(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, res.ExecutionID, again.ExecutionID)
	assert.True(t, again.Duplicate)
}

func TestExecutionIDFor(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	assert.Equal(t, ExecutionIDFor(a, b), ExecutionIDFor(a, b))
	assert.NotEqual(t, ExecutionIDFor(a, b), ExecutionIDFor(b, a))
	assert.Equal(t, uuid.Version(5), ExecutionIDFor(a, b).Version())
}

func TestService_GetStatus(t *testing.T) {
	store := newFakeServiceStore()
	svc := NewService(store, &fakeQueue{}, 3, nil)

	duration := int64(4200)
	analysis, summary := "# Memo", "Memo"
	id := uuid.New()
	store.execs[id] = &db.Execution{
		ID:              id,
		Status:          types.StatusCompleted,
		MatchedJobIDs:   []uuid.UUID{uuid.New(), uuid.New()},
		FinalAnalysis:   &analysis,
		AnalysisSummary: &summary,
		DurationMs:      &duration,
	}

	view, err := svc.GetStatus(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, types.StatusCompleted, view.Status)
	assert.Equal(t, 2, view.MatchCount)
	assert.True(t, view.HasAnalysis)
	assert.Equal(t, "Memo", view.Summary)
	assert.Equal(t, &duration, view.DurationMs)
	assert.Empty(t, view.Error)

	report, err := svc.Analysis(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "# Memo", report)
}

func TestService_NotFound(t *testing.T) {
	svc := NewService(newFakeServiceStore(), &fakeQueue{}, 3, nil)
	id := uuid.New()

	_, err := svc.GetStatus(context.Background(), id)
	var notFound *workflow.NotFoundError
	require.ErrorAs(t, err, &notFound)

	_, err = svc.Matches(context.Background(), id)
	require.ErrorAs(t, err, &notFound)

	_, err = svc.Analysis(context.Background(), id)
	require.ErrorAs(t, err, &notFound)
}

func TestService_MatchesNeverNil(t *testing.T) {
	store := newFakeServiceStore()
	id := uuid.New()
	store.execs[id] = &db.Execution{ID: id, Status: types.StatusFailed}

	matches, err := NewService(store, &fakeQueue{}, 3, nil).Matches(context.Background(), id)
	require.NoError(t, err)
	assert.NotNil(t, matches)
	assert.Empty(t, matches)
}

func TestService_IndexJob(t *testing.T) {
	store := newFakeServiceStore()
	queue := &fakeQueue{}
	svc := NewService(store, queue, 3, nil)

	jobID := uuid.New()
	_, err := svc.IndexJob(context.Background(), jobID)
	var notFound *workflow.NotFoundError
	require.ErrorAs(t, err, &notFound)

	store.jobs[jobID] = &types.JobRecord{ID: jobID, Title: "SRE"}
	queueID, err := svc.IndexJob(context.Background(), jobID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), queueID)
	require.Len(t, queue.inserts, 1)
	assert.Equal(t, IndexJobArgs{JobID: jobID}, queue.inserts[0])
	assert.Nil(t, queue.opts[0], "index jobs use the args' own insert options")

	_, err = svc.IndexJob(context.Background(), uuid.Nil)
	var validationErr *workflow.ValidationError
	require.ErrorAs(t, err, &validationErr)
}
