// Package workflow drives one re-matching execution through its state machine.
package workflow

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonathan/job-rematcher/internal/db"
	"github.com/jonathan/job-rematcher/internal/logging"
	"github.com/jonathan/job-rematcher/internal/metrics"
	"github.com/jonathan/job-rematcher/internal/narrative"
	"github.com/jonathan/job-rematcher/internal/parsing"
	"github.com/jonathan/job-rematcher/internal/ranking"
	"github.com/jonathan/job-rematcher/internal/retrieval"
	"github.com/jonathan/job-rematcher/internal/types"
)

// DefaultNarrativeTopN is how many ranked matches the narrative generator sees
const DefaultNarrativeTopN = 5

// CVParser turns free-text CVs into profiles
type CVParser interface {
	ParseCV(ctx context.Context, raw string) (*types.ParsedProfile, error)
}

// Retriever runs the joined facet searches
type Retriever interface {
	Retrieve(ctx context.Context, profile *types.ParsedProfile, rejectedJobID uuid.UUID) *retrieval.Result
}

// Narrator writes the recommendation memo
type Narrator interface {
	Generate(ctx context.Context, req narrative.Request) (*narrative.Report, error)
}

// Store persists transitions and serves the job records the narrator needs
type Store interface {
	UpdateExecution(ctx context.Context, id uuid.UUID, patch db.ExecutionPatch) error
	UpdateExecutionWithMatches(ctx context.Context, id uuid.UUID, patch db.ExecutionPatch, matches []types.ConsolidatedMatch) error
	GetJobsByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*types.JobRecord, error)
}

// Input identifies one attempt at an execution
type Input struct {
	ExecutionID   uuid.UUID
	CandidateID   uuid.UUID
	ApplicationID uuid.UUID
	RejectedJobID uuid.UUID
	CVText        string
	// FinalAttempt makes retryable stage failures terminal
	FinalAttempt bool
}

// Deps bundles the machine's collaborators
type Deps struct {
	Parser    CVParser
	Retriever Retriever
	Narrator  Narrator
	Store     Store
	Logger    *zap.Logger
	Metrics   metrics.Recorder
	// NarrativeTopN defaults to DefaultNarrativeTopN
	NarrativeTopN int
}

// Machine runs executions. It holds no per-execution state and is safe for concurrent use.
type Machine struct {
	parser    CVParser
	retriever Retriever
	narrator  Narrator
	store     Store
	logger    *zap.Logger
	metrics   metrics.Recorder
	topN      int
}

// NewMachine creates a state machine over the given collaborators
func NewMachine(deps Deps) *Machine {
	topN := deps.NarrativeTopN
	if topN <= 0 {
		topN = DefaultNarrativeTopN
	}
	recorder := deps.Metrics
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	return &Machine{
		parser:    deps.Parser,
		retriever: deps.Retriever,
		narrator:  deps.Narrator,
		store:     deps.Store,
		logger:    logging.OrNop(deps.Logger).Named("workflow"),
		metrics:   recorder,
		topN:      topN,
	}
}

// Run executes one attempt from queued to a terminal status. It returns the last persisted state.
//
// A retryable stage failure on a non-final attempt is returned without touching the row, so the
// queue can run the whole execution again. Otherwise a stage failure is persisted as failed and
// returned. Persistence errors are always returned as *PersistenceError.
func (m *Machine) Run(ctx context.Context, in Input) (State, error) {
	r := &run{
		Machine: m,
		in:      in,
		log:     m.logger.With(zap.String(logging.FieldExecutionID, in.ExecutionID.String())),
	}
	return r.execute(ctx)
}

type run struct {
	*Machine
	in  Input
	log *zap.Logger
}

func (r *run) execute(ctx context.Context) (State, error) {
	state := NewState(r.in)

	state, err := r.advance(ctx, state, Claimed(), time.Now())
	if err != nil {
		return state, err
	}

	// parsing
	start := time.Now()
	profile, err := r.parser.ParseCV(ctx, r.in.CVText)
	// Only a usable profile reaches retrieval, so failed branches alone never fail a run.
	if err == nil && !profile.Usable() {
		err = &ValidationError{Field: "cv_text", Message: "CV produced an empty profile"}
	}
	if err != nil {
		return r.abort(ctx, state, classifyParseError(err), start)
	}
	r.log.Debug("CV parsed",
		zap.String("validation_status", string(profile.ValidationStatus)),
		zap.String("summary", logging.Truncate(profile.Summary, 80)))
	if state, err = r.advance(ctx, state, Parsed(profile), start); err != nil {
		return state, err
	}

	// retrieving
	start = time.Now()
	result := r.retriever.Retrieve(ctx, state.Profile, r.in.RejectedJobID)
	if err := result.Err(); err != nil {
		r.log.Warn("retrieval continued with degraded branches",
			zap.Bool("all_failed", result.AllFailed()), zap.Error(err))
	}
	if state, err = r.advance(ctx, state, Retrieved(result.Matches, result.Errors), start); err != nil {
		return state, err
	}

	// consolidating
	start = time.Now()
	matches, err := ranking.Consolidate(result.Lists()...)
	if err != nil {
		return r.abort(ctx, state, &ValidationError{Field: "matches", Message: err.Error()}, start)
	}
	r.metrics.ObserveConsolidated(len(matches))
	if state, err = r.advance(ctx, state, Consolidated(matches, narrative.NoMatchesAnalysis()), start); err != nil {
		return state, err
	}
	if state.Status.IsTerminal() {
		return state, nil
	}

	// analyzing
	start = time.Now()
	report, err := r.analyze(ctx, state)
	if err != nil {
		return r.abort(ctx, state, err, start)
	}
	return r.advance(ctx, state, Analyzed(report.Markdown, report.Summary), start)
}

func (r *run) analyze(ctx context.Context, state State) (*narrative.Report, error) {
	top := ranking.Top(state.Matches, r.topN)

	ids := types.JobIDs(top)
	if r.in.RejectedJobID != uuid.Nil {
		ids = append(ids, r.in.RejectedJobID)
	}
	jobs, err := r.store.GetJobsByIDs(ctx, ids)
	if err != nil {
		return nil, &PersistenceError{Op: "load job records", Cause: err}
	}

	report, err := r.narrator.Generate(ctx, narrative.Request{
		Profile:     state.Profile,
		Matches:     top,
		Jobs:        jobs,
		RejectedJob: jobs[r.in.RejectedJobID],
	})
	if err != nil {
		return nil, &CollaboratorError{Stage: types.StatusAnalyzing, Message: "narrative generation failed", Cause: err}
	}
	return report, nil
}

// advance applies one stage output and persists the result in a single write
func (r *run) advance(ctx context.Context, state State, out StageOutput, stageStart time.Time) (State, error) {
	next, err := state.Apply(out)
	if err != nil {
		return state, err
	}

	patch, err := buildPatch(state.Status, next)
	if err != nil {
		return state, &PersistenceError{Op: "encode state", Cause: err}
	}

	if state.Status == types.StatusConsolidating && next.Status != types.StatusFailed {
		err = r.store.UpdateExecutionWithMatches(ctx, r.in.ExecutionID, patch, next.Matches)
	} else {
		err = r.store.UpdateExecution(ctx, r.in.ExecutionID, patch)
	}
	if err != nil {
		return state, &PersistenceError{Op: "persist " + string(next.Status), Cause: err}
	}

	duration := time.Since(stageStart)
	if state.Status != types.StatusQueued {
		outcome := metrics.OutcomeSuccess
		if next.Status == types.StatusFailed {
			outcome = metrics.OutcomeFailure
		}
		r.metrics.ObserveStage(state.Status, outcome, duration)
	}
	if next.Status.IsTerminal() {
		r.metrics.RecordExecution(next.Status)
	}

	r.log.Info("transition",
		zap.String("from", string(state.Status)),
		zap.String("to", string(next.Status)),
		zap.Duration("duration", duration))
	return next, nil
}

// abort ends the attempt after a stage failure
func (r *run) abort(ctx context.Context, state State, cause error, stageStart time.Time) (State, error) {
	if IsRetryable(cause) && !r.in.FinalAttempt {
		r.log.Warn("stage failed, leaving retry to the queue",
			zap.String(logging.FieldStage, string(state.Status)),
			zap.Error(cause))
		return state, cause
	}

	failed, err := r.advance(ctx, state, Failed(cause.Error()), stageStart)
	if err != nil {
		return state, err
	}
	r.log.Error("execution failed",
		zap.String(logging.FieldStage, string(state.Status)),
		zap.Error(cause))
	return failed, cause
}

// buildPatch renders the fields a transition from `from` into next writes
func buildPatch(from types.ExecutionStatus, next State) (db.ExecutionPatch, error) {
	snapshot, err := next.Snapshot()
	if err != nil {
		return db.ExecutionPatch{}, err
	}

	status := next.Status
	patch := db.ExecutionPatch{Status: &status, State: snapshot}

	if from == types.StatusQueued {
		patch.MarkStarted = true
	}
	if from == types.StatusConsolidating && next.Status != types.StatusFailed {
		patch.MatchedJobIDs = types.JobIDs(next.Matches)
	}
	switch next.Status {
	case types.StatusCompleted:
		analysis, summary := next.Analysis, next.Summary
		patch.FinalAnalysis = &analysis
		patch.AnalysisSummary = &summary
		patch.MarkCompleted = true
	case types.StatusFailed:
		message := next.Error
		patch.Error = &message
		patch.MarkCompleted = true
	}
	return patch, nil
}

// classifyParseError maps parser failures onto the workflow taxonomy
func classifyParseError(err error) error {
	var validationErr *parsing.ValidationError
	if errors.As(err, &validationErr) {
		return &ValidationError{Field: validationErr.Field, Message: validationErr.Message}
	}
	var wfValidationErr *ValidationError
	if errors.As(err, &wfValidationErr) {
		return err
	}
	return &CollaboratorError{Stage: types.StatusParsing, Message: "CV parsing failed", Cause: err}
}
