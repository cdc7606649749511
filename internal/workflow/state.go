package workflow

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"

	"github.com/jonathan/job-rematcher/internal/types"
)

// State is the in-memory view of one execution. It is never mutated; Apply returns a new value.
type State struct {
	ExecutionID   uuid.UUID                                `json:"execution_id"`
	CandidateID   uuid.UUID                                `json:"candidate_id"`
	ApplicationID uuid.UUID                                `json:"application_id"`
	RejectedJobID uuid.UUID                                `json:"rejected_job_id"`
	Status        types.ExecutionStatus                    `json:"status"`
	Profile       *types.ParsedProfile                     `json:"profile,omitempty"`
	Retrieved     map[types.Source][]types.RetrievalMatch `json:"retrieved,omitempty"`
	BranchErrors  []types.BranchError                      `json:"branch_errors,omitempty"`
	Matches       []types.ConsolidatedMatch                `json:"matches,omitempty"`
	Analysis      string                                   `json:"analysis,omitempty"`
	Summary       string                                   `json:"summary,omitempty"`
	Error         string                                   `json:"error,omitempty"`
}

// NewState returns the queued state of a fresh attempt
func NewState(in Input) State {
	return State{
		ExecutionID:   in.ExecutionID,
		CandidateID:   in.CandidateID,
		ApplicationID: in.ApplicationID,
		RejectedJobID: in.RejectedJobID,
		Status:        types.StatusQueued,
	}
}

// Snapshot serializes the state for the execution row
func (s State) Snapshot() (json.RawMessage, error) {
	return json.Marshal(s)
}

// StageOutput carries the target status and the fields the finishing stage owns.
// Fields a stage does not own must be left zero.
type StageOutput struct {
	To           types.ExecutionStatus
	Profile      *types.ParsedProfile
	Retrieved    map[types.Source][]types.RetrievalMatch
	BranchErrors []types.BranchError
	Matches      []types.ConsolidatedMatch
	Analysis     string
	Summary      string
	Error        string
}

// Claimed is the output of a worker picking up the job
func Claimed() StageOutput {
	return StageOutput{To: types.StatusParsing}
}

// Parsed is the output of a successful CV parse
func Parsed(profile *types.ParsedProfile) StageOutput {
	return StageOutput{To: types.StatusRetrieving, Profile: profile}
}

// Retrieved is the output of the joined retrieval branches
func Retrieved(matches map[types.Source][]types.RetrievalMatch, branchErrors []types.BranchError) StageOutput {
	return StageOutput{To: types.StatusConsolidating, Retrieved: matches, BranchErrors: branchErrors}
}

// Consolidated is the output of ranking. An empty list completes the run with the given fallback analysis.
func Consolidated(matches []types.ConsolidatedMatch, noMatchesAnalysis string) StageOutput {
	if len(matches) == 0 {
		return StageOutput{
			To:       types.StatusCompleted,
			Matches:  []types.ConsolidatedMatch{},
			Analysis: noMatchesAnalysis,
			Summary:  noMatchesAnalysis,
		}
	}
	return StageOutput{To: types.StatusAnalyzing, Matches: matches}
}

// Analyzed is the output of the narrative generator
func Analyzed(analysis, summary string) StageOutput {
	return StageOutput{To: types.StatusCompleted, Analysis: analysis, Summary: summary}
}

// Failed moves the execution to its absorbing failure state
func Failed(message string) StageOutput {
	return StageOutput{To: types.StatusFailed, Error: message}
}

// Apply validates the transition and returns the next state. The receiver is left untouched.
func (s State) Apply(out StageOutput) (State, error) {
	from := s.Status
	if !CanTransition(from, out.To) {
		return s, &TransitionError{From: from, To: out.To}
	}
	if err := checkOwnership(from, out); err != nil {
		return s, err
	}

	next := s
	next.Status = out.To

	switch {
	case out.To == types.StatusFailed:
		next.Error = out.Error
	case from == types.StatusParsing:
		next.Profile = out.Profile
	case from == types.StatusRetrieving:
		next.Retrieved = copyRetrieved(out.Retrieved)
		next.BranchErrors = append([]types.BranchError(nil), out.BranchErrors...)
	case from == types.StatusConsolidating:
		next.Matches = append([]types.ConsolidatedMatch{}, out.Matches...)
		next.Analysis = out.Analysis
		next.Summary = out.Summary
	case from == types.StatusAnalyzing:
		next.Analysis = out.Analysis
		next.Summary = out.Summary
	}
	return next, nil
}

// checkOwnership rejects outputs that set fields the finishing stage does not own
func checkOwnership(from types.ExecutionStatus, out StageOutput) error {
	reject := func(msg string) error {
		return &TransitionError{From: from, To: out.To, Message: msg}
	}

	if out.To == types.StatusFailed {
		if strings.TrimSpace(out.Error) == "" {
			return reject("failure requires an error message")
		}
		return nil
	}
	if out.Error != "" {
		return reject("only failures carry an error")
	}
	if out.Profile != nil && from != types.StatusParsing {
		return reject("profile is owned by parsing")
	}
	if from == types.StatusParsing && out.Profile == nil {
		return reject("parsing must produce a profile")
	}
	if (out.Retrieved != nil || out.BranchErrors != nil) && from != types.StatusRetrieving {
		return reject("retrieval results are owned by retrieving")
	}
	if out.Matches != nil && from != types.StatusConsolidating {
		return reject("matches are owned by consolidating")
	}
	if (out.Analysis != "" || out.Summary != "") && out.To != types.StatusCompleted {
		return reject("analysis is only written on completion")
	}
	if out.To == types.StatusCompleted && strings.TrimSpace(out.Analysis) == "" {
		return reject("completion requires an analysis")
	}
	return nil
}

func copyRetrieved(in map[types.Source][]types.RetrievalMatch) map[types.Source][]types.RetrievalMatch {
	out := make(map[types.Source][]types.RetrievalMatch, len(in))
	for source, matches := range in {
		out[source] = append([]types.RetrievalMatch(nil), matches...)
	}
	return out
}
