package workflow

import "github.com/jonathan/job-rematcher/internal/types"

// transitions lists the statuses reachable from each non-terminal status
var transitions = map[types.ExecutionStatus][]types.ExecutionStatus{
	types.StatusQueued:        {types.StatusParsing, types.StatusFailed},
	types.StatusParsing:       {types.StatusRetrieving, types.StatusFailed},
	types.StatusRetrieving:    {types.StatusConsolidating, types.StatusFailed},
	types.StatusConsolidating: {types.StatusAnalyzing, types.StatusCompleted, types.StatusFailed},
	types.StatusAnalyzing:     {types.StatusCompleted, types.StatusFailed},
}

// CanTransition reports whether the state machine allows moving from one status to another
func CanTransition(from, to types.ExecutionStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
