package types

// ExecutionStatus is the position of a workflow execution in its state machine
type ExecutionStatus string

const (
	StatusQueued        ExecutionStatus = "queued"
	StatusParsing       ExecutionStatus = "parsing"
	StatusRetrieving    ExecutionStatus = "retrieving"
	StatusConsolidating ExecutionStatus = "consolidating"
	StatusAnalyzing     ExecutionStatus = "analyzing"
	StatusCompleted     ExecutionStatus = "completed"
	StatusFailed        ExecutionStatus = "failed"
)

// IsTerminal reports whether no further transition can leave this status
func (s ExecutionStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Valid reports whether s is a known status
func (s ExecutionStatus) Valid() bool {
	switch s {
	case StatusQueued, StatusParsing, StatusRetrieving, StatusConsolidating,
		StatusAnalyzing, StatusCompleted, StatusFailed:
		return true
	}
	return false
}
