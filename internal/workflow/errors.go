package workflow

import (
	"errors"
	"fmt"

	"github.com/jonathan/job-rematcher/internal/types"
)

// ValidationError reports bad input. It is never retried.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation error in %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

// NotFoundError reports a missing execution, candidate, application or job. It is terminal.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// CollaboratorError wraps a failed call to the parser, embedder, vector index or narrative generator.
// The queue retries it up to the attempt cap.
type CollaboratorError struct {
	Stage   types.ExecutionStatus
	Message string
	Cause   error
}

func (e *CollaboratorError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s stage failed: %s: %v", e.Stage, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s stage failed: %s", e.Stage, e.Message)
}

func (e *CollaboratorError) Unwrap() error {
	return e.Cause
}

// PersistenceError wraps a failed store write. The attempt is abandoned and the queue retries the job.
type PersistenceError struct {
	Op    string
	Cause error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence error during %s: %v", e.Op, e.Cause)
}

func (e *PersistenceError) Unwrap() error {
	return e.Cause
}

// TransitionError reports a transition the state machine does not allow
type TransitionError struct {
	From    types.ExecutionStatus
	To      types.ExecutionStatus
	Message string
}

func (e *TransitionError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("invalid transition %s -> %s: %s", e.From, e.To, e.Message)
	}
	return fmt.Sprintf("invalid transition %s -> %s", e.From, e.To)
}

// IsRetryable reports whether the queue should try the job again
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var validationErr *ValidationError
	var notFoundErr *NotFoundError
	var transitionErr *TransitionError
	switch {
	case errors.As(err, &validationErr), errors.As(err, &notFoundErr), errors.As(err, &transitionErr):
		return false
	}
	return true
}
