package parsing

import "fmt"

// APICallError reports a model call that failed while parsing a CV. Retrying may succeed.
type APICallError struct {
	Message string
	Cause   error
}

func (e *APICallError) Error() string { return describe("model call failed", e.Message, e.Cause) }

func (e *APICallError) Unwrap() error { return e.Cause }

// ParseError reports a model response that could not be turned into a profile.
// The model is not deterministic, so a retry may succeed.
type ParseError struct {
	Message string
	Cause   error
}

func (e *ParseError) Error() string { return describe("unusable CV profile response", e.Message, e.Cause) }

func (e *ParseError) Unwrap() error { return e.Cause }

// ValidationError reports input that no retry can fix
type ValidationError struct {
	Message string
	Field   string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid CV: " + e.Message
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func describe(kind, message string, cause error) string {
	if cause == nil {
		return kind + ": " + message
	}
	return fmt.Sprintf("%s: %s: %v", kind, message, cause)
}
