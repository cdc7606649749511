package server

import (
	"errors"
	"net/http"

	"github.com/jonathan/job-rematcher/internal/workflow"
)

// ErrBadRequest reports a request the server could not decode
type ErrBadRequest struct {
	Message string
}

func (e *ErrBadRequest) Error() string {
	return "bad request: " + e.Message
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var badRequest *ErrBadRequest
	var validationErr *workflow.ValidationError
	var notFoundErr *workflow.NotFoundError

	switch {
	case errors.As(err, &badRequest), errors.As(err, &validationErr):
		return http.StatusBadRequest
	case errors.As(err, &notFoundErr):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// publicMessage hides internal failure detail from clients
func publicMessage(err error, status int) string {
	if status == http.StatusInternalServerError {
		return "internal server error"
	}
	return err.Error()
}
