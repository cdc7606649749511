package types

import (
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Priority bounds for queued executions. 1 is served first.
const (
	PriorityHighest = 1
	PriorityDefault = 2
	PriorityLowest  = 4
)

// EnqueueRequest asks for one execution to be created (if absent) and queued
type EnqueueRequest struct {
	ExecutionID   uuid.UUID `json:"execution_id" validate:"required"`
	CandidateID   uuid.UUID `json:"candidate_id" validate:"required"`
	ApplicationID uuid.UUID `json:"application_id" validate:"required"`
	JobID         uuid.UUID `json:"job_id" validate:"required"`
	CVText        string    `json:"cv_text" validate:"required,max=200000"`
	Priority      int       `json:"priority,omitempty" validate:"gte=0,lte=4"`
}

// SubmitRequest is an EnqueueRequest whose execution id is derived from the candidate and application
type SubmitRequest struct {
	CandidateID   uuid.UUID `json:"candidate_id" validate:"required"`
	ApplicationID uuid.UUID `json:"application_id" validate:"required"`
	JobID         uuid.UUID `json:"job_id" validate:"required"`
	CVText        string    `json:"cv_text" validate:"required,max=200000"`
	Priority      int       `json:"priority,omitempty" validate:"gte=0,lte=4"`
}

// Validate validates the EnqueueRequest using the validator.
func (r *EnqueueRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// Validate validates the SubmitRequest using the validator.
func (r *SubmitRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}
