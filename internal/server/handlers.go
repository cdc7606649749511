package server

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/jonathan/job-rematcher/internal/types"
)

// submitRequest accepts an explicit execution id or derives one from the candidate and application
type submitRequest struct {
	ExecutionID   uuid.UUID `json:"execution_id"`
	CandidateID   uuid.UUID `json:"candidate_id"`
	ApplicationID uuid.UUID `json:"application_id"`
	JobID         uuid.UUID `json:"job_id"`
	CVText        string    `json:"cv_text"`
	Priority      int       `json:"priority"`
}

// handleSubmit queues a re-matching run for a rejected application
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, &ErrBadRequest{Message: "invalid JSON body"})
		return
	}

	ctx := r.Context()
	var err error
	var result any
	if req.ExecutionID != uuid.Nil {
		result, err = s.service.Enqueue(ctx, types.EnqueueRequest{
			ExecutionID:   req.ExecutionID,
			CandidateID:   req.CandidateID,
			ApplicationID: req.ApplicationID,
			JobID:         req.JobID,
			CVText:        req.CVText,
			Priority:      req.Priority,
		})
	} else {
		result, err = s.service.Submit(ctx, types.SubmitRequest{
			CandidateID:   req.CandidateID,
			ApplicationID: req.ApplicationID,
			JobID:         req.JobID,
			CVText:        req.CVText,
			Priority:      req.Priority,
		})
	}
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	s.jsonResponse(w, http.StatusAccepted, result)
}

// handleStatus returns the pollable status of an execution
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathUUID(w, r, "id")
	if !ok {
		return
	}
	view, err := s.service.GetStatus(r.Context(), id)
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, view)
}

// handleMatches lists the ranked matches of an execution
func (s *Server) handleMatches(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathUUID(w, r, "id")
	if !ok {
		return
	}
	matches, err := s.service.Matches(r.Context(), id)
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"execution_id": id,
		"matches":      matches,
		"count":        len(matches),
	})
}

// handleAnalysis returns the markdown report of an execution
func (s *Server) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathUUID(w, r, "id")
	if !ok {
		return
	}
	analysis, err := s.service.Analysis(r.Context(), id)
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"execution_id": id,
		"analysis":     analysis,
	})
}

// handleIndexJob queues an embedding rebuild for one job
func (s *Server) handleIndexJob(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathUUID(w, r, "id")
	if !ok {
		return
	}
	queueJobID, err := s.service.IndexJob(r.Context(), id)
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	s.jsonResponse(w, http.StatusAccepted, map[string]any{
		"job_id":       id,
		"queue_job_id": queueJobID,
	})
}

// handleHealth reports whether the database is reachable
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		if err := s.health.Ping(r.Context()); err != nil {
			s.jsonResponse(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// pathUUID parses a path parameter, writing a 400 when it is not a UUID
func (s *Server) pathUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		s.errorResponse(w, &ErrBadRequest{Message: "invalid " + name})
		return uuid.Nil, false
	}
	return id, true
}
