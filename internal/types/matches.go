package types

import "github.com/google/uuid"

// Source identifies which retrieval index produced a match
type Source string

const (
	SourceSkills     Source = "skills"
	SourceExperience Source = "experience"
	SourceProfile    Source = "profile"
)

// Sources lists every retrieval source in its canonical order
var Sources = []Source{SourceSkills, SourceExperience, SourceProfile}

// Valid reports whether s is one of the known sources
func (s Source) Valid() bool {
	switch s {
	case SourceSkills, SourceExperience, SourceProfile:
		return true
	}
	return false
}

// RetrievalMatch is one job surfaced by one source. It is never persisted on its own.
type RetrievalMatch struct {
	JobID           uuid.UUID `json:"job_id"`
	JobTitle        string    `json:"job_title"`
	JobDescription  string    `json:"job_description,omitempty"`
	SimilarityScore float64   `json:"similarity_score"`
	Source          Source    `json:"source"`
}

// ConsolidatedMatch is one distinct job after merging all sources
type ConsolidatedMatch struct {
	JobID          uuid.UUID          `json:"job_id"`
	JobTitle       string             `json:"job_title"`
	CompositeScore float64            `json:"composite_score"`
	HitCount       int                `json:"hit_count"`
	SourceScores   map[Source]float64 `json:"source_scores"`
	Rank           int                `json:"rank"`
}

// JobIDs returns the job ids of matches in their current order
func JobIDs(matches []ConsolidatedMatch) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(matches))
	for _, m := range matches {
		ids = append(ids, m.JobID)
	}
	return ids
}

// BranchError records a retrieval branch that degraded to an empty list
type BranchError struct {
	Source  Source `json:"source"`
	Message string `json:"message"`
}

func (e BranchError) Error() string {
	return string(e.Source) + " retrieval failed: " + e.Message
}
