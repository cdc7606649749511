package types

import (
	"strings"

	"github.com/google/uuid"
)

// JobRecord is an open position as read from the jobs table
type JobRecord struct {
	ID           uuid.UUID `json:"id"`
	Title        string    `json:"title"`
	Company      string    `json:"company"`
	Description  string    `json:"description"`
	Requirements string    `json:"requirements"`
	Location     string    `json:"location,omitempty"`
	Status       string    `json:"status"`
}

// JobStatusOpen marks a position that may be recommended
const JobStatusOpen = "open"

// Facet returns the text of the job indexed under the given source
func (j *JobRecord) Facet(source Source) string {
	switch source {
	case SourceSkills:
		return strings.TrimSpace(j.Requirements)
	case SourceExperience:
		return strings.TrimSpace(j.Description)
	case SourceProfile:
		return joinNonEmpty("\n\n", j.Title, j.Description, j.Requirements)
	}
	return ""
}

func joinNonEmpty(sep string, parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}
