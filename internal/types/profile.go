// Package types provides type definitions for structured data used throughout the re-matching engine.
//
//nolint:revive // types is a standard Go package name pattern
package types

import "strings"

// ValidationStatus is the quality classification the CV parser attaches to a profile
type ValidationStatus string

const (
	ValidationValid       ValidationStatus = "valid"
	ValidationNeedsReview ValidationStatus = "needs_review"
	ValidationInvalid     ValidationStatus = "invalid"
)

// ParsedProfile is the structured view of a free-text CV
type ParsedProfile struct {
	Summary          string           `json:"summary"`
	Skills           string           `json:"skills"`
	WorkExperience   string           `json:"work_experience"`
	Education        string           `json:"education"`
	Languages        []string         `json:"languages,omitempty"`
	Certifications   []string         `json:"certifications,omitempty"`
	ValidationStatus ValidationStatus `json:"validation_status"`
}

// IsEmpty reports whether the profile carries no text the retrieval stage could embed.
// A nil profile is empty.
func (p *ParsedProfile) IsEmpty() bool {
	if p == nil {
		return true
	}
	return strings.TrimSpace(p.Summary) == "" &&
		strings.TrimSpace(p.Skills) == "" &&
		strings.TrimSpace(p.WorkExperience) == ""
}

// Usable reports whether the workflow may proceed with this profile
func (p *ParsedProfile) Usable() bool {
	return !p.IsEmpty() && p.ValidationStatus != ValidationInvalid
}

// Facet returns the CV text embedded for the given retrieval source
func (p *ParsedProfile) Facet(source Source) string {
	if p == nil {
		return ""
	}
	switch source {
	case SourceSkills:
		return strings.TrimSpace(p.Skills)
	case SourceExperience:
		return strings.TrimSpace(p.WorkExperience)
	case SourceProfile:
		return joinNonEmpty("\n\n", p.Summary, p.Skills, p.WorkExperience)
	}
	return ""
}
