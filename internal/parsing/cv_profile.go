// Package parsing turns free-text CVs into structured ParsedProfile values using LLM extraction.
package parsing

import (
	"context"
	"encoding/json"
	"strings"
	"unicode/utf8"

	"github.com/jonathan/job-rematcher/internal/ingestion"
	"github.com/jonathan/job-rematcher/internal/llm"
	"github.com/jonathan/job-rematcher/internal/schemas"
	"github.com/jonathan/job-rematcher/internal/types"
)

const (
	// MinCVLength is the shortest cleaned CV text worth sending to the model
	MinCVLength = 50
	// minSummaryLength is the summary length below which a profile needs review
	minSummaryLength = 40
)

// CVParser extracts ParsedProfile values from CV text
type CVParser struct {
	client llm.Client
	tier   llm.ModelTier
}

// NewCVParser creates a parser backed by the given LLM client
func NewCVParser(client llm.Client) *CVParser {
	return &CVParser{client: client, tier: llm.TierStandard}
}

// ParseCV cleans the raw CV, asks the model for the structured sections and classifies the result.
// Profiles classified as invalid are returned without error; callers decide whether to proceed.
func (p *CVParser) ParseCV(ctx context.Context, rawText string) (*types.ParsedProfile, error) {
	cleaned, _, err := ingestion.Normalize(rawText)
	if err != nil {
		return nil, &ParseError{Message: "failed to clean CV markup", Cause: err}
	}
	if utf8.RuneCountInString(cleaned) < MinCVLength {
		return nil, &ValidationError{Field: "cv_text", Message: "CV text is too short to parse"}
	}

	prompt := llm.BuildExtractionPrompt(llm.CVProfileSchema(), cleaned)
	responseText, err := p.client.GenerateJSON(ctx, prompt, p.tier)
	if err != nil {
		return nil, &APICallError{Message: "failed to extract CV sections", Cause: err}
	}

	profile, err := parseJSONResponse(llm.CleanJSONBlock(responseText))
	if err != nil {
		return nil, err
	}

	postProcessProfile(profile)
	profile.ValidationStatus = ClassifyProfile(profile)
	return profile, nil
}

// parseJSONResponse checks the model output against the CV profile schema and decodes it
func parseJSONResponse(jsonText string) (*types.ParsedProfile, error) {
	if err := schemas.ValidateCVProfile(jsonText); err != nil {
		return nil, &ParseError{Message: "CV output does not match schema", Cause: err}
	}

	var profile types.ParsedProfile
	if err := json.Unmarshal([]byte(jsonText), &profile); err != nil {
		return nil, &ParseError{Message: "failed to parse JSON response", Cause: err}
	}
	return &profile, nil
}

func postProcessProfile(profile *types.ParsedProfile) {
	profile.Summary = strings.TrimSpace(profile.Summary)
	profile.Skills = NormalizeSkillList(profile.Skills)
	profile.WorkExperience = strings.TrimSpace(profile.WorkExperience)
	profile.Education = strings.TrimSpace(profile.Education)
	profile.Languages = NormalizeList(profile.Languages)
	profile.Certifications = NormalizeList(profile.Certifications)
}

// ClassifyProfile grades how complete a parsed profile is
func ClassifyProfile(profile *types.ParsedProfile) types.ValidationStatus {
	if profile.IsEmpty() {
		return types.ValidationInvalid
	}
	if strings.TrimSpace(profile.Skills) == "" ||
		strings.TrimSpace(profile.WorkExperience) == "" ||
		utf8.RuneCountInString(strings.TrimSpace(profile.Summary)) < minSummaryLength {
		return types.ValidationNeedsReview
	}
	return types.ValidationValid
}
