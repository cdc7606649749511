// Package narrative asks the language model for the recommendation memo that closes a workflow execution.
package narrative

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/jonathan/job-rematcher/internal/llm"
	"github.com/jonathan/job-rematcher/internal/prompts"
	"github.com/jonathan/job-rematcher/internal/types"
)

const (
	promptFile = "narrative.json"
	// SummaryMaxRunes bounds the summary extract stored next to the report
	SummaryMaxRunes = 280
	// descriptionMaxRunes bounds each job description quoted in the prompt
	descriptionMaxRunes = 600
)

// ErrEmptyReport is returned when the model answers with no report text
var ErrEmptyReport = errors.New("narrative generator returned an empty report")

// TextGenerator is the model call the generator needs
type TextGenerator interface {
	GenerateContent(ctx context.Context, prompt string, tier llm.ModelTier) (string, error)
}

// Request is everything the memo is written from
type Request struct {
	Profile     *types.ParsedProfile
	Matches     []types.ConsolidatedMatch
	Jobs        map[uuid.UUID]*types.JobRecord
	RejectedJob *types.JobRecord
}

// Report is the generated memo and its short summary
type Report struct {
	Markdown string `json:"markdown"`
	Summary  string `json:"summary"`
}

// Generator writes recommendation memos
type Generator struct {
	client TextGenerator
	tier   llm.ModelTier
}

// NewGenerator creates a generator backed by the given model client
func NewGenerator(client TextGenerator) *Generator {
	return &Generator{client: client, tier: llm.TierAdvanced}
}

// Generate makes a single model call; retrying is left to the job queue
func (g *Generator) Generate(ctx context.Context, req Request) (*Report, error) {
	prompt := BuildPrompt(req)

	text, err := g.client.GenerateContent(ctx, prompt, g.tier)
	if err != nil {
		return nil, fmt.Errorf("failed to generate narrative: %w", err)
	}

	markdown := stripFence(text)
	if markdown == "" {
		return nil, ErrEmptyReport
	}

	return &Report{Markdown: markdown, Summary: ExtractSummary(markdown)}, nil
}

// NoMatchesAnalysis is the literal analysis stored when nothing matched
func NoMatchesAnalysis() string {
	return prompts.MustGet(promptFile, "no-matches")
}

// BuildPrompt renders the memo prompt for a request
func BuildPrompt(req Request) string {
	rejectedTitle := "unknown position"
	if req.RejectedJob != nil && strings.TrimSpace(req.RejectedJob.Title) != "" {
		rejectedTitle = strings.TrimSpace(req.RejectedJob.Title)
	}

	template := prompts.MustGet(promptFile, "rematch-report")
	return prompts.Format(template, map[string]string{
		"RejectedJobTitle": rejectedTitle,
		"Profile":          formatProfile(req.Profile),
		"Matches":          formatMatches(req.Matches, req.Jobs),
	})
}

func formatProfile(p *types.ParsedProfile) string {
	if p == nil {
		return "(no profile)"
	}

	var sb strings.Builder
	writeField := func(label, value string) {
		if value = strings.TrimSpace(value); value != "" {
			sb.WriteString(fmt.Sprintf("%s: %s\n", label, value))
		}
	}
	writeField("Summary", p.Summary)
	writeField("Skills", p.Skills)
	writeField("Work experience", p.WorkExperience)
	writeField("Education", p.Education)
	writeField("Languages", strings.Join(p.Languages, ", "))
	writeField("Certifications", strings.Join(p.Certifications, ", "))
	return strings.TrimRight(sb.String(), "\n")
}

func formatMatches(matches []types.ConsolidatedMatch, jobs map[uuid.UUID]*types.JobRecord) string {
	var sb strings.Builder
	for _, m := range matches {
		title := m.JobTitle
		company := ""
		var job *types.JobRecord
		if jobs != nil {
			job = jobs[m.JobID]
		}
		if job != nil {
			title = job.Title
			company = job.Company
		}

		sb.WriteString(fmt.Sprintf("%d. %s", m.Rank, title))
		if company != "" {
			sb.WriteString(" at " + company)
		}
		sb.WriteString(fmt.Sprintf(" (score %.2f; sources: %s)\n", m.CompositeScore, strings.Join(sourceNames(m.SourceScores), ", ")))

		if job != nil {
			if req := strings.TrimSpace(job.Requirements); req != "" {
				sb.WriteString("   Requirements: " + truncateRunes(req, descriptionMaxRunes) + "\n")
			}
			if desc := strings.TrimSpace(job.Description); desc != "" {
				sb.WriteString("   Description: " + truncateRunes(desc, descriptionMaxRunes) + "\n")
			}
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

func sourceNames(scores map[types.Source]float64) []string {
	names := make([]string, 0, len(scores))
	for _, source := range types.Sources {
		if _, ok := scores[source]; ok {
			names = append(names, string(source))
		}
	}
	return names
}

// emphasis rewrites are applied in order: code spans and paired bold markers first, so a
// single-marker rule never sees half of a "**" pair
var emphasis = []struct {
	pattern *regexp.Regexp
	repl    string
}{
	{regexp.MustCompile("`([^`]*)`"), "$1"},
	{regexp.MustCompile(`\*\*(.+?)\*\*`), "$1"},
	{regexp.MustCompile(`__(.+?)__`), "$1"},
	{regexp.MustCompile(`\*([^*\s](?:[^*]*[^*\s])?)\*`), "$1"},
	{regexp.MustCompile(`(^|\W)_([^_\s](?:[^_]*[^_\s])?)_(\W|$)`), "$1$2$3"},
}

// stripEmphasis removes markdown emphasis markers while leaving identifiers such as job_id intact
func stripEmphasis(text string) string {
	for _, e := range emphasis {
		text = e.pattern.ReplaceAllString(text, e.repl)
	}
	return text
}

// ExtractSummary returns the first non-heading paragraph of a markdown report with emphasis
// markers removed, cut to SummaryMaxRunes.
func ExtractSummary(markdown string) string {
	for _, para := range strings.Split(strings.ReplaceAll(markdown, "\r\n", "\n"), "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" || strings.HasPrefix(para, "#") || strings.HasPrefix(para, "---") {
			continue
		}

		lines := strings.Split(para, "\n")
		for i, line := range lines {
			lines[i] = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), ">"))
		}
		text := strings.Join(lines, " ")
		text = stripEmphasis(text)
		text = strings.Join(strings.Fields(text), " ")
		if text == "" {
			continue
		}
		return truncateRunes(text, SummaryMaxRunes)
	}
	return ""
}

func truncateRunes(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:limit-1])) + "…"
}

func stripFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	if idx := strings.Index(text, "\n"); idx >= 0 && !strings.Contains(text[:idx], " ") {
		text = text[idx+1:]
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}
