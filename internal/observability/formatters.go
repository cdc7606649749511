// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/jonathan/job-rematcher/internal/db"
	"github.com/jonathan/job-rematcher/internal/jobs"
	"github.com/jonathan/job-rematcher/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, truncate(line, boxWidth-4))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

func truncate(s string, width int) string {
	if len(s) <= width {
		return s
	}
	return s[:width-3] + "..."
}

// PrintStatus outputs the pollable state of one execution.
func (p *Printer) PrintStatus(view *jobs.StatusView) {
	if view == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Execution: %s\n", view.ExecutionID))
	sb.WriteString(fmt.Sprintf("Status:    %s\n", view.Status))
	sb.WriteString(fmt.Sprintf("Matches:   %d\n", view.MatchCount))
	sb.WriteString(fmt.Sprintf("Created:   %s\n", view.CreatedAt.Format(time.RFC3339)))
	if view.StartedAt != nil {
		sb.WriteString(fmt.Sprintf("Started:   %s\n", view.StartedAt.Format(time.RFC3339)))
	}
	if view.CompletedAt != nil {
		sb.WriteString(fmt.Sprintf("Completed: %s\n", view.CompletedAt.Format(time.RFC3339)))
	}
	if view.DurationMs != nil {
		sb.WriteString(fmt.Sprintf("Duration:  %s\n", time.Duration(*view.DurationMs)*time.Millisecond))
	}
	if view.Summary != "" {
		sb.WriteString(fmt.Sprintf("\nSummary: %s\n", view.Summary))
	}
	if view.Error != "" {
		sb.WriteString(fmt.Sprintf("\n⚠ %s\n", view.Error))
	}

	p.printBox("REMATCH EXECUTION", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintMatches outputs the top ranked matches with their per-source scores.
func (p *Printer) PrintMatches(matches []db.MatchResult) {
	if len(matches) == 0 {
		p.printBox("RANKED MATCHES", "No matching jobs found")
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Total matches: %d\n\n", len(matches)))

	count := min(len(matches), maxItemsToShow)
	for i := 0; i < count; i++ {
		m := matches[i]
		title := m.JobTitle
		if m.Company != "" {
			title += " @ " + m.Company
		}
		sb.WriteString(fmt.Sprintf("#%d  %s\n", m.Rank, title))
		sb.WriteString(fmt.Sprintf("    Score: %.3f (%d sources)\n", m.CompositeScore, m.HitCount))
		if len(m.SourceScores) > 0 {
			sb.WriteString(fmt.Sprintf("    %s\n", formatSourceScores(m.SourceScores)))
		}
		if i < count-1 {
			sb.WriteString("\n")
		}
	}

	if len(matches) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("\n... and %d more matches", len(matches)-maxItemsToShow))
	}

	p.printBox("RANKED MATCHES", strings.TrimSuffix(sb.String(), "\n"))
}

func formatSourceScores(scores map[types.Source]float64) string {
	sources := make([]string, 0, len(scores))
	for source := range scores {
		sources = append(sources, string(source))
	}
	sort.Strings(sources)

	parts := make([]string, 0, len(sources))
	for _, source := range sources {
		parts = append(parts, fmt.Sprintf("%s=%.2f", source, scores[types.Source(source)]))
	}
	return strings.Join(parts, " ")
}

// PrintProfile outputs a human-readable summary of a parsed CV profile.
func (p *Printer) PrintProfile(profile *types.ParsedProfile) {
	if profile == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Validation: %s\n\n", profile.ValidationStatus))
	if profile.Summary != "" {
		sb.WriteString(fmt.Sprintf("Summary:    %s\n", profile.Summary))
	}
	if profile.Skills != "" {
		sb.WriteString(fmt.Sprintf("Skills:     %s\n", profile.Skills))
	}
	if profile.WorkExperience != "" {
		sb.WriteString(fmt.Sprintf("Experience: %s\n", firstLine(profile.WorkExperience)))
	}
	if profile.Education != "" {
		sb.WriteString(fmt.Sprintf("Education:  %s\n", firstLine(profile.Education)))
	}
	if len(profile.Languages) > 0 {
		sb.WriteString(fmt.Sprintf("Languages:  %s\n", strings.Join(profile.Languages, ", ")))
	}

	p.printBox("PARSED CV PROFILE", strings.TrimSuffix(sb.String(), "\n"))
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(s), "\n")
	return line
}

// PrintAnalysis writes the markdown report unboxed so it can be piped.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintAnalysis(analysis string) {
	if strings.TrimSpace(analysis) == "" {
		fmt.Fprintln(p.out, "(no analysis yet)")
		return
	}
	fmt.Fprintln(p.out, strings.TrimRight(analysis, "\n"))
}
