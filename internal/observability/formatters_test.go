package observability

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/jonathan/job-rematcher/internal/db"
	"github.com/jonathan/job-rematcher/internal/jobs"
	"github.com/jonathan/job-rematcher/internal/types"
)

func TestPrintStatus(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	started := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	duration := int64(1500)
	p.PrintStatus(&jobs.StatusView{
		ExecutionID: uuid.MustParse("3f2504e0-4f89-11d3-9a0c-0305e82c3301"),
		Status:      types.StatusCompleted,
		MatchCount:  3,
		Summary:     "Three strong matches",
		DurationMs:  &duration,
		CreatedAt:   started,
		StartedAt:   &started,
	})
	output := buf.String()

	assert.Contains(t, output, "REMATCH EXECUTION")
	assert.Contains(t, output, "3f2504e0-4f89-11d3-9a0c-0305e82c3301")
	assert.Contains(t, output, "completed")
	assert.Contains(t, output, "1.5s")
	assert.Contains(t, output, "Three strong matches")
	assert.NotContains(t, output, "Completed:")
}

func TestPrintStatus_Failed(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintStatus(&jobs.StatusView{Status: types.StatusFailed, Error: "parsing stage failed"})

	assert.Contains(t, buf.String(), "⚠ parsing stage failed")
}

func TestPrintStatus_Nil(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintStatus(nil)
	assert.Empty(t, buf.String())
}

func TestPrintMatches(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	var matches []db.MatchResult
	for i := 1; i <= 7; i++ {
		matches = append(matches, db.MatchResult{
			JobID:          uuid.New(),
			JobTitle:       "Backend Engineer",
			Company:        "Acme",
			Rank:           i,
			CompositeScore: 0.9 - float64(i)*0.05,
			HitCount:       2,
			SourceScores:   map[types.Source]float64{types.SourceSkills: 0.9, types.SourceExperience: 0.8},
		})
	}

	p.PrintMatches(matches)
	output := buf.String()

	assert.Contains(t, output, "Total matches: 7")
	assert.Contains(t, output, "#1  Backend Engineer @ Acme")
	assert.Contains(t, output, "experience=0.80 skills=0.90")
	assert.Contains(t, output, "#5 ")
	assert.NotContains(t, output, "#6 ")
	assert.Contains(t, output, "... and 2 more matches")
}

func TestPrintMatches_Empty(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintMatches(nil)
	assert.Contains(t, buf.String(), "No matching jobs found")
}

func TestPrintProfile(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintProfile(&types.ParsedProfile{
		Summary:          "Backend engineer",
		Skills:           "Go, PostgreSQL",
		WorkExperience:   "Acme, Staff Engineer\nBeta, Engineer",
		Languages:        []string{"English", "German"},
		ValidationStatus: types.ValidationValid,
	})
	output := buf.String()

	assert.Contains(t, output, "PARSED CV PROFILE")
	assert.Contains(t, output, "Go, PostgreSQL")
	assert.Contains(t, output, "Acme, Staff Engineer")
	assert.NotContains(t, output, "Beta")
	assert.Contains(t, output, "English, German")
}

func TestPrintBox_TruncatesLongLines(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.printBox("TITLE", strings.Repeat("x", 100))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	for _, line := range lines {
		assert.LessOrEqual(t, len([]rune(line)), boxWidth)
	}
	assert.Contains(t, buf.String(), "...")
}

func TestPrintAnalysis(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintAnalysis("# Report\n\nGood fit.\n\n")
	assert.Equal(t, "# Report\n\nGood fit.\n", buf.String())

	buf.Reset()
	p.PrintAnalysis("  ")
	assert.Equal(t, "(no analysis yet)\n", buf.String())
}
