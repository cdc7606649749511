// Package ranking merges per-source retrieval results into one ranked list of alternative positions.
package ranking

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/jonathan/job-rematcher/internal/types"
)

// Source weights. Skills dominate, but every source contributes.
const (
	skillsWeight     = 0.40
	experienceWeight = 0.35
	profileWeight    = 0.25
)

const (
	// multiSourceBoost is the bonus per additional source that surfaced the same job
	multiSourceBoost = 0.05
	// MaxResults caps the consolidated list
	MaxResults = 10
	// scores closer than this are ranked as ties
	scoreEpsilon = 1e-9
)

// SourceWeight returns the fixed weight of a retrieval source
func SourceWeight(source types.Source) float64 {
	switch source {
	case types.SourceSkills:
		return skillsWeight
	case types.SourceExperience:
		return experienceWeight
	case types.SourceProfile:
		return profileWeight
	}
	return 0
}

// ConsolidationError reports input the engine refuses to score
type ConsolidationError struct {
	JobID   uuid.UUID
	Message string
}

func (e *ConsolidationError) Error() string {
	return fmt.Sprintf("consolidation error for job %s: %s", e.JobID, e.Message)
}

type group struct {
	jobID  uuid.UUID
	title  string
	scores map[types.Source]float64
}

// Consolidate merges up to three per-source match lists into a single ranked list.
// The result is deterministic for a given input regardless of list or element order.
func Consolidate(lists ...[]types.RetrievalMatch) ([]types.ConsolidatedMatch, error) {
	groups := make(map[uuid.UUID]*group)

	for _, list := range lists {
		for _, m := range list {
			if !m.Source.Valid() {
				return nil, &ConsolidationError{JobID: m.JobID, Message: fmt.Sprintf("unknown source %q", m.Source)}
			}
			if math.IsNaN(m.SimilarityScore) || math.IsInf(m.SimilarityScore, 0) {
				return nil, &ConsolidationError{JobID: m.JobID, Message: "similarity score is not a finite number"}
			}

			g, ok := groups[m.JobID]
			if !ok {
				g = &group{jobID: m.JobID, scores: make(map[types.Source]float64, len(types.Sources))}
				groups[m.JobID] = g
			}
			if m.JobTitle != "" && (g.title == "" || m.JobTitle < g.title) {
				g.title = m.JobTitle
			}

			score := clamp01(m.SimilarityScore)
			// Duplicates from one source should not happen; keep the higher value so order does not matter.
			if prev, seen := g.scores[m.Source]; !seen || score > prev {
				g.scores[m.Source] = score
			}
		}
	}

	merged := make([]types.ConsolidatedMatch, 0, len(groups))
	for _, g := range groups {
		merged = append(merged, types.ConsolidatedMatch{
			JobID:          g.jobID,
			JobTitle:       g.title,
			CompositeScore: CompositeScore(g.scores),
			HitCount:       len(g.scores),
			SourceScores:   g.scores,
		})
	}

	return Rank(merged), nil
}

// CompositeScore computes the weight-renormalised, multi-source-boosted score for one job.
// Weights are renormalised over the sources that actually matched, so a single-source
// hit is not penalised for the sources that missed it.
func CompositeScore(scores map[types.Source]float64) float64 {
	if len(scores) == 0 {
		return 0
	}

	weighted, weightSum := 0.0, 0.0
	for _, source := range types.Sources {
		sim, ok := scores[source]
		if !ok {
			continue
		}
		w := SourceWeight(source)
		weighted += sim * w
		weightSum += w
	}
	if weightSum == 0 {
		return 0
	}

	composite := weighted / weightSum
	boosted := composite * (1 + multiSourceBoost*float64(len(scores)-1))
	return clamp01(boosted)
}

// Rank orders matches by composite score, then hit count, then job id, keeps the top
// MaxResults and assigns dense 1-based ranks. The input slice is reordered in place.
func Rank(matches []types.ConsolidatedMatch) []types.ConsolidatedMatch {
	sort.SliceStable(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if math.Abs(a.CompositeScore-b.CompositeScore) > scoreEpsilon {
			return a.CompositeScore > b.CompositeScore
		}
		if a.HitCount != b.HitCount {
			return a.HitCount > b.HitCount
		}
		return strings.Compare(a.JobID.String(), b.JobID.String()) < 0
	})

	if len(matches) > MaxResults {
		matches = matches[:MaxResults]
	}
	for i := range matches {
		matches[i].Rank = i + 1
	}
	return matches
}

// Top returns at most n matches from an already ranked list
func Top(matches []types.ConsolidatedMatch, n int) []types.ConsolidatedMatch {
	if n < 0 {
		n = 0
	}
	if len(matches) <= n {
		return matches
	}
	return matches[:n]
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
