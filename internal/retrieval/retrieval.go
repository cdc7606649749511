// Package retrieval runs the three facet searches (skills, experience, profile) for a parsed CV.
package retrieval

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/job-rematcher/internal/llm"
	"github.com/jonathan/job-rematcher/internal/logging"
	"github.com/jonathan/job-rematcher/internal/metrics"
	"github.com/jonathan/job-rematcher/internal/types"
)

const (
	// DefaultThreshold is the minimum cosine similarity for a match
	DefaultThreshold = 0.72
	// DefaultLimit caps the matches returned per source
	DefaultLimit = 10
)

// VectorIndex searches stored job embeddings
type VectorIndex interface {
	SearchSimilar(ctx context.Context, vector []float32, kind types.Source, threshold float64, limit int, excludeIDs []uuid.UUID) ([]types.RetrievalMatch, error)
}

// Options tunes the searches
type Options struct {
	Threshold float64
	Limit     int
}

// Result holds the per-source match lists and the branches that degraded
type Result struct {
	Matches map[types.Source][]types.RetrievalMatch
	Errors  []types.BranchError
}

// Lists returns the match lists in canonical source order
func (r *Result) Lists() [][]types.RetrievalMatch {
	lists := make([][]types.RetrievalMatch, 0, len(types.Sources))
	for _, source := range types.Sources {
		lists = append(lists, r.Matches[source])
	}
	return lists
}

// AllFailed reports whether every branch errored
func (r *Result) AllFailed() bool {
	return len(r.Errors) == len(types.Sources)
}

// Err aggregates branch failures, or returns nil when every branch succeeded
func (r *Result) Err() error {
	var result *multierror.Error
	for _, branchErr := range r.Errors {
		result = multierror.Append(result, branchErr)
	}
	return result.ErrorOrNil()
}

// Stage embeds CV facets and queries the vector index for each of them concurrently
type Stage struct {
	embedder llm.Embedder
	index    VectorIndex
	opts     Options
	logger   *zap.Logger
	metrics  metrics.Recorder
}

// NewStage creates a retrieval stage. A non-positive threshold or limit falls back to the default;
// config.Validate refuses those values, so they only occur when options are left unset.
func NewStage(embedder llm.Embedder, index VectorIndex, opts Options, logger *zap.Logger, recorder metrics.Recorder) *Stage {
	if opts.Threshold <= 0 {
		opts.Threshold = DefaultThreshold
	}
	if opts.Limit <= 0 {
		opts.Limit = DefaultLimit
	}
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	return &Stage{
		embedder: embedder,
		index:    index,
		opts:     opts,
		logger:   logging.OrNop(logger).Named("retrieval"),
		metrics:  recorder,
	}
}

// Retrieve runs the three branches and waits for all of them. A failing branch contributes an
// empty list and a BranchError; it never cancels its siblings. The rejected job is excluded.
func (s *Stage) Retrieve(ctx context.Context, profile *types.ParsedProfile, rejectedJobID uuid.UUID) *Result {
	result := &Result{Matches: make(map[types.Source][]types.RetrievalMatch, len(types.Sources))}
	var mu sync.Mutex

	exclude := []uuid.UUID{}
	if rejectedJobID != uuid.Nil {
		exclude = append(exclude, rejectedJobID)
	}

	var g errgroup.Group
	for _, source := range types.Sources {
		source := source
		g.Go(func() error {
			start := time.Now()
			matches, err := s.runBranch(ctx, source, profile.Facet(source), exclude)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Errors = append(result.Errors, types.BranchError{Source: source, Message: err.Error()})
				result.Matches[source] = nil
				s.metrics.RecordBranchFailure(source)
				s.logger.Warn("retrieval branch degraded to empty list",
					zap.String(logging.FieldSource, string(source)),
					zap.Duration("duration", time.Since(start)),
					zap.Error(err))
				return nil
			}
			result.Matches[source] = matches
			s.logger.Debug("retrieval branch finished",
				zap.String(logging.FieldSource, string(source)),
				zap.Int("matches", len(matches)),
				zap.Duration("duration", time.Since(start)))
			return nil
		})
	}
	_ = g.Wait()

	sortBranchErrors(result.Errors)
	return result
}

func (s *Stage) runBranch(ctx context.Context, source types.Source, facet string, exclude []uuid.UUID) ([]types.RetrievalMatch, error) {
	if facet == "" {
		return nil, nil
	}

	vector, err := s.embedder.Embed(ctx, facet)
	if err != nil {
		return nil, fmt.Errorf("failed to embed %s facet: %w", source, err)
	}

	matches, err := s.index.SearchSimilar(ctx, vector, source, s.opts.Threshold, s.opts.Limit, exclude)
	if err != nil {
		return nil, fmt.Errorf("failed to search %s index: %w", source, err)
	}
	return matches, nil
}

// sortBranchErrors orders errors by canonical source order so snapshots are stable
func sortBranchErrors(errs []types.BranchError) {
	order := make(map[types.Source]int, len(types.Sources))
	for i, source := range types.Sources {
		order[source] = i
	}
	sort.Slice(errs, func(i, j int) bool { return order[errs[i].Source] < order[errs[j].Source] })
}
