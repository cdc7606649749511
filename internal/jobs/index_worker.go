package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/riverqueue/river"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/jonathan/job-rematcher/internal/llm"
	"github.com/jonathan/job-rematcher/internal/logging"
	"github.com/jonathan/job-rematcher/internal/types"
	"github.com/jonathan/job-rematcher/internal/workflow"
)

// JobIndexStore reads job records and writes their embeddings
type JobIndexStore interface {
	GetJob(ctx context.Context, id uuid.UUID) (*types.JobRecord, error)
	UpsertJobEmbedding(ctx context.Context, jobID uuid.UUID, kind types.Source, content string, vector []float32) error
	DeleteJobEmbeddingsExcept(ctx context.Context, jobID uuid.UUID, keep []types.Source) error
}

// IndexOutput is recorded as the output of a finished index job
type IndexOutput struct {
	JobID  uuid.UUID      `json:"job_id"`
	Facets []types.Source `json:"facets"`
}

// IndexWorker builds the three facet embeddings of one job
type IndexWorker struct {
	river.WorkerDefaults[IndexJobArgs]
	store    JobIndexStore
	embedder llm.Embedder
	limiter  *rate.Limiter
	timeout  time.Duration
	logger   *zap.Logger
}

// NewIndexWorker creates the indexing worker. It shares the embedding rate limiter with the workflow worker.
func NewIndexWorker(store JobIndexStore, embedder llm.Embedder, limiter *rate.Limiter, timeout time.Duration, logger *zap.Logger) *IndexWorker {
	if timeout <= 0 {
		timeout = DefaultJobTimeout
	}
	return &IndexWorker{
		store:    store,
		embedder: embedder,
		limiter:  limiter,
		timeout:  timeout,
		logger:   logging.OrNop(logger).Named("indexer"),
	}
}

// Timeout bounds one attempt
func (w *IndexWorker) Timeout(*river.Job[IndexJobArgs]) time.Duration {
	return w.timeout
}

// Work indexes the job and records which facets were written
func (w *IndexWorker) Work(ctx context.Context, job *river.Job[IndexJobArgs]) error {
	out, err := w.process(ctx, job.Args)
	if err != nil {
		return err
	}
	return river.RecordOutput(ctx, out)
}

func (w *IndexWorker) process(ctx context.Context, args IndexJobArgs) (*IndexOutput, error) {
	log := w.logger.With(zap.String(logging.FieldJobID, args.JobID.String()))

	if w.limiter != nil {
		if err := w.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	job, err := w.store.GetJob(ctx, args.JobID)
	if err != nil {
		return nil, fmt.Errorf("failed to load job: %w", err)
	}
	if job == nil {
		log.Warn("job record missing, cancelling index job")
		return nil, river.JobCancel(&workflow.NotFoundError{Resource: "job", ID: args.JobID.String()})
	}

	var facets []types.Source
	var texts []string
	for _, source := range types.Sources {
		if text := job.Facet(source); text != "" {
			facets = append(facets, source)
			texts = append(texts, text)
		}
	}
	if len(facets) == 0 {
		log.Warn("job has no indexable text")
		if err := w.store.DeleteJobEmbeddingsExcept(ctx, args.JobID, nil); err != nil {
			return nil, fmt.Errorf("failed to clear embeddings: %w", err)
		}
		return &IndexOutput{JobID: args.JobID, Facets: []types.Source{}}, nil
	}

	vectors, err := w.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to embed job facets: %w", err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d facets", len(vectors), len(texts))
	}

	for i, source := range facets {
		if err := w.store.UpsertJobEmbedding(ctx, args.JobID, source, texts[i], vectors[i]); err != nil {
			return nil, fmt.Errorf("failed to store %s embedding: %w", source, err)
		}
	}
	// facets that lost their text must stop matching
	if err := w.store.DeleteJobEmbeddingsExcept(ctx, args.JobID, facets); err != nil {
		return nil, fmt.Errorf("failed to clear stale embeddings: %w", err)
	}

	log.Info("job indexed", zap.Int("facets", len(facets)))
	return &IndexOutput{JobID: args.JobID, Facets: facets}, nil
}
