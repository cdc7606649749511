package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"

	"github.com/jonathan/job-rematcher/internal/config"
)

const stopTimeout = 30 * time.Second

// ClientConfig sizes the queues and bounds retries and retention
type ClientConfig struct {
	WorkflowWorkers    int
	IndexingWorkers    int
	MaxAttempts        int
	RetryBaseDelay     time.Duration
	RetryMaxDelay      time.Duration
	CompletedRetention time.Duration
	CancelledRetention time.Duration
	DiscardedRetention time.Duration
}

// ClientConfigFrom extracts the queue settings from the application config
func ClientConfigFrom(cfg *config.Config) ClientConfig {
	return ClientConfig{
		WorkflowWorkers:    cfg.WorkflowWorkers,
		IndexingWorkers:    cfg.IndexingWorkers,
		MaxAttempts:        cfg.MaxAttempts,
		RetryBaseDelay:     cfg.RetryBaseDelay.Duration,
		RetryMaxDelay:      cfg.RetryMaxDelay.Duration,
		CompletedRetention: cfg.CompletedRetention.Duration,
		CancelledRetention: cfg.CancelledRetention.Duration,
		DiscardedRetention: cfg.DiscardedRetention.Duration,
	}
}

// Client wraps the River client
type Client struct {
	*river.Client[pgx.Tx]
	maxAttempts int
}

// NewWorkers registers the workflow and indexing workers
func NewWorkers(rematch *RematchWorker, index *IndexWorker) *river.Workers {
	workers := river.NewWorkers()
	river.AddWorker(workers, rematch)
	river.AddWorker(workers, index)
	return workers
}

// NewClient creates a River client over the pool. A nil workers bundle yields an insert-only client.
func NewClient(pool *pgxpool.Pool, cfg ClientConfig, workers *river.Workers) (*Client, error) {
	riverConfig := riverConfig(cfg, workers)

	riverClient, err := river.NewClient(riverpgxv5.New(pool), riverConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create river client: %w", err)
	}
	return &Client{Client: riverClient, maxAttempts: cfg.MaxAttempts}, nil
}

func riverConfig(cfg ClientConfig, workers *river.Workers) *river.Config {
	rc := &river.Config{
		MaxAttempts:                 cfg.MaxAttempts,
		RetryPolicy:                 NewRetryPolicy(cfg.RetryBaseDelay, cfg.RetryMaxDelay),
		CompletedJobRetentionPeriod: cfg.CompletedRetention,
		CancelledJobRetentionPeriod: cfg.CancelledRetention,
		DiscardedJobRetentionPeriod: cfg.DiscardedRetention,
		FetchCooldown:               100 * time.Millisecond,
		FetchPollInterval:           time.Second,
	}
	if workers != nil {
		rc.Workers = workers
		rc.Queues = map[string]river.QueueConfig{
			QueueWorkflow: {MaxWorkers: cfg.WorkflowWorkers},
			QueueIndexing: {MaxWorkers: cfg.IndexingWorkers},
		}
	}
	return rc
}

// MaxAttempts is the attempt cap applied to inserted workflow jobs
func (c *Client) MaxAttempts() int {
	return c.maxAttempts
}

// Shutdown stops fetching new jobs and waits for running ones within a bounded time
func (c *Client) Shutdown(ctx context.Context) error {
	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), stopTimeout)
	defer cancel()
	return c.Stop(stopCtx)
}
