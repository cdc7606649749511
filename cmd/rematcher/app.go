package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/riverqueue/river"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/jonathan/job-rematcher/internal/config"
	"github.com/jonathan/job-rematcher/internal/db"
	"github.com/jonathan/job-rematcher/internal/jobs"
	"github.com/jonathan/job-rematcher/internal/llm"
	"github.com/jonathan/job-rematcher/internal/logging"
	"github.com/jonathan/job-rematcher/internal/metrics"
	"github.com/jonathan/job-rematcher/internal/narrative"
	"github.com/jonathan/job-rematcher/internal/parsing"
	"github.com/jonathan/job-rematcher/internal/retrieval"
	"github.com/jonathan/job-rematcher/internal/workflow"
)

// app holds the process-wide dependencies shared by the commands
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	db       *db.DB
	recorder *metrics.PrometheusRecorder
	llm      llm.Client
	queue    *jobs.Client
	service  *jobs.Service
}

// loadConfig reads configuration and applies the command-line overrides
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	return cfg, nil
}

// newApp loads configuration, builds the logger and connects to the database
func newApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogJSON)
	if err != nil {
		return nil, err
	}

	database, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		_ = logger.Sync()
		return nil, err
	}

	return &app{
		cfg:      cfg,
		logger:   logger,
		db:       database,
		recorder: metrics.NewPrometheusRecorder(),
	}, nil
}

// newLLMClient creates the Gemini client with the configured model overrides
func newLLMClient(ctx context.Context, cfg *config.Config) (llm.Client, error) {
	if err := cfg.RequireAPIKey(); err != nil {
		return nil, err
	}
	llmConfig := llm.DefaultConfig().ApplyOverrides(llm.Overrides{
		ParsingModel:   cfg.ParsingModel,
		NarrativeModel: cfg.NarrativeModel,
		EmbeddingModel: cfg.EmbeddingModel,
	})
	client, err := llm.NewClient(ctx, llmConfig, cfg.GeminiAPIKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}
	return client, nil
}

// openQueue creates the River client and the enqueue service. With workers the client
// can also process jobs once started.
func (a *app) openQueue(ctx context.Context, withWorkers bool) error {
	var workers *river.Workers
	if withWorkers {
		built, err := a.buildWorkers(ctx)
		if err != nil {
			return err
		}
		workers = built
	}

	queue, err := jobs.NewClient(a.db.Pool(), jobs.ClientConfigFrom(a.cfg), workers)
	if err != nil {
		return err
	}
	a.queue = queue
	a.service = jobs.NewService(a.db, queue, queue.MaxAttempts(), a.logger)
	return nil
}

func (a *app) buildWorkers(ctx context.Context) (*river.Workers, error) {
	client, err := newLLMClient(ctx, a.cfg)
	if err != nil {
		return nil, err
	}
	a.llm = client

	embedder := llm.RequireDimensions(client, a.cfg.EmbeddingDimensions)
	machine := workflow.NewMachine(workflow.Deps{
		Parser: parsing.NewCVParser(client),
		Retriever: retrieval.NewStage(embedder, a.db, retrieval.Options{
			Threshold: a.cfg.SimilarityThreshold,
			Limit:     a.cfg.MatchLimit,
		}, a.logger, a.recorder),
		Narrator:      narrative.NewGenerator(client),
		Store:         a.db,
		Logger:        a.logger,
		Metrics:       a.recorder,
		NarrativeTopN: a.cfg.NarrativeTopN,
	})

	// One limiter throttles every model-calling job across both queues
	limiter := rate.NewLimiter(rate.Limit(float64(a.cfg.RateLimitPerMinute)/60), a.cfg.RateLimitBurst)
	timeout := a.cfg.JobTimeout.Duration

	return jobs.NewWorkers(
		jobs.NewRematchWorker(machine, a.db, limiter, timeout, a.logger),
		jobs.NewIndexWorker(a.db, embedder, limiter, timeout, a.logger),
	), nil
}

// Close releases the LLM client and the database pool
func (a *app) Close() {
	if a.llm != nil {
		if err := a.llm.Close(); err != nil {
			a.logger.Warn("failed to close LLM client", zap.Error(err))
		}
	}
	a.db.Close()
	_ = a.logger.Sync()
}

// printJSON writes v as indented JSON
func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
