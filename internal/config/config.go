// Package config provides configuration loading and validation for the CLI, workers and HTTP server.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix prefixes every environment variable; unprefixed names are accepted as a fallback
const EnvPrefix = "REMATCH"

// Config holds engine settings. Values come from the environment and may be overridden by a JSON file.
type Config struct {
	// Connections
	DatabaseURL  string `envconfig:"DATABASE_URL" json:"database_url,omitempty"`
	GeminiAPIKey string `envconfig:"GEMINI_API_KEY" json:"gemini_api_key,omitempty"`
	HTTPPort     int    `envconfig:"HTTP_PORT" default:"8080" json:"http_port,omitempty"`

	// Logging
	LogLevel string `envconfig:"LOG_LEVEL" default:"info" json:"log_level,omitempty"`
	LogJSON  bool   `envconfig:"LOG_JSON" default:"false" json:"log_json,omitempty"`

	// Queue and workers
	WorkflowWorkers    int      `envconfig:"WORKFLOW_WORKERS" default:"3" json:"workflow_workers,omitempty"`
	IndexingWorkers    int      `envconfig:"INDEXING_WORKERS" default:"1" json:"indexing_workers,omitempty"`
	MaxAttempts        int      `envconfig:"MAX_ATTEMPTS" default:"3" json:"max_attempts,omitempty"`
	RetryBaseDelay     Duration `envconfig:"RETRY_BASE_DELAY" default:"10s" json:"retry_base_delay,omitempty"`
	RetryMaxDelay      Duration `envconfig:"RETRY_MAX_DELAY" default:"10m" json:"retry_max_delay,omitempty"`
	JobTimeout         Duration `envconfig:"JOB_TIMEOUT" default:"5m" json:"job_timeout,omitempty"`
	RateLimitPerMinute int      `envconfig:"RATE_LIMIT_PER_MINUTE" default:"30" json:"rate_limit_per_minute,omitempty"`
	RateLimitBurst     int      `envconfig:"RATE_LIMIT_BURST" default:"5" json:"rate_limit_burst,omitempty"`
	CompletedRetention Duration `envconfig:"COMPLETED_RETENTION" default:"24h" json:"completed_retention,omitempty"`
	DiscardedRetention Duration `envconfig:"DISCARDED_RETENTION" default:"168h" json:"discarded_retention,omitempty"`
	CancelledRetention Duration `envconfig:"CANCELLED_RETENTION" default:"24h" json:"cancelled_retention,omitempty"`

	// Matching
	SimilarityThreshold float64 `envconfig:"SIMILARITY_THRESHOLD" default:"0.72" json:"similarity_threshold,omitempty"`
	MatchLimit          int     `envconfig:"MATCH_LIMIT" default:"10" json:"match_limit,omitempty"`
	NarrativeTopN       int     `envconfig:"NARRATIVE_TOP_N" default:"5" json:"narrative_top_n,omitempty"`

	// Models; empty keeps the built-in defaults
	ParsingModel   string `envconfig:"PARSING_MODEL" json:"parsing_model,omitempty"`
	NarrativeModel string `envconfig:"NARRATIVE_MODEL" json:"narrative_model,omitempty"`

	// Embeddings
	EmbeddingModel      string `envconfig:"EMBEDDING_MODEL" default:"text-embedding-004" json:"embedding_model,omitempty"`
	EmbeddingDimensions int    `envconfig:"EMBEDDING_DIMENSIONS" default:"768" json:"embedding_dimensions,omitempty"`
}

// Duration is a time.Duration that decodes from strings like "10s" in both env vars and JSON
type Duration struct {
	time.Duration
}

// Decode implements envconfig.Decoder
func (d *Duration) Decode(value string) error {
	parsed, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// UnmarshalJSON accepts a duration string or a number of nanoseconds
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		return d.Decode(s)
	}
	var ns int64
	if err := json.Unmarshal(data, &ns); err != nil {
		return fmt.Errorf("invalid duration %s", string(data))
	}
	d.Duration = time.Duration(ns)
	return nil
}

// MarshalJSON renders the duration as a string
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// Load reads the environment and, when path is non-empty, applies the JSON file on top
func Load(path string) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	if path != "" {
		file, err := LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = file.MergeWithDefaults(cfg)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// Validate checks that the configuration has usable values.
// The API key is checked separately by RequireAPIKey since only workers need it.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("config error: 'database_url' is required")
	}
	// zero stands for "unset" when merging and in retrieval.Options
	if c.SimilarityThreshold <= 0 || c.SimilarityThreshold > 1 {
		return fmt.Errorf("config error: 'similarity_threshold' must be greater than 0 and at most 1")
	}

	positive := []struct {
		name  string
		value int
	}{
		{"http_port", c.HTTPPort},
		{"workflow_workers", c.WorkflowWorkers},
		{"indexing_workers", c.IndexingWorkers},
		{"max_attempts", c.MaxAttempts},
		{"rate_limit_per_minute", c.RateLimitPerMinute},
		{"rate_limit_burst", c.RateLimitBurst},
		{"match_limit", c.MatchLimit},
		{"narrative_top_n", c.NarrativeTopN},
		{"embedding_dimensions", c.EmbeddingDimensions},
	}
	for _, field := range positive {
		if field.value <= 0 {
			return fmt.Errorf("config error: '%s' must be positive", field.name)
		}
	}

	if c.RetryBaseDelay.Duration <= 0 || c.RetryMaxDelay.Duration < c.RetryBaseDelay.Duration {
		return fmt.Errorf("config error: retry delays must satisfy 0 < retry_base_delay <= retry_max_delay")
	}
	if c.JobTimeout.Duration <= 0 {
		return fmt.Errorf("config error: 'job_timeout' must be positive")
	}
	return nil
}

// RequireAPIKey checks that a Gemini API key is configured
func (c *Config) RequireAPIKey() error {
	if strings.TrimSpace(c.GeminiAPIKey) == "" {
		return fmt.Errorf("config error: 'gemini_api_key' is required (set GEMINI_API_KEY)")
	}
	return nil
}

// MergeWithDefaults returns a new Config with zero fields filled from defaults.
// It is used to lay a config file over the environment.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	mergeString(&result.DatabaseURL, defaults.DatabaseURL)
	mergeString(&result.GeminiAPIKey, defaults.GeminiAPIKey)
	mergeString(&result.LogLevel, defaults.LogLevel)
	mergeString(&result.EmbeddingModel, defaults.EmbeddingModel)
	mergeString(&result.ParsingModel, defaults.ParsingModel)
	mergeString(&result.NarrativeModel, defaults.NarrativeModel)

	mergeInt(&result.HTTPPort, defaults.HTTPPort)
	mergeInt(&result.WorkflowWorkers, defaults.WorkflowWorkers)
	mergeInt(&result.IndexingWorkers, defaults.IndexingWorkers)
	mergeInt(&result.MaxAttempts, defaults.MaxAttempts)
	mergeInt(&result.RateLimitPerMinute, defaults.RateLimitPerMinute)
	mergeInt(&result.RateLimitBurst, defaults.RateLimitBurst)
	mergeInt(&result.MatchLimit, defaults.MatchLimit)
	mergeInt(&result.NarrativeTopN, defaults.NarrativeTopN)
	mergeInt(&result.EmbeddingDimensions, defaults.EmbeddingDimensions)

	mergeDuration(&result.RetryBaseDelay, defaults.RetryBaseDelay)
	mergeDuration(&result.RetryMaxDelay, defaults.RetryMaxDelay)
	mergeDuration(&result.JobTimeout, defaults.JobTimeout)
	mergeDuration(&result.CompletedRetention, defaults.CompletedRetention)
	mergeDuration(&result.DiscardedRetention, defaults.DiscardedRetention)
	mergeDuration(&result.CancelledRetention, defaults.CancelledRetention)

	if result.SimilarityThreshold == 0 {
		result.SimilarityThreshold = defaults.SimilarityThreshold
	}
	if !result.LogJSON {
		result.LogJSON = defaults.LogJSON
	}

	return result
}

func mergeString(dst *string, def string) {
	if *dst == "" {
		*dst = def
	}
}

func mergeInt(dst *int, def int) {
	if *dst == 0 {
		*dst = def
	}
}

func mergeDuration(dst *Duration, def Duration) {
	if dst.Duration == 0 {
		*dst = def
	}
}
