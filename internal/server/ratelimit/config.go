package ratelimit

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// envPrefix scopes the rate limit variables, e.g. REMATCH_RATE_LIMIT_ENABLED
const envPrefix = "REMATCH_RATE_LIMIT"

// EndpointConfig represents rate limiting configuration for a specific endpoint.
type EndpointConfig struct {
	Path   string        // Endpoint path pattern (supports prefix matching)
	Method string        // HTTP method (GET, POST, etc.)
	Limit  int           // Maximum requests per window
	Window time.Duration // Time window
	Burst  int           // Burst capacity (defaults to Limit if 0)
}

// envSpec is the environment form of Config
type envSpec struct {
	Enabled         bool          `envconfig:"ENABLED" default:"true"`
	DefaultLimit    int           `envconfig:"DEFAULT_LIMIT" default:"600"`
	DefaultWindow   time.Duration `envconfig:"DEFAULT_WINDOW" default:"1m"`
	CleanupInterval time.Duration `envconfig:"CLEANUP_INTERVAL" default:"5m"`
	Exempt          []string      `envconfig:"EXEMPT"`
	Blocked         []string      `envconfig:"BLOCKED"`
}

// LoadConfig loads rate limiting configuration from environment variables.
func LoadConfig() (*Config, error) {
	var spec envSpec
	if err := envconfig.Process(envPrefix, &spec); err != nil {
		return nil, fmt.Errorf("failed to load rate limit config: %w", err)
	}

	if !spec.Enabled {
		return &Config{Enabled: false}, nil
	}

	return &Config{
		Enabled:         true,
		DefaultLimit:    spec.DefaultLimit,
		DefaultWindow:   spec.DefaultWindow,
		CleanupInterval: spec.CleanupInterval,
		Exempt:          toSet(spec.Exempt),
		Blocked:         toSet(spec.Blocked),
		EndpointConfigs: DefaultEndpointConfigs(),
	}, nil
}

// DefaultEndpointConfigs returns the default endpoint-specific configurations.
func DefaultEndpointConfigs() []EndpointConfig {
	return []EndpointConfig{
		// Every submission costs model calls downstream
		{Path: "/v1/rematches", Method: "POST", Limit: 60, Window: time.Minute, Burst: 10},
		{Path: "/v1/jobs/", Method: "POST", Limit: 120, Window: time.Minute, Burst: 20},
		// Reads, /health and /metrics use the default or are unlimited (see MatchEndpoint)
	}
}

// toSet turns a list of IP addresses into a lookup map
func toSet(list []string) map[string]bool {
	result := make(map[string]bool, len(list))
	for _, ip := range list {
		if ip = strings.TrimSpace(ip); ip != "" {
			result[ip] = true
		}
	}
	return result
}
