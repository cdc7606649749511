package ratelimit

import (
	"net/http"
	"strings"
)

// unlimitedPaths are never rate limited
var unlimitedPaths = map[string]bool{
	"/health":  true,
	"/metrics": true,
}

// unlimited is returned for paths that skip limiting; a zero Limit disables the bucket
var unlimited = EndpointConfig{}

// MatchEndpoint returns the configuration for a request, or nil when the default applies.
// An exact path wins; otherwise the longest configured prefix ending in "/" matches
// (e.g. "/v1/jobs/" covers "/v1/jobs/{id}/index").
func MatchEndpoint(path string, method string, configs []EndpointConfig) *EndpointConfig {
	if method == http.MethodGet && unlimitedPaths[path] {
		cfg := unlimited
		return &cfg
	}

	var best *EndpointConfig
	for i := range configs {
		cfg := &configs[i]
		if cfg.Method != method {
			continue
		}
		if cfg.Path == path {
			return cfg
		}
		if strings.HasSuffix(cfg.Path, "/") && strings.HasPrefix(path, cfg.Path) &&
			(best == nil || len(cfg.Path) > len(best.Path)) {
			best = cfg
		}
	}
	return best
}
