package ratelimit

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedClock returns a limiter clock that only moves when advanced
func fixedClock(l *Limiter) *time.Time {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	return &now
}

func TestLimiter_Allow(t *testing.T) {
	limiter := NewLimiter(&Config{Enabled: true, DefaultLimit: 10, DefaultWindow: time.Minute})
	defer limiter.Stop()
	fixedClock(limiter)

	for i := 0; i < 10; i++ {
		allowed, info := limiter.Allow("127.0.0.1", "/v1/rematches/x", "GET")
		require.True(t, allowed, "request %d", i+1)
		assert.Equal(t, 10, info.Limit)
		assert.Equal(t, 9-i, info.Remaining)
	}

	allowed, info := limiter.Allow("127.0.0.1", "/v1/rematches/x", "GET")
	assert.False(t, allowed)
	assert.Equal(t, 0, info.Remaining)
	assert.Equal(t, 6*time.Second, info.RetryAfter)
	assert.True(t, info.ResetTime.After(limiter.now()))
}

func TestLimiter_Refill(t *testing.T) {
	limiter := NewLimiter(&Config{Enabled: true, DefaultLimit: 60, DefaultWindow: time.Minute})
	defer limiter.Stop()
	now := fixedClock(limiter)

	for i := 0; i < 60; i++ {
		limiter.Allow("c", "/p", "GET")
	}
	allowed, _ := limiter.Allow("c", "/p", "GET")
	require.False(t, allowed)

	*now = now.Add(time.Second)
	allowed, _ = limiter.Allow("c", "/p", "GET")
	assert.True(t, allowed, "one token refills per second")
	allowed, _ = limiter.Allow("c", "/p", "GET")
	assert.False(t, allowed)
}

func TestLimiter_ExemptBlockedAndDisabled(t *testing.T) {
	limiter := NewLimiter(&Config{
		Enabled:       true,
		DefaultLimit:  1,
		DefaultWindow: time.Minute,
		Exempt:        map[string]bool{"10.0.0.1": true},
		Blocked:       map[string]bool{"10.0.0.2": true},
	})
	defer limiter.Stop()

	for i := 0; i < 50; i++ {
		allowed, info := limiter.Allow("10.0.0.1", "/p", "GET")
		require.True(t, allowed)
		assert.Zero(t, info.Limit)
	}

	allowed, _ := limiter.Allow("10.0.0.2", "/p", "GET")
	assert.False(t, allowed)

	disabled := NewLimiter(&Config{Enabled: false})
	defer disabled.Stop()
	for i := 0; i < 50; i++ {
		allowed, _ := disabled.Allow("10.0.0.3", "/p", "GET")
		require.True(t, allowed)
	}
}

func TestLimiter_EndpointSpecific(t *testing.T) {
	limiter := NewLimiter(&Config{
		Enabled:         true,
		DefaultLimit:    1000,
		DefaultWindow:   time.Minute,
		EndpointConfigs: DefaultEndpointConfigs(),
	})
	defer limiter.Stop()
	fixedClock(limiter)

	for i := 0; i < 10; i++ {
		allowed, info := limiter.Allow("c", "/v1/rematches", "POST")
		require.True(t, allowed, "burst request %d", i+1)
		assert.Equal(t, 60, info.Limit)
	}
	allowed, _ := limiter.Allow("c", "/v1/rematches", "POST")
	assert.False(t, allowed, "burst of 10 is exhausted")

	allowed, info := limiter.Allow("c", "/v1/rematches/abc", "GET")
	assert.True(t, allowed)
	assert.Equal(t, 1000, info.Limit)

	_, info = limiter.Allow("c", "/v1/jobs/abc/index", "POST")
	assert.Equal(t, 120, info.Limit)
}

func TestLimiter_UnlimitedPaths(t *testing.T) {
	limiter := NewLimiter(&Config{Enabled: true, DefaultLimit: 1, DefaultWindow: time.Hour})
	defer limiter.Stop()

	for _, path := range []string{"/health", "/metrics"} {
		for i := 0; i < 5; i++ {
			allowed, _ := limiter.Allow("c", path, "GET")
			assert.True(t, allowed, path)
		}
	}
}

func TestLimiter_Concurrent(t *testing.T) {
	limiter := NewLimiter(&Config{Enabled: true, DefaultLimit: 100, DefaultWindow: time.Minute})
	defer limiter.Stop()
	fixedClock(limiter)

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowedCount := 0

	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if allowed, _ := limiter.Allow("c", "/p", "GET"); allowed {
				mu.Lock()
				allowedCount++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, allowedCount)
}

func TestLimiter_CleanupDropsIdleBuckets(t *testing.T) {
	limiter := NewLimiter(&Config{Enabled: true, DefaultLimit: 10, DefaultWindow: time.Minute})
	defer limiter.Stop()
	now := fixedClock(limiter)

	for i := 0; i < 4; i++ {
		limiter.Allow(fmt.Sprintf("10.0.0.%d", i), "/p", "GET")
	}
	*now = now.Add(2 * time.Hour)
	limiter.Allow("10.0.0.0", "/p", "GET")

	limiter.cleanupBuckets()
	assert.Len(t, limiter.buckets, 1)
}

func TestNewLimiter_NilConfig(t *testing.T) {
	limiter := NewLimiter(nil)
	defer limiter.Stop()

	allowed, info := limiter.Allow("127.0.0.1", "/p", "GET")
	assert.True(t, allowed)
	assert.Equal(t, 600, info.Limit)
}

func TestLimiter_StopIsIdempotent(t *testing.T) {
	limiter := NewLimiter(&Config{Enabled: true, DefaultLimit: 1, DefaultWindow: time.Minute, CleanupInterval: time.Minute})
	limiter.Stop()
	assert.NotPanics(t, limiter.Stop)
}

func TestMatchEndpoint(t *testing.T) {
	configs := DefaultEndpointConfigs()

	assert.Equal(t, "/v1/rematches", MatchEndpoint("/v1/rematches", "POST", configs).Path)
	assert.Equal(t, "/v1/jobs/", MatchEndpoint("/v1/jobs/123/index", "POST", configs).Path)
	assert.Nil(t, MatchEndpoint("/v1/rematches", "GET", configs))
	assert.Zero(t, MatchEndpoint("/health", "GET", configs).Limit)
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("REMATCH_RATE_LIMIT_DEFAULT_LIMIT", "42")
	t.Setenv("REMATCH_RATE_LIMIT_EXEMPT", "10.0.0.1, 10.0.0.2")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.True(t, cfg.Enabled)
	assert.Equal(t, 42, cfg.DefaultLimit)
	assert.Equal(t, time.Minute, cfg.DefaultWindow)
	assert.True(t, cfg.Exempt["10.0.0.2"])
	assert.NotEmpty(t, cfg.EndpointConfigs)

	t.Setenv("REMATCH_RATE_LIMIT_ENABLED", "false")
	cfg, err = LoadConfig()
	require.NoError(t, err)
	assert.False(t, cfg.Enabled)
}
