package jobs

import (
	"time"

	"github.com/riverqueue/river/rivertype"
)

// RetryPolicy schedules retries at base * 2^(attempt-1), capped at max
type RetryPolicy struct {
	Base time.Duration
	Max  time.Duration
	now  func() time.Time
}

// NewRetryPolicy creates an exponential backoff policy
func NewRetryPolicy(base, max time.Duration) *RetryPolicy {
	return &RetryPolicy{Base: base, Max: max, now: time.Now}
}

// NextRetry implements river.ClientRetryPolicy
func (p *RetryPolicy) NextRetry(job *rivertype.JobRow) time.Time {
	return p.now().Add(p.Backoff(job.Attempt))
}

// Backoff returns the delay after the given failed attempt (1-based)
func (p *RetryPolicy) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := p.Base
	for i := 1; i < attempt; i++ {
		if delay >= p.Max/2 {
			return p.Max
		}
		delay *= 2
	}
	if delay > p.Max {
		return p.Max
	}
	return delay
}
