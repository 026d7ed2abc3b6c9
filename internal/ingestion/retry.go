package ingestion

import (
	"math"
	"time"
)

// RetryPolicy is pure data consulted per chunk, not per batch (spec §4.3).
type RetryPolicy struct {
	MaxAttempts       int
	BackoffMultiplier float64
	MaxBackoff        time.Duration
}

// DefaultRetryPolicy mirrors the host's INGESTION_MAX_ATTEMPTS /
// INGESTION_BACKOFF_MULTIPLIER / INGESTION_MAX_BACKOFF defaults.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:       3,
		BackoffMultiplier: 2.0,
		MaxBackoff:        60 * time.Second,
	}
}

// ShouldRetry reports whether another attempt should be made. The default
// policy ignores the error's kind entirely: attempt < max_attempts.
func (p RetryPolicy) ShouldRetry(attempt int, err error) bool {
	_ = err
	return attempt < p.MaxAttempts
}

// BackoffDelay computes min(2^attempt * multiplier, MaxBackoff).
func (p RetryPolicy) BackoffDelay(attempt int) time.Duration {
	max := p.MaxBackoff
	if max <= 0 {
		max = 60 * time.Second
	}
	seconds := math.Pow(2, float64(attempt)) * p.BackoffMultiplier
	d := time.Duration(seconds * float64(time.Second))
	if d > max {
		return max
	}
	return d
}
