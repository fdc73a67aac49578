// Package ratelimit throttles API clients per minute, in Redis when one is
// configured and in process memory otherwise.
package ratelimit

import (
	"context"
	"time"
)

// Decision is the outcome of a single rate check
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// Limiter decides whether a client identified by key may proceed
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}
