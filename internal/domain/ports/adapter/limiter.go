package adapter

import (
	"context"
	"time"
)

// AttemptLimiter counts attempts per key inside a fixed window.
// Allow reports false once more than limit attempts were made in the window.
type AttemptLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// NoopLimiter allows everything; used when no Redis is configured.
type NoopLimiter struct{}

func (NoopLimiter) Allow(context.Context, string, int, time.Duration) (bool, error) { return true, nil }
