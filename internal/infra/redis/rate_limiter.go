package redis

import (
	"context"
	"time"

	"pos-activation/internal/domain/ports/adapter"
)

var _ adapter.AttemptLimiter = (*RateLimiter)(nil)

// RateLimiter is a fixed-window counter: INCR, and EXPIRE on the first hit.
// A refused call re-arms a window that lost its expiry, so a failed EXPIRE
// cannot leave the counter stuck above the limit.
type RateLimiter struct {
	client RedisClient
	prefix string
}

func NewRateLimiter(client RedisClient) *RateLimiter {
	return &RateLimiter{client: client, prefix: "rate_limit:"}
}

func (r *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	key = r.prefix + key
	count, err := r.client.Incr(ctx, key)
	if err != nil {
		return false, err
	}

	if count == 1 {
		err = r.client.Expire(ctx, key, window)
		if err != nil {
			return false, err
		}
	}

	if count > int64(limit) {
		if err := r.rearm(ctx, key, window); err != nil {
			return false, err
		}
		return false, nil
	}

	return true, nil
}

func (r *RateLimiter) rearm(ctx context.Context, key string, window time.Duration) error {
	ttl, err := r.client.TTL(ctx, key)
	if err != nil {
		return err
	}
	if ttl >= 0 {
		return nil
	}
	return r.client.Expire(ctx, key, window)
}
