package redis

import (
	"context"
	"fmt"
	"time"
)

// RateLimiter is a fixed-window counter over Redis INCR+EXPIRE.
type RateLimiter struct {
	client RedisClient
}

func NewRateLimiter(client RedisClient) *RateLimiter {
	return &RateLimiter{client: client}
}

// Allow increments the window counter for key and reports whether the caller
// is still under limit. Errors are returned to the caller, which decides the
// fail-open or fail-closed policy.
func (r *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	count, err := r.client.Incr(ctx, key)
	if err != nil {
		return false, err
	}

	if count == 1 {
		if err := r.client.Expire(ctx, key, window); err != nil {
			return false, err
		}
	}

	return count <= int64(limit), nil
}

// EndpointKey scopes a rate-limit window to a client IP and route.
func EndpointKey(clientIP, route string) string {
	return fmt.Sprintf("rate_limit:%s:%s", clientIP, route)
}
