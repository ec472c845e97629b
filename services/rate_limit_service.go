package services

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimiter is the contract for request rate limiting.
type RateLimiter interface {
	// CheckLimit reports whether the key is under its limit for the window.
	// When the limit is exceeded the returned duration is the time until
	// the window resets.
	CheckLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, time.Duration, error)
}

// RateLimitService implements fixed-window rate limiting on Redis.
type RateLimitService struct {
	redis     *redis.Client
	keyPrefix string
}

func NewRateLimitService(client *redis.Client) *RateLimitService {
	return &RateLimitService{
		redis:     client,
		keyPrefix: "packlane:ratelimit:",
	}
}

func (s *RateLimitService) CheckLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, time.Duration, error) {
	rKey := s.keyPrefix + key

	pipe := s.redis.Pipeline()
	incr := pipe.Incr(ctx, rKey)
	pipe.Expire(ctx, rKey, window)

	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, err
	}

	if incr.Val() > int64(limit) {
		ttl, err := s.redis.TTL(ctx, rKey).Result()
		if err != nil {
			return false, 0, err
		}
		return false, ttl, nil
	}

	return true, 0, nil
}
