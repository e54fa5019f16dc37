package ratelimit

import (
	"context"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Limiter defines the rate limiting operations used by the HTTP layer.
type Limiter interface {
	// Allow reports whether one more request under key fits in the
	// current window.
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// FixedWindowLimiter counts requests per key in fixed time windows backed
// by Redis, so the limit holds across every node serving the same wall.
type FixedWindowLimiter struct {
	redisClient *redis.Client
	logger      *zap.Logger
	failOpen    bool // allow requests when Redis is unavailable
}

// NewFixedWindowLimiter creates a limiter on top of the given Redis client.
func NewFixedWindowLimiter(redisClient *redis.Client, logger *zap.Logger, failOpen bool) *FixedWindowLimiter {
	return &FixedWindowLimiter{
		redisClient: redisClient,
		logger:      logger,
		failOpen:    failOpen,
	}
}

// Allow increments the counter for the key's current window and checks it
// against the limit. INCR and EXPIRE run in one pipeline so concurrent
// callers cannot slip past the limit.
func (l *FixedWindowLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	bucketKey := l.bucketKey(key, time.Now(), window)

	pipe := l.redisClient.Pipeline()
	incrCmd := pipe.Incr(ctx, bucketKey)
	pipe.Expire(ctx, bucketKey, window+time.Second)

	if _, err := pipe.Exec(ctx); err != nil {
		if l.failOpen {
			l.logger.Warn("rate limit check failed, allowing request",
				zap.String("key", key),
				zap.Error(err),
			)
			return true, nil
		}
		return false, fmt.Errorf("rate limit check failed: %w", err)
	}

	return incrCmd.Val() <= int64(limit), nil
}

// bucketKey buckets time into window-sized slots so all nodes agree on
// the window boundaries without coordination.
func (l *FixedWindowLimiter) bucketKey(key string, now time.Time, window time.Duration) string {
	slot := now.UnixNano() / int64(window)
	return fmt.Sprintf("ratelimit:%s:%d", key, slot)
}
