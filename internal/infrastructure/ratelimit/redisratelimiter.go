package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/orris-inc/usdtvote/internal/shared/logger"
)

const defaultPollInterval = 200 * time.Millisecond

// RedisRateLimiter is a sliding-window budget shared by every replica. Each admitted call is a
// member of a sorted set scored by its timestamp.
type RedisRateLimiter struct {
	client       *redis.Client
	limit        int
	window       time.Duration
	pollInterval time.Duration
	logger       logger.Interface
}

func NewRedisRateLimiter(client *redis.Client, limit int, window time.Duration, log logger.Interface) *RedisRateLimiter {
	return &RedisRateLimiter{
		client:       client,
		limit:        limit,
		window:       window,
		pollInterval: defaultPollInterval,
		logger:       log,
	}
}

// Allow admits one call for key if the window still has room.
func (l *RedisRateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	redisKey := l.key(key)
	now := time.Now()
	windowStart := now.Add(-l.window).UnixNano()
	member := strconv.FormatInt(now.UnixNano(), 10) + ":" + uuid.NewString()

	pipe := l.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, redisKey, "0", strconv.FormatInt(windowStart, 10))
	zcard := pipe.ZCard(ctx, redisKey)
	pipe.ZAdd(ctx, redisKey, redis.Z{Score: float64(now.UnixNano()), Member: member})
	pipe.Expire(ctx, redisKey, l.window+time.Minute)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("failed to execute pipeline: %w", err)
	}

	if zcard.Val() < int64(l.limit) {
		return true, nil
	}

	// Denied calls must not consume budget.
	if err := l.client.ZRem(ctx, redisKey, member).Err(); err != nil {
		return false, fmt.Errorf("failed to release denied slot: %w", err)
	}
	return false, nil
}

// Wait polls Allow until admitted. Redis errors fail open so an outage degrades to local limiting.
func (l *RedisRateLimiter) Wait(ctx context.Context, key string) error {
	for {
		allowed, err := l.Allow(ctx, key)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			l.logger.Warnw("shared rate limiter unavailable, allowing call", "key", key, "error", err)
			return nil
		}
		if allowed {
			return nil
		}

		timer := time.NewTimer(l.pollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Used returns how many calls the current window has admitted for key.
func (l *RedisRateLimiter) Used(ctx context.Context, key string) (int64, error) {
	redisKey := l.key(key)
	windowStart := time.Now().Add(-l.window).UnixNano()

	pipe := l.client.Pipeline()
	pipe.ZRemRangeByScore(ctx, redisKey, "0", strconv.FormatInt(windowStart, 10))
	zcard := pipe.ZCard(ctx, redisKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("failed to count window: %w", err)
	}
	return zcard.Val(), nil
}

func (l *RedisRateLimiter) Reset(ctx context.Context, key string) error {
	return l.client.Del(ctx, l.key(key)).Err()
}

func (l *RedisRateLimiter) key(identifier string) string {
	return fmt.Sprintf("ratelimit:chain:%s:%s", identifier, l.window)
}
