package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// runLockKeyPrefix is the prefix for all job run-lock keys
const runLockKeyPrefix = "run_lock:"

// releaseRunLockScript deletes the lock only if this instance still owns it.
var releaseRunLockScript = redis.NewScript(`
	if redis.call('GET', KEYS[1]) == ARGV[1] then
		return redis.call('DEL', KEYS[1])
	end
	return 0
`)

// RunLock keeps a periodic job to one replica at a time. The TTL bounds how long a crashed
// holder can block the others.
type RunLock struct {
	client *redis.Client
	owner  string
}

// NewRunLock creates a lock handle with a per-process owner token.
func NewRunLock(client *redis.Client) *RunLock {
	return &RunLock{
		client: client,
		owner:  uuid.NewString(),
	}
}

// buildKey builds the Redis key for a job lock
// Format: run_lock:{job}
func (l *RunLock) buildKey(job string) string {
	return runLockKeyPrefix + job
}

// TryAcquire atomically takes the lock for job using SetNX.
// Returns false if another instance holds it.
func (l *RunLock) TryAcquire(ctx context.Context, job string, ttl time.Duration) (bool, error) {
	acquired, err := l.client.SetNX(ctx, l.buildKey(job), l.owner, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire run lock: %w", err)
	}
	return acquired, nil
}

// Release drops the lock if this instance holds it. Releasing a lock that expired or was taken
// over is not an error.
func (l *RunLock) Release(ctx context.Context, job string) error {
	if err := releaseRunLockScript.Run(ctx, l.client, []string{l.buildKey(job)}, l.owner).Err(); err != nil {
		return fmt.Errorf("failed to release run lock: %w", err)
	}
	return nil
}

// Owner returns the token this instance writes into lock keys.
func (l *RunLock) Owner() string {
	return l.owner
}
