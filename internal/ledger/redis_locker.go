package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

const redisLockRetryInterval = 100 * time.Millisecond

// RedisLocker guards the ledger across processes with a Redis lock. The lock
// covers the whole ledger, not individual keys, matching the single-writer
// counter model.
type RedisLocker struct {
	client *redislock.Client
	key    string
	ttl    time.Duration
	wait   time.Duration
}

// NewRedisLocker builds a RedisLocker on top of an existing Redis client.
func NewRedisLocker(client *redis.Client, key string, wait time.Duration) *RedisLocker {
	if wait <= 0 {
		wait = 30 * time.Second
	}
	if key == "" {
		key = "ledger:counters:lock"
	}
	return &RedisLocker{
		client: redislock.New(client),
		key:    key,
		ttl:    wait + 10*time.Second,
		wait:   wait,
	}
}

// Acquire implements Locker.
func (l *RedisLocker) Acquire(ctx context.Context) (func(), error) {
	retries := int(l.wait / redisLockRetryInterval)
	lock, err := l.client.Obtain(ctx, l.key, l.ttl, &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(redisLockRetryInterval), retries),
	})
	if err != nil {
		if errors.Is(err, redislock.ErrNotObtained) {
			return nil, ErrLockTimeout
		}
		return nil, err
	}
	return func() {
		// Release outlives a cancelled request context.
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = lock.Release(releaseCtx)
	}, nil
}
