package locker

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisLocker implements DistributedLocker using Redsync (Redlock).
type RedisLocker struct {
	rs         *redsync.Redsync
	logger     *zap.Logger
	tries      int
	retryDelay time.Duration
	mutexes    map[string]*redsync.Mutex
	mu         sync.Mutex
}

// Option configures a RedisLocker.
type Option func(*RedisLocker)

// WithTries sets how many times Acquire tries before reporting contention.
// The default of 1 makes Acquire non-blocking.
func WithTries(n int) Option {
	return func(r *RedisLocker) {
		if n > 0 {
			r.tries = n
		}
	}
}

// WithRetryDelay sets the pause between acquisition attempts.
func WithRetryDelay(d time.Duration) Option {
	return func(r *RedisLocker) {
		if d > 0 {
			r.retryDelay = d
		}
	}
}

// NewRedisLocker creates a new Redis-based distributed locker using Redsync.
//
// The sweep scheduler uses the default single try as a leader lock; the rate
// limiter passes WithTries so callers for the same key queue up briefly.
func NewRedisLocker(client *redis.Client, logger *zap.Logger, opts ...Option) *RedisLocker {
	pool := goredis.NewPool(client)
	rs := redsync.New(pool)

	r := &RedisLocker{
		rs:         rs,
		logger:     logger,
		tries:      1,
		retryDelay: 20 * time.Millisecond,
		mutexes:    make(map[string]*redsync.Mutex),
	}
	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Acquire attempts to acquire a distributed lock using the Redlock algorithm.
// Returns false (not error) when the lock is still held after all tries.
func (r *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	mutex := r.rs.NewMutex(
		key,
		redsync.WithExpiry(ttl),
		redsync.WithTries(r.tries),
		redsync.WithRetryDelay(r.retryDelay),
	)

	// Try to acquire the lock
	err := mutex.LockContext(ctx)
	if err != nil {
		// Check for "lock already taken" errors
		// Redsync can return different error messages for lock contention:
		// 1. redsync.ErrFailed - Standard "lock taken" error
		// 2. Wrapped errors with message "lock already taken, locked nodes: [X]"
		if err == redsync.ErrFailed || strings.Contains(err.Error(), "lock already taken") {
			r.logger.Debug("lock already held by another instance",
				zap.String("key", key),
			)
			return false, nil
		}
		// Real errors (Redis connection issues, context cancellation, etc.)
		return false, fmt.Errorf("acquire lock %s: %w", key, err)
	}

	// Store mutex for later release
	r.mu.Lock()
	r.mutexes[key] = mutex
	r.mu.Unlock()

	r.logger.Debug("lock acquired",
		zap.String("key", key),
		zap.Duration("ttl", ttl),
	)

	return true, nil
}

// Release releases the lock if this instance owns it. Releasing a lock held
// elsewhere, or already expired, is a no-op.
func (r *RedisLocker) Release(ctx context.Context, key string) error {
	r.mu.Lock()
	mutex, exists := r.mutexes[key]
	if exists {
		delete(r.mutexes, key)
	}
	r.mu.Unlock()

	if !exists {
		r.logger.Debug("no mutex found for key, lock not owned by this instance",
			zap.String("key", key),
		)
		return nil
	}

	// Try to release the lock
	ok, err := mutex.UnlockContext(ctx)
	if err != nil {
		return fmt.Errorf("release lock %s: %w", key, err)
	}

	if ok {
		r.logger.Debug("lock released",
			zap.String("key", key),
		)
	} else {
		r.logger.Debug("lock not owned by this instance or already expired",
			zap.String("key", key),
		)
	}

	return nil
}
