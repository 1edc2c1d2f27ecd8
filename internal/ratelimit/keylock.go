package ratelimit

import (
	"context"
	"errors"
	"sync"
	"time"

	"viral-search-service/pkg/locker"
)

// ErrLockBusy is returned when a distributed key lock could not be taken in time.
var ErrLockBusy = errors.New("rate limit key is locked")

// keyMutex hands out one mutex per key and drops it once unused,
// so distinct keys never contend.
type keyMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func newKeyMutex() *keyMutex {
	return &keyMutex{locks: make(map[string]*refMutex)}
}

func (k *keyMutex) Lock(key string) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()

	return func() {
		m.Unlock()

		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

func (k *keyMutex) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()

	return len(k.locks)
}

// DistributedKeyLocker adapts a locker.DistributedLocker to KeyLocker.
// The locker should be built with locker.WithTries so contended keys wait.
type DistributedKeyLocker struct {
	locker locker.DistributedLocker
	prefix string
	ttl    time.Duration
}

// NewDistributedKeyLocker creates a KeyLocker whose locks expire after ttl.
func NewDistributedKeyLocker(l locker.DistributedLocker, prefix string, ttl time.Duration) *DistributedKeyLocker {
	return &DistributedKeyLocker{locker: l, prefix: prefix, ttl: ttl}
}

func (d *DistributedKeyLocker) Lock(ctx context.Context, key string) (func(), error) {
	lockKey := d.prefix + ":lock:" + key

	acquired, err := d.locker.Acquire(ctx, lockKey, d.ttl)
	if err != nil {
		return nil, err
	}
	if !acquired {
		return nil, ErrLockBusy
	}

	return func() {
		_ = d.locker.Release(context.WithoutCancel(ctx), lockKey)
	}, nil
}
