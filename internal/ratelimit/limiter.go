// Package ratelimit implements a sliding-window request limiter keyed by client.
package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// AnonymousKey is used for callers without an identifiable address.
const AnonymousKey = "anonymous"

// Defaults used when Config fields are not positive.
const (
	DefaultMaxRequests = 50
	DefaultWindow      = time.Hour
)

// Config holds limiter settings. It is fixed at construction.
type Config struct {
	MaxRequests int
	Window      time.Duration
}

// Decision is the outcome of a Check.
type Decision struct {
	Allowed   bool
	Remaining int
	// ResetAt is when the oldest counted request leaves the window.
	// Zero when the key has no history.
	ResetAt time.Time
}

// KeyLocker serializes access to a single key across processes.
type KeyLocker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// Limiter counts requests per key inside a trailing window.
type Limiter struct {
	cfg    Config
	store  Store
	local  *keyMutex
	remote KeyLocker
	now    func() time.Time
	logger *zap.Logger
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithStore replaces the default in-memory store.
func WithStore(s Store) Option {
	return func(l *Limiter) { l.store = s }
}

// WithKeyLocker adds a cross-process lock taken after the local key lock.
func WithKeyLocker(k KeyLocker) Option {
	return func(l *Limiter) { l.remote = k }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

// New creates a Limiter. Without options it keeps state in process memory.
func New(cfg Config, logger *zap.Logger, opts ...Option) *Limiter {
	if cfg.MaxRequests <= 0 {
		cfg.MaxRequests = DefaultMaxRequests
	}
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}

	l := &Limiter{
		cfg:    cfg,
		store:  NewMemoryStore(),
		local:  newKeyMutex(),
		now:    time.Now,
		logger: logger,
	}
	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Config returns the limiter settings.
func (l *Limiter) Config() Config {
	return l.cfg
}

// Check admits the request for key if fewer than MaxRequests were counted in
// the window, recording it. A denied request is not recorded.
func (l *Limiter) Check(ctx context.Context, key string) (Decision, error) {
	key = normalizeKey(key)

	unlock, err := l.lock(ctx, key)
	if err != nil {
		return Decision{}, err
	}
	defer unlock()

	now := l.now()
	stamps, err := l.store.Get(ctx, key)
	if err != nil {
		return Decision{}, fmt.Errorf("reading window for %s: %w", key, err)
	}

	valid := l.prune(stamps, now)
	if len(valid) >= l.cfg.MaxRequests {
		l.logger.Debug("rate limit exceeded",
			zap.String("key", key),
			zap.Int("count", len(valid)),
		)

		return Decision{
			Allowed:   false,
			Remaining: 0,
			ResetAt:   l.resetAt(valid),
		}, nil
	}

	valid = append(valid, now)
	if err := l.store.Set(ctx, key, valid, l.cfg.Window); err != nil {
		return Decision{}, fmt.Errorf("recording request for %s: %w", key, err)
	}

	return Decision{
		Allowed:   true,
		Remaining: l.cfg.MaxRequests - len(valid),
		ResetAt:   l.resetAt(valid),
	}, nil
}

// Remaining returns the quota left for key without recording anything.
func (l *Limiter) Remaining(ctx context.Context, key string) (int, error) {
	valid, err := l.valid(ctx, normalizeKey(key))
	if err != nil {
		return 0, err
	}

	return max(0, l.cfg.MaxRequests-len(valid)), nil
}

// ResetTime returns when the oldest counted request for key expires,
// or the zero time if the key has no history in the window.
func (l *Limiter) ResetTime(ctx context.Context, key string) (time.Time, error) {
	valid, err := l.valid(ctx, normalizeKey(key))
	if err != nil {
		return time.Time{}, err
	}

	return l.resetAt(valid), nil
}

// Sweep removes keys whose timestamps all fell out of the window and
// compacts the rest. It returns the number of deleted keys.
func (l *Limiter) Sweep(ctx context.Context) (int, error) {
	keys, err := l.store.Keys(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing keys: %w", err)
	}

	deleted := 0
	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return deleted, err
		}

		removed, err := l.sweepKey(ctx, key)
		if err != nil {
			l.logger.Warn("sweep key failed", zap.String("key", key), zap.Error(err))
			continue
		}
		if removed {
			deleted++
		}
	}

	return deleted, nil
}

func (l *Limiter) sweepKey(ctx context.Context, key string) (bool, error) {
	unlock, err := l.lock(ctx, key)
	if err != nil {
		return false, err
	}
	defer unlock()

	stamps, err := l.store.Get(ctx, key)
	if err != nil {
		return false, err
	}

	valid := l.prune(stamps, l.now())
	switch {
	case len(valid) == 0:
		return true, l.store.Delete(ctx, key)
	case len(valid) < len(stamps):
		return false, l.store.Set(ctx, key, valid, l.cfg.Window)
	default:
		return false, nil
	}
}

func (l *Limiter) valid(ctx context.Context, key string) ([]time.Time, error) {
	stamps, err := l.store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("reading window for %s: %w", key, err)
	}

	return l.prune(stamps, l.now()), nil
}

// prune keeps timestamps younger than the window.
func (l *Limiter) prune(stamps []time.Time, now time.Time) []time.Time {
	valid := make([]time.Time, 0, len(stamps)+1)
	for _, ts := range stamps {
		if now.Sub(ts) < l.cfg.Window {
			valid = append(valid, ts)
		}
	}

	return valid
}

func (l *Limiter) resetAt(valid []time.Time) time.Time {
	if len(valid) == 0 {
		return time.Time{}
	}

	oldest := valid[0]
	for _, ts := range valid[1:] {
		if ts.Before(oldest) {
			oldest = ts
		}
	}

	return oldest.Add(l.cfg.Window)
}

func (l *Limiter) lock(ctx context.Context, key string) (func(), error) {
	unlockLocal := l.local.Lock(key)
	if l.remote == nil {
		return unlockLocal, nil
	}

	unlockRemote, err := l.remote.Lock(ctx, key)
	if err != nil {
		unlockLocal()

		return nil, fmt.Errorf("locking %s: %w", key, err)
	}

	return func() {
		unlockRemote()
		unlockLocal()
	}, nil
}

func normalizeKey(key string) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return AnonymousKey
	}

	return key
}
