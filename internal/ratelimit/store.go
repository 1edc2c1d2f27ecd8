package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Store keeps the request timestamps of each key.
// Implementations must be safe for concurrent use. The limiter serializes
// writers of a single key, so stores need no compare-and-swap semantics.
type Store interface {
	Get(ctx context.Context, key string) ([]time.Time, error)
	// Set replaces the timestamps of key. ttl is a hint for stores that can
	// expire idle keys on their own.
	Set(ctx context.Context, key string, stamps []time.Time, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context) ([]string, error)
}

// MemoryStore is a process-lifetime Store.
type MemoryStore struct {
	mu      sync.RWMutex
	windows map[string][]time.Time
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{windows: make(map[string][]time.Time)}
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stamps := s.windows[key]
	if len(stamps) == 0 {
		return nil, nil
	}

	out := make([]time.Time, len(stamps))
	copy(out, stamps)

	return out, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, stamps []time.Time, _ time.Duration) error {
	cp := make([]time.Time, len(stamps))
	copy(cp, stamps)

	s.mu.Lock()
	s.windows[key] = cp
	s.mu.Unlock()

	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.windows, key)
	s.mu.Unlock()

	return nil
}

func (s *MemoryStore) Keys(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.windows))
	for k := range s.windows {
		keys = append(keys, k)
	}

	return keys, nil
}

// Len returns the number of tracked keys.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.windows)
}
