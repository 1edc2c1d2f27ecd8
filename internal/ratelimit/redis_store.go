package ratelimit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps windows in Redis so several instances share a quota.
// Each key expires with the window, so idle clients vanish without a sweep.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a RedisStore namespacing keys under prefix.
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]time.Time, error) {
	data, err := s.client.Get(ctx, s.buildKey(key)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting window: %w", err)
	}

	var millis []int64
	if err := json.Unmarshal(data, &millis); err != nil {
		return nil, fmt.Errorf("decoding window: %w", err)
	}

	stamps := make([]time.Time, len(millis))
	for i, ms := range millis {
		stamps[i] = time.UnixMilli(ms)
	}

	return stamps, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, stamps []time.Time, ttl time.Duration) error {
	millis := make([]int64, len(stamps))
	for i, ts := range stamps {
		millis[i] = ts.UnixMilli()
	}

	data, err := json.Marshal(millis)
	if err != nil {
		return fmt.Errorf("encoding window: %w", err)
	}

	if err := s.client.Set(ctx, s.buildKey(key), data, ttl).Err(); err != nil {
		return fmt.Errorf("setting window: %w", err)
	}

	return nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.buildKey(key)).Err(); err != nil {
		return fmt.Errorf("deleting window: %w", err)
	}

	return nil
}

// Keys lists tracked keys using SCAN.
func (s *RedisStore) Keys(ctx context.Context) ([]string, error) {
	prefix := s.prefix + ":w:"
	iter := s.client.Scan(ctx, 0, prefix+"*", 0).Iterator()

	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, strings.TrimPrefix(iter.Val(), prefix))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scanning windows: %w", err)
	}

	return keys, nil
}

func (s *RedisStore) buildKey(key string) string {
	return s.prefix + ":w:" + key
}
