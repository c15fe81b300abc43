// Package kv is a thin typed facade over Redis. Every write refreshes the
// shared persistence TTL, so any key that keeps being used keeps living.
package kv

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store wraps a Redis client with the process-wide persistence TTL.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

// Open connects to Redis at url and fails fast if the server is unreachable.
func Open(ctx context.Context, url string, ttl time.Duration) (*Store, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return &Store{client: client, ttl: ttl}, nil
}

// New wraps an existing client. Used by tests with miniredis.
func New(client *redis.Client, ttl time.Duration) *Store {
	return &Store{client: client, ttl: ttl}
}

// TTL returns the shared persistence TTL.
func (s *Store) TTL() time.Duration {
	return s.ttl
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.client.Close()
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// SetBytes stores an opaque value with the shared TTL.
func (s *Store) SetBytes(ctx context.Context, key string, val []byte) error {
	return s.client.Set(ctx, key, val, s.ttl).Err()
}

// GetBytes returns the value at key, or ok=false when absent.
func (s *Store) GetBytes(ctx context.Context, key string) ([]byte, bool, error) {
	raw, err := s.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return raw, true, nil
}

// HSet writes hash fields and refreshes the key TTL.
func (s *Store) HSet(ctx context.Context, key string, fields map[string]any) error {
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key, fields)
	pipe.Expire(ctx, key, s.ttl)
	_, err := pipe.Exec(ctx)
	return err
}

// HGetAll returns all hash fields. A missing key yields an empty map.
func (s *Store) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	return s.client.HGetAll(ctx, key).Result()
}

// RPush appends to a list and refreshes the key TTL.
func (s *Store) RPush(ctx context.Context, key string, val []byte) error {
	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, key, val)
	pipe.Expire(ctx, key, s.ttl)
	_, err := pipe.Exec(ctx)
	return err
}

// LRange returns the whole list at key in insertion order.
func (s *Store) LRange(ctx context.Context, key string) ([]string, error) {
	return s.client.LRange(ctx, key, 0, -1).Result()
}

// Touch refreshes the TTL of an existing key. Returns false when the key
// does not exist.
func (s *Store) Touch(ctx context.Context, key string) (bool, error) {
	return s.client.Expire(ctx, key, s.ttl).Result()
}

// Del removes keys and returns how many existed.
func (s *Store) Del(ctx context.Context, keys ...string) (int64, error) {
	return s.client.Del(ctx, keys...).Result()
}

// KeyTTL returns the remaining lifetime of a key.
func (s *Store) KeyTTL(ctx context.Context, key string) (time.Duration, error) {
	return s.client.TTL(ctx, key).Result()
}

// Incr increments a counter key; used by the fixed-window rate limiter.
// The first increment of a window sets the window expiry.
func (s *Store) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	n, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if n == 1 {
		_ = s.client.Expire(ctx, key, window).Err()
	}
	return n, nil
}
