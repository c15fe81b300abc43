// Package testutil provides shared helpers for package tests.
package testutil

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/papertrail/papertrail/internal/kv"
)

// NewStore returns a kv.Store backed by an in-process miniredis. The
// miniredis handle is returned too so tests can fast-forward TTLs.
func NewStore(t *testing.T, ttl time.Duration) (*kv.Store, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return kv.New(client, ttl), mr
}
