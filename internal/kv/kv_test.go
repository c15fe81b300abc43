package kv_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/papertrail/papertrail/internal/kv"
)

func newStore(t *testing.T, ttl time.Duration) (*kv.Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return kv.New(client, ttl), mr
}

func TestSetGetBytes(t *testing.T) {
	store, _ := newStore(t, time.Hour)
	ctx := context.Background()

	if err := store.SetBytes(ctx, "blob:x", []byte("hello")); err != nil {
		t.Fatalf("SetBytes failed: %v", err)
	}
	got, ok, err := store.GetBytes(ctx, "blob:x")
	if err != nil {
		t.Fatalf("GetBytes failed: %v", err)
	}
	if !ok || string(got) != "hello" {
		t.Fatalf("got %q ok=%v, want hello ok=true", got, ok)
	}

	_, ok, err = store.GetBytes(ctx, "blob:missing")
	if err != nil {
		t.Fatalf("GetBytes missing key errored: %v", err)
	}
	if ok {
		t.Fatal("missing key reported as present")
	}
}

func TestWritesRefreshTTL(t *testing.T) {
	store, mr := newStore(t, time.Minute)
	ctx := context.Background()

	if err := store.HSet(ctx, "jobs:a", map[string]any{"id": "a"}); err != nil {
		t.Fatalf("HSet failed: %v", err)
	}
	mr.FastForward(50 * time.Second)

	// Second write must reset the clock.
	if err := store.HSet(ctx, "jobs:a", map[string]any{"status": "streaming"}); err != nil {
		t.Fatalf("HSet failed: %v", err)
	}
	mr.FastForward(50 * time.Second)

	if !mr.Exists("jobs:a") {
		t.Fatal("key expired despite recent write")
	}

	mr.FastForward(time.Minute)
	if mr.Exists("jobs:a") {
		t.Fatal("key survived past its TTL")
	}
}

func TestRPushOrderAndLRange(t *testing.T) {
	store, _ := newStore(t, time.Hour)
	ctx := context.Background()

	for _, v := range []string{"one", "two", "three"} {
		if err := store.RPush(ctx, "claims:j", []byte(v)); err != nil {
			t.Fatalf("RPush failed: %v", err)
		}
	}
	got, err := store.LRange(ctx, "claims:j")
	if err != nil {
		t.Fatalf("LRange failed: %v", err)
	}
	want := []string{"one", "two", "three"}
	if len(got) != len(want) {
		t.Fatalf("got %d entries, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("entry %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestTouchMissingKey(t *testing.T) {
	store, _ := newStore(t, time.Hour)

	ok, err := store.Touch(context.Background(), "jobs:missing")
	if err != nil {
		t.Fatalf("Touch failed: %v", err)
	}
	if ok {
		t.Fatal("Touch reported success for a missing key")
	}
}

func TestIncrFixedWindow(t *testing.T) {
	store, mr := newStore(t, time.Hour)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		n, err := store.Incr(ctx, "ratelimit:1.2.3.4", 10*time.Second)
		if err != nil {
			t.Fatalf("Incr failed: %v", err)
		}
		if n != int64(i) {
			t.Fatalf("Incr = %d, want %d", n, i)
		}
	}

	// A new window starts after expiry.
	mr.FastForward(11 * time.Second)
	n, err := store.Incr(ctx, "ratelimit:1.2.3.4", 10*time.Second)
	if err != nil {
		t.Fatalf("Incr failed: %v", err)
	}
	if n != 1 {
		t.Fatalf("counter did not reset after window, got %d", n)
	}
}
