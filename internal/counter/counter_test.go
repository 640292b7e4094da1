package counter

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedisStore(t *testing.T) (*miniredis.Miniredis, *RedisStore) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return mr, NewRedisStore(client, "ctr:")
}

func TestMemoryStore_SequentialIncrements(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	for want := int64(1); want <= 5; want++ {
		got, err := s.Increment(ctx, "k", time.Minute)
		if err != nil {
			t.Fatalf("Increment failed: %v", err)
		}
		if got != want {
			t.Fatalf("expected count %d, got %d", want, got)
		}
	}
}

func TestMemoryStore_ConcurrentIncrementsCountExactly(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	const n = 200
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			if _, err := s.Increment(ctx, "k", time.Minute); err != nil {
				t.Errorf("Increment failed: %v", err)
			}
		}()
	}
	wg.Wait()

	got, err := s.Increment(ctx, "k", time.Minute)
	if err != nil {
		t.Fatalf("final Increment failed: %v", err)
	}
	if got != n+1 {
		t.Fatalf("expected count %d after %d concurrent increments, got %d", n+1, n, got)
	}
}

func TestMemoryStore_WindowResetsAfterExpiry(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	base := time.Now()
	s.now = func() time.Time { return base }

	for i := 0; i < 3; i++ {
		if _, err := s.Increment(ctx, "k", time.Minute); err != nil {
			t.Fatalf("Increment failed: %v", err)
		}
	}

	// Advance past the window boundary; the next increment starts fresh.
	s.now = func() time.Time { return base.Add(time.Minute + time.Millisecond) }

	got, err := s.Increment(ctx, "k", time.Minute)
	if err != nil {
		t.Fatalf("Increment after expiry failed: %v", err)
	}
	if got != 1 {
		t.Fatalf("expected fresh window count 1, got %d", got)
	}
}

func TestMemoryStore_TTLAndReset(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	base := time.Now()
	s.now = func() time.Time { return base }

	if _, err := s.Increment(ctx, "k", time.Minute); err != nil {
		t.Fatalf("Increment failed: %v", err)
	}

	ttl, err := s.TTL(ctx, "k")
	if err != nil {
		t.Fatalf("TTL failed: %v", err)
	}
	if ttl != time.Minute {
		t.Fatalf("expected TTL 1m, got %v", ttl)
	}

	if ttl, _ := s.TTL(ctx, "absent"); ttl != 0 {
		t.Fatalf("expected zero TTL for absent key, got %v", ttl)
	}

	if err := s.Reset(ctx, "k"); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	if ttl, _ := s.TTL(ctx, "k"); ttl != 0 {
		t.Fatalf("expected zero TTL after reset, got %v", ttl)
	}

	// Resetting an absent key is a no-op.
	if err := s.Reset(ctx, "k"); err != nil {
		t.Fatalf("second Reset failed: %v", err)
	}
}

func TestMemoryStore_PeekDoesNotIncrement(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if got, _ := s.Peek(ctx, "k"); got != 0 {
		t.Fatalf("expected zero for absent key, got %d", got)
	}

	s.Increment(ctx, "k", time.Minute)
	s.Increment(ctx, "k", time.Minute)

	for i := 0; i < 3; i++ {
		got, err := s.Peek(ctx, "k")
		if err != nil {
			t.Fatalf("Peek failed: %v", err)
		}
		if got != 2 {
			t.Fatalf("expected count 2, got %d", got)
		}
	}
}

func TestRedisStore_Peek(t *testing.T) {
	mr, s := newTestRedisStore(t)
	ctx := context.Background()

	if got, _ := s.Peek(ctx, "k"); got != 0 {
		t.Fatalf("expected zero for absent key, got %d", got)
	}

	s.Increment(ctx, "k", time.Minute)
	s.Increment(ctx, "k", time.Minute)

	got, err := s.Peek(ctx, "k")
	if err != nil {
		t.Fatalf("Peek failed: %v", err)
	}
	if got != 2 {
		t.Fatalf("expected count 2, got %d", got)
	}

	mr.FastForward(2 * time.Minute)
	if got, _ := s.Peek(ctx, "k"); got != 0 {
		t.Fatalf("expected zero after window expiry, got %d", got)
	}
}

func TestRedisStore_IncrementAndWindowExpiry(t *testing.T) {
	mr, s := newTestRedisStore(t)
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		got, err := s.Increment(ctx, "k", time.Minute)
		if err != nil {
			t.Fatalf("Increment failed: %v", err)
		}
		if got != want {
			t.Fatalf("expected count %d, got %d", want, got)
		}
	}

	ttl, err := s.TTL(ctx, "k")
	if err != nil {
		t.Fatalf("TTL failed: %v", err)
	}
	if ttl <= 0 || ttl > time.Minute {
		t.Fatalf("expected TTL within (0, 1m], got %v", ttl)
	}

	mr.FastForward(time.Minute + time.Second)

	got, err := s.Increment(ctx, "k", time.Minute)
	if err != nil {
		t.Fatalf("Increment after expiry failed: %v", err)
	}
	if got != 1 {
		t.Fatalf("expected fresh window count 1, got %d", got)
	}
}

func TestRedisStore_Reset(t *testing.T) {
	_, s := newTestRedisStore(t)
	ctx := context.Background()

	if _, err := s.Increment(ctx, "k", time.Minute); err != nil {
		t.Fatalf("Increment failed: %v", err)
	}
	if err := s.Reset(ctx, "k"); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}

	got, err := s.Increment(ctx, "k", time.Minute)
	if err != nil {
		t.Fatalf("Increment failed: %v", err)
	}
	if got != 1 {
		t.Fatalf("expected count 1 after reset, got %d", got)
	}
}
