package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// backendCase runs the same contract assertions against both backends.
func backends(t *testing.T) map[string]Allowlist {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return map[string]Allowlist{
		"memory": NewMemoryAllowlist(),
		"redis":  NewRedisAllowlist(client, "acl:"),
	}
}

func TestAllowlist_PutOwnerDelete(t *testing.T) {
	for name, list := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			if err := list.Put(ctx, "tok-1", "u1", time.Hour); err != nil {
				t.Fatalf("Put failed: %v", err)
			}

			identity, ok, err := list.Owner(ctx, "tok-1")
			if err != nil {
				t.Fatalf("Owner failed: %v", err)
			}
			if !ok || identity != "u1" {
				t.Fatalf("expected owner u1, got %q ok=%v", identity, ok)
			}

			if _, ok, _ := list.Owner(ctx, "tok-never-issued"); ok {
				t.Fatal("unknown token must not resolve")
			}

			existed, err := list.Delete(ctx, "tok-1")
			if err != nil {
				t.Fatalf("Delete failed: %v", err)
			}
			if !existed {
				t.Fatal("expected Delete to report an existing entry")
			}

			if _, ok, _ := list.Owner(ctx, "tok-1"); ok {
				t.Fatal("deleted token must not resolve")
			}

			// Deleting again is a no-op, not an error.
			existed, err = list.Delete(ctx, "tok-1")
			if err != nil {
				t.Fatalf("second Delete failed: %v", err)
			}
			if existed {
				t.Fatal("second Delete must report absence")
			}
		})
	}
}

func TestAllowlist_DeleteAllRemovesOnlyOwner(t *testing.T) {
	for name, list := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			list.Put(ctx, "u1-a", "u1", time.Hour)
			list.Put(ctx, "u1-b", "u1", time.Hour)
			list.Put(ctx, "u2-a", "u2", time.Hour)

			removed, err := list.DeleteAll(ctx, "u1")
			if err != nil {
				t.Fatalf("DeleteAll failed: %v", err)
			}
			if removed != 2 {
				t.Fatalf("expected 2 removed, got %d", removed)
			}

			if _, ok, _ := list.Owner(ctx, "u1-a"); ok {
				t.Fatal("u1 token must be gone")
			}
			if _, ok, _ := list.Owner(ctx, "u1-b"); ok {
				t.Fatal("u1 token must be gone")
			}
			if _, ok, _ := list.Owner(ctx, "u2-a"); !ok {
				t.Fatal("u2 token must survive")
			}
		})
	}
}

func TestMemoryAllowlist_LazyExpiry(t *testing.T) {
	list := NewMemoryAllowlist()
	ctx := context.Background()

	base := time.Now()
	list.now = func() time.Time { return base }

	list.Put(ctx, "tok-1", "u1", time.Minute)

	list.now = func() time.Time { return base.Add(2 * time.Minute) }

	if _, ok, _ := list.Owner(ctx, "tok-1"); ok {
		t.Fatal("expired entry must read as absent")
	}
	if existed, _ := list.Delete(ctx, "tok-1"); existed {
		t.Fatal("expired entry must delete as absent")
	}
}

func TestRedisAllowlist_TTLExpiry(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	list := NewRedisAllowlist(client, "acl:")
	ctx := context.Background()

	list.Put(ctx, "tok-1", "u1", time.Minute)
	mr.FastForward(2 * time.Minute)

	if _, ok, _ := list.Owner(ctx, "tok-1"); ok {
		t.Fatal("entry must expire with its TTL")
	}
}
