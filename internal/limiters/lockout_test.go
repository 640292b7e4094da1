package limiters

import (
	"context"
	"testing"
	"time"

	"github.com/fraudlens/accesscore/internal/counter"
)

func testGuard(threshold int) *LockoutGuard {
	return NewLockoutGuard(counter.NewMemoryStore(), LockoutConfig{
		Threshold: threshold,
		Window:    15 * time.Minute,
	})
}

func TestLockout_ThresholdReached(t *testing.T) {
	g := testGuard(5)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		hit, err := g.RecordFailure(ctx, "user@example.com")
		if err != nil {
			t.Fatalf("RecordFailure %d failed: %v", i+1, err)
		}
		if hit {
			t.Fatalf("failure %d should not reach threshold", i+1)
		}
	}

	hit, err := g.RecordFailure(ctx, "user@example.com")
	if err != nil {
		t.Fatalf("RecordFailure failed: %v", err)
	}
	if !hit {
		t.Fatal("fifth failure should reach threshold")
	}

	locked, remaining, err := g.Locked(ctx, "user@example.com")
	if err != nil {
		t.Fatalf("Locked failed: %v", err)
	}
	if !locked {
		t.Fatal("expected identity to be locked")
	}
	if remaining != 0 {
		t.Fatalf("expected zero remaining attempts, got %d", remaining)
	}
}

func TestLockout_RemainingAttempts(t *testing.T) {
	g := testGuard(5)
	ctx := context.Background()

	g.RecordFailure(ctx, "user@example.com")
	g.RecordFailure(ctx, "user@example.com")

	locked, remaining, err := g.Locked(ctx, "user@example.com")
	if err != nil {
		t.Fatalf("Locked failed: %v", err)
	}
	if locked {
		t.Fatal("two failures should not lock")
	}
	if remaining != 3 {
		t.Fatalf("expected 3 remaining attempts, got %d", remaining)
	}
}

func TestLockout_ClearResetsCounter(t *testing.T) {
	g := testGuard(3)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		g.RecordFailure(ctx, "user@example.com")
	}
	if locked, _, _ := g.Locked(ctx, "user@example.com"); !locked {
		t.Fatal("expected lock before clear")
	}

	if err := g.Clear(ctx, "user@example.com"); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}

	locked, remaining, err := g.Locked(ctx, "user@example.com")
	if err != nil {
		t.Fatalf("Locked failed: %v", err)
	}
	if locked {
		t.Fatal("expected unlock after clear")
	}
	if remaining != 3 {
		t.Fatalf("expected full budget after clear, got %d", remaining)
	}
}

func TestLockout_IdentityNormalization(t *testing.T) {
	g := testGuard(2)
	ctx := context.Background()

	g.RecordFailure(ctx, "User@Example.com")
	hit, err := g.RecordFailure(ctx, "  user@example.com")
	if err != nil {
		t.Fatalf("RecordFailure failed: %v", err)
	}
	if !hit {
		t.Fatal("case and whitespace variants should share one failure budget")
	}
}
