package limiters

import (
	"context"
	"strings"
	"time"

	"github.com/fraudlens/accesscore/internal/counter"
)

// LockoutConfig holds the failed-attempt threshold and the window in which
// failures accumulate.
type LockoutConfig struct {
	Threshold int
	Window    time.Duration
}

// LockoutGuard tracks failed login attempts per identity. The lockout state
// is never surfaced to callers directly; the engine folds it into the
// uniform invalid-credentials failure.
type LockoutGuard struct {
	store  counter.Store
	config LockoutConfig
}

// NewLockoutGuard creates a lockout guard over the given counter store.
func NewLockoutGuard(store counter.Store, cfg LockoutConfig) *LockoutGuard {
	return &LockoutGuard{store: store, config: cfg}
}

// NormalizeIdentity canonicalizes an identity for counter keying so that
// "User@Example.com " and "user@example.com" share one failure budget.
func NormalizeIdentity(identity string) string {
	return strings.ToLower(strings.TrimSpace(identity))
}

func (g *LockoutGuard) key(identity string) string {
	return "lock:" + NormalizeIdentity(identity)
}

// Locked reports whether the identity has reached the failure threshold
// within the current window, and how many attempts remain before lockout.
func (g *LockoutGuard) Locked(ctx context.Context, identity string) (bool, int, error) {
	count, err := g.store.Peek(ctx, g.key(identity))
	if err != nil {
		return false, 0, err
	}

	remaining := g.config.Threshold - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return count >= int64(g.config.Threshold), remaining, nil
}

// RecordFailure increments the identity's failure counter, starting a fresh
// window when the previous one elapsed. Returns true when this failure
// reached the threshold.
func (g *LockoutGuard) RecordFailure(ctx context.Context, identity string) (bool, error) {
	count, err := g.store.Increment(ctx, g.key(identity), g.config.Window)
	if err != nil {
		return false, err
	}
	return count >= int64(g.config.Threshold), nil
}

// Clear removes the identity's failure counter entirely. Called after a
// successful authentication.
func (g *LockoutGuard) Clear(ctx context.Context, identity string) error {
	return g.store.Reset(ctx, g.key(identity))
}
