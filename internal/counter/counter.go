package counter

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable indicates the counter backend is unreachable.
var ErrUnavailable = errors.New("counter backend unavailable")

// Store is the fixed-window counter contract shared by both backends.
type Store interface {
	// Increment bumps the counter for key, starting a fresh window of the
	// given length when the key is absent or its previous window elapsed.
	// Returns the count within the current window (>= 1).
	Increment(ctx context.Context, key string, window time.Duration) (int64, error)

	// Peek reads the current count without incrementing. Absent or expired
	// keys read as zero and never reveal whether the key ever existed.
	Peek(ctx context.Context, key string) (int64, error)

	// TTL reports the time remaining in the key's current window.
	// Absent or expired keys report zero.
	TTL(ctx context.Context, key string) (time.Duration, error)

	// Reset removes the counter for key entirely. Resetting an absent key
	// is a no-op.
	Reset(ctx context.Context, key string) error
}
