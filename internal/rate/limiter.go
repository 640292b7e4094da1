package rate

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/fraudlens/accesscore/internal/counter"
)

// ErrLimited is returned by Allow when the bucket ceiling is exceeded.
var ErrLimited = errors.New("rate limited")

// Bucket holds the ceiling for one named action.
type Bucket struct {
	Window time.Duration
	Max    int64
}

// Limiter applies named fixed-window buckets against a counter store.
type Limiter struct {
	store   counter.Store
	buckets map[string]Bucket
}

// New creates a Limiter over the given counter store. Buckets not present in
// the map are unlimited; the engine only consults buckets it registered.
func New(store counter.Store, buckets map[string]Bucket) *Limiter {
	return &Limiter{store: store, buckets: buckets}
}

// Allow records one hit for clientID in the named bucket and reports whether
// the request may proceed. The counter is always incremented, even for
// requests rejected downstream: the limiter does not know about outcomes.
// On rejection the returned duration is the Retry-After hint (remaining
// window, minimum one second).
func (l *Limiter) Allow(ctx context.Context, bucket, clientID string) (time.Duration, error) {
	cfg, ok := l.buckets[bucket]
	if !ok || cfg.Max <= 0 {
		return 0, nil
	}

	key := bucket + ":" + clientID
	count, err := l.store.Increment(ctx, key, cfg.Window)
	if err != nil {
		return 0, err
	}
	if count <= cfg.Max {
		return 0, nil
	}

	retryAfter, err := l.store.TTL(ctx, key)
	if err != nil {
		return 0, err
	}
	if retryAfter < time.Second {
		retryAfter = time.Second
	}
	return retryAfter, ErrLimited
}

// ClientID derives the per-client identifier from proxy headers: the first
// hop of X-Forwarded-For, then X-Real-IP, then the literal "unknown".
func ClientID(h http.Header) string {
	if fwd := strings.TrimSpace(h.Get("X-Forwarded-For")); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}

	if ip := strings.TrimSpace(h.Get("X-Real-IP")); ip != "" {
		return ip
	}

	return "unknown"
}
