package rate

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/fraudlens/accesscore/internal/counter"
)

func testLimiter(max int64) *Limiter {
	return New(counter.NewMemoryStore(), map[string]Bucket{
		"login": {Window: time.Minute, Max: max},
	})
}

func TestAllow_UnderCeiling(t *testing.T) {
	l := testLimiter(3)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		retry, err := l.Allow(ctx, "login", "10.0.0.1")
		if err != nil {
			t.Fatalf("attempt %d: expected allow, got %v", i+1, err)
		}
		if retry != 0 {
			t.Fatalf("attempt %d: expected zero retry hint, got %v", i+1, retry)
		}
	}
}

func TestAllow_OverCeilingReportsRetryAfter(t *testing.T) {
	l := testLimiter(2)
	ctx := context.Background()

	l.Allow(ctx, "login", "10.0.0.1")
	l.Allow(ctx, "login", "10.0.0.1")

	retry, err := l.Allow(ctx, "login", "10.0.0.1")
	if !errors.Is(err, ErrLimited) {
		t.Fatalf("expected ErrLimited, got %v", err)
	}
	if retry < time.Second || retry > time.Minute {
		t.Fatalf("expected retry hint within [1s, 1m], got %v", retry)
	}
}

func TestAllow_BucketsAreIndependent(t *testing.T) {
	l := New(counter.NewMemoryStore(), map[string]Bucket{
		"login":  {Window: time.Minute, Max: 1},
		"signup": {Window: time.Minute, Max: 1},
	})
	ctx := context.Background()

	if _, err := l.Allow(ctx, "login", "10.0.0.1"); err != nil {
		t.Fatalf("login allow failed: %v", err)
	}
	if _, err := l.Allow(ctx, "login", "10.0.0.1"); !errors.Is(err, ErrLimited) {
		t.Fatalf("expected login bucket exhausted, got %v", err)
	}

	// Same client, different bucket: independent counter.
	if _, err := l.Allow(ctx, "signup", "10.0.0.1"); err != nil {
		t.Fatalf("signup allow failed: %v", err)
	}
}

func TestAllow_ClientsAreIndependent(t *testing.T) {
	l := testLimiter(1)
	ctx := context.Background()

	l.Allow(ctx, "login", "10.0.0.1")
	if _, err := l.Allow(ctx, "login", "10.0.0.2"); err != nil {
		t.Fatalf("expected second client unaffected, got %v", err)
	}
}

func TestAllow_UnregisteredBucketIsUnlimited(t *testing.T) {
	l := testLimiter(1)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		if _, err := l.Allow(ctx, "unregistered", "10.0.0.1"); err != nil {
			t.Fatalf("expected unregistered bucket to pass, got %v", err)
		}
	}
}

func TestClientID(t *testing.T) {
	cases := []struct {
		name string
		set  map[string]string
		want string
	}{
		{"forwarded single", map[string]string{"X-Forwarded-For": "203.0.113.9"}, "203.0.113.9"},
		{"forwarded chain takes first hop", map[string]string{"X-Forwarded-For": "203.0.113.9, 10.0.0.1"}, "203.0.113.9"},
		{"forwarded with spaces", map[string]string{"X-Forwarded-For": "  203.0.113.9 , 10.0.0.1"}, "203.0.113.9"},
		{"real ip fallback", map[string]string{"X-Real-IP": "198.51.100.4"}, "198.51.100.4"},
		{"forwarded wins over real ip", map[string]string{"X-Forwarded-For": "203.0.113.9", "X-Real-IP": "198.51.100.4"}, "203.0.113.9"},
		{"nothing", nil, "unknown"},
		{"empty forwarded falls through", map[string]string{"X-Forwarded-For": "  "}, "unknown"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := http.Header{}
			for k, v := range tc.set {
				h.Set(k, v)
			}
			if got := ClientID(h); got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}
