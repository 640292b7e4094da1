package accesscore

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"
)

func headerFor(ip string) http.Header {
	h := http.Header{}
	h.Set("X-Forwarded-For", ip)
	return h
}

func TestCheckRateLimitUnderCeiling(t *testing.T) {
	engine := newTestEngine(t, func(cfg *Config) {
		cfg.RateLimit.Buckets = map[string]RateBucket{
			BucketLogin: {Window: time.Minute, Max: 3},
		}
	})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := engine.CheckRateLimit(ctx, BucketLogin, headerFor("10.0.0.1")); err != nil {
			t.Fatalf("hit %d rejected: %v", i+1, err)
		}
	}
}

func TestCheckRateLimitOverCeiling(t *testing.T) {
	engine := newTestEngine(t, func(cfg *Config) {
		cfg.RateLimit.Buckets = map[string]RateBucket{
			BucketLogin: {Window: time.Minute, Max: 2},
		}
	})
	ctx := context.Background()

	engine.CheckRateLimit(ctx, BucketLogin, headerFor("10.0.0.1"))
	engine.CheckRateLimit(ctx, BucketLogin, headerFor("10.0.0.1"))

	err := engine.CheckRateLimit(ctx, BucketLogin, headerFor("10.0.0.1"))
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("err = %v, want ErrRateLimited", err)
	}

	var rle *RateLimitError
	if !errors.As(err, &rle) {
		t.Fatalf("err %T does not carry RateLimitError", err)
	}
	if rle.Bucket != BucketLogin {
		t.Fatalf("bucket = %q, want %q", rle.Bucket, BucketLogin)
	}
	if rle.RetryAfter < time.Second {
		t.Fatalf("RetryAfter = %v, want at least 1s", rle.RetryAfter)
	}
	if rle.RetryAfter > time.Minute {
		t.Fatalf("RetryAfter = %v, must not exceed the window", rle.RetryAfter)
	}
}

func TestCheckRateLimitClientsIndependent(t *testing.T) {
	engine := newTestEngine(t, func(cfg *Config) {
		cfg.RateLimit.Buckets = map[string]RateBucket{
			BucketGlobal: {Window: time.Minute, Max: 1},
		}
	})
	ctx := context.Background()

	if err := engine.CheckRateLimit(ctx, BucketGlobal, headerFor("10.0.0.1")); err != nil {
		t.Fatalf("first client rejected: %v", err)
	}
	if err := engine.CheckRateLimit(ctx, BucketGlobal, headerFor("10.0.0.2")); err != nil {
		t.Fatalf("second client shares first client's counter: %v", err)
	}
	if err := engine.CheckRateLimit(ctx, BucketGlobal, headerFor("10.0.0.1")); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("err = %v, want ErrRateLimited", err)
	}
}

func TestCheckRateLimitUnknownBucketUnlimited(t *testing.T) {
	engine := newTestEngine(t, func(cfg *Config) {
		cfg.RateLimit.Buckets = map[string]RateBucket{
			BucketLogin: {Window: time.Minute, Max: 1},
		}
	})
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		if err := engine.CheckRateLimit(ctx, "unregistered", headerFor("10.0.0.1")); err != nil {
			t.Fatalf("unregistered bucket rejected hit %d: %v", i+1, err)
		}
	}
}
