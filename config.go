package accesscore

import (
	"errors"
	"time"

	"github.com/fraudlens/accesscore/keypass"
	"github.com/fraudlens/accesscore/token"
)

// Config aggregates all engine tuning parameters. Zero values are filled
// with defaults at Build time; Validate rejects combinations the engine
// cannot run with.
type Config struct {
	Token     token.Config
	Security  SecurityConfig
	RateLimit RateLimitConfig
	Keypass   keypass.Config
	Audit     AuditConfig
}

// SecurityConfig holds lockout tuning.
type SecurityConfig struct {
	// LockoutThreshold is the number of failed logins within the window
	// that locks an identity.
	LockoutThreshold int
	// LockoutWindow is the fixed window in which failures accumulate and
	// after which the lock self-releases.
	LockoutWindow time.Duration
}

// RateBucket is one named request ceiling.
type RateBucket struct {
	Window time.Duration
	Max    int64
}

// RateLimitConfig names the engine's rate buckets. Buckets are independent
// counters; removing one from the map disables that ceiling.
type RateLimitConfig struct {
	Buckets map[string]RateBucket
}

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	// DropIfFull sheds events instead of blocking request goroutines when
	// the buffer is saturated. Dropped counts are observable through
	// [Engine.AuditDropped].
	DropIfFull bool
}

// Rate bucket names the engine registers by default.
const (
	BucketGlobal  = "global"
	BucketLogin   = "login"
	BucketSignup  = "signup"
	BucketRefresh = "refresh"
)

func defaultConfig() Config {
	return Config{
		Token: token.Config{
			AccessTTL:     15 * time.Minute,
			RefreshTTL:    30 * 24 * time.Hour,
			SigningMethod: token.MethodHS256,
			Issuer:        "accesscore",
		},
		Security: SecurityConfig{
			LockoutThreshold: 5,
			LockoutWindow:    15 * time.Minute,
		},
		RateLimit: RateLimitConfig{
			Buckets: map[string]RateBucket{
				BucketGlobal:  {Window: time.Minute, Max: 300},
				BucketLogin:   {Window: 15 * time.Minute, Max: 10},
				BucketSignup:  {Window: time.Hour, Max: 10},
				BucketRefresh: {Window: time.Minute, Max: 30},
			},
		},
		Keypass: keypass.Config{
			GraceDays:         3,
			DefaultExpiryDays: 30,
			MaxBatch:          100,
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 256,
			DropIfFull: true,
		},
	}
}

func (c Config) validate() error {
	if c.Security.LockoutThreshold < 1 {
		return errors.New("lockout threshold must be positive")
	}
	if c.Security.LockoutWindow <= 0 {
		return errors.New("lockout window must be positive")
	}
	for name, bucket := range c.RateLimit.Buckets {
		if bucket.Window <= 0 || bucket.Max <= 0 {
			return errors.New("rate bucket " + name + " must have positive window and max")
		}
	}
	return nil
}

func cloneConfig(cfg Config) Config {
	out := cfg
	if cfg.RateLimit.Buckets != nil {
		out.RateLimit.Buckets = make(map[string]RateBucket, len(cfg.RateLimit.Buckets))
		for name, bucket := range cfg.RateLimit.Buckets {
			out.RateLimit.Buckets[name] = bucket
		}
	}
	return out
}
