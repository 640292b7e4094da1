package accesscore

import (
	"database/sql"
	"errors"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/fraudlens/accesscore/internal/counter"
	"github.com/fraudlens/accesscore/internal/limiters"
	"github.com/fraudlens/accesscore/internal/rate"
	"github.com/fraudlens/accesscore/keypass"
	"github.com/fraudlens/accesscore/password"
	"github.com/fraudlens/accesscore/session"
	"github.com/fraudlens/accesscore/token"
)

// dummyVerifyInput is hashed once at Build time; Login verifies against the
// resulting digest whenever the identity is unknown so failed lookups cost
// the same as failed passwords.
const dummyVerifyInput = "accesscore-dummy-verification-input"

// Builder assembles an Engine. Configure it with the With methods, then call
// Build exactly once.
type Builder struct {
	config Config
	redis  *redis.Client
	db     *sql.DB

	keypassStore keypass.Store
	users        UserProvider
	hasher       PasswordHasher
	sink         AuditSink
	log          *zap.Logger

	built bool
}

// New returns a Builder preloaded with default configuration.
func New() *Builder {
	return &Builder{config: defaultConfig()}
}

// WithConfig replaces the builder's configuration wholesale. Zero-valued
// sections fall back to defaults at Build time.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis supplies the shared Redis client used for rate counters,
// lockout counters, and the refresh-token allowlist. Without it those
// concerns fall back to per-process memory.
func (b *Builder) WithRedis(client *redis.Client) *Builder {
	b.redis = client
	return b
}

// WithDatabase supplies the Postgres handle backing keypass storage.
func (b *Builder) WithDatabase(db *sql.DB) *Builder {
	b.db = db
	return b
}

// WithKeypassStore overrides keypass storage entirely, taking precedence
// over WithDatabase.
func (b *Builder) WithKeypassStore(store keypass.Store) *Builder {
	b.keypassStore = store
	return b
}

// WithUserProvider supplies the credential lookup. Required.
func (b *Builder) WithUserProvider(up UserProvider) *Builder {
	b.users = up
	return b
}

// WithPasswordHasher overrides the default argon2id hasher.
func (b *Builder) WithPasswordHasher(h PasswordHasher) *Builder {
	b.hasher = h
	return b
}

// WithAuditSink supplies the destination for audit events.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.sink = sink
	return b
}

// WithLogger supplies the structured logger. Defaults to a no-op logger.
func (b *Builder) WithLogger(log *zap.Logger) *Builder {
	b.log = log
	return b
}

// Build validates the configuration, wires storage backends, and returns a
// ready Engine. A builder can build at most once.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}
	b.built = true

	cfg := cloneConfig(b.config)
	defaults := defaultConfig()
	if cfg.Token.AccessTTL == 0 && cfg.Token.RefreshTTL == 0 {
		key := cfg.Token.PrivateKey
		cfg.Token = defaults.Token
		cfg.Token.PrivateKey = key
	}
	if cfg.Security == (SecurityConfig{}) {
		cfg.Security = defaults.Security
	}
	if cfg.RateLimit.Buckets == nil {
		cfg.RateLimit = defaults.RateLimit
	}
	if cfg.Keypass == (keypass.Config{}) {
		cfg.Keypass = defaults.Keypass
	}
	if cfg.Audit == (AuditConfig{}) {
		cfg.Audit = defaults.Audit
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	if b.users == nil {
		return nil, errors.New("user provider required")
	}

	log := b.log
	if log == nil {
		log = zap.NewNop()
	}

	tokens, err := token.NewManager(cfg.Token)
	if err != nil {
		return nil, err
	}

	var counters counter.Store
	var allowlist session.Allowlist
	if b.redis != nil {
		counters = counter.NewRedisStore(b.redis, "")
		allowlist = session.NewRedisAllowlist(b.redis, "")
	} else {
		// Per-process state only. Counters and revocation do not hold
		// across replicas or restarts.
		log.Warn("no redis client configured, using in-process counter and allowlist backends")
		counters = counter.NewMemoryStore()
		allowlist = session.NewMemoryAllowlist()
	}

	kpStore := b.keypassStore
	if kpStore == nil {
		if b.db != nil {
			kpStore = keypass.NewPGStore(b.db)
		} else {
			log.Warn("no database configured, using in-process keypass store")
			kpStore = keypass.NewMemoryStore()
		}
	}

	hasher := b.hasher
	if hasher == nil {
		argon, err := password.NewArgon2(password.DefaultConfig())
		if err != nil {
			return nil, err
		}
		hasher = argon
	}
	dummyHash, err := hasher.Hash(dummyVerifyInput)
	if err != nil {
		return nil, err
	}

	buckets := make(map[string]rate.Bucket, len(cfg.RateLimit.Buckets))
	for name, bucket := range cfg.RateLimit.Buckets {
		buckets[name] = rate.Bucket{Window: bucket.Window, Max: bucket.Max}
	}

	engine := &Engine{
		config:  cfg,
		limiter: rate.New(counters, buckets),
		lockout: limiters.NewLockoutGuard(counters, limiters.LockoutConfig{
			Threshold: cfg.Security.LockoutThreshold,
			Window:    cfg.Security.LockoutWindow,
		}),
		tokens:    tokens,
		allowlist: allowlist,
		keypasses: keypass.New(kpStore, cfg.Keypass, log),
		users:     b.users,
		hasher:    hasher,
		dummyHash: dummyHash,
		audit:     newAuditDispatcher(cfg.Audit, b.sink),
		log:       log,
	}

	return engine, nil
}
