package accesscore

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/fraudlens/accesscore/internal/limiters"
	"github.com/fraudlens/accesscore/internal/rate"
	"github.com/fraudlens/accesscore/keypass"
	"github.com/fraudlens/accesscore/session"
	"github.com/fraudlens/accesscore/token"
)

// Engine is the access-control core: credential issuance and rotation,
// lockout, rate limiting, and the keypass lifecycle. Engines are built once
// through [Builder.Build] and are safe for concurrent use afterwards.
type Engine struct {
	config    Config
	limiter   *rate.Limiter
	lockout   *limiters.LockoutGuard
	tokens    *token.Manager
	allowlist session.Allowlist
	keypasses *keypass.Engine
	users     UserProvider
	hasher    PasswordHasher
	dummyHash string
	audit     *auditDispatcher
	log       *zap.Logger
}

// Close stops the audit dispatcher, draining buffered events. The engine
// must not be used afterwards.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped reports how many audit events were shed because the buffer
// was saturated.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// CheckRateLimit records one hit for the request's client in the named
// bucket and rejects it when the ceiling is exceeded. The client identifier
// comes from the first forwarded-address header, then the real-IP header,
// then "unknown". The counter is incremented regardless of what happens to
// the request downstream.
func (e *Engine) CheckRateLimit(ctx context.Context, bucket string, header http.Header) error {
	if e == nil || e.limiter == nil {
		return ErrEngineNotReady
	}

	retryAfter, err := e.limiter.Allow(ctx, bucket, rate.ClientID(header))
	if err == nil {
		return nil
	}
	if errors.Is(err, rate.ErrLimited) {
		return &RateLimitError{Bucket: bucket, RetryAfter: retryAfter}
	}
	return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
}

func (e *Engine) emitAudit(ctx context.Context, event AuditEvent) {
	if e.audit == nil {
		return
	}
	event.Time = time.Now()
	e.audit.Emit(ctx, event)
}
