package accesscore

import (
	"context"
	"time"
)

// TokenPair is the credential pair minted on login and refresh.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// UserRecord is the minimal identity row the engine needs from the host
// application's user store.
type UserRecord struct {
	ID           string
	Identity     string
	PasswordHash string
}

// UserProvider is the external persistent-row store collaborator. The
// identity argument arrives normalized (lower-cased, trimmed). A missing
// identity is reported through ok=false, never through an error, so the
// engine can keep its response shape uniform.
type UserProvider interface {
	GetByIdentity(ctx context.Context, identity string) (UserRecord, bool, error)
}

// PasswordHasher is the opaque one-way hash/verify capability.
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(plain, digest string) (bool, error)
}

// AuditEvent is one structured record handed to the audit sink.
type AuditEvent struct {
	Time     time.Time
	Event    string
	Identity string
	OrgID    string
	Success  bool
	Detail   string
}

// AuditSink receives audit events asynchronously. Emit must not block for
// long; the dispatcher delivers from a single goroutine.
type AuditSink interface {
	Emit(ctx context.Context, event AuditEvent)
}

// NoOpSink discards all events.
type NoOpSink struct{}

// Emit implements AuditSink.
func (NoOpSink) Emit(context.Context, AuditEvent) {}

// Audit event names.
const (
	EventLoginSuccess     = "login_success"
	EventLoginFailure     = "login_failure"
	EventRefreshRotated   = "refresh_rotated"
	EventRefreshRejected  = "refresh_rejected"
	EventLogout           = "logout"
	EventSessionsRevoked  = "sessions_revoked"
	EventKeypassGenerated = "keypass_generated"
	EventKeypassUsed      = "keypass_used"
	EventKeypassDenied    = "keypass_denied"
	EventKeypassRevoked   = "keypass_revoked"
)
