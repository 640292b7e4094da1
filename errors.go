package accesscore

import (
	"errors"
	"time"

	"github.com/fraudlens/accesscore/keypass"
)

var (
	// ErrEngineNotReady is returned when Engine methods are called on a nil
	// or un-built engine.
	ErrEngineNotReady = errors.New("engine not ready")
	// ErrInvalidCredentials covers unknown identity, wrong password, and
	// locked account uniformly so callers cannot distinguish the cause.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrRateLimited is returned when a rate bucket ceiling is exceeded.
	ErrRateLimited = errors.New("rate limited")
	// ErrRefreshRevoked is returned when a refresh token is absent from the
	// allowlist (already redeemed, logged out, or revoked).
	ErrRefreshRevoked = errors.New("refresh token revoked")
	// ErrRefreshInvalid is returned when a refresh token fails signature,
	// type-marker, or subject verification.
	ErrRefreshInvalid = errors.New("invalid refresh token")
	// ErrTokenInvalid is returned when an access token fails verification.
	ErrTokenInvalid = errors.New("invalid access token")
	// ErrValidation is returned for malformed caller input.
	ErrValidation = errors.New("validation error")
	// ErrBackendUnavailable wraps storage-backend failures (Redis, Postgres).
	ErrBackendUnavailable = errors.New("storage backend unavailable")
)

// RateLimitError carries the retry hint alongside ErrRateLimited.
type RateLimitError struct {
	Bucket     string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string { return "rate limited: " + e.Bucket }

func (e *RateLimitError) Unwrap() error { return ErrRateLimited }

// Error codes exposed to the HTTP layer. Each sentinel maps to exactly one
// code; unknown errors map to the empty string so routes can fall through to
// a generic 500.
const (
	CodeRateLimited        = "RATE_LIMITED"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeRefreshRevoked     = "REFRESH_REVOKED"
	CodeInvalidRefresh     = "INVALID_REFRESH"
	CodeNoPackage          = "NO_PACKAGE"
	CodeQuotaExceeded      = "QUOTA_EXCEEDED"
	CodeNotFound           = "NOT_FOUND"
	CodeNotAvailable       = "NOT_AVAILABLE"
	CodeAlreadyUsed        = "ALREADY_USED"
	CodeExpired            = "EXPIRED"
	CodeRevoked            = "REVOKED"
	CodeUsed               = "USED"
	CodeValidation         = "VALIDATION_ERROR"
)

// Code maps an engine error to its machine-readable code. Returns "" for
// errors outside the taxonomy (backend failures and programming errors).
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrRateLimited):
		return CodeRateLimited
	case errors.Is(err, ErrInvalidCredentials):
		return CodeInvalidCredentials
	case errors.Is(err, ErrRefreshRevoked):
		return CodeRefreshRevoked
	case errors.Is(err, ErrRefreshInvalid):
		return CodeInvalidRefresh
	case errors.Is(err, keypass.ErrNoPackage):
		return CodeNoPackage
	case errors.Is(err, keypass.ErrQuotaExceeded):
		return CodeQuotaExceeded
	case errors.Is(err, keypass.ErrNotFound):
		return CodeNotFound
	case errors.Is(err, keypass.ErrAlreadyUsed):
		return CodeAlreadyUsed
	case errors.Is(err, keypass.ErrExpired):
		return CodeExpired
	case errors.Is(err, keypass.ErrRevoked):
		return CodeRevoked
	case errors.Is(err, keypass.ErrUsed):
		return CodeUsed
	case errors.Is(err, keypass.ErrNotAvailable):
		return CodeNotAvailable
	case errors.Is(err, ErrValidation), errors.Is(err, keypass.ErrInvalidArgument):
		return CodeValidation
	}
	return ""
}
