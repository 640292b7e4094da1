package accesscore

import (
	"context"
	"fmt"
)

// Refresh redeems a refresh token for a brand-new credential pair. Each
// refresh token is redeemable exactly once: redemption deletes it from the
// allowlist before the replacement pair is issued, so a leaked token buys
// at most one rotation.
//
// Membership is checked before the signature. A cryptographically valid
// token that is no longer allowlisted fails with ErrRefreshRevoked; a token
// that fails signature, type-marker, or subject verification fails with
// ErrRefreshInvalid.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	if e == nil || e.allowlist == nil {
		return TokenPair{}, ErrEngineNotReady
	}

	owner, ok, err := e.allowlist.Owner(ctx, refreshToken)
	if err != nil {
		return TokenPair{}, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	if !ok {
		e.emitAudit(ctx, AuditEvent{Event: EventRefreshRejected, Detail: "revoked"})
		return TokenPair{}, ErrRefreshRevoked
	}

	subject, err := e.tokens.ParseRefresh(refreshToken)
	if err != nil || subject != owner {
		e.emitAudit(ctx, AuditEvent{Event: EventRefreshRejected, Identity: owner, Detail: "invalid"})
		return TokenPair{}, ErrRefreshInvalid
	}

	// Single use: whoever deletes the entry wins; a concurrent redemption
	// of the same token observes the deletion and fails as revoked.
	existed, err := e.allowlist.Delete(ctx, refreshToken)
	if err != nil {
		return TokenPair{}, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	if !existed {
		e.emitAudit(ctx, AuditEvent{Event: EventRefreshRejected, Identity: owner, Detail: "revoked"})
		return TokenPair{}, ErrRefreshRevoked
	}

	pair, err := e.issue(ctx, subject)
	if err != nil {
		return TokenPair{}, err
	}

	e.emitAudit(ctx, AuditEvent{Event: EventRefreshRotated, Identity: subject, Success: true})
	return pair, nil
}

// Logout revokes one refresh token. Revoking a token that is already gone
// is a no-op.
func (e *Engine) Logout(ctx context.Context, refreshToken string) error {
	if e == nil || e.allowlist == nil {
		return ErrEngineNotReady
	}

	if _, err := e.allowlist.Delete(ctx, refreshToken); err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	e.emitAudit(ctx, AuditEvent{Event: EventLogout, Success: true})
	return nil
}

// RevokeSessions removes every refresh token owned by the identity and
// reports how many were revoked. Called on password reset.
func (e *Engine) RevokeSessions(ctx context.Context, subject string) (int, error) {
	if e == nil || e.allowlist == nil {
		return 0, ErrEngineNotReady
	}

	removed, err := e.allowlist.DeleteAll(ctx, subject)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	e.emitAudit(ctx, AuditEvent{Event: EventSessionsRevoked, Identity: subject, Success: true})
	return removed, nil
}
