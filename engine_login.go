package accesscore

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/fraudlens/accesscore/internal/limiters"
)

// Login authenticates an identity and mints a credential pair. Every
// failure cause (unknown identity, wrong password, locked account)
// returns ErrInvalidCredentials with the same response shape, and the
// password verification work is performed on every call (against a fixed
// dummy digest when the identity is unknown) so response timing does not
// reveal which cause applied.
func (e *Engine) Login(ctx context.Context, identity, password string) (TokenPair, error) {
	if e == nil || e.users == nil {
		return TokenPair{}, ErrEngineNotReady
	}

	norm := limiters.NormalizeIdentity(identity)

	user, found, err := e.users.GetByIdentity(ctx, norm)
	if err != nil {
		return TokenPair{}, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	digest := e.dummyHash
	if found {
		digest = user.PasswordHash
	}
	verified, verifyErr := e.hasher.Verify(password, digest)

	locked, _, err := e.lockout.Locked(ctx, norm)
	if err != nil {
		return TokenPair{}, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	if locked {
		// The verification result is not honored for a locked identity,
		// and the lockout state itself is never revealed.
		e.emitAudit(ctx, AuditEvent{Event: EventLoginFailure, Identity: norm, Detail: "locked"})
		return TokenPair{}, ErrInvalidCredentials
	}

	if !found || verifyErr != nil || !verified {
		// Failures for unknown identities still count; skipping them would
		// make the failure path measurably cheaper.
		if _, err := e.lockout.RecordFailure(ctx, norm); err != nil {
			return TokenPair{}, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
		}
		e.emitAudit(ctx, AuditEvent{Event: EventLoginFailure, Identity: norm})
		return TokenPair{}, ErrInvalidCredentials
	}

	if err := e.lockout.Clear(ctx, norm); err != nil {
		return TokenPair{}, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	pair, err := e.issue(ctx, user.ID)
	if err != nil {
		return TokenPair{}, err
	}

	e.emitAudit(ctx, AuditEvent{Event: EventLoginSuccess, Identity: norm, Success: true})
	e.log.Debug("login succeeded", zap.String("identity", norm))
	return pair, nil
}

// issue mints an access/refresh pair for the subject and records the
// refresh token in the allowlist. The access token is never tracked;
// verification of it is stateless.
func (e *Engine) issue(ctx context.Context, subject string) (TokenPair, error) {
	access, err := e.tokens.CreateAccess(subject)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := e.tokens.CreateRefresh(subject)
	if err != nil {
		return TokenPair{}, err
	}

	if err := e.allowlist.Put(ctx, refresh, subject, e.tokens.RefreshTTL()); err != nil {
		return TokenPair{}, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// ValidateAccess statelessly verifies an access token and returns its
// subject identity.
func (e *Engine) ValidateAccess(tokenStr string) (string, error) {
	if e == nil || e.tokens == nil {
		return "", ErrEngineNotReady
	}

	claims, err := e.tokens.ParseAccess(tokenStr)
	if err != nil {
		return "", ErrTokenInvalid
	}
	return claims.Subject, nil
}
