package accesscore

import (
	"context"
	"strconv"

	"github.com/fraudlens/accesscore/keypass"
)

// GenerateKeypasses mints quantity fresh codes for the organisation,
// bounded by its purchase-derived quota.
func (e *Engine) GenerateKeypasses(ctx context.Context, orgID string, quantity, expiresInDays int) ([]keypass.Keypass, error) {
	if e == nil || e.keypasses == nil {
		return nil, ErrEngineNotReady
	}

	passes, err := e.keypasses.Generate(ctx, orgID, quantity, expiresInDays)
	if err != nil {
		return nil, err
	}
	e.emitAudit(ctx, AuditEvent{
		Event:   EventKeypassGenerated,
		OrgID:   orgID,
		Success: true,
		Detail:  strconv.Itoa(len(passes)),
	})
	return passes, nil
}

// UseKeypass atomically claims a code. Exactly one concurrent claimer
// succeeds; a claim inside the grace window succeeds with a warning.
func (e *Engine) UseKeypass(ctx context.Context, code string) (*keypass.UseResult, error) {
	if e == nil || e.keypasses == nil {
		return nil, ErrEngineNotReady
	}

	res, err := e.keypasses.Use(ctx, code)
	if err != nil {
		e.emitAudit(ctx, AuditEvent{Event: EventKeypassDenied, Detail: Code(err)})
		return nil, err
	}
	e.emitAudit(ctx, AuditEvent{Event: EventKeypassUsed, OrgID: res.Keypass.OrganisationID, Success: true})
	return res, nil
}

// ValidateKeypass checks a code without claiming it. Its only write is the
// lazy expiry transition.
func (e *Engine) ValidateKeypass(ctx context.Context, code string) (*keypass.UseResult, error) {
	if e == nil || e.keypasses == nil {
		return nil, ErrEngineNotReady
	}
	return e.keypasses.Validate(ctx, code)
}

// ValidateKeypasses checks each code independently.
func (e *Engine) ValidateKeypasses(ctx context.Context, codes []string) []keypass.CodeOutcome {
	if e == nil || e.keypasses == nil {
		return nil
	}
	return e.keypasses.BulkValidate(ctx, codes)
}

// RevokeKeypass forces one code to Revoked; already-revoked codes are a
// no-op.
func (e *Engine) RevokeKeypass(ctx context.Context, code string) error {
	if e == nil || e.keypasses == nil {
		return ErrEngineNotReady
	}

	if err := e.keypasses.Revoke(ctx, code); err != nil {
		return err
	}
	e.emitAudit(ctx, AuditEvent{Event: EventKeypassRevoked, Success: true})
	return nil
}

// RevokeKeypasses revokes a batch, tallying revoked, already-revoked, and
// missing codes separately.
func (e *Engine) RevokeKeypasses(ctx context.Context, codes []string) (keypass.RevokeOutcome, error) {
	if e == nil || e.keypasses == nil {
		return keypass.RevokeOutcome{}, ErrEngineNotReady
	}

	outcome, err := e.keypasses.BulkRevoke(ctx, codes)
	if err != nil {
		return outcome, err
	}
	e.emitAudit(ctx, AuditEvent{
		Event:   EventKeypassRevoked,
		Success: true,
		Detail:  strconv.Itoa(len(outcome.Revoked)),
	})
	return outcome, nil
}

// KeypassQuota derives the organisation's current allowance arithmetic.
func (e *Engine) KeypassQuota(ctx context.Context, orgID string) (keypass.Quota, error) {
	if e == nil || e.keypasses == nil {
		return keypass.Quota{}, ErrEngineNotReady
	}
	return e.keypasses.Quota(ctx, orgID)
}

// ListKeypasses pages through an organisation's codes, newest first. Page
// numbers start at 1.
func (e *Engine) ListKeypasses(ctx context.Context, orgID string, page, pageSize int) ([]keypass.Keypass, error) {
	if e == nil || e.keypasses == nil {
		return nil, ErrEngineNotReady
	}
	return e.keypasses.List(ctx, orgID, page, pageSize)
}
