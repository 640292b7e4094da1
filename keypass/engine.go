package keypass

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Config holds keypass lifecycle tuning parameters.
type Config struct {
	// GraceDays is the extra interval after a code's nominal expiry during
	// which it remains usable with a warning.
	GraceDays int
	// DefaultExpiryDays applies when Generate is called with zero
	// expiresInDays.
	DefaultExpiryDays int
	// MaxBatch caps one Generate call.
	MaxBatch int
}

func (c Config) withDefaults() Config {
	if c.GraceDays <= 0 {
		c.GraceDays = 3
	}
	if c.DefaultExpiryDays <= 0 {
		c.DefaultExpiryDays = 30
	}
	if c.MaxBatch <= 0 {
		c.MaxBatch = 100
	}
	return c
}

// codeMintAttempts bounds uniqueness retries per code before giving up.
const codeMintAttempts = 5

// Engine runs the keypass state machine over a Store. All methods are safe
// for concurrent use; the at-most-once claim guarantee comes from the
// store's compare-and-swap.
type Engine struct {
	store  Store
	config Config
	log    *zap.Logger
	now    func() time.Time
}

// New creates a keypass engine. A nil logger disables logging.
func New(store Store, cfg Config, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{
		store:  store,
		config: cfg.withDefaults(),
		log:    log,
		now:    time.Now,
	}
}

// Quota derives the organisation's current allowance arithmetic.
func (e *Engine) Quota(ctx context.Context, orgID string) (Quota, error) {
	allowance, err := e.store.BestAllowance(ctx, orgID)
	if err != nil {
		return Quota{}, err
	}
	used, err := e.store.CountActive(ctx, orgID)
	if err != nil {
		return Quota{}, err
	}

	remaining := allowance - used
	if remaining < 0 {
		remaining = 0
	}
	return Quota{Allowance: allowance, Used: used, Remaining: remaining}, nil
}

// Generate mints quantity fresh Available codes for the organisation,
// expiring expiresInDays from now. Fails with ErrNoPackage when the
// organisation has no allowance at all, and ErrQuotaExceeded when the
// request does not fit the remaining quota.
//
// The quota read and the insert are deliberately not one transaction:
// concurrent Generate calls for one organisation can overshoot the
// allowance by at most one in-flight batch, which the product accepts in
// exchange for keeping every store operation single-key.
func (e *Engine) Generate(ctx context.Context, orgID string, quantity, expiresInDays int) ([]Keypass, error) {
	if orgID == "" {
		return nil, fmt.Errorf("%w: empty organisation id", ErrInvalidArgument)
	}
	if quantity < 1 || quantity > e.config.MaxBatch {
		return nil, fmt.Errorf("%w: quantity must be in [1, %d]", ErrInvalidArgument, e.config.MaxBatch)
	}
	if expiresInDays < 0 {
		return nil, fmt.Errorf("%w: negative expiry", ErrInvalidArgument)
	}
	if expiresInDays == 0 {
		expiresInDays = e.config.DefaultExpiryDays
	}

	quota, err := e.Quota(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if quota.Allowance == 0 {
		return nil, ErrNoPackage
	}
	if quantity > quota.Remaining {
		return nil, ErrQuotaExceeded
	}

	now := e.now()
	passes := make([]Keypass, 0, quantity)
	for i := 0; i < quantity; i++ {
		code, err := e.mintUniqueCode(ctx)
		if err != nil {
			return nil, err
		}
		passes = append(passes, Keypass{
			ID:             uuid.NewString(),
			Code:           code,
			OrganisationID: orgID,
			Status:         StatusAvailable,
			CreatedAt:      now,
			ExpiresAt:      now.AddDate(0, 0, expiresInDays),
		})
	}

	if err := e.store.Insert(ctx, passes); err != nil {
		return nil, err
	}

	e.log.Info("keypasses generated",
		zap.String("org_id", orgID),
		zap.Int("quantity", quantity),
		zap.Int("expires_in_days", expiresInDays),
	)
	return passes, nil
}

func (e *Engine) mintUniqueCode(ctx context.Context) (string, error) {
	for attempt := 0; attempt < codeMintAttempts; attempt++ {
		code, err := newCode()
		if err != nil {
			return "", err
		}
		exists, err := e.store.CodeExists(ctx, code)
		if err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}
	}
	return "", errCodeSpaceExhausted
}

// Use claims a code. Under concurrent claims exactly one caller gets the
// UseResult; the others get ErrAlreadyUsed. Codes inside the grace window
// claim successfully with GraceWarning set.
func (e *Engine) Use(ctx context.Context, code string) (*UseResult, error) {
	kp, err := e.store.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	warning, err := e.gate(ctx, kp)
	if err != nil {
		// In claim context a previously claimed code reports ErrAlreadyUsed,
		// whether the claim lost a race just now or happened long ago.
		if errors.Is(err, ErrUsed) {
			err = ErrAlreadyUsed
		}
		return nil, err
	}

	usedAt := e.now()
	swapped, err := e.store.UpdateStatus(ctx, code, StatusAvailable, StatusUsed, &usedAt)
	if err != nil {
		return nil, err
	}
	if !swapped {
		// Lost the race. Re-read to report what actually happened.
		return nil, e.claimLossError(ctx, code)
	}

	kp.Status = StatusUsed
	kp.UsedAt = &usedAt

	if warning {
		e.log.Warn("keypass claimed within grace period",
			zap.String("org_id", kp.OrganisationID),
			zap.Time("expired_at", kp.ExpiresAt),
		)
	}
	return &UseResult{Keypass: kp, GraceWarning: warning}, nil
}

// Validate performs the same expiry and status checks as Use without
// claiming the code. Its only side effect is the lazy expiry write.
func (e *Engine) Validate(ctx context.Context, code string) (*UseResult, error) {
	kp, err := e.store.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	warning, err := e.gate(ctx, kp)
	if err != nil {
		return nil, err
	}
	return &UseResult{Keypass: kp, GraceWarning: warning}, nil
}

// BulkValidate validates each code independently; one bad code never aborts
// the rest.
func (e *Engine) BulkValidate(ctx context.Context, codes []string) []CodeOutcome {
	outcomes := make([]CodeOutcome, 0, len(codes))
	for _, code := range codes {
		res, err := e.Validate(ctx, code)
		outcome := CodeOutcome{Code: code, Err: err}
		if res != nil {
			outcome.GraceWarning = res.GraceWarning
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes
}

// Revoke forces a code to Revoked from any other status. Revoking an
// already-revoked code is a no-op, not an error.
func (e *Engine) Revoke(ctx context.Context, code string) error {
	changed, err := e.store.MarkRevoked(ctx, code)
	if err != nil {
		return err
	}
	if changed {
		e.log.Info("keypass revoked", zap.String("code", code))
	}
	return nil
}

// BulkRevoke revokes each code independently and tallies the outcomes.
// Backend failures abort the batch; missing and already-revoked codes are
// reported, not raised.
func (e *Engine) BulkRevoke(ctx context.Context, codes []string) (RevokeOutcome, error) {
	var outcome RevokeOutcome
	for _, code := range codes {
		changed, err := e.store.MarkRevoked(ctx, code)
		switch {
		case err == nil && changed:
			outcome.Revoked = append(outcome.Revoked, code)
		case err == nil:
			outcome.AlreadyRevoked = append(outcome.AlreadyRevoked, code)
		case isNotFound(err):
			outcome.NotFound = append(outcome.NotFound, code)
		default:
			return outcome, err
		}
	}
	return outcome, nil
}

// List pages through the organisation's codes, newest first. Page numbers
// start at 1.
func (e *Engine) List(ctx context.Context, orgID string, page, pageSize int) ([]Keypass, error) {
	if page < 1 || pageSize < 1 {
		return nil, fmt.Errorf("%w: page and pageSize must be positive", ErrInvalidArgument)
	}
	return e.store.List(ctx, orgID, (page-1)*pageSize, pageSize)
}

// gate applies the lazy expiry and status checks shared by Use and
// Validate. Returns whether the code is inside its grace window.
func (e *Engine) gate(ctx context.Context, kp Keypass) (bool, error) {
	now := e.now()
	graceEnd := kp.ExpiresAt.AddDate(0, 0, e.config.GraceDays)

	if now.After(graceEnd) {
		if kp.Status == StatusAvailable {
			// Lazy transition. Losing this swap just means another reader
			// already recorded the same discovery.
			if _, err := e.store.UpdateStatus(ctx, kp.Code, StatusAvailable, StatusExpired, nil); err != nil {
				return false, err
			}
		}
		return false, ErrExpired
	}

	switch kp.Status {
	case StatusAvailable:
	case StatusUsed:
		return false, ErrUsed
	case StatusRevoked:
		return false, ErrRevoked
	case StatusExpired:
		return false, ErrExpired
	default:
		return false, ErrNotAvailable
	}

	return now.After(kp.ExpiresAt), nil
}

func (e *Engine) claimLossError(ctx context.Context, code string) error {
	kp, err := e.store.GetByCode(ctx, code)
	if err != nil {
		return err
	}
	switch kp.Status {
	case StatusUsed:
		return ErrAlreadyUsed
	case StatusRevoked:
		return ErrRevoked
	case StatusExpired:
		return ErrExpired
	default:
		return ErrNotAvailable
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
