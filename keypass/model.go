package keypass

import (
	"errors"
	"time"
)

// Status is the keypass lifecycle state.
type Status string

const (
	// StatusAvailable marks a code that can still be claimed.
	StatusAvailable Status = "available"
	// StatusUsed marks a claimed code.
	StatusUsed Status = "used"
	// StatusRevoked marks an operator-revoked code.
	StatusRevoked Status = "revoked"
	// StatusExpired marks a code discovered past its grace end.
	StatusExpired Status = "expired"
)

var (
	// ErrNotFound is returned when no keypass exists for a code.
	ErrNotFound = errors.New("keypass not found")
	// ErrNoPackage is returned by Generate when the organisation has no
	// completed purchase and therefore no allowance at all.
	ErrNoPackage = errors.New("no keypass package purchased")
	// ErrQuotaExceeded is returned by Generate when the requested quantity
	// exceeds the organisation's remaining allowance.
	ErrQuotaExceeded = errors.New("keypass quota exceeded")
	// ErrAlreadyUsed is returned to claim losers: the code was Available at
	// the expiry check but another caller won the swap.
	ErrAlreadyUsed = errors.New("keypass already used")
	// ErrUsed is returned when an operation reads a code that was claimed
	// earlier.
	ErrUsed = errors.New("keypass used")
	// ErrRevoked is returned for operator-revoked codes.
	ErrRevoked = errors.New("keypass revoked")
	// ErrExpired is returned for codes past their grace end.
	ErrExpired = errors.New("keypass expired")
	// ErrNotAvailable is returned for any other non-claimable state.
	ErrNotAvailable = errors.New("keypass not available")
	// ErrInvalidArgument is returned for malformed generate/list input.
	ErrInvalidArgument = errors.New("invalid keypass argument")
	// ErrUnavailable wraps keypass store backend failures.
	ErrUnavailable = errors.New("keypass store unavailable")
)

// Keypass is one access code row.
type Keypass struct {
	ID             string
	Code           string
	OrganisationID string
	Status         Status
	CreatedAt      time.Time
	ExpiresAt      time.Time
	UsedAt         *time.Time
}

// Quota is the derived allowance arithmetic for one organisation.
type Quota struct {
	// Allowance is the largest keypass allowance among the organisation's
	// completed purchases; zero when it never bought a package.
	Allowance int
	// Used counts codes whose status is Available or Used. Revoked and
	// Expired codes do not occupy a slot.
	Used int
	// Remaining is max(0, Allowance-Used).
	Remaining int
}

// UseResult reports a successful claim or validation.
type UseResult struct {
	Keypass Keypass
	// GraceWarning is set when the code was past its nominal expiry but
	// inside the grace window.
	GraceWarning bool
}

// CodeOutcome is one entry of a bulk validate result.
type CodeOutcome struct {
	Code         string
	Err          error
	GraceWarning bool
}

// RevokeOutcome tallies a bulk revocation. AlreadyRevoked codes are reported
// separately, not as errors, and never double-count in Revoked.
type RevokeOutcome struct {
	Revoked        []string
	AlreadyRevoked []string
	NotFound       []string
}
