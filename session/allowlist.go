package session

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"time"
)

// ErrUnavailable indicates the allowlist backend is unreachable.
var ErrUnavailable = errors.New("allowlist backend unavailable")

// Allowlist is the refresh-token membership contract shared by both backends.
type Allowlist interface {
	// Put records a refresh token for the owning identity. The TTL matches
	// the token's own lifetime so membership cannot outlive the signature.
	Put(ctx context.Context, tok, identity string, ttl time.Duration) error

	// Owner reports the identity owning the token, or ok=false when the
	// token is absent (never issued, already redeemed, or revoked).
	Owner(ctx context.Context, tok string) (string, bool, error)

	// Delete removes one token. Reports whether an entry existed; deleting
	// an absent token is not an error.
	Delete(ctx context.Context, tok string) (bool, error)

	// DeleteAll removes every token owned by the identity and reports how
	// many entries were removed.
	DeleteAll(ctx context.Context, identity string) (int, error)
}

// digest canonicalizes a token for storage. base64url keeps the key compact
// and safe for both Redis keys and map keys.
func digest(tok string) string {
	sum := sha256.Sum256([]byte(tok))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
