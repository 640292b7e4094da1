// Package session tracks the refresh-token allowlist: the set of currently
// redeemable refresh credentials. A refresh token is valid only while its
// digest is present here, regardless of signature validity; redeeming,
// logging out, or a password reset removes entries and therefore revokes.
//
// Tokens are stored by SHA-256 digest, never in the clear, so a leaked
// backend snapshot does not yield redeemable credentials. Each entry is
// owned by exactly one identity; a per-identity index supports revoke-all.
package session
