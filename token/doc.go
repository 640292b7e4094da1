// Package token wraps the signed-token primitive (golang-jwt) behind a small
// Manager. Access tokens are short-lived and verified statelessly; refresh
// tokens are long-lived, carry a "refresh" type marker, and are only
// redeemable while present in the session allowlist; signature validity
// alone never suffices.
package token
