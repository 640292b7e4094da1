// Package keypass manages the lifecycle of organisation-scoped, single-use
// access codes. A keypass entitles one employee to begin a workshop and
// moves through a one-directional state machine:
//
//	Available → Used     (claimed, at most once, terminal)
//	Available → Revoked  (operator-initiated, terminal)
//	Available → Expired  (time-triggered, lazily observed, terminal)
//
// Expiry is never swept in the background. Each code has a hard expiry plus
// a grace window during which it stays usable with a warning; the first read
// past the grace end transitions it to Expired. Discovering the transition
// twice is harmless, so concurrent readers need no coordination.
//
// Generation is bounded by the organisation's quota: the best allowance
// among its completed purchases, minus codes currently Available or Used.
// Revoked and Expired codes return their slot to the pool.
//
// Claims are atomic through the store's compare-and-swap: under concurrent
// Use calls for one code, exactly one caller wins.
package keypass
