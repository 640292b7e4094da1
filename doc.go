// Package accesscore implements the access-control core of the FraudLens
// platform: session credential issuance with rotating single-use refresh
// tokens, brute-force lockout, fixed-window rate limiting, and the
// quota-bounded keypass (single-use access code) lifecycle.
//
// The package is designed for concurrent server workloads: Engine methods are
// safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// accesscore is the public surface. It exposes [Engine], [Builder], [Config],
// the sentinel error taxonomy, and value types (TokenPair, AuditEvent, etc.).
// Counter arithmetic, rate buckets, and lockout tracking live under internal/
// and are never exported. The keypass state machine lives in the keypass
// subpackage because its store contract is part of the public surface.
//
// # Storage backends
//
// Every stateful component runs against one of two interchangeable backends:
// a shared Redis instance (cross-process atomicity) or an in-process fallback
// (single-process atomicity only). The backend is chosen once at Build time
// from what the Builder was given; business logic never branches on it.
// Keypass rows likewise live either in Postgres (pgx) or in an in-memory
// store with identical external semantics.
//
// # What this package must NOT do
//
//   - Expose Redis clients, pgx pools, or store internals in its public API.
//   - Perform HTTP routing; the middleware subpackage adapts HTTP semantics
//     to Engine calls, nothing more.
//   - Retry storage failures internally; backend errors surface to the
//     caller wrapped in the *Unavailable sentinels.
package accesscore
