// Package middleware exposes HTTP middleware adapters for rate limiting and
// access-token enforcement built on top of accesscore.Engine.
//
// # Adapters
//
//   - [RateLimit] applies a per-client fixed-window request ceiling for one
//     named bucket.
//   - [RequireAccess] verifies the bearer access token statelessly.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. It does NOT
// implement limiting or verification itself; all decisions are delegated to
// the Engine.
//
// # What this package must NOT do
//
//   - Parse or create tokens directly (delegates to Engine).
//   - Touch storage backends (Engine handles I/O).
//   - Decide anything beyond pass/reject from the Engine's answer.
package middleware
