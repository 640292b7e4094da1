// Package rate enforces per-bucket, per-client request ceilings on top of
// the windowed counter. Buckets (signup, login, refresh, global, ...) are
// independent fixed-window counters keyed bucket:clientID.
package rate
