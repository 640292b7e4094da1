// Package counter provides the fixed-window increment-with-expiry primitive
// that backs both rate limiting and lockout tracking.
//
// A window is created by the first increment for a key and lives for the
// configured duration; increments inside the window bump the count in place,
// and the first increment after the window has passed starts a fresh window
// at 1. Expiry is lazy: nothing sweeps in the background, a key simply reads
// as absent once its window has elapsed.
//
// Two implementations exist. [RedisStore] delegates to Redis INCR/EXPIRE and
// is atomic across processes. [MemoryStore] is a mutex-guarded map and is
// atomic only within one process; deployments running multiple replicas
// without Redis get per-replica counting, which is a documented limitation
// rather than something this package papers over.
package counter
