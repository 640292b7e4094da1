package counter

import (
	"context"
	"sync"
	"time"
)

// maxIdleEntries bounds the fallback map; once exceeded, expired entries are
// swept opportunistically during the next increment.
const maxIdleEntries = 5000

type memoryEntry struct {
	count   int64
	resetAt time.Time
}

// MemoryStore implements Store as an in-process map. It is the fallback used
// when no shared Redis instance is configured and guarantees atomicity only
// within a single process.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryStore creates an empty in-process counter store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

// Increment implements Store.
func (s *MemoryStore) Increment(_ context.Context, key string, window time.Duration) (int64, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok || !now.Before(entry.resetAt) {
		// Absent or logically expired: a fresh window starts here.
		s.sweepLocked(now)
		s.entries[key] = memoryEntry{count: 1, resetAt: now.Add(window)}
		return 1, nil
	}

	entry.count++
	s.entries[key] = entry
	return entry.count, nil
}

// Peek implements Store.
func (s *MemoryStore) Peek(_ context.Context, key string) (int64, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok || !now.Before(entry.resetAt) {
		return 0, nil
	}
	return entry.count, nil
}

// TTL implements Store.
func (s *MemoryStore) TTL(_ context.Context, key string) (time.Duration, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok || !now.Before(entry.resetAt) {
		return 0, nil
	}
	return entry.resetAt.Sub(now), nil
}

// Reset implements Store.
func (s *MemoryStore) Reset(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, key)
	return nil
}

func (s *MemoryStore) sweepLocked(now time.Time) {
	if len(s.entries) <= maxIdleEntries {
		return
	}
	for key, entry := range s.entries {
		if !now.Before(entry.resetAt) {
			delete(s.entries, key)
		}
	}
}
