package session

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	identity  string
	expiresAt time.Time
}

// MemoryAllowlist implements Allowlist as an in-process map. Expiry is lazy:
// expired entries read as absent and are dropped on the read that finds
// them. Single-process atomicity only.
type MemoryAllowlist struct {
	mu      sync.Mutex
	tokens  map[string]memoryEntry
	byOwner map[string]map[string]struct{}
	now     func() time.Time
}

// NewMemoryAllowlist creates an empty in-process allowlist.
func NewMemoryAllowlist() *MemoryAllowlist {
	return &MemoryAllowlist{
		tokens:  make(map[string]memoryEntry),
		byOwner: make(map[string]map[string]struct{}),
		now:     time.Now,
	}
}

// Put implements Allowlist.
func (a *MemoryAllowlist) Put(_ context.Context, tok, identity string, ttl time.Duration) error {
	d := digest(tok)

	a.mu.Lock()
	defer a.mu.Unlock()

	a.tokens[d] = memoryEntry{identity: identity, expiresAt: a.now().Add(ttl)}
	owned, ok := a.byOwner[identity]
	if !ok {
		owned = make(map[string]struct{})
		a.byOwner[identity] = owned
	}
	owned[d] = struct{}{}
	return nil
}

// Owner implements Allowlist.
func (a *MemoryAllowlist) Owner(_ context.Context, tok string) (string, bool, error) {
	d := digest(tok)

	a.mu.Lock()
	defer a.mu.Unlock()

	entry, ok := a.tokens[d]
	if !ok {
		return "", false, nil
	}
	if !a.now().Before(entry.expiresAt) {
		a.removeLocked(d, entry.identity)
		return "", false, nil
	}
	return entry.identity, true, nil
}

// Delete implements Allowlist.
func (a *MemoryAllowlist) Delete(_ context.Context, tok string) (bool, error) {
	d := digest(tok)

	a.mu.Lock()
	defer a.mu.Unlock()

	entry, ok := a.tokens[d]
	if !ok {
		return false, nil
	}
	expired := !a.now().Before(entry.expiresAt)
	a.removeLocked(d, entry.identity)
	return !expired, nil
}

// DeleteAll implements Allowlist.
func (a *MemoryAllowlist) DeleteAll(_ context.Context, identity string) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	removed := 0
	for d := range a.byOwner[identity] {
		if entry, ok := a.tokens[d]; ok {
			if a.now().Before(entry.expiresAt) {
				removed++
			}
			delete(a.tokens, d)
		}
	}
	delete(a.byOwner, identity)
	return removed, nil
}

func (a *MemoryAllowlist) removeLocked(d, identity string) {
	delete(a.tokens, d)
	if owned, ok := a.byOwner[identity]; ok {
		delete(owned, d)
		if len(owned) == 0 {
			delete(a.byOwner, identity)
		}
	}
}
