package keypass

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Store is the keypass persistence contract. Both implementations must make
// UpdateStatus a true compare-and-swap so the engine can rely on it for
// at-most-once claims; everything else is plain reads and inserts.
type Store interface {
	// Insert adds freshly minted rows. Codes were uniqueness-checked by the
	// engine immediately before.
	Insert(ctx context.Context, passes []Keypass) error

	// GetByCode returns the row for a code, or ErrNotFound.
	GetByCode(ctx context.Context, code string) (Keypass, error)

	// CodeExists reports whether any row carries the code.
	CodeExists(ctx context.Context, code string) (bool, error)

	// UpdateStatus atomically transitions the code from one status to
	// another, recording usedAt when provided. Reports false without error
	// when the row was not in the expected from status.
	UpdateStatus(ctx context.Context, code string, from, to Status, usedAt *time.Time) (bool, error)

	// MarkRevoked forces the code to Revoked from any other status.
	// Reports false when it was already revoked; ErrNotFound when absent.
	MarkRevoked(ctx context.Context, code string) (bool, error)

	// CountActive counts the organisation's rows with status Available or
	// Used, the ones occupying quota slots.
	CountActive(ctx context.Context, orgID string) (int, error)

	// BestAllowance returns the largest keypass allowance among the
	// organisation's completed purchases, zero when there are none.
	BestAllowance(ctx context.Context, orgID string) (int, error)

	// List returns the organisation's rows, newest first.
	List(ctx context.Context, orgID string, offset, limit int) ([]Keypass, error)
}

// MemoryStore is the in-process Store used when no database is configured.
// One mutex guards all rows, which also makes UpdateStatus a true CAS
// within the process.
type MemoryStore struct {
	mu        sync.Mutex
	byCode    map[string]Keypass
	purchases map[string][]memoryPurchase
}

type memoryPurchase struct {
	allowance int
	completed bool
}

// NewMemoryStore creates an empty in-process keypass store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byCode:    make(map[string]Keypass),
		purchases: make(map[string][]memoryPurchase),
	}
}

// SeedPurchase records a purchase for quota derivation. The in-memory
// backend has no billing pipeline, so deployments (and tests) seed the
// purchase state directly.
func (s *MemoryStore) SeedPurchase(orgID string, allowance int, completed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.purchases[orgID] = append(s.purchases[orgID], memoryPurchase{allowance: allowance, completed: completed})
}

// Insert implements Store.
func (s *MemoryStore) Insert(_ context.Context, passes []Keypass) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, kp := range passes {
		s.byCode[kp.Code] = kp
	}
	return nil
}

// GetByCode implements Store.
func (s *MemoryStore) GetByCode(_ context.Context, code string) (Keypass, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kp, ok := s.byCode[code]
	if !ok {
		return Keypass{}, ErrNotFound
	}
	return kp, nil
}

// CodeExists implements Store.
func (s *MemoryStore) CodeExists(_ context.Context, code string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.byCode[code]
	return ok, nil
}

// UpdateStatus implements Store.
func (s *MemoryStore) UpdateStatus(_ context.Context, code string, from, to Status, usedAt *time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kp, ok := s.byCode[code]
	if !ok || kp.Status != from {
		return false, nil
	}

	kp.Status = to
	if usedAt != nil {
		at := *usedAt
		kp.UsedAt = &at
	}
	s.byCode[code] = kp
	return true, nil
}

// MarkRevoked implements Store.
func (s *MemoryStore) MarkRevoked(_ context.Context, code string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kp, ok := s.byCode[code]
	if !ok {
		return false, ErrNotFound
	}
	if kp.Status == StatusRevoked {
		return false, nil
	}

	kp.Status = StatusRevoked
	s.byCode[code] = kp
	return true, nil
}

// CountActive implements Store.
func (s *MemoryStore) CountActive(_ context.Context, orgID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, kp := range s.byCode {
		if kp.OrganisationID == orgID && (kp.Status == StatusAvailable || kp.Status == StatusUsed) {
			count++
		}
	}
	return count, nil
}

// BestAllowance implements Store.
func (s *MemoryStore) BestAllowance(_ context.Context, orgID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	best := 0
	for _, p := range s.purchases[orgID] {
		if p.completed && p.allowance > best {
			best = p.allowance
		}
	}
	return best, nil
}

// List implements Store.
func (s *MemoryStore) List(_ context.Context, orgID string, offset, limit int) ([]Keypass, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rows []Keypass
	for _, kp := range s.byCode {
		if kp.OrganisationID == orgID {
			rows = append(rows, kp)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].CreatedAt.After(rows[j].CreatedAt) })

	if offset >= len(rows) {
		return nil, nil
	}
	rows = rows[offset:]
	if limit > 0 && limit < len(rows) {
		rows = rows[:limit]
	}
	return rows, nil
}
