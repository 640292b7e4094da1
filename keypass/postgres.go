package keypass

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// PGStore implements Store on Postgres via database/sql (pgx stdlib driver).
// The conditional UPDATE in UpdateStatus is the compare-and-swap the claim
// path relies on: Postgres row locking makes exactly one concurrent swap
// observe the expected status.
//
// The purchases table is written by the billing service and only read here.
type PGStore struct {
	db *sql.DB
}

// NewPGStore wraps an open database handle.
func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

// Migrate creates the keypasses table when absent. Purchases are owned by
// billing and never created here.
func (s *PGStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS keypasses (
			id         UUID PRIMARY KEY,
			code       TEXT NOT NULL UNIQUE,
			org_id     TEXT NOT NULL,
			status     TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			expires_at TIMESTAMPTZ NOT NULL,
			used_at    TIMESTAMPTZ
		);
		CREATE INDEX IF NOT EXISTS keypasses_org_status_idx ON keypasses (org_id, status);
	`)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Insert implements Store.
func (s *PGStore) Insert(ctx context.Context, passes []Keypass) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer tx.Rollback()

	for _, kp := range passes {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO keypasses (id, code, org_id, status, created_at, expires_at, used_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, kp.ID, kp.Code, kp.OrganisationID, string(kp.Status), kp.CreatedAt, kp.ExpiresAt, kp.UsedAt); err != nil {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// GetByCode implements Store.
func (s *PGStore) GetByCode(ctx context.Context, code string) (Keypass, error) {
	var kp Keypass
	var status string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, code, org_id, status, created_at, expires_at, used_at
		FROM keypasses
		WHERE code = $1
	`, code).Scan(&kp.ID, &kp.Code, &kp.OrganisationID, &status, &kp.CreatedAt, &kp.ExpiresAt, &kp.UsedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Keypass{}, ErrNotFound
		}
		return Keypass{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	kp.Status = Status(status)
	return kp, nil
}

// CodeExists implements Store.
func (s *PGStore) CodeExists(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM keypasses WHERE code = $1)`, code,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return exists, nil
}

// UpdateStatus implements Store.
func (s *PGStore) UpdateStatus(ctx context.Context, code string, from, to Status, usedAt *time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE keypasses
		SET status = $3, used_at = COALESCE($4, used_at)
		WHERE code = $1 AND status = $2
	`, code, string(from), string(to), usedAt)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return affected > 0, nil
}

// MarkRevoked implements Store.
func (s *PGStore) MarkRevoked(ctx context.Context, code string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE keypasses
		SET status = $2
		WHERE code = $1 AND status <> $2
	`, code, string(StatusRevoked))
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if affected > 0 {
		return true, nil
	}

	// Zero rows means either already revoked or missing.
	exists, err := s.CodeExists(ctx, code)
	if err != nil {
		return false, err
	}
	if !exists {
		return false, ErrNotFound
	}
	return false, nil
}

// CountActive implements Store.
func (s *PGStore) CountActive(ctx context.Context, orgID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM keypasses
		WHERE org_id = $1 AND status IN ($2, $3)
	`, orgID, string(StatusAvailable), string(StatusUsed)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return count, nil
}

// BestAllowance implements Store.
func (s *PGStore) BestAllowance(ctx context.Context, orgID string) (int, error) {
	var best int
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(keypass_allowance), 0)
		FROM purchases
		WHERE org_id = $1 AND status = 'completed'
	`, orgID).Scan(&best)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return best, nil
}

// List implements Store.
func (s *PGStore) List(ctx context.Context, orgID string, offset, limit int) ([]Keypass, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, code, org_id, status, created_at, expires_at, used_at
		FROM keypasses
		WHERE org_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, orgID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer rows.Close()

	passes := make([]Keypass, 0)
	for rows.Next() {
		var kp Keypass
		var status string
		if err := rows.Scan(&kp.ID, &kp.Code, &kp.OrganisationID, &status, &kp.CreatedAt, &kp.ExpiresAt, &kp.UsedAt); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		kp.Status = Status(status)
		passes = append(passes, kp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return passes, nil
}
