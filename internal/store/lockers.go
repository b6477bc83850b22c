// internal/store/lockers.go
package store

import (
	"context"
	"database/sql"
	"fmt"

	"smartlocker-workers/internal/models"
)

// Lockers persists lockers, banks and access credentials.
type Lockers struct {
	db *sql.DB
}

func NewLockers(db *sql.DB) *Lockers {
	return &Lockers{db: db}
}

func (s *Lockers) Get(ctx context.Context, id string) (*models.Locker, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, bank_id, locker_number, size, locker_type, status, created_at, updated_at
		FROM lockers
		WHERE id = $1`, id)

	locker, err := scanLocker(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query locker: %w", err)
	}
	return locker, nil
}

// Claim reserves the first available locker of the given type in one
// statement. SKIP LOCKED keeps two concurrent claims from ever selecting
// the same row; the loser moves on to the next available locker or gets
// nothing. Returns nil when no locker is free.
func (s *Lockers) Claim(ctx context.Context, lockerType string) (*models.Locker, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE lockers
		SET status = $1, updated_at = NOW()
		WHERE id = (
			SELECT id FROM lockers
			WHERE status = $2 AND locker_type = $3
			ORDER BY locker_number
			FOR UPDATE SKIP LOCKED
			LIMIT 1
		)
		RETURNING id, bank_id, locker_number, size, locker_type, status, created_at, updated_at`,
		models.LockerStatusReserved, models.LockerStatusAvailable, lockerType,
	)

	locker, err := scanLocker(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to claim locker: %w", err)
	}
	return locker, nil
}

func (s *Lockers) Release(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE lockers
		SET status = $2, updated_at = NOW()
		WHERE id = $1`,
		id, models.LockerStatusAvailable,
	)
	if err != nil {
		return fmt.Errorf("failed to release locker: %w", err)
	}
	return nil
}

func (s *Lockers) CreateCredential(ctx context.Context, cred *models.AccessCredential) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO access_credentials
			(id, locker_id, code, access_type, expires_at, issued_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())`,
		cred.ID, cred.LockerID, cred.Code, cred.AccessType, cred.ExpiresAt, cred.IssuedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to insert access credential: %w", err)
	}
	return nil
}

func (s *Lockers) BankLocation(ctx context.Context, bankID string) (string, error) {
	var location string
	err := s.db.QueryRowContext(ctx,
		`SELECT location FROM locker_banks WHERE id = $1`, bankID,
	).Scan(&location)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to query bank location: %w", err)
	}
	return location, nil
}

func scanLocker(row rowScanner) (*models.Locker, error) {
	var locker models.Locker
	err := row.Scan(
		&locker.ID, &locker.BankID, &locker.LockerNumber, &locker.Size,
		&locker.LockerType, &locker.Status, &locker.CreatedAt, &locker.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &locker, nil
}
