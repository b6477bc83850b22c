// Package store implements the Postgres-backed data access layer. All
// statements run through database/sql with the pq driver; concurrency
// control lives in the SQL (conditional updates, SKIP LOCKED claims), not
// in application locks.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"smartlocker-workers/internal/models"
)

// Sessions persists WhatsApp channel sessions.
type Sessions struct {
	db *sql.DB
}

func NewSessions(db *sql.DB) *Sessions {
	return &Sessions{db: db}
}

func (s *Sessions) Create(ctx context.Context, session *models.ChannelSession) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO whatsapp_sessions (id, session_id, phone_number, status, qr_ref, error_detail, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())`,
		session.ID, session.SessionID, session.PhoneNumber, session.Status,
		session.QRRef, session.ErrorDetail,
	)
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}
	return nil
}

func (s *Sessions) CanonicalActive(ctx context.Context, phoneNumber string) (*models.ChannelSession, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, session_id, phone_number, status, qr_ref, last_activity, error_detail, created_at, updated_at
		FROM whatsapp_sessions
		WHERE phone_number = $1 AND status = $2
		ORDER BY created_at DESC
		LIMIT 1`,
		phoneNumber, models.SessionStatusActive,
	)

	session, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query canonical session: %w", err)
	}
	return session, nil
}

func (s *Sessions) UpdateStatus(ctx context.Context, id, status, errorDetail string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE whatsapp_sessions
		SET status = $2, error_detail = $3, updated_at = NOW()
		WHERE id = $1`,
		id, status, errorDetail,
	)
	if err != nil {
		return fmt.Errorf("failed to update session status: %w", err)
	}
	return nil
}

func (s *Sessions) TouchActivity(ctx context.Context, id string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE whatsapp_sessions
		SET last_activity = $2, updated_at = NOW()
		WHERE id = $1`,
		id, at,
	)
	if err != nil {
		return fmt.Errorf("failed to touch session activity: %w", err)
	}
	return nil
}

func (s *Sessions) ExpireInactive(ctx context.Context, threshold time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-threshold)
	res, err := s.db.ExecContext(ctx, `
		UPDATE whatsapp_sessions
		SET status = $1, updated_at = NOW()
		WHERE status = $2 AND (last_activity IS NULL OR last_activity < $3)`,
		models.SessionStatusExpired, models.SessionStatusActive, cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to expire inactive sessions: %w", err)
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSession(row rowScanner) (*models.ChannelSession, error) {
	var session models.ChannelSession
	var qrRef, errorDetail sql.NullString
	var lastActivity sql.NullTime

	err := row.Scan(
		&session.ID, &session.SessionID, &session.PhoneNumber, &session.Status,
		&qrRef, &lastActivity, &errorDetail,
		&session.CreatedAt, &session.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	session.QRRef = qrRef.String
	session.ErrorDetail = errorDetail.String
	if lastActivity.Valid {
		session.LastActivity = &lastActivity.Time
	}
	return &session, nil
}
