// internal/store/otps.go
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"smartlocker-workers/internal/models"
)

// OTPs persists one-time-password records.
type OTPs struct {
	db *sql.DB
}

func NewOTPs(db *sql.DB) *OTPs {
	return &OTPs{db: db}
}

func (s *OTPs) Create(ctx context.Context, record *models.OTPRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO otp_records
			(id, user_id, purpose, code, recipient, status, generated_by_ai, expires_at, attempts, max_attempts, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())`,
		record.ID, record.UserID, record.Purpose, record.Code, record.Recipient,
		record.Status, record.GeneratedByAI, record.ExpiresAt,
		record.Attempts, record.MaxAttempts,
	)
	if err != nil {
		return fmt.Errorf("failed to insert otp record: %w", err)
	}
	return nil
}

// NewestSent returns the most recent sent record for the user and purpose,
// or nil when none exists.
func (s *OTPs) NewestSent(ctx context.Context, userID, purpose string) (*models.OTPRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, purpose, code, recipient, status, generated_by_ai,
		       expires_at, attempts, max_attempts, sent_at, verified_at, created_at
		FROM otp_records
		WHERE user_id = $1 AND purpose = $2 AND status = $3
		ORDER BY created_at DESC
		LIMIT 1`,
		userID, purpose, models.OTPStatusSent,
	)

	record, err := scanOTP(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query otp record: %w", err)
	}
	return record, nil
}

func (s *OTPs) MarkSent(ctx context.Context, id string, at time.Time) error {
	return s.setStatus(ctx, id, models.OTPStatusSent, "sent_at", at)
}

func (s *OTPs) MarkFailed(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE otp_records SET status = $2 WHERE id = $1`,
		id, models.OTPStatusFailed,
	)
	if err != nil {
		return fmt.Errorf("failed to mark otp failed: %w", err)
	}
	return nil
}

func (s *OTPs) MarkVerified(ctx context.Context, id string, at time.Time) error {
	return s.setStatus(ctx, id, models.OTPStatusVerified, "verified_at", at)
}

func (s *OTPs) IncrementAttempts(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE otp_records SET attempts = attempts + 1 WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to increment otp attempts: %w", err)
	}
	return nil
}

// ExpireOutstanding invalidates every live code for the user and purpose.
// Called before a resend so only one code can ever verify.
func (s *OTPs) ExpireOutstanding(ctx context.Context, userID, purpose string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE otp_records
		SET status = $3
		WHERE user_id = $1 AND purpose = $2 AND status IN ($4, $5)`,
		userID, purpose, models.OTPStatusExpired,
		models.OTPStatusGenerated, models.OTPStatusSent,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to expire outstanding otps: %w", err)
	}
	return res.RowsAffected()
}

// ExpirePast marks every live code past its expiry. Run from the cleanup
// sweep.
func (s *OTPs) ExpirePast(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE otp_records
		SET status = $1
		WHERE status IN ($2, $3) AND expires_at < NOW()`,
		models.OTPStatusExpired, models.OTPStatusGenerated, models.OTPStatusSent,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to expire past otps: %w", err)
	}
	return res.RowsAffected()
}

func (s *OTPs) setStatus(ctx context.Context, id, status, tsColumn string, at time.Time) error {
	query := fmt.Sprintf(`UPDATE otp_records SET status = $2, %s = $3 WHERE id = $1`, tsColumn)
	_, err := s.db.ExecContext(ctx, query, id, status, at)
	if err != nil {
		return fmt.Errorf("failed to mark otp %s: %w", status, err)
	}
	return nil
}

func scanOTP(row rowScanner) (*models.OTPRecord, error) {
	var record models.OTPRecord
	var sentAt, verifiedAt sql.NullTime

	err := row.Scan(
		&record.ID, &record.UserID, &record.Purpose, &record.Code, &record.Recipient,
		&record.Status, &record.GeneratedByAI, &record.ExpiresAt,
		&record.Attempts, &record.MaxAttempts, &sentAt, &verifiedAt, &record.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if sentAt.Valid {
		record.SentAt = &sentAt.Time
	}
	if verifiedAt.Valid {
		record.VerifiedAt = &verifiedAt.Time
	}
	return &record, nil
}
