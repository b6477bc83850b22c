package models

import (
	"context"
	"time"
)

// OTP verification statuses
const (
	OTPStatusGenerated = "generated"
	OTPStatusSent      = "sent"
	OTPStatusVerified  = "verified"
	OTPStatusExpired   = "expired"
	OTPStatusFailed    = "failed"
)

// Default OTP limits
const (
	OTPDefaultLength      = 6
	OTPDefaultMaxAttempts = 3
)

// OTPRecord is a short-lived numeric code bound to a user and purpose.
// Exactly one winning verification per record: once verified, failed or
// expired, the record never changes again.
type OTPRecord struct {
	ID            string     `json:"id" db:"id"`
	UserID        string     `json:"userId" db:"user_id"`
	Purpose       string     `json:"purpose" db:"purpose"`
	Code          string     `json:"code" db:"code"`
	Recipient     string     `json:"recipient" db:"recipient"`
	Status        string     `json:"status" db:"status"`
	GeneratedByAI bool       `json:"generatedByAi" db:"generated_by_ai"`
	ExpiresAt     time.Time  `json:"expiresAt" db:"expires_at"`
	Attempts      int        `json:"attempts" db:"attempts"`
	MaxAttempts   int        `json:"maxAttempts" db:"max_attempts"`
	SentAt        *time.Time `json:"sentAt,omitempty" db:"sent_at"`
	VerifiedAt    *time.Time `json:"verifiedAt,omitempty" db:"verified_at"`
	CreatedAt     time.Time  `json:"createdAt" db:"created_at"`
}

// Expired reports whether the record is past its expiry.
func (o *OTPRecord) Expired(now time.Time) bool {
	return now.After(o.ExpiresAt)
}

// AttemptsExhausted reports whether verification attempts are used up.
func (o *OTPRecord) AttemptsExhausted() bool {
	return o.Attempts >= o.MaxAttempts
}

// OTPStore defines OTP-record data access.
type OTPStore interface {
	Create(ctx context.Context, record *OTPRecord) error
	// NewestSent returns the most recent record with status "sent" for the
	// user and purpose, or nil when none exists.
	NewestSent(ctx context.Context, userID, purpose string) (*OTPRecord, error)
	MarkSent(ctx context.Context, id string, at time.Time) error
	MarkFailed(ctx context.Context, id string) error
	MarkVerified(ctx context.Context, id string, at time.Time) error
	IncrementAttempts(ctx context.Context, id string) error
	// ExpireOutstanding marks all generated/sent records for the user and
	// purpose as expired. Used by resend.
	ExpireOutstanding(ctx context.Context, userID, purpose string) (int64, error)
	// ExpirePast marks all generated/sent records past their expiry.
	ExpirePast(ctx context.Context) (int64, error)
}
