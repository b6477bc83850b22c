package models

import (
	"context"
	"time"
)

// ChannelSession statuses
const (
	SessionStatusInactive = "inactive"
	SessionStatusActive   = "active"
	SessionStatusExpired  = "expired"
	SessionStatusError    = "error"
)

// ChannelSession represents one authenticated connection to the WhatsApp
// messaging surface. At most one active session per business number is
// treated as canonical for outbound traffic.
type ChannelSession struct {
	ID           string     `json:"id" db:"id"`
	SessionID    string     `json:"sessionId" db:"session_id"`
	PhoneNumber  string     `json:"phoneNumber" db:"phone_number"`
	Status       string     `json:"status" db:"status"`
	QRRef        string     `json:"qrRef,omitempty" db:"qr_ref"`
	LastActivity *time.Time `json:"lastActivity,omitempty" db:"last_activity"`
	ErrorDetail  string     `json:"errorDetail,omitempty" db:"error_detail"`
	CreatedAt    time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time  `json:"updatedAt" db:"updated_at"`
}

// StaleSince reports whether the session has been idle longer than the
// given threshold. Sessions without recorded activity count as stale.
func (s *ChannelSession) StaleSince(threshold time.Duration, now time.Time) bool {
	if s.LastActivity == nil {
		return true
	}
	return now.Sub(*s.LastActivity) > threshold
}

// IsActive reports whether the session can carry outbound traffic.
func (s *ChannelSession) IsActive() bool {
	return s.Status == SessionStatusActive
}

// SessionStore defines channel-session data access.
type SessionStore interface {
	Create(ctx context.Context, session *ChannelSession) error
	CanonicalActive(ctx context.Context, phoneNumber string) (*ChannelSession, error)
	UpdateStatus(ctx context.Context, id, status, errorDetail string) error
	TouchActivity(ctx context.Context, id string, at time.Time) error
	ExpireInactive(ctx context.Context, threshold time.Duration) (int64, error)
}
