package models

import (
	"context"
	"time"
)

// Outbound message kinds
const (
	MessageKindText         = "text"
	MessageKindOTP          = "otp"
	MessageKindApproval     = "approval"
	MessageKindReminder     = "reminder"
	MessageKindConfirmation = "confirmation"
)

// Outbound message statuses
const (
	MessageStatusQueued    = "queued"
	MessageStatusSending   = "sending"
	MessageStatusSent      = "sent"
	MessageStatusDelivered = "delivered"
	MessageStatusRead      = "read"
	MessageStatusFailed    = "failed"
	MessageStatusExpired   = "expired"
)

// OutboundMessage is one message dispatched through a channel session.
// ReceivedResponse is written at most once, by the response scan
// (first-write-wins, enforced with a conditional update).
type OutboundMessage struct {
	ID               string     `json:"id" db:"id"`
	SessionID        string     `json:"sessionId" db:"session_id"`
	Recipient        string     `json:"recipient" db:"recipient"`
	Kind             string     `json:"kind" db:"kind"`
	Body             string     `json:"body" db:"body"`
	RequiresResponse bool       `json:"requiresResponse" db:"requires_response"`
	ResponseOptions  []string   `json:"responseOptions,omitempty" db:"response_options"`
	Status           string     `json:"status" db:"status"`
	ReceivedResponse string     `json:"receivedResponse,omitempty" db:"received_response"`
	ResponseAt       *time.Time `json:"responseAt,omitempty" db:"response_at"`
	BookingID        string     `json:"bookingId,omitempty" db:"booking_id"`
	SentAt           *time.Time `json:"sentAt,omitempty" db:"sent_at"`
	CreatedAt        time.Time  `json:"createdAt" db:"created_at"`
}

// AwaitingResponse reports whether the message is still waiting for a reply.
func (m *OutboundMessage) AwaitingResponse() bool {
	return m.RequiresResponse && m.ReceivedResponse == "" && m.Status == MessageStatusSent
}

// MessageStore defines outbound-message data access.
type MessageStore interface {
	Create(ctx context.Context, msg *OutboundMessage) error
	Get(ctx context.Context, id string) (*OutboundMessage, error)
	PendingApprovals(ctx context.Context) ([]*OutboundMessage, error)
	MarkSent(ctx context.Context, id string, at time.Time) error
	MarkFailed(ctx context.Context, id string) error
	// RecordResponse sets the received response if none has been recorded
	// yet. Returns false when another writer already won.
	RecordResponse(ctx context.Context, id, response string, at time.Time) (bool, error)
	ExpireApproval(ctx context.Context, id string) error
}
