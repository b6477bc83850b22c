package models

import (
	"context"
	"time"
)

// Notification channels
const (
	ChannelWhatsApp = "whatsapp"
	ChannelSMS      = "sms"
	ChannelEmail    = "email"
)

// Notification statuses
const (
	NotificationStatusPending = "pending"
	NotificationStatusSent    = "sent"
	NotificationStatusFailed  = "failed"
)

// Notification priorities
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

// Template types
const (
	TemplateOTPVerification     = "otp_verification"
	TemplateBookingConfirmation = "booking_confirmation"
	TemplateDeliveryUpdate      = "delivery_update"
	TemplateParcelApproval      = "parcel_approval"
	TemplateCollectionReminder  = "collection_reminder"
)

// Notification is the audit record for one dispatched notification.
type Notification struct {
	ID             string                 `json:"id" db:"id"`
	RecipientID    string                 `json:"recipientId" db:"recipient_id"`
	TemplateType   string                 `json:"templateType" db:"template_type"`
	Channel        string                 `json:"channel" db:"channel"`
	Subject        string                 `json:"subject,omitempty" db:"subject"`
	Message        string                 `json:"message" db:"message"`
	RecipientPhone string                 `json:"recipientPhone,omitempty" db:"recipient_phone"`
	RecipientEmail string                 `json:"recipientEmail,omitempty" db:"recipient_email"`
	Status         string                 `json:"status" db:"status"`
	Priority       string                 `json:"priority" db:"priority"`
	ErrorDetail    string                 `json:"errorDetail,omitempty" db:"error_detail"`
	Metadata       map[string]interface{} `json:"metadata,omitempty" db:"metadata"`
	SentAt         *time.Time             `json:"sentAt,omitempty" db:"sent_at"`
	CreatedAt      time.Time              `json:"createdAt" db:"created_at"`
}

// NotificationTemplate is one reusable message body with {key}
// placeholders, per type, channel and language.
type NotificationTemplate struct {
	ID       string `json:"id" db:"id"`
	Type     string `json:"type" db:"type"`
	Channel  string `json:"channel" db:"channel"`
	Subject  string `json:"subject,omitempty" db:"subject"`
	Body     string `json:"body" db:"body"`
	Language string `json:"language" db:"language"`
	IsActive bool   `json:"isActive" db:"is_active"`
}

// NotificationStore defines notification audit data access.
type NotificationStore interface {
	Create(ctx context.Context, n *Notification) error
	MarkSent(ctx context.Context, id string, at time.Time) error
	MarkFailed(ctx context.Context, id, errorDetail string) error
	ActiveTemplate(ctx context.Context, templateType, channel string) (*NotificationTemplate, error)
}
