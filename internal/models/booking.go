package models

import (
	"context"
	"time"
)

// Booking statuses
const (
	BookingStatusPending   = "pending"
	BookingStatusConfirmed = "confirmed"
	BookingStatusInTransit = "in_transit"
	BookingStatusDelivered = "delivered"
	BookingStatusCollected = "collected"
	BookingStatusExpired   = "expired"
	BookingStatusCancelled = "cancelled"
)

// Booking is the delivery record the approval workflow drives. The core
// mutates only Status and LockerID; everything else belongs to the
// booking collaborators.
type Booking struct {
	ID              string                 `json:"id" db:"id"`
	Status          string                 `json:"status" db:"status"`
	LockerID        string                 `json:"lockerId,omitempty" db:"locker_id"`
	LockerType      string                 `json:"lockerType" db:"locker_type"`
	CustomerID      string                 `json:"customerId" db:"customer_id"`
	DeliveryAgentID string                 `json:"deliveryAgentId,omitempty" db:"delivery_agent_id"`
	SenderName      string                 `json:"senderName" db:"sender_name"`
	RecipientName   string                 `json:"recipientName" db:"recipient_name"`
	RecipientPhone  string                 `json:"recipientPhone" db:"recipient_phone"`
	Apartment       string                 `json:"apartment" db:"apartment"`
	ItemDescription string                 `json:"itemDescription" db:"item_description"`
	Metadata        map[string]interface{} `json:"metadata,omitempty" db:"metadata"`
	CreatedAt       time.Time              `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time              `json:"updatedAt" db:"updated_at"`
}

// BookingStore defines booking data access. Status transitions use
// compare-and-set so two orchestrator runs cannot race each other.
type BookingStore interface {
	Get(ctx context.Context, id string) (*Booking, error)
	// TransitionStatus moves the booking from one status to another.
	// Returns false when the booking was not in the expected status.
	TransitionStatus(ctx context.Context, id, from, to string) (bool, error)
	SetLocker(ctx context.Context, bookingID, lockerID string) error
}
