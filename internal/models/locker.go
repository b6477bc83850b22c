package models

import (
	"context"
	"time"
)

// Locker statuses
const (
	LockerStatusAvailable   = "available"
	LockerStatusOccupied    = "occupied"
	LockerStatusReserved    = "reserved"
	LockerStatusMaintenance = "maintenance"
	LockerStatusOutOfOrder  = "out_of_order"
)

// Locker types
const (
	LockerTypeStandard     = "standard"
	LockerTypeRefrigerated = "refrigerated"
	LockerTypeHeated       = "heated"
	LockerTypeDocument     = "document"
)

// Default access-credential lifetime.
const AccessCredentialTTL = 24 * time.Hour

// Locker is one physical compartment in a locker bank.
type Locker struct {
	ID           string    `json:"id" db:"id"`
	BankID       string    `json:"bankId" db:"bank_id"`
	LockerNumber string    `json:"lockerNumber" db:"locker_number"`
	Size         string    `json:"size" db:"size"`
	LockerType   string    `json:"lockerType" db:"locker_type"`
	Status       string    `json:"status" db:"status"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
}

// LockerBank groups lockers behind one kiosk location.
type LockerBank struct {
	ID         string `json:"id" db:"id"`
	BuildingID string `json:"buildingId" db:"building_id"`
	Location   string `json:"location" db:"location"`
	TotalCount int    `json:"totalCount" db:"total_count"`
	IsActive   bool   `json:"isActive" db:"is_active"`
	HardwareID string `json:"hardwareId" db:"hardware_id"`
}

// AccessCredential grants time-bounded physical access to a locker.
// Single-use by intent; consumption marking belongs to the kiosk layer.
type AccessCredential struct {
	ID         string     `json:"id" db:"id"`
	LockerID   string     `json:"lockerId" db:"locker_id"`
	Code       string     `json:"code" db:"code"`
	AccessType string     `json:"accessType" db:"access_type"`
	ExpiresAt  time.Time  `json:"expiresAt" db:"expires_at"`
	IssuedBy   string     `json:"issuedBy" db:"issued_by"`
	UsedBy     string     `json:"usedBy,omitempty" db:"used_by"`
	UsedAt     *time.Time `json:"usedAt,omitempty" db:"used_at"`
	CreatedAt  time.Time  `json:"createdAt" db:"created_at"`
}

// LockerStore defines locker data access. Claim is the atomic
// read-available/mark-reserved step required for correct concurrent
// assignment.
type LockerStore interface {
	Get(ctx context.Context, id string) (*Locker, error)
	// Claim reserves the first available locker of the given type in a
	// single statement. Returns nil when none is available.
	Claim(ctx context.Context, lockerType string) (*Locker, error)
	Release(ctx context.Context, id string) error
	CreateCredential(ctx context.Context, cred *AccessCredential) error
	BankLocation(ctx context.Context, bankID string) (string, error)
}
