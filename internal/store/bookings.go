// internal/store/bookings.go
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"smartlocker-workers/internal/models"
)

// Bookings persists parcel delivery bookings.
type Bookings struct {
	db *sql.DB
}

func NewBookings(db *sql.DB) *Bookings {
	return &Bookings{db: db}
}

func (s *Bookings) Get(ctx context.Context, id string) (*models.Booking, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, status, locker_id, locker_type, customer_id, delivery_agent_id,
		       sender_name, recipient_name, recipient_phone, apartment,
		       item_description, metadata, created_at, updated_at
		FROM bookings
		WHERE id = $1`, id)

	var b models.Booking
	var lockerID, agentID sql.NullString
	var metadata []byte

	err := row.Scan(
		&b.ID, &b.Status, &lockerID, &b.LockerType, &b.CustomerID, &agentID,
		&b.SenderName, &b.RecipientName, &b.RecipientPhone, &b.Apartment,
		&b.ItemDescription, &metadata, &b.CreatedAt, &b.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query booking: %w", err)
	}

	b.LockerID = lockerID.String
	b.DeliveryAgentID = agentID.String
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &b.Metadata); err != nil {
			return nil, fmt.Errorf("failed to decode booking metadata: %w", err)
		}
	}
	return &b, nil
}

// TransitionStatus is compare-and-set on the status column. Returns false
// when the booking was not in the expected status, so concurrent decisions
// cannot both land.
func (s *Bookings) TransitionStatus(ctx context.Context, id, from, to string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE bookings
		SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2`,
		id, from, to,
	)
	if err != nil {
		return false, fmt.Errorf("failed to transition booking status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (s *Bookings) SetLocker(ctx context.Context, bookingID, lockerID string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE bookings
		SET locker_id = $2, updated_at = NOW()
		WHERE id = $1`,
		bookingID, lockerID,
	)
	if err != nil {
		return fmt.Errorf("failed to set booking locker: %w", err)
	}
	return nil
}
