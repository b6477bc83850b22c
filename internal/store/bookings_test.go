// internal/store/bookings_test.go
package store

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartlocker-workers/internal/models"
)

func TestBookings_Get(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now()
	rows := sqlmock.NewRows([]string{
		"id", "status", "locker_id", "locker_type", "customer_id", "delivery_agent_id",
		"sender_name", "recipient_name", "recipient_phone", "apartment",
		"item_description", "metadata", "created_at", "updated_at",
	}).AddRow(
		"booking-1", models.BookingStatusPending, nil, models.LockerTypeStandard,
		"user-1", nil, "Flipkart", "Asha", "+919812345678", "B-402",
		"Shoes", []byte(`{"agentPhone":"+919899999999"}`), now, now,
	)

	mock.ExpectQuery("SELECT (.+) FROM bookings").
		WithArgs("booking-1").
		WillReturnRows(rows)

	booking, err := NewBookings(db).Get(context.Background(), "booking-1")
	require.NoError(t, err)
	require.NotNil(t, booking)

	assert.Equal(t, models.BookingStatusPending, booking.Status)
	assert.Empty(t, booking.LockerID)
	assert.Equal(t, "+919899999999", booking.Metadata["agentPhone"])
}

func TestBookings_Get_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT (.+) FROM bookings").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	booking, err := NewBookings(db).Get(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, booking)
}

func TestBookings_TransitionStatus_CompareAndSet(t *testing.T) {
	tests := []struct {
		name     string
		affected int64
		expected bool
	}{
		{"wins when status matches", 1, true},
		{"loses when status moved", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			mock.ExpectExec("UPDATE bookings").
				WithArgs("booking-1", models.BookingStatusPending, models.BookingStatusConfirmed).
				WillReturnResult(sqlmock.NewResult(0, tt.affected))

			moved, err := NewBookings(db).TransitionStatus(
				context.Background(), "booking-1",
				models.BookingStatusPending, models.BookingStatusConfirmed,
			)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, moved)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestBookings_SetLocker(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("UPDATE bookings").
		WithArgs("booking-1", "locker-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = NewBookings(db).SetLocker(context.Background(), "booking-1", "locker-1")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
