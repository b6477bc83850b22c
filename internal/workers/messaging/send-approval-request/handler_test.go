// internal/workers/messaging/send-approval-request/handler_test.go
package sendapprovalrequest

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"smartlocker-workers/internal/common/logger"
	"smartlocker-workers/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBookings struct {
	booking *models.Booking
	err     error
}

func (f *fakeBookings) Get(ctx context.Context, id string) (*models.Booking, error) {
	return f.booking, f.err
}

func (f *fakeBookings) TransitionStatus(ctx context.Context, id, from, to string) (bool, error) {
	return false, nil
}

func (f *fakeBookings) SetLocker(ctx context.Context, bookingID, lockerID string) error {
	return nil
}

type fakeGateway struct {
	messageID string
	ok        bool
	booking   *models.Booking
}

func (f *fakeGateway) SendApprovalRequest(ctx context.Context, booking *models.Booking, expiryMinutes int) (string, bool) {
	f.booking = booking
	return f.messageID, f.ok
}

func newTestHandler(t *testing.T, bookings models.BookingStore, gateway Gateway) *Handler {
	cfg := DefaultConfig()
	cfg.Timeout = 5 * time.Second
	return NewHandler(cfg, bookings, gateway, logger.NewTestLogger(t))
}

func TestExecute_SendsApprovalRequest(t *testing.T) {
	booking := &models.Booking{
		ID:             "booking-1",
		Status:         models.BookingStatusPending,
		RecipientName:  "Asha Rao",
		RecipientPhone: "+919900112233",
	}
	gateway := &fakeGateway{messageID: "msg-42", ok: true}
	h := newTestHandler(t, &fakeBookings{booking: booking}, gateway)

	output, err := h.Execute(context.Background(), &Input{BookingID: "booking-1"})
	require.NoError(t, err)

	assert.True(t, output.Sent)
	assert.Equal(t, "msg-42", output.ApprovalMessageID)
	assert.Equal(t, booking, gateway.booking)
	assert.WithinDuration(t, time.Now().Add(30*time.Minute), output.ExpiresAt, time.Minute)
}

func TestExecute_BookingNotFound(t *testing.T) {
	h := newTestHandler(t, &fakeBookings{}, &fakeGateway{})

	_, err := h.Execute(context.Background(), &Input{BookingID: "missing"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBookingNotFound)
}

func TestExecute_MissingBookingID(t *testing.T) {
	h := newTestHandler(t, &fakeBookings{}, &fakeGateway{})

	_, err := h.Execute(context.Background(), &Input{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBookingNotFound)
}

func TestExecute_SendFailure(t *testing.T) {
	booking := &models.Booking{ID: "booking-1", RecipientPhone: "+919900112233"}
	h := newTestHandler(t, &fakeBookings{booking: booking}, &fakeGateway{ok: false})

	_, err := h.Execute(context.Background(), &Input{BookingID: "booking-1"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMessageSendFailed)
}

func TestExecute_StoreError(t *testing.T) {
	h := newTestHandler(t, &fakeBookings{err: errors.New("connection refused")}, &fakeGateway{})

	_, err := h.Execute(context.Background(), &Input{BookingID: "booking-1"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrBookingNotFound)
}

// The sent flag goes into process variables as approvalSent so it cannot
// collide with send-message's sent variable in the same process instance.
func TestOutput_VariableNames(t *testing.T) {
	data, err := json.Marshal(&Output{ApprovalMessageID: "msg-1", Sent: true})
	require.NoError(t, err)

	var vars map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &vars))
	assert.Contains(t, vars, "approvalSent")
	assert.NotContains(t, vars, "sent")
}
