// internal/store/messages_test.go
package store

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartlocker-workers/internal/models"
)

func TestMessages_RecordResponse_FirstWriteWins(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("UPDATE outbound_messages").
		WithArgs("msg-1", "APPROVE", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	won, err := NewMessages(db).RecordResponse(context.Background(), "msg-1", "APPROVE", time.Now())
	require.NoError(t, err)
	assert.True(t, won)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMessages_RecordResponse_LosesWhenAlreadyRecorded(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("UPDATE outbound_messages").
		WithArgs("msg-1", "DENY", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	won, err := NewMessages(db).RecordResponse(context.Background(), "msg-1", "DENY", time.Now())
	require.NoError(t, err)
	assert.False(t, won)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMessages_PendingApprovals(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	sentAt := time.Now().Add(-10 * time.Minute)
	rows := sqlmock.NewRows([]string{
		"id", "session_id", "recipient", "kind", "body", "requires_response",
		"response_options", "status", "received_response", "response_at",
		"booking_id", "sent_at", "created_at",
	}).AddRow(
		"msg-1", "session-1", "+919812345678", models.MessageKindApproval,
		"Please reply", true, pq.Array([]string{"APPROVE", "DENY"}),
		models.MessageStatusSent, nil, nil, "booking-1", sentAt, sentAt,
	)

	mock.ExpectQuery("SELECT (.+) FROM outbound_messages").
		WithArgs(models.MessageKindApproval, models.MessageStatusSent).
		WillReturnRows(rows)

	pending, err := NewMessages(db).PendingApprovals(context.Background())
	require.NoError(t, err)
	require.Len(t, pending, 1)

	msg := pending[0]
	assert.Equal(t, "msg-1", msg.ID)
	assert.Equal(t, "booking-1", msg.BookingID)
	assert.Equal(t, []string{"APPROVE", "DENY"}, msg.ResponseOptions)
	assert.True(t, msg.AwaitingResponse())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMessages_Get_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT (.+) FROM outbound_messages").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	msg, err := NewMessages(db).Get(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, msg)
}

func TestMessages_ExpireApproval_OnlyUnanswered(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("UPDATE outbound_messages").
		WithArgs("msg-1", models.MessageStatusExpired, models.MessageStatusSent).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = NewMessages(db).ExpireApproval(context.Background(), "msg-1")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
