// test/e2e/e2e_test.go
//
// End-to-end tests against real services (Zeebe, PostgreSQL, Redis,
// Elasticsearch). Skipped unless E2E_TESTS=1; see docker-compose for the
// expected local stack.
package e2e

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"smartlocker-workers/internal/common/camunda"
	"smartlocker-workers/internal/common/config"
	"smartlocker-workers/internal/common/database"
	"smartlocker-workers/internal/common/whatsapp"
	"smartlocker-workers/internal/models"
	"smartlocker-workers/internal/store"
)

type env struct {
	cfg   *config.Config
	pg    *database.PostgresClient
	redis *database.RedisClient
}

func setup(t *testing.T) *env {
	t.Helper()
	if os.Getenv("E2E_TESTS") == "" {
		t.Skip("set E2E_TESTS=1 to run end-to-end tests")
	}

	cfg, err := config.Load()
	require.NoError(t, err)

	pg, err := database.NewPostgres(cfg.Database.Postgres)
	require.NoError(t, err)
	t.Cleanup(func() { pg.Close() })

	redis, err := database.NewRedis(cfg.Database.Redis)
	require.NoError(t, err)
	t.Cleanup(func() { redis.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, pg.Ping(ctx))
	require.NoError(t, redis.Ping(ctx))

	createSchema(t, pg)
	return &env{cfg: cfg, pg: pg, redis: redis}
}

func createSchema(t *testing.T, pg *database.PostgresClient) {
	t.Helper()
	statements := []string{
		`CREATE TABLE IF NOT EXISTS bookings (
			id TEXT PRIMARY KEY,
			status TEXT NOT NULL,
			locker_id TEXT,
			locker_type TEXT NOT NULL DEFAULT 'standard',
			customer_id TEXT NOT NULL,
			delivery_agent_id TEXT,
			sender_name TEXT NOT NULL DEFAULT '',
			recipient_name TEXT NOT NULL DEFAULT '',
			recipient_phone TEXT NOT NULL DEFAULT '',
			apartment TEXT NOT NULL DEFAULT '',
			item_description TEXT NOT NULL DEFAULT '',
			metadata JSONB,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS locker_banks (
			id TEXT PRIMARY KEY,
			location TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS lockers (
			id TEXT PRIMARY KEY,
			bank_id TEXT NOT NULL,
			locker_number TEXT NOT NULL,
			size TEXT NOT NULL DEFAULT 'medium',
			locker_type TEXT NOT NULL DEFAULT 'standard',
			status TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS access_credentials (
			id TEXT PRIMARY KEY,
			locker_id TEXT NOT NULL,
			code TEXT NOT NULL,
			access_type TEXT NOT NULL,
			expires_at TIMESTAMPTZ NOT NULL,
			issued_by TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS outbound_messages (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL DEFAULT '',
			recipient TEXT NOT NULL,
			kind TEXT NOT NULL,
			body TEXT NOT NULL,
			requires_response BOOLEAN NOT NULL DEFAULT FALSE,
			response_options TEXT[],
			status TEXT NOT NULL,
			received_response TEXT,
			response_at TIMESTAMPTZ,
			booking_id TEXT,
			sent_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS whatsapp_sessions (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			phone_number TEXT NOT NULL,
			status TEXT NOT NULL,
			qr_ref TEXT,
			error_detail TEXT,
			last_activity TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS otp_records (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			purpose TEXT NOT NULL,
			code TEXT NOT NULL,
			recipient TEXT NOT NULL,
			status TEXT NOT NULL,
			generated_by_ai BOOLEAN NOT NULL DEFAULT FALSE,
			expires_at TIMESTAMPTZ NOT NULL,
			attempts INT NOT NULL DEFAULT 0,
			max_attempts INT NOT NULL DEFAULT 3,
			sent_at TIMESTAMPTZ,
			verified_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
	}

	ctx := context.Background()
	for _, stmt := range statements {
		_, err := pg.DB.ExecContext(ctx, stmt)
		require.NoError(t, err)
	}
}

func insertBooking(t *testing.T, e *env, id string) {
	t.Helper()
	_, err := e.pg.DB.ExecContext(context.Background(), `
		INSERT INTO bookings (id, status, customer_id, recipient_name, recipient_phone, apartment, item_description)
		VALUES ($1, $2, 'user-e2e', 'Asha', '+919812345678', 'B-402', 'Shoes')`,
		id, models.BookingStatusPending,
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		e.pg.DB.ExecContext(context.Background(), `DELETE FROM bookings WHERE id = $1`, id)
	})
}

func TestApprovalDecisionLifecycle(t *testing.T) {
	e := setup(t)
	ctx := context.Background()

	bookingID := "e2e-" + uuid.NewString()
	insertBooking(t, e, bookingID)

	bookings := store.NewBookings(e.pg.DB)
	messages := store.NewMessages(e.pg.DB)

	// Record the approval prompt the way send-approval-request does.
	msg := &models.OutboundMessage{
		ID:               uuid.NewString(),
		Recipient:        "+919812345678",
		Kind:             models.MessageKindApproval,
		Body:             "Approve this delivery?",
		RequiresResponse: true,
		ResponseOptions:  []string{"APPROVE", "DENY"},
		Status:           models.MessageStatusSent,
		BookingID:        bookingID,
	}
	require.NoError(t, messages.Create(ctx, msg))
	t.Cleanup(func() {
		e.pg.DB.ExecContext(ctx, `DELETE FROM outbound_messages WHERE id = $1`, msg.ID)
	})

	// First reply wins, the second is ignored.
	won, err := messages.RecordResponse(ctx, msg.ID, "APPROVE", time.Now())
	require.NoError(t, err)
	assert.True(t, won)

	won, err = messages.RecordResponse(ctx, msg.ID, "DENY", time.Now())
	require.NoError(t, err)
	assert.False(t, won)

	stored, err := messages.Get(ctx, msg.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "APPROVE", stored.ReceivedResponse)

	// Concurrent decisions cannot both confirm the booking.
	moved, err := bookings.TransitionStatus(ctx, bookingID, models.BookingStatusPending, models.BookingStatusConfirmed)
	require.NoError(t, err)
	assert.True(t, moved)

	moved, err = bookings.TransitionStatus(ctx, bookingID, models.BookingStatusPending, models.BookingStatusCancelled)
	require.NoError(t, err)
	assert.False(t, moved)

	booking, err := bookings.Get(ctx, bookingID)
	require.NoError(t, err)
	require.NotNil(t, booking)
	assert.Equal(t, models.BookingStatusConfirmed, booking.Status)
}

func TestLockerClaimCycle(t *testing.T) {
	e := setup(t)
	ctx := context.Background()

	lockers := store.NewLockers(e.pg.DB)
	bankID := "e2e-bank-" + uuid.NewString()
	lockerID := "e2e-locker-" + uuid.NewString()
	lockerType := "e2e-" + uuid.NewString()[:8]

	_, err := e.pg.DB.ExecContext(ctx,
		`INSERT INTO locker_banks (id, location) VALUES ($1, 'Tower B Lobby')`, bankID)
	require.NoError(t, err)
	_, err = e.pg.DB.ExecContext(ctx, `
		INSERT INTO lockers (id, bank_id, locker_number, size, locker_type, status)
		VALUES ($1, $2, 'A-12', 'medium', $3, $4)`,
		lockerID, bankID, lockerType, models.LockerStatusAvailable)
	require.NoError(t, err)
	t.Cleanup(func() {
		e.pg.DB.ExecContext(ctx, `DELETE FROM access_credentials WHERE locker_id = $1`, lockerID)
		e.pg.DB.ExecContext(ctx, `DELETE FROM lockers WHERE id = $1`, lockerID)
		e.pg.DB.ExecContext(ctx, `DELETE FROM locker_banks WHERE id = $1`, bankID)
	})

	claimed, err := lockers.Claim(ctx, lockerType)
	require.NoError(t, err)
	require.NotNil(t, claimed)
	assert.Equal(t, lockerID, claimed.ID)
	assert.Equal(t, models.LockerStatusReserved, claimed.Status)

	// The bank has one locker of this type, so a second claim comes up empty.
	second, err := lockers.Claim(ctx, lockerType)
	require.NoError(t, err)
	assert.Nil(t, second)

	require.NoError(t, lockers.CreateCredential(ctx, &models.AccessCredential{
		ID:         uuid.NewString(),
		LockerID:   claimed.ID,
		Code:       "492817",
		AccessType: "delivery",
		ExpiresAt:  time.Now().Add(24 * time.Hour),
		IssuedBy:   "assign-locker",
	}))

	location, err := lockers.BankLocation(ctx, claimed.BankID)
	require.NoError(t, err)
	assert.Equal(t, "Tower B Lobby", location)

	require.NoError(t, lockers.Release(ctx, claimed.ID))
	released, err := lockers.Get(ctx, claimed.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LockerStatusAvailable, released.Status)
}

func TestOTPLifecycle(t *testing.T) {
	e := setup(t)
	ctx := context.Background()

	otps := store.NewOTPs(e.pg.DB)
	userID := "e2e-user-" + uuid.NewString()

	record := &models.OTPRecord{
		ID:          uuid.NewString(),
		UserID:      userID,
		Purpose:     "verification",
		Code:        "314159",
		Recipient:   "+919812345678",
		Status:      models.OTPStatusGenerated,
		ExpiresAt:   time.Now().Add(5 * time.Minute),
		MaxAttempts: 3,
	}
	require.NoError(t, otps.Create(ctx, record))
	t.Cleanup(func() {
		e.pg.DB.ExecContext(ctx, `DELETE FROM otp_records WHERE user_id = $1`, userID)
	})

	require.NoError(t, otps.MarkSent(ctx, record.ID, time.Now()))

	newest, err := otps.NewestSent(ctx, userID, "verification")
	require.NoError(t, err)
	require.NotNil(t, newest)
	assert.Equal(t, record.ID, newest.ID)

	require.NoError(t, otps.IncrementAttempts(ctx, record.ID))
	require.NoError(t, otps.MarkVerified(ctx, record.ID, time.Now()))

	gone, err := otps.NewestSent(ctx, userID, "verification")
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestSessionLeaseAcrossInstances(t *testing.T) {
	e := setup(t)
	ctx := context.Background()

	sessions := store.NewSessions(e.pg.DB)
	zapLog := zaptest.NewLogger(t)

	first := whatsapp.NewSessionRegistry(sessions, e.redis, e.cfg.WhatsApp, zapLog)
	second := whatsapp.NewSessionRegistry(sessions, e.redis, e.cfg.WhatsApp, zapLog)
	t.Cleanup(func() { first.ReleaseLeadership(ctx) })

	held, err := first.ClaimLeadership(ctx)
	require.NoError(t, err)
	require.True(t, held)

	held, err = second.ClaimLeadership(ctx)
	require.NoError(t, err)
	assert.False(t, held)

	first.ReleaseLeadership(ctx)

	held, err = second.ClaimLeadership(ctx)
	require.NoError(t, err)
	assert.True(t, held)
	second.ReleaseLeadership(ctx)
}

func TestApprovalReplyCorrelation(t *testing.T) {
	e := setup(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := camunda.NewClient(e.cfg.Camunda.BrokerAddress)
	require.NoError(t, err)
	defer client.Close()

	require.NoError(t, client.HealthCheck(ctx))

	// The broker buffers the message when no instance is waiting, so the
	// publish itself must succeed either way. The messageID dedups a
	// republication from a rescan of the same reply.
	messageID := fmt.Sprintf("approval-reply-e2e-%s", uuid.NewString())
	err = client.PublishMessage(ctx, "approval-reply", "e2e-booking", messageID, map[string]interface{}{
		"rawResponse": "APPROVE",
	})
	require.NoError(t, err)
}
