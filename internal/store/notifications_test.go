// internal/store/notifications_test.go
package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"smartlocker-workers/internal/common/database"
	"smartlocker-workers/internal/models"
)

func newNotificationsUnderTest(t *testing.T) (*Notifications, sqlmock.Sqlmock, redismock.ClientMock) {
	t.Helper()

	db, dbMock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	redisClient, redisMock := redismock.NewClientMock()
	store := NewNotifications(db, nil, &database.RedisClient{Client: redisClient}, zaptest.NewLogger(t))
	return store, dbMock, redisMock
}

func TestNotifications_Create(t *testing.T) {
	store, dbMock, _ := newNotificationsUnderTest(t)

	n := &models.Notification{
		ID:             "notif-1",
		RecipientID:    "user-1",
		TemplateType:   "booking_confirmation",
		Channel:        models.ChannelWhatsApp,
		Message:        "Your delivery is confirmed",
		RecipientPhone: "+919812345678",
		Status:         models.NotificationStatusPending,
		Priority:       "medium",
	}

	dbMock.ExpectExec("INSERT INTO notifications").
		WithArgs(
			n.ID, n.RecipientID, n.TemplateType, n.Channel, n.Subject, n.Message,
			n.RecipientPhone, n.RecipientEmail, n.Status, n.Priority, sqlmock.AnyArg(),
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.Create(context.Background(), n))
	assert.NoError(t, dbMock.ExpectationsWereMet())
}

func TestNotifications_ActiveTemplate_CacheHit(t *testing.T) {
	store, dbMock, redisMock := newNotificationsUnderTest(t)

	cached := models.NotificationTemplate{
		ID:       "tpl-1",
		Type:     "booking_confirmation",
		Channel:  models.ChannelWhatsApp,
		Body:     "Hi {recipientName}, your delivery is confirmed.",
		Language: "en",
		IsActive: true,
	}
	encoded, err := json.Marshal(&cached)
	require.NoError(t, err)

	redisMock.ExpectGet("notification:template:booking_confirmation:whatsapp").
		SetVal(string(encoded))

	tpl, err := store.ActiveTemplate(context.Background(), "booking_confirmation", models.ChannelWhatsApp)
	require.NoError(t, err)
	require.NotNil(t, tpl)

	assert.Equal(t, "tpl-1", tpl.ID)
	// The database is never touched on a cache hit.
	assert.NoError(t, dbMock.ExpectationsWereMet())
	assert.NoError(t, redisMock.ExpectationsWereMet())
}

func TestNotifications_ActiveTemplate_CacheMissFillsCache(t *testing.T) {
	store, dbMock, redisMock := newNotificationsUnderTest(t)

	redisMock.ExpectGet("notification:template:booking_confirmation:whatsapp").RedisNil()

	dbMock.ExpectQuery("SELECT (.+) FROM notification_templates").
		WithArgs("booking_confirmation", models.ChannelWhatsApp).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "type", "channel", "subject", "body", "language", "is_active",
		}).AddRow(
			"tpl-1", "booking_confirmation", models.ChannelWhatsApp,
			nil, "Hi {recipientName}, your delivery is confirmed.", "en", true,
		))

	expected := models.NotificationTemplate{
		ID:       "tpl-1",
		Type:     "booking_confirmation",
		Channel:  models.ChannelWhatsApp,
		Body:     "Hi {recipientName}, your delivery is confirmed.",
		Language: "en",
		IsActive: true,
	}
	encoded, err := json.Marshal(&expected)
	require.NoError(t, err)

	redisMock.ExpectSet(
		"notification:template:booking_confirmation:whatsapp",
		string(encoded), 5*time.Minute,
	).SetVal("OK")

	tpl, err := store.ActiveTemplate(context.Background(), "booking_confirmation", models.ChannelWhatsApp)
	require.NoError(t, err)
	require.NotNil(t, tpl)

	assert.Equal(t, expected.Body, tpl.Body)
	assert.NoError(t, dbMock.ExpectationsWereMet())
	assert.NoError(t, redisMock.ExpectationsWereMet())
}

func TestNotifications_ActiveTemplate_NotFound(t *testing.T) {
	store, dbMock, redisMock := newNotificationsUnderTest(t)

	redisMock.ExpectGet("notification:template:missing:sms").RedisNil()

	dbMock.ExpectQuery("SELECT (.+) FROM notification_templates").
		WithArgs("missing", models.ChannelSMS).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "type", "channel", "subject", "body", "language", "is_active",
		}))

	tpl, err := store.ActiveTemplate(context.Background(), "missing", models.ChannelSMS)
	require.NoError(t, err)
	assert.Nil(t, tpl)
}

func TestNotifications_MarkFailed(t *testing.T) {
	store, dbMock, _ := newNotificationsUnderTest(t)

	dbMock.ExpectExec("UPDATE notifications").
		WithArgs("notif-1", models.NotificationStatusFailed, "gateway unavailable").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.MarkFailed(context.Background(), "notif-1", "gateway unavailable"))
	assert.NoError(t, dbMock.ExpectationsWereMet())
}
