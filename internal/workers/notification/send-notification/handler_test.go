// internal/workers/notification/send-notification/handler_test.go
package sendnotification

import (
	"context"
	"errors"
	"testing"
	"time"

	"smartlocker-workers/internal/common/logger"
	"smartlocker-workers/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeNotifications struct {
	template  *models.NotificationTemplate
	created   *models.Notification
	sent      []string
	failed    []string
	createErr error
}

func (f *fakeNotifications) Create(ctx context.Context, n *models.Notification) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = n
	return nil
}

func (f *fakeNotifications) MarkSent(ctx context.Context, id string, at time.Time) error {
	f.sent = append(f.sent, id)
	return nil
}

func (f *fakeNotifications) MarkFailed(ctx context.Context, id, errorDetail string) error {
	f.failed = append(f.failed, id)
	return nil
}

func (f *fakeNotifications) ActiveTemplate(ctx context.Context, templateType, channel string) (*models.NotificationTemplate, error) {
	return f.template, nil
}

type fakeGateway struct {
	ok        bool
	recipient string
	body      string
}

func (f *fakeGateway) SendText(ctx context.Context, recipient, body, kind string) (string, bool) {
	f.recipient = recipient
	f.body = body
	return "msg-1", f.ok
}

type fakeSMS struct {
	err      error
	phone    string
	message  string
	senderID string
	calls    int
}

func (f *fakeSMS) SendSMS(ctx context.Context, phoneNumber, message, senderID string) error {
	f.calls++
	f.phone = phoneNumber
	f.message = message
	f.senderID = senderID
	return f.err
}

type fakeEmail struct {
	err     error
	to      string
	subject string
	body    string
}

func (f *fakeEmail) SendSimpleEmail(ctx context.Context, from, to, subject, body string) error {
	f.to = to
	f.subject = subject
	f.body = body
	return f.err
}

func confirmationTemplate(channel string) *models.NotificationTemplate {
	return &models.NotificationTemplate{
		ID:       "tmpl-1",
		Type:     models.TemplateBookingConfirmation,
		Channel:  channel,
		Subject:  "Booking {bookingId} confirmed",
		Body:     "Hello {name}, your booking {bookingId} is confirmed.",
		Language: "en",
		IsActive: true,
	}
}

func newTestHandler(store *fakeNotifications, gateway *fakeGateway, sms *fakeSMS, email *fakeEmail) *Handler {
	return NewHandler(
		DefaultConfig(),
		store,
		NewService(nil, logger.NewNoOpLogger()),
		gateway,
		sms,
		email,
		logger.NewNoOpLogger(),
	)
}

func TestExecute_WhatsAppChannel(t *testing.T) {
	store := &fakeNotifications{template: confirmationTemplate(models.ChannelWhatsApp)}
	gateway := &fakeGateway{ok: true}
	h := newTestHandler(store, gateway, &fakeSMS{}, &fakeEmail{})

	output, err := h.Execute(context.Background(), &Input{
		RecipientID:    "user-1",
		TemplateType:   models.TemplateBookingConfirmation,
		Channel:        models.ChannelWhatsApp,
		RecipientPhone: "+919812345678",
		Variables:      map[string]string{"name": "Asha", "bookingId": "booking-1"},
	})
	require.NoError(t, err)

	assert.True(t, output.Sent)
	assert.Equal(t, "Hello Asha, your booking booking-1 is confirmed.", gateway.body)
	require.NotNil(t, store.created)
	assert.Equal(t, models.PriorityMedium, store.created.Priority)
	assert.Equal(t, []string{store.created.ID}, store.sent)
}

func TestExecute_SMSChannel(t *testing.T) {
	store := &fakeNotifications{template: confirmationTemplate(models.ChannelSMS)}
	sms := &fakeSMS{}
	h := newTestHandler(store, &fakeGateway{}, sms, &fakeEmail{})

	_, err := h.Execute(context.Background(), &Input{
		RecipientID:    "user-1",
		TemplateType:   models.TemplateBookingConfirmation,
		Channel:        models.ChannelSMS,
		RecipientPhone: "+919812345678",
		Variables:      map[string]string{"name": "Asha", "bookingId": "booking-1"},
	})
	require.NoError(t, err)

	assert.Equal(t, "+919812345678", sms.phone)
	assert.Equal(t, "SMARTLOCK", sms.senderID)
	assert.Contains(t, sms.message, "booking-1")
}

func TestExecute_EmailChannel(t *testing.T) {
	store := &fakeNotifications{template: confirmationTemplate(models.ChannelEmail)}
	email := &fakeEmail{}
	h := newTestHandler(store, &fakeGateway{}, &fakeSMS{}, email)

	_, err := h.Execute(context.Background(), &Input{
		RecipientID:    "user-1",
		TemplateType:   models.TemplateBookingConfirmation,
		Channel:        models.ChannelEmail,
		RecipientEmail: "asha@example.com",
		Variables:      map[string]string{"name": "Asha", "bookingId": "booking-1"},
	})
	require.NoError(t, err)

	assert.Equal(t, "asha@example.com", email.to)
	assert.Equal(t, "Booking booking-1 confirmed", email.subject)
}

func TestExecute_EscalatesHighPriorityOverSMS(t *testing.T) {
	store := &fakeNotifications{template: confirmationTemplate(models.ChannelWhatsApp)}
	sms := &fakeSMS{}
	h := newTestHandler(store, &fakeGateway{ok: true}, sms, &fakeEmail{})

	output, err := h.Execute(context.Background(), &Input{
		RecipientID:    "user-1",
		TemplateType:   models.TemplateBookingConfirmation,
		Channel:        models.ChannelWhatsApp,
		RecipientPhone: "+919812345678",
		Priority:       models.PriorityHigh,
		Variables:      map[string]string{"name": "Asha", "bookingId": "booking-1"},
	})
	require.NoError(t, err)
	assert.True(t, output.Sent)

	assert.Equal(t, 1, sms.calls)
	assert.Equal(t, "+919812345678", sms.phone)
	assert.Contains(t, sms.message, "booking-1")
}

func TestExecute_NoEscalationBelowThreshold(t *testing.T) {
	store := &fakeNotifications{template: confirmationTemplate(models.ChannelWhatsApp)}
	sms := &fakeSMS{}
	h := newTestHandler(store, &fakeGateway{ok: true}, sms, &fakeEmail{})

	_, err := h.Execute(context.Background(), &Input{
		RecipientID:    "user-1",
		TemplateType:   models.TemplateBookingConfirmation,
		Channel:        models.ChannelWhatsApp,
		RecipientPhone: "+919812345678",
		Priority:       models.PriorityMedium,
	})
	require.NoError(t, err)
	assert.Zero(t, sms.calls)
}

func TestExecute_NoDoubleSendOnSMSChannel(t *testing.T) {
	store := &fakeNotifications{template: confirmationTemplate(models.ChannelSMS)}
	sms := &fakeSMS{}
	h := newTestHandler(store, &fakeGateway{}, sms, &fakeEmail{})

	_, err := h.Execute(context.Background(), &Input{
		RecipientID:    "user-1",
		TemplateType:   models.TemplateBookingConfirmation,
		Channel:        models.ChannelSMS,
		RecipientPhone: "+919812345678",
		Priority:       models.PriorityUrgent,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, sms.calls)
}

func TestExecute_EscalationFailureDoesNotFailJob(t *testing.T) {
	store := &fakeNotifications{template: confirmationTemplate(models.ChannelWhatsApp)}
	sms := &fakeSMS{err: errors.New("throttled")}
	h := newTestHandler(store, &fakeGateway{ok: true}, sms, &fakeEmail{})

	output, err := h.Execute(context.Background(), &Input{
		RecipientID:    "user-1",
		TemplateType:   models.TemplateBookingConfirmation,
		Channel:        models.ChannelWhatsApp,
		RecipientPhone: "+919812345678",
		Priority:       models.PriorityUrgent,
	})
	require.NoError(t, err)
	assert.True(t, output.Sent)
	assert.Equal(t, 1, sms.calls)
}

func TestExecute_TemplateNotFound(t *testing.T) {
	h := newTestHandler(&fakeNotifications{}, &fakeGateway{ok: true}, &fakeSMS{}, &fakeEmail{})

	_, err := h.Execute(context.Background(), &Input{
		RecipientID:    "user-1",
		TemplateType:   models.TemplateDeliveryUpdate,
		Channel:        models.ChannelWhatsApp,
		RecipientPhone: "+919812345678",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTemplateNotFound)
}

func TestExecute_DispatchFailureMarksFailed(t *testing.T) {
	store := &fakeNotifications{template: confirmationTemplate(models.ChannelSMS)}
	sms := &fakeSMS{err: errors.New("throttled")}
	h := newTestHandler(store, &fakeGateway{}, sms, &fakeEmail{})

	_, err := h.Execute(context.Background(), &Input{
		RecipientID:    "user-1",
		TemplateType:   models.TemplateBookingConfirmation,
		Channel:        models.ChannelSMS,
		RecipientPhone: "+919812345678",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotificationSendFailed)
	assert.Equal(t, []string{store.created.ID}, store.failed)
	assert.Empty(t, store.sent)
}

func TestExecute_ValidationErrors(t *testing.T) {
	tests := []struct {
		name  string
		input *Input
	}{
		{"missing recipient id", &Input{TemplateType: "x", Channel: models.ChannelEmail, RecipientEmail: "a@b.com"}},
		{"missing template type", &Input{RecipientID: "u", Channel: models.ChannelEmail, RecipientEmail: "a@b.com"}},
		{"unknown channel", &Input{RecipientID: "u", TemplateType: "x", Channel: "fax"}},
		{"bad phone for sms", &Input{RecipientID: "u", TemplateType: "x", Channel: models.ChannelSMS, RecipientPhone: "nope"}},
		{"bad email", &Input{RecipientID: "u", TemplateType: "x", Channel: models.ChannelEmail, RecipientEmail: "nope"}},
		{"bad priority", &Input{RecipientID: "u", TemplateType: "x", Channel: models.ChannelEmail, RecipientEmail: "a@b.com", Priority: "whenever"}},
	}

	h := newTestHandler(&fakeNotifications{template: confirmationTemplate(models.ChannelEmail)}, &fakeGateway{ok: true}, &fakeSMS{}, &fakeEmail{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.Execute(context.Background(), tt.input)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestPersonalize_NoProviderKeepsBody(t *testing.T) {
	svc := NewService(nil, logger.NewNoOpLogger())
	body := "Hello Asha, your booking is confirmed."
	assert.Equal(t, body, svc.Personalize(context.Background(), body))
}
