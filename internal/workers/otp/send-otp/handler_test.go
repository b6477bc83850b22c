// internal/workers/otp/send-otp/handler_test.go
package sendotp

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

type fakeOTPs struct {
	created      *models.OTPRecord
	createErr    error
	sent         []string
	failed       []string
	expiredCalls int
	expiredCount int64
	expireErr    error
}

func (f *fakeOTPs) Create(ctx context.Context, record *models.OTPRecord) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = record
	return nil
}

func (f *fakeOTPs) NewestSent(ctx context.Context, userID, purpose string) (*models.OTPRecord, error) {
	return nil, nil
}

func (f *fakeOTPs) MarkSent(ctx context.Context, id string, at time.Time) error {
	f.sent = append(f.sent, id)
	return nil
}

func (f *fakeOTPs) MarkFailed(ctx context.Context, id string) error {
	f.failed = append(f.failed, id)
	return nil
}

func (f *fakeOTPs) MarkVerified(ctx context.Context, id string, at time.Time) error { return nil }

func (f *fakeOTPs) IncrementAttempts(ctx context.Context, id string) error { return nil }

func (f *fakeOTPs) ExpireOutstanding(ctx context.Context, userID, purpose string) (int64, error) {
	f.expiredCalls++
	return f.expiredCount, f.expireErr
}

func (f *fakeOTPs) ExpirePast(ctx context.Context) (int64, error) { return 0, nil }

type fakeGateway struct {
	ok   bool
	body string
	kind string
}

func (f *fakeGateway) SendText(ctx context.Context, recipient, body, kind string) (string, bool) {
	f.body = body
	f.kind = kind
	return "msg-1", f.ok
}

type fakeProvider struct {
	completion string
	err        error
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Complete(ctx context.Context, prompt string) (string, error) {
	return f.completion, f.err
}

func newTestHandler(otps *fakeOTPs, gateway *fakeGateway) *Handler {
	cfg := DefaultConfig()
	return NewHandler(cfg, otps, NewService(cfg, nil, logger.NewNoOpLogger()), gateway, logger.NewNoOpLogger())
}

func TestExecute_SendsOTP(t *testing.T) {
	otps := &fakeOTPs{}
	gateway := &fakeGateway{ok: true}
	h := newTestHandler(otps, gateway)

	output, err := h.Execute(context.Background(), &Input{
		UserID:    "user-1",
		Recipient: "+919812345678",
	})
	require.NoError(t, err)

	assert.True(t, output.Sent)
	require.NotNil(t, otps.created)
	assert.Equal(t, output.OTPID, otps.created.ID)
	assert.Len(t, otps.created.Code, 6)
	assert.Equal(t, DefaultPurpose, otps.created.Purpose)
	assert.False(t, otps.created.GeneratedByAI)
	assert.Equal(t, []string{otps.created.ID}, otps.sent)

	assert.Contains(t, gateway.body, otps.created.Code)
	assert.Equal(t, models.MessageKindOTP, gateway.kind)
	assert.Zero(t, otps.expiredCalls)
}

func TestExecute_ResendExpiresOutstanding(t *testing.T) {
	otps := &fakeOTPs{expiredCount: 2}
	h := newTestHandler(otps, &fakeGateway{ok: true})

	_, err := h.Execute(context.Background(), &Input{
		UserID:    "user-1",
		Recipient: "+919812345678",
		Purpose:   "collection",
		Resend:    true,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, otps.expiredCalls)
	assert.Equal(t, "collection", otps.created.Purpose)
}

func TestExecute_DeliveryFailureMarksFailed(t *testing.T) {
	otps := &fakeOTPs{}
	h := newTestHandler(otps, &fakeGateway{ok: false})

	_, err := h.Execute(context.Background(), &Input{
		UserID:    "user-1",
		Recipient: "+919812345678",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrOTPDeliveryFailed)
	assert.Equal(t, []string{otps.created.ID}, otps.failed)
	assert.Empty(t, otps.sent)
}

func TestExecute_ValidationErrors(t *testing.T) {
	tests := []struct {
		name  string
		input *Input
	}{
		{"missing user", &Input{Recipient: "+919812345678"}},
		{"missing recipient", &Input{UserID: "user-1"}},
	}

	h := newTestHandler(&fakeOTPs{}, &fakeGateway{ok: true})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.Execute(context.Background(), tt.input)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestExecute_CreateError(t *testing.T) {
	otps := &fakeOTPs{createErr: errors.New("db down")}
	h := newTestHandler(otps, &fakeGateway{ok: true})

	_, err := h.Execute(context.Background(), &Input{
		UserID:    "user-1",
		Recipient: "+919812345678",
	})
	require.Error(t, err)
}

func TestGenerate_AIProvider(t *testing.T) {
	tests := []struct {
		name       string
		provider   *fakeProvider
		expectByAI bool
	}{
		{"clean digits", &fakeProvider{completion: "492817"}, true},
		{"digits with noise", &fakeProvider{completion: "Your code: 49-28-17!"}, true},
		{"too few digits", &fakeProvider{completion: "123"}, false},
		{"provider error", &fakeProvider{err: errors.New("rate limited")}, false},
		{"no digits", &fakeProvider{completion: "sorry, I cannot do that"}, false},
	}

	cfg := DefaultConfig()
	cfg.UseAI = true
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(cfg, tt.provider, logger.NewNoOpLogger())
			code, byAI, err := svc.Generate(context.Background())
			require.NoError(t, err)
			assert.Len(t, code, 6)
			assert.Equal(t, tt.expectByAI, byAI)
			if tt.expectByAI {
				assert.Equal(t, "492817", code)
			}
		})
	}
}
