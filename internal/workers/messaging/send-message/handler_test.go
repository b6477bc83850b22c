// internal/workers/messaging/send-message/handler_test.go
package sendmessage

import (
	"context"
	"testing"

	"smartlocker-workers/internal/common/logger"
	"smartlocker-workers/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGateway struct {
	messageID string
	ok        bool

	recipient string
	body      string
	kind      string
}

func (f *fakeGateway) SendText(ctx context.Context, recipient, body, kind string) (string, bool) {
	f.recipient = recipient
	f.body = body
	f.kind = kind
	return f.messageID, f.ok
}

func TestExecute_SendsMessage(t *testing.T) {
	gateway := &fakeGateway{messageID: "msg-1", ok: true}
	h := NewHandler(DefaultConfig(), gateway, logger.NewTestLogger(t))

	output, err := h.Execute(context.Background(), &Input{
		Recipient: "+919812345678",
		Body:      "Your parcel has arrived.",
		Kind:      models.MessageKindReminder,
	})
	require.NoError(t, err)

	assert.Equal(t, "msg-1", output.MessageID)
	assert.True(t, output.Sent)
	assert.Equal(t, "+919812345678", gateway.recipient)
	assert.Equal(t, models.MessageKindReminder, gateway.kind)
}

func TestExecute_DefaultsKindToText(t *testing.T) {
	gateway := &fakeGateway{messageID: "msg-1", ok: true}
	h := NewHandler(DefaultConfig(), gateway, logger.NewTestLogger(t))

	_, err := h.Execute(context.Background(), &Input{
		Recipient: "+919812345678",
		Body:      "hello",
	})
	require.NoError(t, err)
	assert.Equal(t, models.MessageKindText, gateway.kind)
}

func TestExecute_ValidationErrors(t *testing.T) {
	tests := []struct {
		name  string
		input *Input
	}{
		{"missing recipient", &Input{Body: "hello"}},
		{"missing body", &Input{Recipient: "+919812345678"}},
	}

	h := NewHandler(DefaultConfig(), &fakeGateway{}, logger.NewTestLogger(t))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.Execute(context.Background(), tt.input)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestExecute_SendFailure(t *testing.T) {
	gateway := &fakeGateway{ok: false}
	h := NewHandler(DefaultConfig(), gateway, logger.NewTestLogger(t))

	_, err := h.Execute(context.Background(), &Input{
		Recipient: "+919812345678",
		Body:      "hello",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMessageSendFailed)
}
