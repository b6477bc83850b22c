// internal/common/whatsapp/gateway.go
package whatsapp

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"smartlocker-workers/internal/common/metrics"
	"smartlocker-workers/internal/models"
)

// Gateway is the single boundary between workflow code and the browser
// channel. Automation failures never escape as errors: every operation
// reports success or failure through its return values and the failure
// detail lands in the log and the message record.
type Gateway struct {
	client   Client
	registry *SessionRegistry
	messages models.MessageStore
	logger   *zap.Logger
}

func NewGateway(
	client Client,
	registry *SessionRegistry,
	messages models.MessageStore,
	logger *zap.Logger,
) *Gateway {
	return &Gateway{
		client:   client,
		registry: registry,
		messages: messages,
		logger:   logger,
	}
}

// SendText dispatches a plain message. Returns the persisted message ID and
// whether the dispatch succeeded.
func (g *Gateway) SendText(ctx context.Context, recipient, body, kind string) (string, bool) {
	return g.send(ctx, &models.OutboundMessage{
		ID:        uuid.NewString(),
		Recipient: recipient,
		Kind:      kind,
		Body:      body,
		Status:    models.MessageStatusQueued,
		CreatedAt: time.Now().UTC(),
	})
}

// SendApprovalRequest dispatches an approval prompt that expects an
// APPROVE/DENY reply. The returned message ID doubles as the workflow
// correlation key for the reply event.
func (g *Gateway) SendApprovalRequest(ctx context.Context, booking *models.Booking, expiryMinutes int) (string, bool) {
	return g.send(ctx, &models.OutboundMessage{
		ID:               uuid.NewString(),
		Recipient:        booking.RecipientPhone,
		Kind:             models.MessageKindApproval,
		Body:             ApprovalRequestMessage(booking, expiryMinutes),
		RequiresResponse: true,
		ResponseOptions:  []string{"APPROVE", "DENY"},
		BookingID:        booking.ID,
		Status:           models.MessageStatusQueued,
		CreatedAt:        time.Now().UTC(),
	})
}

// PollResponse reads the latest incoming message from the recipient,
// normalized to upper case. The second return value reports whether a
// response was found.
func (g *Gateway) PollResponse(ctx context.Context, recipient string) (string, bool) {
	session, err := g.registry.EnsureSession(ctx, g.client)
	if err != nil {
		g.logger.Warn("cannot poll responses without a session",
			zap.String("recipient", recipient), zap.Error(err))
		return "", false
	}

	response, err := g.client.PollLatest(ctx, recipient)
	if err != nil {
		g.logger.Warn("response poll failed",
			zap.String("recipient", recipient), zap.Error(err))
		return "", false
	}
	g.registry.Touch(ctx, session)

	if response == "" {
		return "", false
	}
	return response, true
}

func (g *Gateway) send(ctx context.Context, msg *models.OutboundMessage) (string, bool) {
	session, err := g.registry.EnsureSession(ctx, g.client)
	if err != nil {
		g.logger.Error("cannot send without an active session",
			zap.String("recipient", msg.Recipient), zap.Error(err))
		metrics.MessagesSent.WithLabelValues(msg.Kind, "failed").Inc()
		return "", false
	}
	msg.SessionID = session.ID

	if err := g.messages.Create(ctx, msg); err != nil {
		g.logger.Error("failed to persist outbound message",
			zap.String("recipient", msg.Recipient), zap.Error(err))
		metrics.MessagesSent.WithLabelValues(msg.Kind, "failed").Inc()
		return "", false
	}

	if err := g.client.Send(ctx, msg.Recipient, msg.Body); err != nil {
		g.logger.Error("channel send failed",
			zap.String("messageId", msg.ID),
			zap.String("recipient", msg.Recipient),
			zap.Error(err))
		if markErr := g.messages.MarkFailed(ctx, msg.ID); markErr != nil {
			g.logger.Warn("failed to mark message failed", zap.Error(markErr))
		}
		metrics.MessagesSent.WithLabelValues(msg.Kind, "failed").Inc()
		return msg.ID, false
	}

	now := time.Now().UTC()
	if err := g.messages.MarkSent(ctx, msg.ID, now); err != nil {
		g.logger.Warn("failed to mark message sent",
			zap.String("messageId", msg.ID), zap.Error(err))
	}
	g.registry.Touch(ctx, session)
	metrics.MessagesSent.WithLabelValues(msg.Kind, "sent").Inc()

	g.logger.Info("message dispatched",
		zap.String("messageId", msg.ID),
		zap.String("recipient", msg.Recipient),
		zap.String("kind", msg.Kind))
	return msg.ID, true
}
