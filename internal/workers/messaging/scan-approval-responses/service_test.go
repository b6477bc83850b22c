// internal/workers/messaging/scan-approval-responses/service_test.go
package scanapprovalresponses

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

type fakeMessages struct {
	pending    []*models.OutboundMessage
	pendingErr error
	recorded   map[string]string
	recordWins map[string]bool
	recordErr  error
}

func newFakeMessages(pending ...*models.OutboundMessage) *fakeMessages {
	return &fakeMessages{
		pending:    pending,
		recorded:   map[string]string{},
		recordWins: map[string]bool{},
	}
}

func (f *fakeMessages) Create(ctx context.Context, msg *models.OutboundMessage) error { return nil }

func (f *fakeMessages) Get(ctx context.Context, id string) (*models.OutboundMessage, error) {
	return nil, nil
}

func (f *fakeMessages) PendingApprovals(ctx context.Context) ([]*models.OutboundMessage, error) {
	return f.pending, f.pendingErr
}

func (f *fakeMessages) MarkSent(ctx context.Context, id string, at time.Time) error { return nil }

func (f *fakeMessages) MarkFailed(ctx context.Context, id string) error { return nil }

func (f *fakeMessages) RecordResponse(ctx context.Context, id, response string, at time.Time) (bool, error) {
	if f.recordErr != nil {
		return false, f.recordErr
	}
	win, ok := f.recordWins[id]
	if !ok {
		win = true
	}
	if win {
		f.recorded[id] = response
	}
	return win, nil
}

func (f *fakeMessages) ExpireApproval(ctx context.Context, id string) error { return nil }

type fakeGateway struct {
	responses map[string]string
}

func (f *fakeGateway) PollResponse(ctx context.Context, recipient string) (string, bool) {
	response, ok := f.responses[recipient]
	return response, ok
}

type published struct {
	name           string
	correlationKey string
	messageID      string
	variables      map[string]interface{}
}

type fakePublisher struct {
	events []published
	err    error
}

func (f *fakePublisher) PublishMessage(ctx context.Context, name, correlationKey, messageID string, variables map[string]interface{}) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, published{name, correlationKey, messageID, variables})
	return nil
}

func approvalMessage(id, recipient, bookingID string) *models.OutboundMessage {
	return &models.OutboundMessage{
		ID:               id,
		Recipient:        recipient,
		Kind:             models.MessageKindApproval,
		RequiresResponse: true,
		Status:           models.MessageStatusSent,
		BookingID:        bookingID,
	}
}

func newTestService(messages *fakeMessages, gateway *fakeGateway, publisher *fakePublisher) *Service {
	return NewService(DefaultConfig(), messages, gateway, publisher, logger.NewNoOpLogger())
}

func TestRun_PublishesReply(t *testing.T) {
	messages := newFakeMessages(approvalMessage("msg-1", "+911111", "booking-1"))
	gateway := &fakeGateway{responses: map[string]string{"+911111": "APPROVE"}}
	publisher := &fakePublisher{}

	stats, err := newTestService(messages, gateway, publisher).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Scanned)
	assert.Equal(t, 1, stats.Responded)
	assert.Equal(t, 1, stats.Published)
	assert.Equal(t, "APPROVE", messages.recorded["msg-1"])

	require.Len(t, publisher.events, 1)
	event := publisher.events[0]
	assert.Equal(t, ReplyMessageName, event.name)
	assert.Equal(t, "msg-1", event.correlationKey)
	assert.Equal(t, "approval-reply-msg-1", event.messageID)
	assert.Equal(t, "APPROVE", event.variables["rawResponse"])
	assert.Equal(t, "booking-1", event.variables["bookingId"])
}

func TestRun_NoResponseYet(t *testing.T) {
	messages := newFakeMessages(approvalMessage("msg-1", "+911111", "booking-1"))
	gateway := &fakeGateway{responses: map[string]string{}}
	publisher := &fakePublisher{}

	stats, err := newTestService(messages, gateway, publisher).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Scanned)
	assert.Zero(t, stats.Responded)
	assert.Zero(t, stats.Published)
	assert.Empty(t, publisher.events)
}

func TestRun_LostRecordSkipsPublish(t *testing.T) {
	messages := newFakeMessages(approvalMessage("msg-1", "+911111", "booking-1"))
	messages.recordWins["msg-1"] = false
	gateway := &fakeGateway{responses: map[string]string{"+911111": "DENY"}}
	publisher := &fakePublisher{}

	stats, err := newTestService(messages, gateway, publisher).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Responded)
	assert.Zero(t, stats.Published)
	assert.Empty(t, publisher.events)
}

func TestRun_PublishErrorDoesNotStopPass(t *testing.T) {
	messages := newFakeMessages(
		approvalMessage("msg-1", "+911111", "booking-1"),
		approvalMessage("msg-2", "+922222", "booking-2"),
	)
	gateway := &fakeGateway{responses: map[string]string{
		"+911111": "APPROVE",
		"+922222": "DENY",
	}}
	publisher := &fakePublisher{err: errors.New("broker unavailable")}

	stats, err := newTestService(messages, gateway, publisher).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, stats.Responded)
	assert.Zero(t, stats.Published)
}

func TestRun_PendingQueryError(t *testing.T) {
	messages := newFakeMessages()
	messages.pendingErr = errors.New("connection refused")

	_, err := newTestService(messages, &fakeGateway{}, &fakePublisher{}).Run(context.Background())
	require.Error(t, err)
}
