// internal/workers/messaging/scan-approval-responses/handler_test.go
package scanapprovalresponses

import (
	"context"
	"errors"
	"testing"

	"smartlocker-workers/internal/common/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandlerExecute_ReportsStats(t *testing.T) {
	messages := newFakeMessages(approvalMessage("msg-1", "+911111", "booking-1"))
	gateway := &fakeGateway{responses: map[string]string{"+911111": "APPROVE"}}
	publisher := &fakePublisher{}

	handler := NewHandler(DefaultConfig(), newTestService(messages, gateway, publisher), logger.NewNoOpLogger())

	output, err := handler.Execute(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, output.Scanned)
	assert.Equal(t, 1, output.Responded)
	assert.Equal(t, 1, output.Published)
}

func TestHandlerExecute_ServiceError(t *testing.T) {
	messages := newFakeMessages()
	messages.pendingErr = errors.New("connection refused")

	handler := NewHandler(DefaultConfig(), newTestService(messages, &fakeGateway{}, &fakePublisher{}), logger.NewNoOpLogger())

	_, err := handler.Execute(context.Background())
	require.Error(t, err)
}
