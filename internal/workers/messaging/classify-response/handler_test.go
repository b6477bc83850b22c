// internal/workers/messaging/classify-response/handler_test.go
package classifyresponse

import (
	"context"
	"errors"
	"testing"

	"smartlocker-workers/internal/common/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	completion string
	err        error
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Complete(ctx context.Context, prompt string) (string, error) {
	return f.completion, f.err
}

func TestClassify_KeywordFallback(t *testing.T) {
	tests := []struct {
		name              string
		response          string
		expectedDecision  string
		expectedSentiment string
	}{
		{"exact approve", "APPROVE", DecisionApprove, "positive"},
		{"casual yes", "yes please", DecisionApprove, "positive"},
		{"ok embedded", "Ok, sounds good", DecisionApprove, "positive"},
		{"exact deny", "DENY", DecisionDeny, "negative"},
		{"casual no", "no thanks", DecisionDeny, "negative"},
		{"cancel", "please cancel", DecisionDeny, "negative"},
		{"gibberish", "what is this?", DecisionUnclear, "neutral"},
		{"empty-ish", "   ", DecisionUnclear, "neutral"},
		{"approve beats deny", "ok cancel it", DecisionApprove, "positive"},
	}

	svc := NewService(nil, logger.NewNoOpLogger())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output := svc.Classify(context.Background(), tt.response)
			assert.Equal(t, tt.expectedDecision, output.Decision)
			assert.Equal(t, tt.expectedSentiment, output.Sentiment)
			assert.Equal(t, MethodKeyword, output.Method)
			if tt.expectedDecision == DecisionUnclear {
				assert.InDelta(t, 0.3, output.Confidence, 0.001)
			} else {
				assert.InDelta(t, 0.8, output.Confidence, 0.001)
			}
		})
	}
}

func TestClassify_AIPath(t *testing.T) {
	provider := &fakeProvider{
		completion: `{"decision": "deny", "confidence": 0.95, "sentiment": "negative"}`,
	}
	svc := NewService(provider, logger.NewNoOpLogger())

	output := svc.Classify(context.Background(), "I'd rather not receive this")
	assert.Equal(t, DecisionDeny, output.Decision)
	assert.InDelta(t, 0.95, output.Confidence, 0.001)
	assert.Equal(t, MethodAI, output.Method)
}

func TestClassify_AIPathWithFencedJSON(t *testing.T) {
	provider := &fakeProvider{
		completion: "```json\n{\"decision\": \"approve\", \"confidence\": 0.9, \"sentiment\": \"positive\"}\n```",
	}
	svc := NewService(provider, logger.NewNoOpLogger())

	output := svc.Classify(context.Background(), "sure, go ahead")
	assert.Equal(t, DecisionApprove, output.Decision)
	assert.Equal(t, MethodAI, output.Method)
}

func TestClassify_AIFailureFallsBack(t *testing.T) {
	tests := []struct {
		name     string
		provider *fakeProvider
	}{
		{"provider error", &fakeProvider{err: errors.New("rate limited")}},
		{"garbage completion", &fakeProvider{completion: "I think the user means maybe"}},
		{"invalid decision", &fakeProvider{completion: `{"decision": "perhaps", "confidence": 0.5}`}},
		{"confidence out of range", &fakeProvider{completion: `{"decision": "approve", "confidence": 7}`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(tt.provider, logger.NewNoOpLogger())
			output := svc.Classify(context.Background(), "yes")
			assert.Equal(t, DecisionApprove, output.Decision)
			assert.Equal(t, MethodKeyword, output.Method)
		})
	}
}

func TestExecute_EmptyResponse(t *testing.T) {
	h := NewHandler(DefaultConfig(), NewService(nil, logger.NewNoOpLogger()), logger.NewTestLogger(t))

	_, err := h.Execute(context.Background(), &Input{ApprovalMessageID: "msg-1"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestExecute_ClassifiesResponse(t *testing.T) {
	h := NewHandler(DefaultConfig(), NewService(nil, logger.NewNoOpLogger()), logger.NewTestLogger(t))

	output, err := h.Execute(context.Background(), &Input{
		ApprovalMessageID: "msg-1",
		RawResponse:       "APPROVE",
	})
	require.NoError(t, err)
	assert.Equal(t, DecisionApprove, output.Decision)
}
