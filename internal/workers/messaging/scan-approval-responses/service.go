// internal/workers/messaging/scan-approval-responses/service.go
package scanapprovalresponses

import (
	"context"
	"time"

	"smartlocker-workers/internal/common/logger"
	"smartlocker-workers/internal/models"
)

// Gateway is the channel boundary used to poll chats.
type Gateway interface {
	PollResponse(ctx context.Context, recipient string) (string, bool)
}

// Publisher delivers correlated messages to the workflow engine.
type Publisher interface {
	PublishMessage(ctx context.Context, messageName, correlationKey, messageID string, variables map[string]interface{}) error
}

// Stats summarizes one scan pass.
type Stats struct {
	Scanned   int
	Responded int
	Published int
}

// Service walks every approval prompt still waiting for a reply, polls the
// recipient's chat, records the first reply and hands it to the workflow as
// an approval-reply message. The first recorded reply wins; later replies
// for the same prompt are never published because the conditional update
// loses and the publish is skipped.
type Service struct {
	config    *Config
	messages  models.MessageStore
	gateway   Gateway
	publisher Publisher
	logger    logger.Logger
}

func NewService(
	config *Config,
	messages models.MessageStore,
	gateway Gateway,
	publisher Publisher,
	log logger.Logger,
) *Service {
	return &Service{
		config:    config,
		messages:  messages,
		gateway:   gateway,
		publisher: publisher,
		logger:    log.WithFields(map[string]interface{}{"job": "scan-approval-responses"}),
	}
}

// Run performs one scan pass. Errors on individual prompts are logged and
// do not stop the pass.
func (s *Service) Run(ctx context.Context) (*Stats, error) {
	pending, err := s.messages.PendingApprovals(ctx)
	if err != nil {
		return nil, err
	}

	stats := &Stats{Scanned: len(pending)}
	for _, msg := range pending {
		if ctx.Err() != nil {
			return stats, ctx.Err()
		}
		s.scanOne(ctx, msg, stats)
	}

	if stats.Scanned > 0 {
		s.logger.Info("scan pass complete", map[string]interface{}{
			"scanned":   stats.Scanned,
			"responded": stats.Responded,
			"published": stats.Published,
		})
	}
	return stats, nil
}

func (s *Service) scanOne(ctx context.Context, msg *models.OutboundMessage, stats *Stats) {
	pollCtx, cancel := context.WithTimeout(ctx, s.config.PollTimeout)
	defer cancel()

	response, found := s.gateway.PollResponse(pollCtx, msg.Recipient)
	if !found {
		return
	}
	stats.Responded++

	won, err := s.messages.RecordResponse(ctx, msg.ID, response, time.Now().UTC())
	if err != nil {
		s.logger.Error("failed to record response", map[string]interface{}{
			"messageId": msg.ID,
			"error":     err.Error(),
		})
		return
	}
	if !won {
		// Another scan pass already recorded a reply for this prompt.
		return
	}

	variables := map[string]interface{}{
		"approvalMessageId": msg.ID,
		"rawResponse":       response,
	}
	if msg.BookingID != "" {
		variables["bookingId"] = msg.BookingID
	}

	err = s.publisher.PublishMessage(ctx, ReplyMessageName, msg.ID, ReplyMessageName+"-"+msg.ID, variables)
	if err != nil {
		s.logger.Error("failed to publish approval reply", map[string]interface{}{
			"messageId": msg.ID,
			"error":     err.Error(),
		})
		return
	}
	stats.Published++

	s.logger.Info("approval reply published", map[string]interface{}{
		"messageId": msg.ID,
		"bookingId": msg.BookingID,
	})
}
