// internal/workers/messaging/send-approval-request/handler.go
package sendapprovalrequest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	apperrors "smartlocker-workers/internal/common/errors"
	"smartlocker-workers/internal/common/logger"
	"smartlocker-workers/internal/common/metrics"
	"smartlocker-workers/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "send-approval-request"
)

var (
	ErrBookingNotFound   = errors.New("BOOKING_NOT_FOUND")
	ErrMessageSendFailed = errors.New("MESSAGE_SEND_FAILED")
)

// Gateway is the messaging boundary this worker dispatches through.
type Gateway interface {
	SendApprovalRequest(ctx context.Context, booking *models.Booking, expiryMinutes int) (string, bool)
}

type Handler struct {
	config   *Config
	bookings models.BookingStore
	gateway  Gateway
	logger   logger.Logger
}

func NewHandler(config *Config, bookings models.BookingStore, gateway Gateway, log logger.Logger) *Handler {
	return &Handler{
		config:   config,
		bookings: bookings,
		gateway:  gateway,
		logger:   log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	start := time.Now()
	metrics.WorkerJobsActive.WithLabelValues(TaskType).Inc()
	defer func() {
		metrics.WorkerJobsActive.WithLabelValues(TaskType).Dec()
		metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
	}()

	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.failJob(client, job, "PARSE_ERROR", fmt.Sprintf("parse input: %v", err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.execute(ctx, &input)
	if err != nil {
		errorCode := "UNKNOWN_ERROR"
		if errors.Is(err, ErrBookingNotFound) || errors.Is(err, ErrMessageSendFailed) {
			errorCode = err.Error()
		}
		h.failJob(client, job, errorCode, err.Error())
		return
	}

	h.completeJob(client, job, output)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input.BookingID == "" {
		return nil, fmt.Errorf("%w: bookingId is required", ErrBookingNotFound)
	}

	booking, err := h.bookings.Get(ctx, input.BookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to load booking: %w", err)
	}
	if booking == nil {
		return nil, fmt.Errorf("%w: %s", ErrBookingNotFound, input.BookingID)
	}

	messageID, ok := h.gateway.SendApprovalRequest(ctx, booking, h.config.ExpiryMinutes)
	if !ok {
		return nil, fmt.Errorf("%w: booking %s", ErrMessageSendFailed, input.BookingID)
	}

	h.logger.Info("approval request sent", map[string]interface{}{
		"bookingId":         input.BookingID,
		"approvalMessageId": messageID,
	})

	return &Output{
		ApprovalMessageID: messageID,
		Sent:              true,
		ExpiresAt:         time.Now().UTC().Add(time.Duration(h.config.ExpiryMinutes) * time.Minute),
	}, nil
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	if _, err = cmd.Send(context.Background()); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
}

func (h *Handler) failJob(client worker.JobClient, job entities.Job, errorCode, errorMessage string) {
	h.logger.Error("job failed", map[string]interface{}{
		"jobKey":       job.Key,
		"errorCode":    errorCode,
		"errorMessage": errorMessage,
	})
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, errorCode).Inc()

	if apperrors.IsRetryableErrorCode(apperrors.ErrorCode(errorCode)) && job.Retries > 1 {
		_, err := client.NewFailJobCommand().
			JobKey(job.Key).
			Retries(job.Retries - 1).
			ErrorMessage(errorMessage).
			Send(context.Background())
		if err != nil {
			h.logger.Error("failed to fail job", map[string]interface{}{
				"error": err.Error(),
			})
		}
		return
	}

	_, err := client.NewThrowErrorCommand().
		JobKey(job.Key).
		ErrorCode(errorCode).
		ErrorMessage(errorMessage).
		Send(context.Background())
	if err != nil {
		h.logger.Error("failed to throw error", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

// Execute is exposed for tests.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
