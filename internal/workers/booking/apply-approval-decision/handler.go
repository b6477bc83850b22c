// internal/workers/booking/apply-approval-decision/handler.go
package applyapprovaldecision

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	apperrors "smartlocker-workers/internal/common/errors"
	"smartlocker-workers/internal/common/logger"
	"smartlocker-workers/internal/common/metrics"
	"smartlocker-workers/internal/common/whatsapp"
	"smartlocker-workers/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "apply-approval-decision"
)

var (
	ErrBookingNotFound = errors.New("BOOKING_NOT_FOUND")
	ErrStateConflict   = errors.New("BOOKING_STATE_CONFLICT")
	ErrUnknownDecision = errors.New("UNKNOWN_DECISION")
)

// Gateway sends follow-up notices to the customer.
type Gateway interface {
	SendText(ctx context.Context, recipient, body, kind string) (string, bool)
}

// Handler applies a classified approval decision to the booking. Approve and
// deny are terminal for the approval loop and transition the booking with a
// compare-and-set so a late duplicate decision cannot flip an already-moved
// booking. Unclear re-prompts the customer and leaves the booking pending so
// the workflow can loop back to the scan.
type Handler struct {
	config   *Config
	bookings models.BookingStore
	messages models.MessageStore
	gateway  Gateway
	logger   logger.Logger
}

func NewHandler(
	config *Config,
	bookings models.BookingStore,
	messages models.MessageStore,
	gateway Gateway,
	log logger.Logger,
) *Handler {
	return &Handler{
		config:   config,
		bookings: bookings,
		messages: messages,
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
		if errors.Is(err, ErrBookingNotFound) || errors.Is(err, ErrStateConflict) || errors.Is(err, ErrUnknownDecision) {
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

	switch input.Decision {
	case DecisionApprove:
		return h.applyApprove(ctx, booking)
	case DecisionDeny:
		return h.applyDeny(ctx, booking)
	case DecisionUnclear:
		return h.applyUnclear(ctx, booking)
	case DecisionExpired:
		return h.applyExpired(ctx, booking, input.ApprovalMessageID)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDecision, input.Decision)
	}
}

func (h *Handler) applyApprove(ctx context.Context, booking *models.Booking) (*Output, error) {
	moved, err := h.bookings.TransitionStatus(ctx, booking.ID, models.BookingStatusPending, models.BookingStatusConfirmed)
	if err != nil {
		return nil, fmt.Errorf("failed to confirm booking: %w", err)
	}
	if !moved {
		return nil, fmt.Errorf("%w: booking %s is no longer pending", ErrStateConflict, booking.ID)
	}

	h.logger.Info("booking approved", map[string]interface{}{
		"bookingId": booking.ID,
	})

	return &Output{
		Applied:       true,
		BookingStatus: models.BookingStatusConfirmed,
		Decision:      DecisionApprove,
	}, nil
}

func (h *Handler) applyDeny(ctx context.Context, booking *models.Booking) (*Output, error) {
	moved, err := h.bookings.TransitionStatus(ctx, booking.ID, models.BookingStatusPending, models.BookingStatusCancelled)
	if err != nil {
		return nil, fmt.Errorf("failed to cancel booking: %w", err)
	}
	if !moved {
		return nil, fmt.Errorf("%w: booking %s is no longer pending", ErrStateConflict, booking.ID)
	}

	// The cancellation notice is best effort; the denial already stands.
	h.gateway.SendText(ctx, booking.RecipientPhone, whatsapp.CancellationMessage(booking), models.MessageKindConfirmation)

	h.logger.Info("booking cancelled by customer", map[string]interface{}{
		"bookingId": booking.ID,
	})

	return &Output{
		Applied:       true,
		BookingStatus: models.BookingStatusCancelled,
		Decision:      DecisionDeny,
	}, nil
}

func (h *Handler) applyUnclear(ctx context.Context, booking *models.Booking) (*Output, error) {
	h.gateway.SendText(ctx, booking.RecipientPhone, whatsapp.ClarificationMessage(), models.MessageKindText)

	h.logger.Info("clarification requested", map[string]interface{}{
		"bookingId": booking.ID,
	})

	return &Output{
		Applied:       false,
		BookingStatus: booking.Status,
		Decision:      DecisionUnclear,
	}, nil
}

func (h *Handler) applyExpired(ctx context.Context, booking *models.Booking, approvalMessageID string) (*Output, error) {
	moved, err := h.bookings.TransitionStatus(ctx, booking.ID, models.BookingStatusPending, models.BookingStatusExpired)
	if err != nil {
		return nil, fmt.Errorf("failed to expire booking: %w", err)
	}
	if !moved {
		// A reply landed between the timer firing and this job running.
		return nil, fmt.Errorf("%w: booking %s is no longer pending", ErrStateConflict, booking.ID)
	}

	if approvalMessageID != "" {
		if err := h.messages.ExpireApproval(ctx, approvalMessageID); err != nil {
			h.logger.Warn("failed to expire approval prompt", map[string]interface{}{
				"approvalMessageId": approvalMessageID,
				"error":             err.Error(),
			})
		}
	}

	h.gateway.SendText(ctx, booking.RecipientPhone, whatsapp.ExpiredApprovalMessage(booking), models.MessageKindText)

	h.logger.Info("approval window expired", map[string]interface{}{
		"bookingId": booking.ID,
	})

	return &Output{
		Applied:       true,
		BookingStatus: models.BookingStatusExpired,
		Decision:      DecisionExpired,
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
