// internal/workers/locker/assign-locker/handler.go
package assignlocker

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "smartlocker-workers/internal/common/errors"
	"smartlocker-workers/internal/common/logger"
	"smartlocker-workers/internal/common/metrics"
	"smartlocker-workers/internal/common/whatsapp"
	"smartlocker-workers/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"
)

const (
	TaskType = "assign-locker"
)

var (
	ErrBookingNotFound   = errors.New("BOOKING_NOT_FOUND")
	ErrLockerUnavailable = errors.New("LOCKER_UNAVAILABLE")
)

// Gateway sends assignment notices to the customer and the delivery agent.
type Gateway interface {
	SendText(ctx context.Context, recipient, body, kind string) (string, bool)
}

// Handler claims a locker for a confirmed booking. The claim itself is a
// single atomic statement in the store, so two concurrent assignments can
// never reserve the same compartment.
type Handler struct {
	config   *Config
	bookings models.BookingStore
	lockers  models.LockerStore
	gateway  Gateway
	logger   logger.Logger
}

func NewHandler(
	config *Config,
	bookings models.BookingStore,
	lockers models.LockerStore,
	gateway Gateway,
	log logger.Logger,
) *Handler {
	return &Handler{
		config:   config,
		bookings: bookings,
		lockers:  lockers,
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
		if errors.Is(err, ErrBookingNotFound) || errors.Is(err, ErrLockerUnavailable) {
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

	lockerType := input.LockerType
	if lockerType == "" {
		lockerType = booking.LockerType
	}
	if lockerType == "" {
		lockerType = models.LockerTypeStandard
	}

	locker, err := h.lockers.Claim(ctx, lockerType)
	if err != nil {
		metrics.LockersClaimed.WithLabelValues(lockerType, "error").Inc()
		return nil, fmt.Errorf("failed to claim locker: %w", err)
	}
	if locker == nil {
		metrics.LockersClaimed.WithLabelValues(lockerType, "unavailable").Inc()
		return nil, fmt.Errorf("%w: type %s", ErrLockerUnavailable, lockerType)
	}
	metrics.LockersClaimed.WithLabelValues(lockerType, "claimed").Inc()

	if err := h.bookings.SetLocker(ctx, booking.ID, locker.ID); err != nil {
		// The claim must not leak; put the locker back before failing.
		if releaseErr := h.lockers.Release(ctx, locker.ID); releaseErr != nil {
			h.logger.Error("failed to release locker after assignment failure", map[string]interface{}{
				"lockerId": locker.ID,
				"error":    releaseErr.Error(),
			})
		}
		return nil, fmt.Errorf("failed to attach locker to booking: %w", err)
	}

	code, err := h.generateAccessCode()
	if err != nil {
		return nil, fmt.Errorf("failed to generate access code: %w", err)
	}

	credential := &models.AccessCredential{
		ID:         uuid.NewString(),
		LockerID:   locker.ID,
		Code:       code,
		AccessType: "delivery",
		ExpiresAt:  time.Now().UTC().Add(h.config.CredentialTTL),
		IssuedBy:   TaskType,
		CreatedAt:  time.Now().UTC(),
	}
	if err := h.lockers.CreateCredential(ctx, credential); err != nil {
		return nil, fmt.Errorf("failed to create access credential: %w", err)
	}

	location, err := h.lockers.BankLocation(ctx, locker.BankID)
	if err != nil {
		h.logger.Warn("failed to resolve bank location", map[string]interface{}{
			"bankId": locker.BankID,
			"error":  err.Error(),
		})
	}

	h.notify(ctx, booking, locker, location, code)

	h.logger.Info("locker assigned", map[string]interface{}{
		"bookingId":    booking.ID,
		"lockerId":     locker.ID,
		"lockerNumber": locker.LockerNumber,
		"lockerType":   lockerType,
	})

	return &Output{
		LockerID:     locker.ID,
		LockerNumber: locker.LockerNumber,
		Location:     location,
		AccessCode:   code,
	}, nil
}

// notify sends the locker assignment with the access code to the customer
// and, when an agent phone is known, to the delivery agent. Both are best
// effort.
func (h *Handler) notify(ctx context.Context, booking *models.Booking, locker *models.Locker, location, code string) {
	ttlHours := int(h.config.CredentialTTL.Hours())

	h.gateway.SendText(ctx, booking.RecipientPhone,
		whatsapp.ConfirmationMessage(booking, locker.LockerNumber, location, code, ttlHours),
		models.MessageKindConfirmation)

	if agentPhone, ok := booking.Metadata["agentPhone"].(string); ok && agentPhone != "" {
		h.gateway.SendText(ctx, agentPhone,
			whatsapp.AgentAssignmentMessage(booking, locker.LockerNumber, location, code, ttlHours),
			models.MessageKindText)
	}
}

// generateAccessCode mints an upper-case hex code for the kiosk keypad.
func (h *Handler) generateAccessCode() (string, error) {
	buf := make([]byte, (h.config.CodeLength+1)/2)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	code := strings.ToUpper(hex.EncodeToString(buf))
	return code[:h.config.CodeLength], nil
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
