// internal/workers/otp/send-otp/handler.go
package sendotp

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
	"github.com/google/uuid"
)

const (
	TaskType = "send-otp"

	DefaultPurpose = "verification"
)

var (
	ErrInvalidInput      = errors.New("INVALID_INPUT")
	ErrOTPDeliveryFailed = errors.New("OTP_DELIVERY_FAILED")
)

// Gateway delivers the OTP text over the messaging channel.
type Gateway interface {
	SendText(ctx context.Context, recipient, body, kind string) (string, bool)
}

type Handler struct {
	config  *Config
	otps    models.OTPStore
	service *Service
	gateway Gateway
	logger  logger.Logger
}

func NewHandler(
	config *Config,
	otps models.OTPStore,
	service *Service,
	gateway Gateway,
	log logger.Logger,
) *Handler {
	return &Handler{
		config:  config,
		otps:    otps,
		service: service,
		gateway: gateway,
		logger:  log.WithFields(map[string]interface{}{"taskType": TaskType}),
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
		if errors.Is(err, ErrInvalidInput) || errors.Is(err, ErrOTPDeliveryFailed) {
			errorCode = err.Error()
		}
		h.failJob(client, job, errorCode, err.Error())
		return
	}

	h.completeJob(client, job, output)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input.UserID == "" {
		return nil, fmt.Errorf("%w: userId is required", ErrInvalidInput)
	}
	if input.Recipient == "" {
		return nil, fmt.Errorf("%w: recipient is required", ErrInvalidInput)
	}

	purpose := input.Purpose
	if purpose == "" {
		purpose = DefaultPurpose
	}

	if input.Resend {
		expired, err := h.otps.ExpireOutstanding(ctx, input.UserID, purpose)
		if err != nil {
			return nil, fmt.Errorf("failed to expire outstanding codes: %w", err)
		}
		if expired > 0 {
			h.logger.Info("expired outstanding codes before resend", map[string]interface{}{
				"userId":  input.UserID,
				"purpose": purpose,
				"count":   expired,
			})
		}
	}

	code, byAI, err := h.service.Generate(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to generate code: %w", err)
	}

	record := &models.OTPRecord{
		ID:            uuid.NewString(),
		UserID:        input.UserID,
		Purpose:       purpose,
		Code:          code,
		Recipient:     input.Recipient,
		Status:        models.OTPStatusGenerated,
		GeneratedByAI: byAI,
		ExpiresAt:     time.Now().UTC().Add(time.Duration(h.config.ExpiryMinutes) * time.Minute),
		MaxAttempts:   h.config.MaxAttempts,
		CreatedAt:     time.Now().UTC(),
	}
	if err := h.otps.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to persist code: %w", err)
	}

	body := whatsapp.OTPMessage(code, purpose, h.config.ExpiryMinutes)
	if _, ok := h.gateway.SendText(ctx, input.Recipient, body, models.MessageKindOTP); !ok {
		if markErr := h.otps.MarkFailed(ctx, record.ID); markErr != nil {
			h.logger.Warn("failed to mark code failed", map[string]interface{}{
				"otpId": record.ID,
				"error": markErr.Error(),
			})
		}
		return nil, fmt.Errorf("%w: user %s", ErrOTPDeliveryFailed, input.UserID)
	}

	now := time.Now().UTC()
	if err := h.otps.MarkSent(ctx, record.ID, now); err != nil {
		return nil, fmt.Errorf("failed to mark code sent: %w", err)
	}

	h.logger.Info("otp sent", map[string]interface{}{
		"otpId":         record.ID,
		"userId":        input.UserID,
		"purpose":       purpose,
		"generatedByAi": byAI,
	})

	return &Output{
		OTPID:     record.ID,
		Sent:      true,
		ExpiresAt: record.ExpiresAt,
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
