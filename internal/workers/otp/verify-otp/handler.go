// internal/workers/otp/verify-otp/handler.go
package verifyotp

import (
	"context"
	"crypto/subtle"
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
	TaskType = "verify-otp"

	DefaultPurpose = "verification"
)

var (
	ErrInvalidInput        = errors.New("INVALID_INPUT")
	ErrOTPNotFound         = errors.New("OTP_NOT_FOUND")
	ErrOTPExpired          = errors.New("OTP_EXPIRED")
	ErrOTPAttemptsExceeded = errors.New("OTP_ATTEMPTS_EXCEEDED")
)

// Handler verifies a submitted code against the newest sent record. Expiry
// and attempt exhaustion surface as BPMN errors so the workflow can branch
// to a resend; a plain mismatch completes the job with verified=false and
// lets the customer try again within the same record.
type Handler struct {
	config *Config
	otps   models.OTPStore
	logger logger.Logger
}

func NewHandler(config *Config, otps models.OTPStore, log logger.Logger) *Handler {
	return &Handler{
		config: config,
		otps:   otps,
		logger: log.WithFields(map[string]interface{}{"taskType": TaskType}),
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
		if errors.Is(err, ErrInvalidInput) ||
			errors.Is(err, ErrOTPNotFound) ||
			errors.Is(err, ErrOTPExpired) ||
			errors.Is(err, ErrOTPAttemptsExceeded) {
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
	if input.Code == "" {
		return nil, fmt.Errorf("%w: code is required", ErrInvalidInput)
	}

	purpose := input.Purpose
	if purpose == "" {
		purpose = DefaultPurpose
	}

	record, err := h.otps.NewestSent(ctx, input.UserID, purpose)
	if err != nil {
		return nil, fmt.Errorf("failed to load code: %w", err)
	}
	if record == nil {
		metrics.OTPVerifications.WithLabelValues("not_found").Inc()
		return nil, fmt.Errorf("%w: user %s", ErrOTPNotFound, input.UserID)
	}

	now := time.Now().UTC()
	if record.Expired(now) {
		if _, expireErr := h.otps.ExpireOutstanding(ctx, input.UserID, purpose); expireErr != nil {
			h.logger.Warn("failed to expire stale code", map[string]interface{}{
				"otpId": record.ID,
				"error": expireErr.Error(),
			})
		}
		metrics.OTPVerifications.WithLabelValues("expired").Inc()
		return nil, fmt.Errorf("%w: user %s", ErrOTPExpired, input.UserID)
	}

	if record.AttemptsExhausted() {
		if markErr := h.otps.MarkFailed(ctx, record.ID); markErr != nil {
			h.logger.Warn("failed to mark code failed", map[string]interface{}{
				"otpId": record.ID,
				"error": markErr.Error(),
			})
		}
		metrics.OTPVerifications.WithLabelValues("attempts_exceeded").Inc()
		return nil, fmt.Errorf("%w: user %s", ErrOTPAttemptsExceeded, input.UserID)
	}

	if err := h.otps.IncrementAttempts(ctx, record.ID); err != nil {
		return nil, fmt.Errorf("failed to record attempt: %w", err)
	}
	record.Attempts++

	if subtle.ConstantTimeCompare([]byte(record.Code), []byte(input.Code)) != 1 {
		metrics.OTPVerifications.WithLabelValues("mismatch").Inc()
		remaining := record.MaxAttempts - record.Attempts
		if remaining < 0 {
			remaining = 0
		}
		h.logger.Info("otp mismatch", map[string]interface{}{
			"otpId":             record.ID,
			"userId":            input.UserID,
			"attemptsRemaining": remaining,
		})
		return &Output{Verified: false, AttemptsRemaining: remaining}, nil
	}

	if err := h.otps.MarkVerified(ctx, record.ID, now); err != nil {
		return nil, fmt.Errorf("failed to mark code verified: %w", err)
	}
	metrics.OTPVerifications.WithLabelValues("verified").Inc()

	h.logger.Info("otp verified", map[string]interface{}{
		"otpId":  record.ID,
		"userId": input.UserID,
	})
	return &Output{Verified: true}, nil
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
