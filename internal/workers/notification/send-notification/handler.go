// internal/workers/notification/send-notification/handler.go
package sendnotification

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
	"github.com/google/uuid"
)

const (
	TaskType = "send-notification"
)

var (
	ErrInvalidInput           = errors.New("INVALID_INPUT")
	ErrTemplateNotFound       = errors.New("TEMPLATE_NOT_FOUND")
	ErrNotificationSendFailed = errors.New("NOTIFICATION_SEND_FAILED")
)

// Gateway delivers WhatsApp notifications.
type Gateway interface {
	SendText(ctx context.Context, recipient, body, kind string) (string, bool)
}

// SMSSender delivers SMS notifications.
type SMSSender interface {
	SendSMS(ctx context.Context, phoneNumber, message, senderID string) error
}

// EmailSender delivers email notifications.
type EmailSender interface {
	SendSimpleEmail(ctx context.Context, from, to, subject, body string) error
}

type Handler struct {
	config        *Config
	notifications models.NotificationStore
	service       *Service
	gateway       Gateway
	sms           SMSSender
	email         EmailSender
	logger        logger.Logger
}

func NewHandler(
	config *Config,
	notifications models.NotificationStore,
	service *Service,
	gateway Gateway,
	sms SMSSender,
	email EmailSender,
	log logger.Logger,
) *Handler {
	return &Handler{
		config:        config,
		notifications: notifications,
		service:       service,
		gateway:       gateway,
		sms:           sms,
		email:         email,
		logger:        log.WithFields(map[string]interface{}{"taskType": TaskType}),
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
			errors.Is(err, ErrTemplateNotFound) ||
			errors.Is(err, ErrNotificationSendFailed) {
			errorCode = err.Error()
		}
		h.failJob(client, job, errorCode, err.Error())
		return
	}

	h.completeJob(client, job, output)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}

	tmpl, err := h.notifications.ActiveTemplate(ctx, input.TemplateType, input.Channel)
	if err != nil {
		return nil, fmt.Errorf("failed to load template: %w", err)
	}
	if tmpl == nil {
		return nil, fmt.Errorf("%w: type %s channel %s", ErrTemplateNotFound, input.TemplateType, input.Channel)
	}

	subject, body := h.service.Render(tmpl, input.Variables)
	if h.config.Personalize {
		body = h.service.Personalize(ctx, body)
	}

	priority := input.Priority
	if priority == "" {
		priority = models.PriorityMedium
	}

	notification := &models.Notification{
		ID:             uuid.NewString(),
		RecipientID:    input.RecipientID,
		TemplateType:   input.TemplateType,
		Channel:        input.Channel,
		Subject:        subject,
		Message:        body,
		RecipientPhone: input.RecipientPhone,
		RecipientEmail: input.RecipientEmail,
		Status:         models.NotificationStatusPending,
		Priority:       priority,
		CreatedAt:      time.Now().UTC(),
	}
	if err := h.notifications.Create(ctx, notification); err != nil {
		return nil, fmt.Errorf("failed to persist notification: %w", err)
	}

	if err := h.dispatch(ctx, input, subject, body); err != nil {
		if markErr := h.notifications.MarkFailed(ctx, notification.ID, err.Error()); markErr != nil {
			h.logger.Warn("failed to mark notification failed", map[string]interface{}{
				"notificationId": notification.ID,
				"error":          markErr.Error(),
			})
		}
		return nil, fmt.Errorf("%w: %v", ErrNotificationSendFailed, err)
	}

	if err := h.notifications.MarkSent(ctx, notification.ID, time.Now().UTC()); err != nil {
		h.logger.Warn("failed to mark notification sent", map[string]interface{}{
			"notificationId": notification.ID,
			"error":          err.Error(),
		})
	}

	h.escalateSMS(ctx, input, body, priority)

	h.logger.Info("notification sent", map[string]interface{}{
		"notificationId": notification.ID,
		"recipientId":    input.RecipientID,
		"templateType":   input.TemplateType,
		"channel":        input.Channel,
	})

	return &Output{
		NotificationID: notification.ID,
		Sent:           true,
		Channel:        input.Channel,
	}, nil
}

// priorityRank orders notification priorities for threshold comparison.
var priorityRank = map[string]int{
	models.PriorityLow:    0,
	models.PriorityMedium: 1,
	models.PriorityHigh:   2,
	models.PriorityUrgent: 3,
}

// escalateSMS mirrors urgent notifications over SMS so they are seen even
// when the primary channel goes unread. Best effort: an SMS failure never
// fails a notification already delivered on its own channel.
func (h *Handler) escalateSMS(ctx context.Context, input *Input, body, priority string) {
	if !h.config.SMSEnabled || input.Channel == models.ChannelSMS {
		return
	}
	if input.RecipientPhone == "" {
		return
	}
	rank, ok := priorityRank[priority]
	threshold, tok := priorityRank[h.config.PriorityThreshold]
	if !ok || !tok || rank < threshold {
		return
	}

	if err := h.sms.SendSMS(ctx, input.RecipientPhone, body, h.config.SMSSenderID); err != nil {
		h.logger.Warn("sms escalation failed", map[string]interface{}{
			"recipientId": input.RecipientID,
			"priority":    priority,
			"error":       err.Error(),
		})
		return
	}
	h.logger.Info("sms escalation sent", map[string]interface{}{
		"recipientId": input.RecipientID,
		"priority":    priority,
	})
}

func (h *Handler) dispatch(ctx context.Context, input *Input, subject, body string) error {
	switch input.Channel {
	case models.ChannelWhatsApp:
		if _, ok := h.gateway.SendText(ctx, input.RecipientPhone, body, models.MessageKindText); !ok {
			return fmt.Errorf("whatsapp dispatch failed for %s", input.RecipientPhone)
		}
		return nil
	case models.ChannelSMS:
		return h.sms.SendSMS(ctx, input.RecipientPhone, body, h.config.SMSSenderID)
	case models.ChannelEmail:
		return h.email.SendSimpleEmail(ctx, h.config.FromEmail, input.RecipientEmail, subject, body)
	default:
		return fmt.Errorf("unknown channel %q", input.Channel)
	}
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
