// internal/workers/notification/send-notification/validation.go
package sendnotification

import (
	"fmt"

	"smartlocker-workers/internal/common/validation"
	"smartlocker-workers/internal/models"
)

func validateInput(input *Input) error {
	if input.RecipientID == "" {
		return fmt.Errorf("%w: recipientId is required", ErrInvalidInput)
	}
	if input.TemplateType == "" {
		return fmt.Errorf("%w: templateType is required", ErrInvalidInput)
	}

	switch input.Channel {
	case models.ChannelWhatsApp, models.ChannelSMS:
		if !validation.ValidatePhone(input.RecipientPhone) {
			return fmt.Errorf("%w: valid recipientPhone is required for channel %s", ErrInvalidInput, input.Channel)
		}
	case models.ChannelEmail:
		if !validation.ValidateEmail(input.RecipientEmail) {
			return fmt.Errorf("%w: valid recipientEmail is required for channel email", ErrInvalidInput)
		}
	default:
		return fmt.Errorf("%w: unknown channel %q", ErrInvalidInput, input.Channel)
	}

	switch input.Priority {
	case "", models.PriorityLow, models.PriorityMedium, models.PriorityHigh, models.PriorityUrgent:
	default:
		return fmt.Errorf("%w: unknown priority %q", ErrInvalidInput, input.Priority)
	}
	return nil
}
