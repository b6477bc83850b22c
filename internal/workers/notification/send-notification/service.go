// internal/workers/notification/send-notification/service.go
package sendnotification

import (
	"context"
	"fmt"
	"strings"

	"smartlocker-workers/internal/common/genai"
	"smartlocker-workers/internal/common/logger"
	"smartlocker-workers/internal/models"
)

const personalizePrompt = `Rewrite the following customer notification so it reads warm and natural.
Keep every factual detail (codes, locker numbers, times, links) exactly as written.
Keep it under 500 characters. Respond with the rewritten text only.

Notification:
%s`

// Service renders a notification template and optionally lets the AI
// provider polish the wording. Personalization is best effort: any provider
// problem keeps the rendered template untouched.
type Service struct {
	provider genai.Provider
	logger   logger.Logger
}

func NewService(provider genai.Provider, log logger.Logger) *Service {
	return &Service{provider: provider, logger: log}
}

// Render substitutes {key} placeholders in the template body and subject.
func (s *Service) Render(tmpl *models.NotificationTemplate, variables map[string]string) (subject, body string) {
	subject = substitute(tmpl.Subject, variables)
	body = substitute(tmpl.Body, variables)
	return subject, body
}

// Personalize asks the provider to rewrite the body. Returns the original
// body when no provider is configured or the rewrite is unusable.
func (s *Service) Personalize(ctx context.Context, body string) string {
	if s.provider == nil {
		return body
	}

	rewritten, err := s.provider.Complete(ctx, fmt.Sprintf(personalizePrompt, body))
	if err != nil {
		s.logger.Warn("personalization failed, keeping template text", map[string]interface{}{
			"provider": s.provider.Name(),
			"error":    err.Error(),
		})
		return body
	}

	rewritten = strings.TrimSpace(rewritten)
	if rewritten == "" || len(rewritten) > 2*len(body)+500 {
		return body
	}
	return rewritten
}

func substitute(text string, variables map[string]string) string {
	for key, value := range variables {
		text = strings.ReplaceAll(text, "{"+key+"}", value)
	}
	return text
}
