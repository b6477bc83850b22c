// internal/workers/otp/send-otp/service.go
package sendotp

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"smartlocker-workers/internal/common/genai"
	"smartlocker-workers/internal/common/logger"
)

const generatePrompt = `Generate a random %d-digit numeric one-time password.
Respond with the digits only, no punctuation and no explanation.`

// Service generates OTP codes. When an AI provider is configured it is asked
// first and its answer is kept only if it yields enough digits; anything else
// falls back to crypto/rand so a flaky provider can never block delivery.
type Service struct {
	config   *Config
	provider genai.Provider
	logger   logger.Logger
}

func NewService(config *Config, provider genai.Provider, log logger.Logger) *Service {
	return &Service{
		config:   config,
		provider: provider,
		logger:   log,
	}
}

// Generate returns a numeric code and whether the AI provider produced it.
func (s *Service) Generate(ctx context.Context) (string, bool, error) {
	if s.config.UseAI && s.provider != nil {
		if code, ok := s.generateWithAI(ctx); ok {
			return code, true, nil
		}
	}

	code, err := s.generateRandom()
	if err != nil {
		return "", false, err
	}
	return code, false, nil
}

func (s *Service) generateWithAI(ctx context.Context) (string, bool) {
	completion, err := s.provider.Complete(ctx, fmt.Sprintf(generatePrompt, s.config.Length))
	if err != nil {
		s.logger.Warn("AI code generation failed, using random fallback", map[string]interface{}{
			"provider": s.provider.Name(),
			"error":    err.Error(),
		})
		return "", false
	}

	digits := keepDigits(completion)
	if len(digits) < s.config.Length {
		s.logger.Warn("AI completion yielded too few digits, using random fallback", map[string]interface{}{
			"provider": s.provider.Name(),
		})
		return "", false
	}
	return digits[:s.config.Length], true
}

func (s *Service) generateRandom() (string, error) {
	digits := make([]byte, s.config.Length)
	for i := range digits {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		digits[i] = byte('0' + n.Int64())
	}
	return string(digits), nil
}

func keepDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
