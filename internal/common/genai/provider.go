// Package genai wraps the generative-AI HTTP providers used for reply
// classification, OTP generation and notification personalization. All
// callers treat the provider as best-effort and carry a deterministic
// fallback, so provider errors are reported, never fatal.
package genai

import (
	"context"
	"fmt"

	"smartlocker-workers/internal/common/config"
)

// Provider is a minimal text-completion client.
type Provider interface {
	Name() string
	// Complete sends the prompt and returns the raw text of the first
	// completion choice.
	Complete(ctx context.Context, prompt string) (string, error)
}

// New builds the configured provider. Returns nil when no provider is
// configured; callers must handle the nil case with their fallback path.
func New(cfg config.AIConfig) (Provider, error) {
	switch cfg.Provider {
	case "":
		return nil, nil
	case "openai":
		if cfg.OpenAI.APIKey == "" {
			return nil, fmt.Errorf("ai.openai.api_key is required for provider openai")
		}
		return newOpenAI(cfg.OpenAI), nil
	case "gemini":
		if cfg.Gemini.APIKey == "" {
			return nil, fmt.Errorf("ai.gemini.api_key is required for provider gemini")
		}
		return newGemini(cfg.Gemini), nil
	default:
		return nil, fmt.Errorf("unknown ai provider %q", cfg.Provider)
	}
}
