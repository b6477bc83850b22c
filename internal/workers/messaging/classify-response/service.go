// internal/workers/messaging/classify-response/service.go
package classifyresponse

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"smartlocker-workers/internal/common/genai"
	"smartlocker-workers/internal/common/logger"
	"smartlocker-workers/internal/common/metrics"
)

// Keyword fallback sets. Approve wins when a reply matches both sets, so a
// message like "ok cancel it" still needs the AI path or a clarification
// round trip to resolve cleanly.
var (
	approveKeywords = []string{"approve", "yes", "ok", "accept", "confirm"}
	denyKeywords    = []string{"deny", "no", "reject", "cancel", "refuse"}
)

const classifyPromptTemplate = `Classify the following WhatsApp reply to a parcel delivery approval request.

Reply: %q

Respond with only a JSON object:
{"decision": "approve"|"deny"|"unclear", "confidence": 0.0-1.0, "sentiment": "positive"|"negative"|"neutral"}`

// Service turns a raw reply into a decision. The AI provider is consulted
// first when configured; the keyword fallback always produces an answer.
type Service struct {
	provider genai.Provider
	logger   logger.Logger
}

func NewService(provider genai.Provider, log logger.Logger) *Service {
	return &Service{provider: provider, logger: log}
}

// Classify never fails: provider errors degrade to the keyword path.
func (s *Service) Classify(ctx context.Context, rawResponse string) *Output {
	if s.provider != nil {
		if output, err := s.classifyWithAI(ctx, rawResponse); err == nil {
			metrics.ResponsesClassified.WithLabelValues(output.Decision, MethodAI).Inc()
			return output
		} else {
			s.logger.Warn("AI classification failed, using keyword fallback", map[string]interface{}{
				"provider": s.provider.Name(),
				"error":    err.Error(),
			})
		}
	}

	output := classifyWithKeywords(rawResponse)
	metrics.ResponsesClassified.WithLabelValues(output.Decision, MethodKeyword).Inc()
	return output
}

func (s *Service) classifyWithAI(ctx context.Context, rawResponse string) (*Output, error) {
	completion, err := s.provider.Complete(ctx, fmt.Sprintf(classifyPromptTemplate, rawResponse))
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Decision   string  `json:"decision"`
		Confidence float64 `json:"confidence"`
		Sentiment  string  `json:"sentiment"`
	}
	if err := json.Unmarshal([]byte(extractJSON(completion)), &parsed); err != nil {
		return nil, fmt.Errorf("unparseable completion: %w", err)
	}

	switch parsed.Decision {
	case DecisionApprove, DecisionDeny, DecisionUnclear:
	default:
		return nil, fmt.Errorf("invalid decision %q", parsed.Decision)
	}
	if parsed.Confidence < 0 || parsed.Confidence > 1 {
		return nil, fmt.Errorf("confidence %v out of range", parsed.Confidence)
	}
	switch parsed.Sentiment {
	case "positive", "negative", "neutral":
	default:
		parsed.Sentiment = "neutral"
	}

	return &Output{
		Decision:   parsed.Decision,
		Confidence: parsed.Confidence,
		Sentiment:  parsed.Sentiment,
		Method:     MethodAI,
	}, nil
}

// classifyWithKeywords is the deterministic fallback: case-insensitive
// substring match, approve set checked first.
func classifyWithKeywords(rawResponse string) *Output {
	normalized := strings.ToLower(strings.TrimSpace(rawResponse))

	for _, keyword := range approveKeywords {
		if strings.Contains(normalized, keyword) {
			return &Output{
				Decision:   DecisionApprove,
				Confidence: 0.8,
				Sentiment:  "positive",
				Method:     MethodKeyword,
			}
		}
	}
	for _, keyword := range denyKeywords {
		if strings.Contains(normalized, keyword) {
			return &Output{
				Decision:   DecisionDeny,
				Confidence: 0.8,
				Sentiment:  "negative",
				Method:     MethodKeyword,
			}
		}
	}

	return &Output{
		Decision:   DecisionUnclear,
		Confidence: 0.3,
		Sentiment:  "neutral",
		Method:     MethodKeyword,
	}
}

// extractJSON pulls the first {...} block out of a completion that may be
// wrapped in prose or code fences.
func extractJSON(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end == -1 || end < start {
		return s
	}
	return s[start : end+1]
}
