// Package llm wraps the external language-model collaborators behind small
// contracts the analysis core consumes. Every call site in the core pairs a
// delegated call with a deterministic local fallback, so providers here are
// allowed to fail arbitrarily; they must only fail loudly, never return a
// partially parsed result as success.
package llm

import (
	"context"
	"encoding/json"
	"strconv"
	"time"
)

// Roles used in chat messages.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// TaskMedicalAnalysis asks the analyzer for symptoms, candidate diseases
// with probabilities and care suggestions.
const TaskMedicalAnalysis = "medical_analysis"

// Message is one turn of a chat exchange with a provider.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// PossibleDisease is one candidate disease named by the analyzer.
type PossibleDisease struct {
	Name        string  `json:"name"`
	Probability float64 `json:"probability"`
}

// AnalysisPayload is the structured result of a text-analysis call.
// A response that cannot be unmarshalled into this shape is an error.
type AnalysisPayload struct {
	Symptoms          []string          `json:"symptoms"`
	PossibleDiseases  []PossibleDisease `json:"possible_diseases"`
	HealthSuggestions []string          `json:"health_suggestions"`
	PainIntensity     *float64          `json:"pain_intensity,omitempty"`
}

// UnmarshalJSON decodes the payload with a tolerant pain_intensity: the
// field only drives the severity override, so a non-numeric value is
// dropped silently instead of failing an otherwise valid analysis. Numeric
// strings ("7") are accepted.
func (p *AnalysisPayload) UnmarshalJSON(data []byte) error {
	var raw struct {
		Symptoms          []string          `json:"symptoms"`
		PossibleDiseases  []PossibleDisease `json:"possible_diseases"`
		HealthSuggestions []string          `json:"health_suggestions"`
		PainIntensity     json.RawMessage   `json:"pain_intensity"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	p.Symptoms = raw.Symptoms
	p.PossibleDiseases = raw.PossibleDiseases
	p.HealthSuggestions = raw.HealthSuggestions
	p.PainIntensity = parsePainIntensity(raw.PainIntensity)
	return nil
}

func parsePainIntensity(raw json.RawMessage) *float64 {
	if len(raw) == 0 {
		return nil
	}

	var value float64
	if err := json.Unmarshal(raw, &value); err == nil {
		return &value
	}

	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		if parsed, err := strconv.ParseFloat(text, 64); err == nil {
			return &parsed
		}
	}
	return nil
}

// ChatModel generates free-form text from a chat exchange.
type ChatModel interface {
	GenerateChat(ctx context.Context, messages []Message) (string, error)
}

// TextAnalyzer extracts structured medical findings from free text.
type TextAnalyzer interface {
	AnalyzeText(ctx context.Context, text, task string) (*AnalysisPayload, error)
}

// Service is a full language-model collaborator: chat generation plus
// structured text analysis.
type Service interface {
	ChatModel
	TextAnalyzer
	ProviderName() string
}

// ClientConfig carries the provider-independent client settings.
type ClientConfig struct {
	Timeout   time.Duration
	RateLimit int
}
