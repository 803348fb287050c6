package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/health-consult-server/internal/domain"
)

// NewService builds the language-model collaborator selected by
// configuration. Unknown providers are a startup error, not a silent
// fallback.
func NewService(ctx context.Context, cfg domain.LLMConfig) (Service, error) {
	switch strings.ToLower(cfg.Provider) {
	case "openai":
		return NewOpenAIClient(OpenAIConfig{
			BaseURL: cfg.OpenAI.BaseURL,
			APIKey:  cfg.OpenAI.APIKey,
			Model:   cfg.OpenAI.Model,
			Timeout: cfg.Timeout,
		})
	case "googleai":
		return NewGoogleAIClient(ctx, GoogleAIConfig{
			APIKey: cfg.GoogleAI.APIKey,
			Model:  cfg.GoogleAI.Model,
		})
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %q", cfg.Provider)
	}
}
