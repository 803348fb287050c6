package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/health-consult-server/internal/domain"
)

func TestNewService(t *testing.T) {
	tests := []struct {
		name     string
		cfg      domain.LLMConfig
		wantErr  bool
		provider string
	}{
		{
			name: "OpenAI provider",
			cfg: domain.LLMConfig{
				Provider: "openai",
				OpenAI:   domain.OpenAIConfig{APIKey: "key"},
			},
			provider: "openai",
		},
		{
			name: "Provider name is case-insensitive",
			cfg: domain.LLMConfig{
				Provider: "OpenAI",
				OpenAI:   domain.OpenAIConfig{APIKey: "key"},
			},
			provider: "openai",
		},
		{
			name: "OpenAI without key",
			cfg: domain.LLMConfig{
				Provider: "openai",
			},
			wantErr: true,
		},
		{
			name: "Unknown provider",
			cfg: domain.LLMConfig{
				Provider: "oracle",
			},
			wantErr: true,
		},
		{
			name:    "Empty provider",
			cfg:     domain.LLMConfig{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := NewService(context.Background(), tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.provider, svc.ProviderName())
		})
	}
}
