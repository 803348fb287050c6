package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/schema"
)

// GoogleAIClient is the Gemini-backed provider, wired through langchaingo.
type GoogleAIClient struct {
	llm   *googleai.GoogleAI
	model string
}

// GoogleAIConfig contains configuration for the Google AI client.
type GoogleAIConfig struct {
	APIKey string
	Model  string
}

// NewGoogleAIClient creates a new Google AI (Gemini) client.
func NewGoogleAIClient(ctx context.Context, config GoogleAIConfig) (*GoogleAIClient, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("googleai: API key is required")
	}
	if config.Model == "" {
		config.Model = "gemini-1.5-flash"
	}

	client, err := googleai.New(
		ctx,
		googleai.WithAPIKey(config.APIKey),
		googleai.WithDefaultModel(config.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("googleai: creating client: %w", err)
	}

	return &GoogleAIClient{llm: client, model: config.Model}, nil
}

// ProviderName returns the provider identifier.
func (c *GoogleAIClient) ProviderName() string {
	return "googleai"
}

// GenerateChat generates a response for a chat exchange.
func (c *GoogleAIClient) GenerateChat(ctx context.Context, messages []Message) (string, error) {
	content := make([]llms.MessageContent, 0, len(messages))
	for _, m := range messages {
		content = append(content, llms.TextParts(chatRole(m.Role), m.Content))
	}

	resp, err := c.llm.GenerateContent(ctx, content, llms.WithTemperature(0.7))
	if err != nil {
		return "", fmt.Errorf("googleai: generating content: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("googleai: response contained no choices")
	}

	return strings.TrimSpace(resp.Choices[0].Content), nil
}

// AnalyzeText runs a structured analysis task over free text. Gemini has no
// strict JSON mode here, so the raw completion is scrubbed of markdown
// fences before unmarshalling; anything unparseable is an error.
func (c *GoogleAIClient) AnalyzeText(ctx context.Context, text, task string) (*AnalysisPayload, error) {
	prompt := analysisInstruction(task) + "\n\n분석할 텍스트:\n" + text

	completion, err := llms.GenerateFromSinglePrompt(ctx, c.llm, prompt, llms.WithTemperature(0.2))
	if err != nil {
		return nil, fmt.Errorf("googleai: analyzing text: %w", err)
	}

	var payload AnalysisPayload
	if err := json.Unmarshal([]byte(stripCodeFence(completion)), &payload); err != nil {
		return nil, fmt.Errorf("googleai: parsing analysis response: %w", err)
	}
	return &payload, nil
}

func chatRole(role string) schema.ChatMessageType {
	switch role {
	case RoleSystem:
		return schema.ChatMessageTypeSystem
	case RoleAssistant:
		return schema.ChatMessageTypeAI
	default:
		return schema.ChatMessageTypeHuman
	}
}

// stripCodeFence removes a surrounding markdown code fence, which Gemini
// tends to wrap JSON responses in.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
