package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultOpenAIBaseURL = "https://api.openai.com/v1"

// OpenAIClient talks to an OpenAI-compatible chat completion endpoint.
type OpenAIClient struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// OpenAIConfig contains configuration for the OpenAI client.
type OpenAIConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// NewOpenAIClient creates a new OpenAI-compatible client.
func NewOpenAIClient(config OpenAIConfig) (*OpenAIClient, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("openai: API key is required")
	}
	if config.BaseURL == "" {
		config.BaseURL = defaultOpenAIBaseURL
	}
	if config.Model == "" {
		config.Model = "gpt-4o"
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}

	return &OpenAIClient{
		baseURL: strings.TrimRight(config.BaseURL, "/"),
		apiKey:  config.APIKey,
		model:   config.Model,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}, nil
}

// ProviderName returns the provider identifier.
func (c *OpenAIClient) ProviderName() string {
	return "openai"
}

type chatCompletionRequest struct {
	Model          string          `json:"model"`
	Messages       []Message       `json:"messages"`
	Temperature    float64         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// GenerateChat generates a response for a chat exchange.
func (c *OpenAIClient) GenerateChat(ctx context.Context, messages []Message) (string, error) {
	req := chatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: 0.7,
		MaxTokens:   1000,
	}

	content, err := c.complete(ctx, req)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(content), nil
}

// AnalyzeText runs a structured analysis task over free text. The provider
// is asked for a JSON object; anything that does not unmarshal into the
// payload shape is reported as an error so callers fall back locally.
func (c *OpenAIClient) AnalyzeText(ctx context.Context, text, task string) (*AnalysisPayload, error) {
	req := chatCompletionRequest{
		Model: c.model,
		Messages: []Message{
			{Role: RoleSystem, Content: analysisInstruction(task)},
			{Role: RoleUser, Content: text},
		},
		Temperature:    0.2,
		ResponseFormat: &responseFormat{Type: "json_object"},
	}

	content, err := c.complete(ctx, req)
	if err != nil {
		return nil, err
	}

	var payload AnalysisPayload
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		return nil, fmt.Errorf("openai: parsing analysis response: %w", err)
	}
	return &payload, nil
}

// complete performs a chat completion request and returns the first choice.
func (c *OpenAIClient) complete(ctx context.Context, reqBody chatCompletionRequest) (string, error) {
	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("openai: encoding request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("openai: creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("openai: executing request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("openai: reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("openai: unexpected status %d: %s", resp.StatusCode, truncateBody(respBody))
	}

	var completion chatCompletionResponse
	if err := json.Unmarshal(respBody, &completion); err != nil {
		return "", fmt.Errorf("openai: decoding response: %w", err)
	}
	if completion.Error != nil {
		return "", fmt.Errorf("openai: API error: %s", completion.Error.Message)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("openai: response contained no choices")
	}

	return completion.Choices[0].Message.Content, nil
}

func truncateBody(body []byte) string {
	const max = 256
	if len(body) > max {
		return string(body[:max]) + "..."
	}
	return string(body)
}

// analysisInstruction returns the system instruction for a given analysis
// task. The medical analysis task pins the exact JSON shape the core
// expects back.
func analysisInstruction(task string) string {
	switch task {
	case TaskMedicalAnalysis:
		return `당신은 의료 텍스트 분석 전문가입니다. 제공된 대화에서 언급된 증상,
가능성 있는 질병, 그리고 적절한 건강 제안을 JSON 형식으로 반환하세요.
반환 형식:
{
    "symptoms": ["증상1", "증상2", ...],
    "possible_diseases": [{"name": "질병명", "probability": 확률}, ...],
    "health_suggestions": ["제안1", "제안2", ...]
}`
	default:
		return fmt.Sprintf("당신은 텍스트 분석 전문가입니다. '%s' 유형의 분석을 수행하고 결과를 JSON 형식으로 반환하세요.", task)
	}
}
