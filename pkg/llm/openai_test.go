package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func completionResponse(content string) string {
	resp := map[string]any{
		"choices": []map[string]any{
			{"message": map[string]string{"content": content}},
		},
	}
	b, _ := json.Marshal(resp)
	return string(b)
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *OpenAIClient {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewOpenAIClient(OpenAIConfig{
		BaseURL: server.URL,
		APIKey:  "test-key",
	})
	require.NoError(t, err)
	return client
}

func TestNewOpenAIClient_RequiresAPIKey(t *testing.T) {
	_, err := NewOpenAIClient(OpenAIConfig{})
	assert.Error(t, err)
}

func TestOpenAIClient_GenerateChat(t *testing.T) {
	var gotAuth string
	var gotRequest chatCompletionRequest

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotRequest))
		w.Write([]byte(completionResponse("  안녕하세요!  ")))
	})

	response, err := client.GenerateChat(context.Background(), []Message{
		{Role: RoleSystem, Content: "system"},
		{Role: RoleUser, Content: "안녕"},
	})
	require.NoError(t, err)

	assert.Equal(t, "안녕하세요!", response, "response should be trimmed")
	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.Equal(t, "gpt-4o", gotRequest.Model)
	assert.Len(t, gotRequest.Messages, 2)
	assert.Nil(t, gotRequest.ResponseFormat)
}

func TestOpenAIClient_GenerateChat_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "HTTP error status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "rate limited", http.StatusTooManyRequests)
			},
		},
		{
			name: "API error body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"error":{"message":"invalid key","type":"auth"}}`))
			},
		},
		{
			name: "No choices",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"choices":[]}`))
			},
		},
		{
			name: "Malformed body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`not json`))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, tt.handler)
			_, err := client.GenerateChat(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
			assert.Error(t, err)
		})
	}
}

func TestOpenAIClient_AnalyzeText(t *testing.T) {
	var gotRequest chatCompletionRequest

	payload := `{"symptoms":["두통"],"possible_diseases":[{"name":"편두통","probability":85}],"health_suggestions":["휴식"],"pain_intensity":6}`
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotRequest))
		w.Write([]byte(completionResponse(payload)))
	})

	result, err := client.AnalyzeText(context.Background(), "머리가 아파요", TaskMedicalAnalysis)
	require.NoError(t, err)

	assert.Equal(t, []string{"두통"}, result.Symptoms)
	require.Len(t, result.PossibleDiseases, 1)
	assert.Equal(t, "편두통", result.PossibleDiseases[0].Name)
	assert.Equal(t, 85.0, result.PossibleDiseases[0].Probability)
	require.NotNil(t, result.PainIntensity)
	assert.Equal(t, 6.0, *result.PainIntensity)

	// Structured analysis pins the JSON response format and runs cold.
	require.NotNil(t, gotRequest.ResponseFormat)
	assert.Equal(t, "json_object", gotRequest.ResponseFormat.Type)
	assert.Equal(t, 0.2, gotRequest.Temperature)
}

func TestOpenAIClient_AnalyzeText_PainIntensityVariants(t *testing.T) {
	pain := func(v float64) *float64 { return &v }

	tests := []struct {
		name string
		raw  string
		want *float64
	}{
		{"Numeric", `6.5`, pain(6.5)},
		{"Numeric string", `"7"`, pain(7)},
		{"Non-numeric string ignored", `"심함"`, nil},
		{"Null ignored", `null`, nil},
		{"Object ignored", `{"level":"high"}`, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload := `{"symptoms":["두통"],"possible_diseases":[{"name":"편두통","probability":85}],"health_suggestions":["휴식"],"pain_intensity":` + tt.raw + `}`
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(completionResponse(payload)))
			})

			result, err := client.AnalyzeText(context.Background(), "머리가 아파요", TaskMedicalAnalysis)
			require.NoError(t, err, "a bad pain_intensity must not discard the analysis")

			// The rest of the payload survives regardless of the pain field.
			assert.Equal(t, []string{"두통"}, result.Symptoms)
			require.Len(t, result.PossibleDiseases, 1)

			if tt.want == nil {
				assert.Nil(t, result.PainIntensity)
			} else {
				require.NotNil(t, result.PainIntensity)
				assert.Equal(t, *tt.want, *result.PainIntensity)
			}
		})
	}
}

func TestOpenAIClient_AnalyzeText_UnparsableResponse(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(completionResponse("이것은 JSON이 아닙니다")))
	})

	_, err := client.AnalyzeText(context.Background(), "머리가 아파요", TaskMedicalAnalysis)
	assert.Error(t, err, "a non-JSON analysis response must fail, never half-succeed")
}

func TestAnalysisInstruction(t *testing.T) {
	medical := analysisInstruction(TaskMedicalAnalysis)
	assert.Contains(t, medical, "symptoms")
	assert.Contains(t, medical, "possible_diseases")
	assert.Contains(t, medical, "health_suggestions")

	other := analysisInstruction("sentiment")
	assert.Contains(t, other, "sentiment")
}
