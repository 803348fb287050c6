package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/health-consult-server/internal/domain"
	"github.com/health-consult-server/pkg/llm"
)

type stubChatModel struct {
	response string
	err      error
	lastMsgs []llm.Message
}

func (s *stubChatModel) GenerateChat(_ context.Context, messages []llm.Message) (string, error) {
	s.lastMsgs = messages
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

func analysisFixture() *domain.AnalysisResult {
	return &domain.AnalysisResult{
		Symptoms: []string{"두통"},
		Diseases: []domain.DiseaseProbability{
			{ID: "d1", Name: "편두통", Probability: 85},
		},
		Suggestions: []string{"충분한 수면 취하기"},
	}
}

func TestReportSynthesizer_DelegatedSeverityMarker(t *testing.T) {
	tests := []struct {
		name         string
		response     string
		wantSeverity domain.SeverityLevel
	}{
		{
			name:         "Red marker",
			response:     "# 리포트\n\n내용입니다.\n\nSEVERITY_LEVEL: red",
			wantSeverity: domain.SeverityRed,
		},
		{
			name:         "Orange marker",
			response:     "# 리포트\n\nSEVERITY_LEVEL: orange",
			wantSeverity: domain.SeverityOrange,
		},
		{
			name:         "Marker parsed case-insensitively",
			response:     "# 리포트\n\nseverity_level: RED",
			wantSeverity: domain.SeverityRed,
		},
		{
			name:         "Missing marker defaults to green",
			response:     "# 리포트\n\n마커가 없습니다.",
			wantSeverity: domain.SeverityGreen,
		},
		{
			name:         "Malformed marker value defaults to green",
			response:     "# 리포트\n\nSEVERITY_LEVEL: purple",
			wantSeverity: domain.SeverityGreen,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chat := &stubChatModel{response: tt.response}
			synth := NewReportSynthesizer(testLogger(), chat, &fakeConvoRepo{})

			draft, err := synth.Synthesize(context.Background(), "conv-1", analysisFixture(), nil)
			require.NoError(t, err)

			assert.Equal(t, tt.wantSeverity, draft.Severity)
			assert.NotContains(t, strings.ToUpper(draft.Content), "SEVERITY_LEVEL: RED")
			assert.NotContains(t, draft.Content, "SEVERITY_LEVEL: orange")
		})
	}
}

func TestReportSynthesizer_MarkerStrippedFromContent(t *testing.T) {
	chat := &stubChatModel{response: "위 내용입니다.\nSEVERITY_LEVEL: orange\n"}
	synth := NewReportSynthesizer(testLogger(), chat, &fakeConvoRepo{})

	draft, err := synth.Synthesize(context.Background(), "conv-1", analysisFixture(), nil)
	require.NoError(t, err)

	assert.Equal(t, domain.SeverityOrange, draft.Severity)
	assert.Equal(t, "위 내용입니다.", strings.TrimSpace(draft.Content))
}

func TestReportSynthesizer_FallbackTemplate(t *testing.T) {
	chat := &stubChatModel{err: errors.New("provider down")}
	synth := NewReportSynthesizer(testLogger(), chat, &fakeConvoRepo{})

	draft, err := synth.Synthesize(context.Background(), "conv-1", analysisFixture(), nil)
	require.NoError(t, err, "delegated failure must degrade, not error")

	// The local template always reports green and includes the analysis
	// sections verbatim.
	assert.Equal(t, domain.SeverityGreen, draft.Severity)
	assert.Contains(t, draft.Content, "# 건강 분석 리포트")
	assert.Contains(t, draft.Content, "두통")
	assert.Contains(t, draft.Content, "편두통 (85%)")
	assert.Contains(t, draft.Content, "1. 충분한 수면 취하기")
}

func TestReportSynthesizer_NilChatUsesTemplate(t *testing.T) {
	synth := NewReportSynthesizer(testLogger(), nil, &fakeConvoRepo{})

	draft, err := synth.Synthesize(context.Background(), "conv-1", analysisFixture(), nil)
	require.NoError(t, err)
	assert.Contains(t, draft.Content, "# 건강 분석 리포트")
	assert.Equal(t, domain.SeverityGreen, draft.Severity)
}

func TestReportSynthesizer_PainOverride(t *testing.T) {
	pain := func(v float64) *float64 { return &v }

	tests := []struct {
		name      string
		intensity *float64
		response  string
		want      domain.SeverityLevel
	}{
		{"High pain overrides green marker", pain(8), "리포트\nSEVERITY_LEVEL: green", domain.SeverityRed},
		{"Boundary red", pain(7), "리포트\nSEVERITY_LEVEL: green", domain.SeverityRed},
		{"Moderate pain overrides red marker", pain(5), "리포트\nSEVERITY_LEVEL: red", domain.SeverityOrange},
		{"Boundary orange", pain(4), "리포트", domain.SeverityOrange},
		{"Low pain forces green", pain(2), "리포트\nSEVERITY_LEVEL: red", domain.SeverityGreen},
		{"No intensity leaves marker severity", nil, "리포트\nSEVERITY_LEVEL: orange", domain.SeverityOrange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			analysis := analysisFixture()
			analysis.PainIntensity = tt.intensity

			chat := &stubChatModel{response: tt.response}
			synth := NewReportSynthesizer(testLogger(), chat, &fakeConvoRepo{})

			draft, err := synth.Synthesize(context.Background(), "conv-1", analysis, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, draft.Severity)
		})
	}
}

func TestReportSynthesizer_PainOverrideAppliesToFallback(t *testing.T) {
	pain := 9.0
	analysis := analysisFixture()
	analysis.PainIntensity = &pain

	synth := NewReportSynthesizer(testLogger(), nil, &fakeConvoRepo{})

	draft, err := synth.Synthesize(context.Background(), "conv-1", analysis, nil)
	require.NoError(t, err)

	// The template itself is always green, but the numeric override
	// still applies on top of it.
	assert.Equal(t, domain.SeverityRed, draft.Severity)
}

func TestReportSynthesizer_PromptIncludesProfileAndTranscript(t *testing.T) {
	convos := &fakeConvoRepo{messages: []domain.ConversationMessage{
		userMessage("두통이 심해요"),
		assistantMessage("언제부터 아프셨나요?"),
	}}
	chat := &stubChatModel{response: "리포트\nSEVERITY_LEVEL: green"}
	synth := NewReportSynthesizer(testLogger(), chat, convos)

	profile := &domain.UserProfile{
		Nickname:     "홍길동",
		Gender:       "남성",
		AgeRange:     "30대",
		UsualIllness: []string{"편두통"},
	}

	_, err := synth.Synthesize(context.Background(), "conv-1", analysisFixture(), profile)
	require.NoError(t, err)

	require.Len(t, chat.lastMsgs, 2)
	assert.Equal(t, llm.RoleSystem, chat.lastMsgs[0].Role)

	prompt := chat.lastMsgs[1].Content
	assert.Contains(t, prompt, "홍길동")
	assert.Contains(t, prompt, "30대")
	assert.Contains(t, prompt, "두통이 심해요")
	assert.Contains(t, prompt, "AI 어시스턴트: 언제부터 아프셨나요?")
}

func TestReportSynthesizer_TranscriptTruncatedByCharacters(t *testing.T) {
	// 600 Korean characters is 1800 bytes. It fits within the 1000-character
	// preview and must survive untruncated.
	short := strings.Repeat("가", 600)
	convos := &fakeConvoRepo{messages: []domain.ConversationMessage{userMessage(short)}}
	chat := &stubChatModel{response: "리포트\nSEVERITY_LEVEL: green"}
	synth := NewReportSynthesizer(testLogger(), chat, convos)

	_, err := synth.Synthesize(context.Background(), "conv-1", analysisFixture(), nil)
	require.NoError(t, err)

	require.Len(t, chat.lastMsgs, 2)
	assert.Contains(t, chat.lastMsgs[1].Content, short)

	// Over the limit, the cut lands on a character boundary.
	long := strings.Repeat("나", 1200)
	convos.messages = []domain.ConversationMessage{userMessage(long)}

	_, err = synth.Synthesize(context.Background(), "conv-1", analysisFixture(), nil)
	require.NoError(t, err)

	prompt := chat.lastMsgs[1].Content
	assert.True(t, utf8.ValidString(prompt), "truncation must not split a rune")
	assert.NotContains(t, prompt, long)
	assert.Contains(t, prompt, strings.Repeat("나", 990))
}

func TestFormatUserInfo_NilProfile(t *testing.T) {
	info := formatUserInfo(nil)
	assert.Contains(t, info, "이름 없음")
	assert.Contains(t, info, "정보 없음")
}
