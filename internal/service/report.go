package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/health-consult-server/internal/domain"
	"github.com/health-consult-server/pkg/llm"
)

// Severity marker wire format embedded in generated narrative text. The
// marker is parsed case-insensitively and stripped from the visible report.
var (
	severityMarkerPattern = regexp.MustCompile(`(?i)SEVERITY_LEVEL:\s*(red|orange|green)`)
	severityMarkerLine    = regexp.MustCompile(`(?i)\n?\s*SEVERITY_LEVEL:\s*(red|orange|green)\s*`)
)

// Pain intensity thresholds for the severity override.
const (
	painSeverityRed    = 7
	painSeverityOrange = 4
)

// transcriptPreviewLimit bounds how much conversation text goes into the
// narrative prompt, in characters, not bytes. Korean transcripts run three
// bytes per character.
const transcriptPreviewLimit = 1000

// ReportDraft is the synthesized narrative plus the derived severity.
type ReportDraft struct {
	Content  string
	Severity domain.SeverityLevel
}

// ReportSynthesizer renders an analysis result into a narrative health
// report. The delegated strategy asks the chat collaborator for a markdown
// report ending in a severity marker; the local fallback renders a fixed
// template and always reports green. The fallback never inferring severity
// from content while the delegated path does is a known asymmetry, kept on
// purpose as a fail-safe-low default.
type ReportSynthesizer struct {
	logger *logrus.Logger
	chat   llm.ChatModel
	convos domain.ConversationRepository
}

// NewReportSynthesizer creates a report synthesizer. chat may be nil, in
// which case only the local template runs.
func NewReportSynthesizer(logger *logrus.Logger, chat llm.ChatModel, convos domain.ConversationRepository) *ReportSynthesizer {
	return &ReportSynthesizer{
		logger: logger,
		chat:   chat,
		convos: convos,
	}
}

// Synthesize renders the report for a conversation. Regardless of which
// strategy produced the narrative, a numeric pain intensity in the analysis
// overrides the severity afterwards.
func (s *ReportSynthesizer) Synthesize(ctx context.Context, conversationID string, analysis *domain.AnalysisResult, profile *domain.UserProfile) (*ReportDraft, error) {
	draft, err := s.synthesizeDelegated(ctx, conversationID, analysis, profile)
	if err != nil {
		s.logger.WithError(err).WithField("conversation_id", conversationID).
			Warn("Delegated report generation failed, using local template")
		draft = &ReportDraft{
			Content:  s.renderTemplate(analysis, profile),
			Severity: domain.SeverityGreen,
		}
	}

	draft.Severity = applyPainOverride(draft.Severity, analysis.PainIntensity)
	return draft, nil
}

// synthesizeDelegated builds the narrative prompt and parses the severity
// marker out of the generated report.
func (s *ReportSynthesizer) synthesizeDelegated(ctx context.Context, conversationID string, analysis *domain.AnalysisResult, profile *domain.UserProfile) (*ReportDraft, error) {
	if s.chat == nil {
		return nil, fmt.Errorf("no chat collaborator configured: %w", domain.ErrDelegatedReport)
	}

	messages, err := s.convos.ListMessages(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("%w: loading transcript: %v", domain.ErrDelegatedReport, err)
	}

	report, err := s.chat.GenerateChat(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: reportSystemPrompt},
		{Role: llm.RoleUser, Content: s.buildReportPrompt(messages, analysis, profile)},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrDelegatedReport, err)
	}

	severity := domain.SeverityGreen
	if m := severityMarkerPattern.FindStringSubmatch(report); m != nil {
		severity = domain.SeverityLevel(strings.ToLower(m[1]))
		report = severityMarkerLine.ReplaceAllString(report, "")
	}

	return &ReportDraft{Content: report, Severity: severity}, nil
}

// buildReportPrompt assembles the user prompt: profile, truncated
// transcript and the structured analysis result.
func (s *ReportSynthesizer) buildReportPrompt(messages []domain.ConversationMessage, analysis *domain.AnalysisResult, profile *domain.UserProfile) string {
	var transcript strings.Builder
	for _, msg := range messages {
		sender := "사용자"
		if msg.Sender == domain.SenderAssistant {
			sender = "AI 어시스턴트"
		}
		transcript.WriteString(fmt.Sprintf("%s: %s\n\n", sender, msg.Content))
	}

	preview := transcript.String()
	if runes := []rune(preview); len(runes) > transcriptPreviewLimit {
		preview = string(runes[:transcriptPreviewLimit])
	}

	symptomsText := "감지된 증상이 없습니다."
	if len(analysis.Symptoms) > 0 {
		symptomsText = strings.Join(analysis.Symptoms, ", ")
	}

	diseasesText := "가능성 있는 질환이 감지되지 않았습니다."
	if len(analysis.Diseases) > 0 {
		var lines []string
		for _, d := range analysis.Diseases {
			lines = append(lines, fmt.Sprintf("- %s (%v%%)", d.Name, d.Probability))
		}
		diseasesText = strings.Join(lines, "\n")
	}

	var suggestionLines []string
	for _, suggestion := range analysis.Suggestions {
		suggestionLines = append(suggestionLines, "- "+suggestion)
	}

	return fmt.Sprintf(`다음 정보를 바탕으로 건강 분석 리포트를 작성해주세요:

%s

### 대화 내용 요약:
%s... (대화 내용 일부)

### 분석 결과:

감지된 증상:
%s

가능성 있는 질환:
%s

건강 관리 조언:
%s

현재 시간: %s`,
		formatUserInfo(profile),
		preview,
		symptomsText,
		diseasesText,
		strings.Join(suggestionLines, "\n"),
		time.Now().Format("2006-01-02 15:04"),
	)
}

// renderTemplate is the deterministic local fallback: a fixed-section
// markdown report over the analysis result.
func (s *ReportSynthesizer) renderTemplate(analysis *domain.AnalysisResult, profile *domain.UserProfile) string {
	var symptomSection strings.Builder
	for _, symptom := range analysis.Symptoms {
		symptomSection.WriteString(fmt.Sprintf("- %s\n", symptom))
	}

	var diseaseSection strings.Builder
	for _, d := range analysis.Diseases {
		diseaseSection.WriteString(fmt.Sprintf("- %s (%v%%)\n", d.Name, d.Probability))
	}

	var adviceSection strings.Builder
	for i, suggestion := range analysis.Suggestions {
		adviceSection.WriteString(fmt.Sprintf("%d. %s\n", i+1, suggestion))
	}

	return fmt.Sprintf(`# 건강 분석 리포트

## 사용자 정보
%s

## 대화 내용 분석
대화 내용을 바탕으로 분석한 결과입니다.

## 감지된 증상

%s
## 분석된 가능성 있는 질환

%s
## 건강 관리 조언

%s
*참고: 이 리포트는 자동으로 생성된 것으로, 정확한 진단을 위해서는 의사와 상담하시기 바랍니다.*

생성 시간: %s
`,
		formatUserInfo(profile),
		symptomSection.String(),
		diseaseSection.String(),
		adviceSection.String(),
		time.Now().Format("2006-01-02 15:04"),
	)
}

// applyPainOverride maps a numeric pain intensity onto the severity scale,
// overriding whatever the narrative strategy produced. A missing intensity
// leaves the severity untouched.
func applyPainOverride(severity domain.SeverityLevel, painIntensity *float64) domain.SeverityLevel {
	if painIntensity == nil {
		return severity
	}
	switch {
	case *painIntensity >= painSeverityRed:
		return domain.SeverityRed
	case *painIntensity >= painSeverityOrange:
		return domain.SeverityOrange
	default:
		return domain.SeverityGreen
	}
}

// formatUserInfo renders the profile block shared by both strategies.
func formatUserInfo(profile *domain.UserProfile) string {
	nickname, ageRange, gender, illness := "이름 없음", "정보 없음", "정보 없음", "없음"
	if profile != nil {
		if profile.Nickname != "" {
			nickname = profile.Nickname
		}
		if profile.AgeRange != "" {
			ageRange = profile.AgeRange
		}
		if profile.Gender != "" {
			gender = profile.Gender
		}
		if len(profile.UsualIllness) > 0 {
			illness = strings.Join(profile.UsualIllness, ", ")
		}
	}

	return fmt.Sprintf("사용자: %s\n연령대: %s\n성별: %s\n평소 앓는 질환: %s", nickname, ageRange, gender, illness)
}

// reportSystemPrompt instructs the collaborator on report structure and the
// severity marker format.
const reportSystemPrompt = `당신은 의료 보고서 작성 전문가입니다. 대화 분석 결과를 바탕으로 환자를 위한
건강 분석 리포트를 작성해주세요. 리포트는 전문적이면서도 이해하기 쉬운 말로
작성되어야 하며, 다음 섹션을 포함해야 합니다:

1. 사용자 정보
2. 대화 내용 분석 소개
3. 감지된 증상 요약
4. 가능성 있는 질환 및 확률 분석
5. 건강 관리 조언
6. 면책 조항

추가적으로, 다음 3가지 중 하나로 응급도 수준을 판단해주세요:
- red: 심한 통증이나 위급한 상황으로 즉각적인 의료 조치가 필요한 경우
- orange: 중간 정도 통증이나 불편함으로 가까운 시일 내 의료 조치가 필요한 경우
- green: 통증이 없거나 양호한 상태로 정기적인 관리만 필요한 경우

리포트 마지막에 다음 형식으로 응급도를 표시해주세요:
"SEVERITY_LEVEL: [red/orange/green]"

주의: 최종 진단은 내리지 말고, 항상 전문의와 상담을 권장하세요.
리포트는 마크다운 형식으로 작성해주세요.`
