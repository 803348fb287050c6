package service

import (
	"context"
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru"
	"github.com/sirupsen/logrus"

	"github.com/health-consult-server/internal/domain"
	"github.com/health-consult-server/pkg/llm"
)

// assistantSystemPrompt frames every delegated reply.
const assistantSystemPrompt = `당신은 건강 상담을 전문으로 하는 AI 의료 어시스턴트입니다.
사용자의 건강 관련 질문에 친절하고 도움이 되는 정보를 제공하세요.
의학적 조언을 제공할 때는 항상 전문의와 상담을 권장하세요.
실제 진단이나 치료를 제시하지 않도록 주의하세요.`

const greetingSystemPrompt = `당신은 건강 상담을 전문으로 하는 친절한 AI 의료 어시스턴트입니다.
지금 첫인사를 건네며, 사용자의 프로필 정보를 참고해 개인화된 인사말을 제공하세요.
항상 공감과 존중의 태도로 대화를 시작하며, 의학적 정보가 필요하면 질문해도 좋다고 알려주세요.`

// Assistant produces chat replies and personalized greetings. Both go
// through the delegated chat collaborator with a rule-based fallback, so
// callers always get a response string, never an error.
type Assistant struct {
	logger    *logrus.Logger
	chat      llm.ChatModel
	greetings *lru.Cache
}

// NewAssistant creates an assistant. chat may be nil; greetings are cached
// keyed by the profile contents, so profile-identical greetings skip the
// provider round-trip and a profile edit misses the cache.
func NewAssistant(logger *logrus.Logger, chat llm.ChatModel, greetingCacheSize int) (*Assistant, error) {
	if greetingCacheSize <= 0 {
		greetingCacheSize = 256
	}
	cache, err := lru.New(greetingCacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating greeting cache: %w", err)
	}

	return &Assistant{
		logger:    logger,
		chat:      chat,
		greetings: cache,
	}, nil
}

// Reply generates a response to a user message. Delegated-service failures
// degrade to the keyword-based fallback silently.
func (a *Assistant) Reply(ctx context.Context, userMessage string) string {
	if a.chat != nil {
		response, err := a.chat.GenerateChat(ctx, []llm.Message{
			{Role: llm.RoleSystem, Content: assistantSystemPrompt},
			{Role: llm.RoleUser, Content: userMessage},
		})
		if err == nil {
			return response
		}
		a.logger.WithError(err).Warn("Delegated reply failed, using rule-based response")
	}
	return fallbackReply(userMessage)
}

// Greet generates a personalized first greeting from the user profile.
func (a *Assistant) Greet(ctx context.Context, user *domain.UserProfile) string {
	if user == nil {
		return fallbackGreeting(nil)
	}

	key := greetingCacheKey(user)
	if cached, ok := a.greetings.Get(key); ok {
		return cached.(string)
	}

	greeting := ""
	if a.chat != nil {
		response, err := a.chat.GenerateChat(ctx, []llm.Message{
			{Role: llm.RoleSystem, Content: greetingSystemPrompt},
			{Role: llm.RoleUser, Content: buildGreetingPrompt(user)},
		})
		if err == nil {
			greeting = response
		} else {
			a.logger.WithError(err).WithField("user_id", user.ID).
				Warn("Delegated greeting failed, using rule-based greeting")
		}
	}
	if greeting == "" {
		greeting = fallbackGreeting(user)
	}

	a.greetings.Add(key, greeting)
	return greeting
}

// greetingCacheKey covers every profile field the greeting is built from,
// so an edited profile gets a fresh greeting instead of a stale cached one.
func greetingCacheKey(user *domain.UserProfile) string {
	return strings.Join([]string{
		user.ID.String(),
		user.Nickname,
		user.Gender,
		user.AgeRange,
		strings.Join(user.UsualIllness, ","),
	}, "|")
}

// buildGreetingPrompt renders the profile into the greeting request.
func buildGreetingPrompt(user *domain.UserProfile) string {
	info := fmt.Sprintf("사용자 정보: 닉네임=%s, 성별=%s, 연령대=%s", user.Nickname, user.Gender, user.AgeRange)
	if len(user.UsualIllness) > 0 {
		info += fmt.Sprintf(", 평소 건강 이슈: %s", strings.Join(user.UsualIllness, ", "))
	}

	return fmt.Sprintf(`%s

위 정보를 바탕으로 친절하고 개인화된 첫 인사말을 작성해주세요.
사용자의 건강 상태에 공감하고, 어떻게 도울 수 있는지 알려주세요.`, info)
}

// Keyword buckets for the rule-based reply, checked in order.
var fallbackRules = []struct {
	keywords []string
	response string
}{
	{
		keywords: []string{"안녕", "반가워", "hello", "hi"},
		response: "안녕하세요! 오늘 어떻게 도와드릴까요? 건강에 관한 궁금한 점이 있으신가요?",
	},
	{
		keywords: []string{"감사", "고마워", "thanks"},
		response: "천만에요! 도움이 되어 기쁩니다. 다른 도움이 필요하시면 언제든지 말씀해주세요.",
	},
	{
		keywords: []string{"증상", "아파", "어디가", "통증", "열이", "두통", "어지러"},
		response: "증상에 대해 좀 더 자세히 말씀해 주시겠어요? 언제부터 시작되었나요? 다른 동반 증상은 없으신가요?",
	},
	{
		keywords: []string{"약", "처방", "복용", "먹어도", "부작용"},
		response: "약물에 관해서는 반드시 전문의와 상담하시는 것이 좋습니다. 의사의 처방과 지시에 따라 약을 복용하시는 것이 안전합니다.",
	},
	{
		keywords: []string{"식단", "음식", "영양", "식이"},
		response: "균형 잡힌 식단은 건강 유지에 매우 중요합니다. 다양한 채소와 과일, 적절한 단백질 섭취를 권장드립니다. 특정 질환이나 상태에 따른 식이요법은 전문가와 상담하시는 것이 좋습니다.",
	},
	{
		keywords: []string{"운동", "활동", "체력", "걷기", "헬스"},
		response: "규칙적인 운동은 신체 건강뿐만 아니라 정신 건강에도 매우 좋습니다. 하루 30분 정도의 가벼운 유산소 운동부터 시작해보세요. 본인의 건강 상태에 맞는 운동 강도를 선택하는 것이 중요합니다.",
	},
}

const fallbackDefaultReply = "말씀해주신 내용에 대해 더 자세히 알려주시면 더 정확한 정보와 도움을 드릴 수 있습니다. 건강 상태나 특정 증상에 대해 구체적으로 말씀해주세요."

// fallbackReply is the deterministic keyword-bucket response.
func fallbackReply(userMessage string) string {
	lower := strings.ToLower(userMessage)
	for _, rule := range fallbackRules {
		for _, keyword := range rule.keywords {
			if strings.Contains(lower, keyword) {
				return rule.response
			}
		}
	}
	return fallbackDefaultReply
}

// fallbackGreeting is the deterministic greeting built from the profile.
func fallbackGreeting(user *domain.UserProfile) string {
	base := "저는 건강 상담 AI 비서입니다. 건강에 관한 질문이나 상담이 필요하시면 언제든지 말씀해주세요."

	nameGreeting := "안녕하세요!"
	if user != nil && user.Nickname != "" {
		nameGreeting = fmt.Sprintf("안녕하세요, %s님!", user.Nickname)
	}

	healthGreeting := ""
	if user != nil && len(user.UsualIllness) > 0 {
		healthGreeting = fmt.Sprintf("\n평소 %s으로 불편함을 겪고 계시는 것으로 알고 있습니다. 오늘은 어떠신가요?", strings.Join(user.UsualIllness, ", "))
	}

	return fmt.Sprintf("%s%s\n\n%s", nameGreeting, healthGreeting, base)
}
