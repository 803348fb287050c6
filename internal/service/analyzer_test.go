package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/health-consult-server/internal/audit"
	"github.com/health-consult-server/internal/domain"
	"github.com/health-consult-server/internal/knowledge"
	"github.com/health-consult-server/pkg/llm"
)

type fakeDiseaseRepo struct {
	created map[string]*domain.Disease
	err     error
}

func newFakeDiseaseRepo() *fakeDiseaseRepo {
	return &fakeDiseaseRepo{created: make(map[string]*domain.Disease)}
}

func (f *fakeDiseaseRepo) FindByName(_ context.Context, name string) (*domain.Disease, error) {
	if d, ok := f.created[name]; ok {
		return d, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeDiseaseRepo) FindOrCreate(_ context.Context, name, description string) (*domain.Disease, error) {
	if f.err != nil {
		return nil, f.err
	}
	if d, ok := f.created[name]; ok {
		return d, nil
	}
	d := &domain.Disease{ID: uuid.New(), Name: name, Description: description}
	f.created[name] = d
	return d, nil
}

type fakeConvoRepo struct {
	conversation *domain.Conversation
	messages     []domain.ConversationMessage
	err          error
}

func (f *fakeConvoRepo) GetConversation(_ context.Context, _ string) (*domain.Conversation, error) {
	if f.conversation == nil {
		return nil, domain.ErrNotFound
	}
	return f.conversation, nil
}

func (f *fakeConvoRepo) ListMessages(_ context.Context, _ string) ([]domain.ConversationMessage, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.messages, nil
}

func (f *fakeConvoRepo) AddMessage(_ context.Context, msg *domain.ConversationMessage) error {
	f.messages = append(f.messages, *msg)
	return nil
}

type stubTextAnalyzer struct {
	payload *llm.AnalysisPayload
	err     error
	calls   int
}

func (s *stubTextAnalyzer) AnalyzeText(_ context.Context, _, _ string) (*llm.AnalysisPayload, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.payload, nil
}

func (s *stubTextAnalyzer) ProviderName() string { return "stub" }

type memAuditStore struct {
	records []*audit.Record
}

func (m *memAuditStore) Save(_ context.Context, rec *audit.Record) error {
	m.records = append(m.records, rec)
	return nil
}

func (m *memAuditStore) List(_ context.Context, _, _ int) ([]*audit.Record, error) {
	return m.records, nil
}

func (m *memAuditStore) Count(_ context.Context) (int64, error) {
	return int64(len(m.records)), nil
}

func (m *memAuditStore) CountByStrategy(_ context.Context) (map[audit.Strategy]int64, error) {
	counts := make(map[audit.Strategy]int64)
	for _, r := range m.records {
		counts[r.Strategy]++
	}
	return counts, nil
}

func (m *memAuditStore) Close() error { return nil }

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func userMessage(content string) domain.ConversationMessage {
	return domain.ConversationMessage{
		ID:      uuid.New(),
		Sender:  domain.SenderUser,
		Content: content,
	}
}

func assistantMessage(content string) domain.ConversationMessage {
	return domain.ConversationMessage{
		ID:      uuid.New(),
		Sender:  domain.SenderAssistant,
		Content: content,
	}
}

func TestAnalyzer_EmptyConversation(t *testing.T) {
	convos := &fakeConvoRepo{}
	analyzer := NewAnalyzer(testLogger(), knowledge.Default(), nil, nil, newFakeDiseaseRepo(), convos)

	result, err := analyzer.AnalyzeConversation(context.Background(), uuid.NewString())
	require.NoError(t, err)

	assert.Empty(t, result.Symptoms)
	assert.Empty(t, result.Diseases)
	assert.Len(t, result.Suggestions, 5)
	assert.Nil(t, result.PainIntensity)
}

func TestAnalyzer_AssistantMessagesExcluded(t *testing.T) {
	convos := &fakeConvoRepo{messages: []domain.ConversationMessage{
		assistantMessage("두통이 있으신가요?"),
	}}
	analyzer := NewAnalyzer(testLogger(), knowledge.Default(), nil, nil, newFakeDiseaseRepo(), convos)

	result, err := analyzer.AnalyzeConversation(context.Background(), uuid.NewString())
	require.NoError(t, err)

	// Only the assistant mentioned a symptom, so nothing is detected.
	assert.Empty(t, result.Symptoms)
	assert.Empty(t, result.Diseases)
}

func TestAnalyzer_LocalPipeline(t *testing.T) {
	convos := &fakeConvoRepo{messages: []domain.ConversationMessage{
		userMessage("두통이 심해요"),
	}}
	diseases := newFakeDiseaseRepo()
	analyzer := NewAnalyzer(testLogger(), knowledge.Default(), nil, nil, diseases, convos)

	result, err := analyzer.AnalyzeConversation(context.Background(), uuid.NewString())
	require.NoError(t, err)

	assert.Equal(t, []string{"두통"}, result.Symptoms)
	require.Len(t, result.Diseases, 3)
	assert.Equal(t, "긴장성 두통", result.Diseases[0].Name)
	assert.NotEmpty(t, result.Diseases[0].ID)
	assert.Len(t, result.Suggestions, 5)

	// Disease rows were created on demand with a synthesized description.
	require.Contains(t, diseases.created, "편두통")
	assert.Contains(t, diseases.created["편두통"].Description, "편두통")
}

func TestAnalyzer_DelegatedSuccess(t *testing.T) {
	pain := 8.0
	delegated := &stubTextAnalyzer{payload: &llm.AnalysisPayload{
		Symptoms:          []string{"두통", "어지러움"},
		PossibleDiseases:  []llm.PossibleDisease{{Name: "편두통", Probability: 85}},
		HealthSuggestions: []string{"물을 많이 드세요"},
		PainIntensity:     &pain,
	}}
	convos := &fakeConvoRepo{messages: []domain.ConversationMessage{
		userMessage("머리가 아프고 어지러워요"),
	}}
	diseases := newFakeDiseaseRepo()
	analyzer := NewAnalyzer(testLogger(), knowledge.Default(), delegated, nil, diseases, convos)

	result, err := analyzer.AnalyzeConversation(context.Background(), uuid.NewString())
	require.NoError(t, err)

	assert.Equal(t, []string{"두통", "어지러움"}, result.Symptoms)
	require.Len(t, result.Diseases, 1)
	assert.Equal(t, "편두통", result.Diseases[0].Name)
	assert.Equal(t, 85.0, result.Diseases[0].Probability)
	require.NotNil(t, result.PainIntensity)
	assert.Equal(t, 8.0, *result.PainIntensity)

	// Sparse delegated suggestions are padded with generic advice.
	assert.GreaterOrEqual(t, len(result.Suggestions), 3)
	assert.Equal(t, "물을 많이 드세요", result.Suggestions[0])
	assert.Equal(t, 1, delegated.calls)
}

func TestAnalyzer_DelegatedFailureFallsBack(t *testing.T) {
	delegated := &stubTextAnalyzer{err: errors.New("provider unavailable")}
	convos := &fakeConvoRepo{messages: []domain.ConversationMessage{
		userMessage("의사가 감기라고 했어요"),
	}}
	analyzer := NewAnalyzer(testLogger(), knowledge.Default(), delegated, nil, newFakeDiseaseRepo(), convos)

	result, err := analyzer.AnalyzeConversation(context.Background(), uuid.NewString())
	require.NoError(t, err, "delegated failure must never surface to the caller")

	// The local pipeline back-fills symptoms from the mentioned disease
	// and ranks it on the direct-mention branch.
	assert.Equal(t, []string{"열", "기침", "발열", "콧물"}, result.Symptoms)
	require.NotEmpty(t, result.Diseases)
	assert.Equal(t, "감기", result.Diseases[0].Name)
	assert.GreaterOrEqual(t, result.Diseases[0].Probability, 80.0)
	assert.LessOrEqual(t, result.Diseases[0].Probability, 95.0)
}

func TestAnalyzer_DelegatedNilSymptomsNormalized(t *testing.T) {
	delegated := &stubTextAnalyzer{payload: &llm.AnalysisPayload{
		PossibleDiseases: []llm.PossibleDisease{{Name: "편두통", Probability: 70}},
	}}
	convos := &fakeConvoRepo{messages: []domain.ConversationMessage{
		userMessage("머리가 아파요"),
	}}
	analyzer := NewAnalyzer(testLogger(), knowledge.Default(), delegated, nil, newFakeDiseaseRepo(), convos)

	result, err := analyzer.AnalyzeConversation(context.Background(), uuid.NewString())
	require.NoError(t, err)

	// A payload without a symptoms list still yields [], not null, so the
	// result shape matches the local and empty strategies.
	require.NotNil(t, result.Symptoms)
	assert.Empty(t, result.Symptoms)
}

func TestAnalyzer_DelegatedSkipsBlankDiseaseNames(t *testing.T) {
	delegated := &stubTextAnalyzer{payload: &llm.AnalysisPayload{
		Symptoms:         []string{"두통"},
		PossibleDiseases: []llm.PossibleDisease{{Name: "", Probability: 40}, {Name: "편두통", Probability: 70}},
	}}
	convos := &fakeConvoRepo{messages: []domain.ConversationMessage{
		userMessage("머리가 아파요"),
	}}
	analyzer := NewAnalyzer(testLogger(), knowledge.Default(), delegated, nil, newFakeDiseaseRepo(), convos)

	result, err := analyzer.AnalyzeConversation(context.Background(), uuid.NewString())
	require.NoError(t, err)
	require.Len(t, result.Diseases, 1)
	assert.Equal(t, "편두통", result.Diseases[0].Name)
}

func TestAnalyzer_StorageErrorSurfaces(t *testing.T) {
	convos := &fakeConvoRepo{err: errors.New("connection refused")}
	analyzer := NewAnalyzer(testLogger(), knowledge.Default(), nil, nil, newFakeDiseaseRepo(), convos)

	_, err := analyzer.AnalyzeConversation(context.Background(), uuid.NewString())
	assert.Error(t, err)
}

func TestAnalyzer_AuditTrail(t *testing.T) {
	tests := []struct {
		name     string
		messages []domain.ConversationMessage
		analyzer llm.TextAnalyzer
		want     audit.Strategy
	}{
		{
			name:     "Empty conversation",
			messages: nil,
			want:     audit.StrategyEmpty,
		},
		{
			name:     "Delegated run",
			messages: []domain.ConversationMessage{userMessage("두통이 심해요")},
			analyzer: &stubTextAnalyzer{payload: &llm.AnalysisPayload{Symptoms: []string{"두통"}}},
			want:     audit.StrategyDelegated,
		},
		{
			name:     "Local fallback run",
			messages: []domain.ConversationMessage{userMessage("두통이 심해요")},
			analyzer: &stubTextAnalyzer{err: errors.New("boom")},
			want:     audit.StrategyLocalFallback,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &memAuditStore{}
			convos := &fakeConvoRepo{messages: tt.messages}
			analyzer := NewAnalyzer(testLogger(), knowledge.Default(), tt.analyzer, nil, newFakeDiseaseRepo(), convos).
				WithAudit(store)

			_, err := analyzer.AnalyzeConversation(context.Background(), uuid.NewString())
			require.NoError(t, err)

			require.Len(t, store.records, 1)
			assert.Equal(t, tt.want, store.records[0].Strategy)
			if tt.want == audit.StrategyDelegated {
				assert.Equal(t, "stub", store.records[0].Provider)
			}
		})
	}
}
