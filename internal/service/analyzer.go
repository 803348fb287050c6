package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/health-consult-server/internal/audit"
	"github.com/health-consult-server/internal/domain"
	"github.com/health-consult-server/internal/knowledge"
	"github.com/health-consult-server/pkg/llm"
)

// Analyzer orchestrates conversation analysis. It tries the delegated
// text-analysis collaborator first and degrades exactly once, on any
// failure, to the local rule-based pipeline. There are no retries inside a
// single call and the caller never sees a delegated failure as an error.
type Analyzer struct {
	logger     *logrus.Logger
	kb         *knowledge.Base
	delegated  llm.TextAnalyzer
	cache      *llm.AnalysisCache
	diseases   domain.DiseaseRepository
	convos     domain.ConversationRepository
	extractor  *SymptomExtractor
	scorer     *DiseaseScorer
	aggregator *SuggestionAggregator
	audit      audit.Store
}

// NewAnalyzer creates the analysis orchestrator. delegated and cache may be
// nil: without a collaborator the local pipeline runs directly.
func NewAnalyzer(
	logger *logrus.Logger,
	kb *knowledge.Base,
	delegated llm.TextAnalyzer,
	cache *llm.AnalysisCache,
	diseases domain.DiseaseRepository,
	convos domain.ConversationRepository,
) *Analyzer {
	return &Analyzer{
		logger:     logger,
		kb:         kb,
		delegated:  delegated,
		cache:      cache,
		diseases:   diseases,
		convos:     convos,
		extractor:  NewSymptomExtractor(kb),
		scorer:     NewDiseaseScorer(kb),
		aggregator: NewSuggestionAggregator(kb),
	}
}

// WithAudit attaches an audit store. Records are written best-effort:
// a failing store never fails an analysis.
func (a *Analyzer) WithAudit(store audit.Store) *Analyzer {
	a.audit = store
	return a
}

// AnalyzeConversation analyzes the user-authored content of a conversation.
// A conversation with no messages yields an empty result carrying only
// generic suggestions; that is a valid outcome, not an error. Errors are
// returned only for storage failures, never for delegated-service failures.
func (a *Analyzer) AnalyzeConversation(ctx context.Context, conversationID string) (*domain.AnalysisResult, error) {
	messages, err := a.convos.ListMessages(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("loading conversation messages: %w", err)
	}

	started := time.Now()

	text := concatUserMessages(messages)
	if text == "" {
		a.logger.WithField("conversation_id", conversationID).Debug("No user messages to analyze")
		result := a.emptyResult()
		a.recordAudit(ctx, conversationID, audit.StrategyEmpty, result, started)
		return result, nil
	}

	result, err := a.analyzeDelegated(ctx, text)
	if err == nil {
		a.logger.WithFields(logrus.Fields{
			"conversation_id": conversationID,
			"symptoms":        len(result.Symptoms),
			"diseases":        len(result.Diseases),
		}).Info("Delegated analysis completed")
		a.recordAudit(ctx, conversationID, audit.StrategyDelegated, result, started)
		return result, nil
	}

	a.logger.WithError(err).WithField("conversation_id", conversationID).
		Warn("Delegated analysis failed, falling back to rule-based pipeline")

	result, err = a.analyzeLocal(ctx, text)
	if err != nil {
		return nil, err
	}

	a.recordAudit(ctx, conversationID, audit.StrategyLocalFallback, result, started)
	return result, nil
}

// recordAudit persists a record of the finished analysis. Failures are
// logged and swallowed.
func (a *Analyzer) recordAudit(ctx context.Context, conversationID string, strategy audit.Strategy, result *domain.AnalysisResult, started time.Time) {
	if a.audit == nil {
		return
	}

	rec := &audit.Record{
		ConversationID:  conversationID,
		Strategy:        strategy,
		SymptomCount:    len(result.Symptoms),
		DiseaseCount:    len(result.Diseases),
		SuggestionCount: len(result.Suggestions),
		DurationMS:      time.Since(started).Milliseconds(),
	}
	if strategy == audit.StrategyDelegated {
		if named, ok := a.delegated.(interface{ ProviderName() string }); ok {
			rec.Provider = named.ProviderName()
		}
	}
	if len(result.Diseases) > 0 {
		rec.TopDisease = result.Diseases[0].Name
		rec.TopProbability = result.Diseases[0].Probability
	}

	if err := a.audit.Save(ctx, rec); err != nil {
		a.logger.WithError(err).Warn("Failed to record analysis audit entry")
	}
}

// analyzeDelegated asks the external collaborator for a structured analysis
// and normalizes its payload into the shape the local pipeline produces.
func (a *Analyzer) analyzeDelegated(ctx context.Context, text string) (*domain.AnalysisResult, error) {
	if a.delegated == nil {
		return nil, fmt.Errorf("no text-analysis collaborator configured: %w", domain.ErrDelegatedAnalysis)
	}

	payload, err := a.lookupOrAnalyze(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrDelegatedAnalysis, err)
	}

	symptoms := payload.Symptoms
	if symptoms == nil {
		symptoms = []string{}
	}

	result := &domain.AnalysisResult{
		Symptoms:      symptoms,
		PainIntensity: payload.PainIntensity,
	}

	for _, candidate := range payload.PossibleDiseases {
		if candidate.Name == "" {
			continue
		}
		disease, err := a.diseases.FindOrCreate(ctx, candidate.Name, a.describeDisease(candidate.Name))
		if err != nil {
			return nil, fmt.Errorf("resolving disease %q: %w", candidate.Name, err)
		}
		result.Diseases = append(result.Diseases, domain.DiseaseProbability{
			ID:          disease.ID.String(),
			Name:        candidate.Name,
			Probability: candidate.Probability,
		})
	}

	result.Suggestions = a.aggregator.Backfill(payload.HealthSuggestions)
	return result, nil
}

// lookupOrAnalyze consults the response cache before calling the provider.
// Cache failures only cost the cache, never the analysis.
func (a *Analyzer) lookupOrAnalyze(ctx context.Context, text string) (*llm.AnalysisPayload, error) {
	if a.cache != nil {
		if payload, hit, err := a.cache.Get(ctx, text, llm.TaskMedicalAnalysis); err == nil && hit {
			a.logger.Debug("Analysis cache hit")
			return payload, nil
		} else if err != nil {
			a.logger.WithError(err).Debug("Analysis cache read failed")
		}
	}

	payload, err := a.delegated.AnalyzeText(ctx, text, llm.TaskMedicalAnalysis)
	if err != nil {
		return nil, err
	}

	if a.cache != nil {
		if err := a.cache.Set(ctx, text, llm.TaskMedicalAnalysis, "delegated", payload); err != nil {
			a.logger.WithError(err).Debug("Analysis cache write failed")
		}
	}
	return payload, nil
}

// analyzeLocal runs the deterministic rule-based pipeline:
// extraction, scoring, suggestion aggregation, disease rows on demand.
func (a *Analyzer) analyzeLocal(ctx context.Context, text string) (*domain.AnalysisResult, error) {
	extraction := a.extractor.Extract(text)

	if len(extraction.Symptoms) == 0 && len(extraction.MentionedDiseases) == 0 {
		return a.emptyResult(), nil
	}

	scored := a.scorer.Score(extraction.Symptoms, extraction.MentionedDiseases)

	ranked := make([]string, 0, len(scored))
	for _, s := range scored {
		ranked = append(ranked, s.Name)
	}

	result := &domain.AnalysisResult{
		Symptoms:    extraction.Symptoms,
		Suggestions: a.aggregator.Collect(ranked),
	}

	for _, s := range scored {
		disease, err := a.diseases.FindOrCreate(ctx, s.Name, a.describeDisease(s.Name))
		if err != nil {
			return nil, fmt.Errorf("resolving disease %q: %w", s.Name, err)
		}
		result.Diseases = append(result.Diseases, domain.DiseaseProbability{
			ID:          disease.ID.String(),
			Name:        s.Name,
			Probability: s.Probability,
		})
	}

	a.logger.WithFields(logrus.Fields{
		"symptoms": len(result.Symptoms),
		"diseases": len(result.Diseases),
	}).Info("Rule-based analysis completed")

	return result, nil
}

// describeDisease synthesizes a description for an auto-created disease row
// from up to three known related symptoms.
func (a *Analyzer) describeDisease(name string) string {
	symptoms := a.kb.SymptomsFor(name)
	if len(symptoms) > 3 {
		symptoms = symptoms[:3]
	}
	related := "다양한 증상"
	if len(symptoms) > 0 {
		related = strings.Join(symptoms, ", ")
	}
	return fmt.Sprintf("%s는 일반적으로 %s 등의 증상과 연관됩니다.", name, related)
}

// emptyResult is the well-formed "no findings" outcome.
func (a *Analyzer) emptyResult() *domain.AnalysisResult {
	return &domain.AnalysisResult{
		Symptoms:    []string{},
		Diseases:    []domain.DiseaseProbability{},
		Suggestions: a.aggregator.GenericSuggestions(),
	}
}

// concatUserMessages joins user-authored message bodies in creation order.
// Assistant messages are excluded from the analysis input.
func concatUserMessages(messages []domain.ConversationMessage) string {
	var b strings.Builder
	for _, msg := range messages {
		if msg.Sender == domain.SenderUser {
			b.WriteString(msg.Content)
			b.WriteString("\n")
		}
	}
	return strings.TrimSpace(b.String())
}
