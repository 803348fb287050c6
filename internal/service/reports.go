package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/health-consult-server/internal/domain"
)

// ReportService creates and persists health reports for conversations.
// Reports are immutable once stored.
type ReportService struct {
	logger      *logrus.Logger
	analyzer    *Analyzer
	synthesizer *ReportSynthesizer
	reports     domain.ReportRepository
	convos      domain.ConversationRepository
	profiles    domain.UserProfileRepository
}

// NewReportService creates a report service.
func NewReportService(
	logger *logrus.Logger,
	analyzer *Analyzer,
	synthesizer *ReportSynthesizer,
	reports domain.ReportRepository,
	convos domain.ConversationRepository,
	profiles domain.UserProfileRepository,
) *ReportService {
	return &ReportService{
		logger:      logger,
		analyzer:    analyzer,
		synthesizer: synthesizer,
		reports:     reports,
		convos:      convos,
		profiles:    profiles,
	}
}

// CreateReport analyzes a conversation, synthesizes the narrative and
// stores the resulting report. The user profile is best-effort: a missing
// profile degrades the personalization, never the report.
func (s *ReportService) CreateReport(ctx context.Context, conversationID string) (*domain.Report, error) {
	conversation, err := s.convos.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("loading conversation: %w", err)
	}

	var profile *domain.UserProfile
	if s.profiles != nil {
		profile, err = s.profiles.GetProfile(ctx, conversation.UserID.String())
		if err != nil {
			s.logger.WithError(err).WithField("user_id", conversation.UserID).
				Warn("Could not load user profile for report")
			profile = nil
		}
	}

	analysis, err := s.analyzer.AnalyzeConversation(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("analyzing conversation: %w", err)
	}

	draft, err := s.synthesizer.Synthesize(ctx, conversationID, analysis, profile)
	if err != nil {
		return nil, fmt.Errorf("synthesizing report: %w", err)
	}

	now := time.Now().UTC()
	report := &domain.Report{
		ID:               uuid.New(),
		ConversationID:   conversation.ID,
		Title:            fmt.Sprintf("건강 분석 리포트 (%s)", now.Format("2006-01-02")),
		Summary:          summarize(analysis),
		Content:          draft.Content,
		DetectedSymptoms: analysis.Symptoms,
		Diseases:         analysis.Diseases,
		Suggestions:      analysis.Suggestions,
		SeverityLevel:    draft.Severity,
		CreatedAt:        now,
	}

	if err := s.reports.Create(ctx, report); err != nil {
		return nil, fmt.Errorf("storing report: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"report_id":       report.ID,
		"conversation_id": conversationID,
		"severity":        report.SeverityLevel,
		"diseases":        len(report.Diseases),
	}).Info("Health report created")

	return report, nil
}

// GetReport retrieves a stored report by ID.
func (s *ReportService) GetReport(ctx context.Context, id string) (*domain.Report, error) {
	return s.reports.GetByID(ctx, id)
}

// ListReports returns all reports for a conversation.
func (s *ReportService) ListReports(ctx context.Context, conversationID string) ([]domain.Report, error) {
	return s.reports.ListByConversation(ctx, conversationID)
}

// summarize derives the one-line report summary from the analysis.
func summarize(analysis *domain.AnalysisResult) string {
	if len(analysis.Diseases) == 0 {
		return "특이 소견이 감지되지 않았습니다."
	}
	top := analysis.Diseases[0]
	return fmt.Sprintf("가장 가능성 있는 질환: %s (%v%%)", top.Name, top.Probability)
}
