package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/health-consult-server/internal/domain"
)

// ReportRepository handles report persistence. Reports carry their symptom,
// disease and suggestion lists as JSONB columns and are never updated after
// creation.
type ReportRepository struct {
	db  *pgxpool.Pool
	log *logrus.Logger
}

// NewReportRepository creates a new report repository.
func NewReportRepository(db *pgxpool.Pool, logger *logrus.Logger) *ReportRepository {
	return &ReportRepository{
		db:  db,
		log: logger,
	}
}

// Create inserts a new report.
func (r *ReportRepository) Create(ctx context.Context, report *domain.Report) error {
	symptoms, diseases, suggestions, err := marshalReportLists(report)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO reports (
			id, conversation_id, title, summary, content,
			detected_symptoms, diseases_with_probabilities, health_suggestions,
			severity_level, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10
		)`

	_, err = r.db.Exec(ctx, query,
		report.ID,
		report.ConversationID,
		report.Title,
		report.Summary,
		report.Content,
		symptoms,
		diseases,
		suggestions,
		report.SeverityLevel,
		report.CreatedAt,
	)

	if err != nil {
		r.log.WithFields(logrus.Fields{
			"report_id":       report.ID,
			"conversation_id": report.ConversationID,
			"error":           err,
		}).Error("Failed to create report")
		return fmt.Errorf("creating report: %w", err)
	}

	return nil
}

// GetByID retrieves a report by its ID.
func (r *ReportRepository) GetByID(ctx context.Context, id string) (*domain.Report, error) {
	query := `
		SELECT id, conversation_id, title, summary, content,
			   detected_symptoms, diseases_with_probabilities, health_suggestions,
			   severity_level, created_at
		FROM reports
		WHERE id = $1`

	report, err := scanReport(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("report not found: %w", domain.ErrNotFound)
		}
		r.log.WithFields(logrus.Fields{
			"report_id": id,
			"error":     err,
		}).Error("Failed to get report")
		return nil, fmt.Errorf("getting report: %w", err)
	}

	return report, nil
}

// ListByConversation returns all reports for a conversation, newest first.
func (r *ReportRepository) ListByConversation(ctx context.Context, conversationID string) ([]domain.Report, error) {
	query := `
		SELECT id, conversation_id, title, summary, content,
			   detected_symptoms, diseases_with_probabilities, health_suggestions,
			   severity_level, created_at
		FROM reports
		WHERE conversation_id = $1
		ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, conversationID)
	if err != nil {
		return nil, fmt.Errorf("listing reports: %w", err)
	}
	defer rows.Close()

	var reports []domain.Report
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning report row: %w", err)
		}
		reports = append(reports, *report)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating report rows: %w", err)
	}

	return reports, nil
}

// rowScanner abstracts pgx.Row and pgx.Rows for shared scanning.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanReport(row rowScanner) (*domain.Report, error) {
	var report domain.Report
	var symptoms, diseases, suggestions []byte

	err := row.Scan(
		&report.ID,
		&report.ConversationID,
		&report.Title,
		&report.Summary,
		&report.Content,
		&symptoms,
		&diseases,
		&suggestions,
		&report.SeverityLevel,
		&report.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(symptoms, &report.DetectedSymptoms); err != nil {
		return nil, fmt.Errorf("decoding detected symptoms: %w", err)
	}
	if err := json.Unmarshal(diseases, &report.Diseases); err != nil {
		return nil, fmt.Errorf("decoding diseases: %w", err)
	}
	if err := json.Unmarshal(suggestions, &report.Suggestions); err != nil {
		return nil, fmt.Errorf("decoding suggestions: %w", err)
	}

	return &report, nil
}

func marshalReportLists(report *domain.Report) (symptoms, diseases, suggestions []byte, err error) {
	if symptoms, err = json.Marshal(orEmpty(report.DetectedSymptoms)); err != nil {
		return nil, nil, nil, fmt.Errorf("encoding detected symptoms: %w", err)
	}
	if report.Diseases == nil {
		diseases, err = json.Marshal([]domain.DiseaseProbability{})
	} else {
		diseases, err = json.Marshal(report.Diseases)
	}
	if err != nil {
		return nil, nil, nil, fmt.Errorf("encoding diseases: %w", err)
	}
	if suggestions, err = json.Marshal(orEmpty(report.Suggestions)); err != nil {
		return nil, nil, nil, fmt.Errorf("encoding suggestions: %w", err)
	}
	return symptoms, diseases, suggestions, nil
}

func orEmpty(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}
