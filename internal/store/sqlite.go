// Package store provides an embedded SQLite implementation of the domain
// repositories for single-node and development deployments. The Postgres
// deployment uses the pgx repositories instead.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/health-consult-server/internal/domain"
)

// SQLiteStore implements the domain repository interfaces using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStore opens (or creates) the store at dbPath and ensures the
// schema exists.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// createSchema creates the database tables and indexes.
func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		nickname TEXT NOT NULL DEFAULT '',
		gender TEXT NOT NULL DEFAULT '',
		age_range TEXT NOT NULL DEFAULT '',
		usual_illness TEXT NOT NULL DEFAULT '[]',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS conversations (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id),
		title TEXT NOT NULL DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS conversation_messages (
		id TEXT PRIMARY KEY,
		conversation_id TEXT NOT NULL REFERENCES conversations(id),
		sender TEXT NOT NULL CHECK (sender IN ('user', 'assistant')),
		content TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_messages_conversation_created
		ON conversation_messages (conversation_id, created_at);

	CREATE TABLE IF NOT EXISTS diseases (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		description TEXT NOT NULL DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS reports (
		id TEXT PRIMARY KEY,
		conversation_id TEXT NOT NULL REFERENCES conversations(id),
		title TEXT NOT NULL,
		summary TEXT NOT NULL DEFAULT '',
		content TEXT NOT NULL,
		detected_symptoms TEXT NOT NULL DEFAULT '[]',
		diseases_with_probabilities TEXT NOT NULL DEFAULT '[]',
		health_suggestions TEXT NOT NULL DEFAULT '[]',
		severity_level TEXT NOT NULL CHECK (severity_level IN ('red', 'orange', 'green')),
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_reports_conversation
		ON reports (conversation_id, created_at DESC);
	`

	_, err := db.Exec(schema)
	return err
}

// FindByName retrieves a disease by exact name.
func (s *SQLiteStore) FindByName(ctx context.Context, name string) (*domain.Disease, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, name, description, created_at FROM diseases WHERE name = ?", name)

	disease, err := scanDisease(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("disease not found: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("getting disease: %w", err)
	}
	return disease, nil
}

// FindOrCreate returns the disease with the given name, creating the row if
// it does not exist yet. INSERT OR IGNORE plus re-read keeps a single row
// per name under concurrent creation.
func (s *SQLiteStore) FindOrCreate(ctx context.Context, name, description string) (*domain.Disease, error) {
	disease, err := s.FindByName(ctx, name)
	if err == nil {
		return disease, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO diseases (id, name, description, created_at)
		VALUES (?, ?, ?, ?)
	`, uuid.New().String(), name, description, time.Now())
	if err != nil {
		return nil, fmt.Errorf("creating disease: %w", err)
	}

	return s.FindByName(ctx, name)
}

// GetConversation retrieves a conversation by ID.
func (s *SQLiteStore) GetConversation(ctx context.Context, id string) (*domain.Conversation, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, user_id, title, created_at FROM conversations WHERE id = ?", id)

	var conv domain.Conversation
	var convID, userID string
	err := row.Scan(&convID, &userID, &conv.Title, &conv.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("conversation not found: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("getting conversation: %w", err)
	}

	if conv.ID, err = uuid.Parse(convID); err != nil {
		return nil, fmt.Errorf("parsing conversation ID: %w", err)
	}
	if conv.UserID, err = uuid.Parse(userID); err != nil {
		return nil, fmt.Errorf("parsing user ID: %w", err)
	}
	return &conv, nil
}

// ListMessages returns the messages of a conversation in creation order.
func (s *SQLiteStore) ListMessages(ctx context.Context, conversationID string) ([]domain.ConversationMessage, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, conversation_id, sender, content, created_at
		FROM conversation_messages
		WHERE conversation_id = ?
		ORDER BY created_at, id
	`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("listing messages: %w", err)
	}
	defer rows.Close()

	var messages []domain.ConversationMessage
	for rows.Next() {
		var msg domain.ConversationMessage
		var msgID, convID, sender string
		if err := rows.Scan(&msgID, &convID, &sender, &msg.Content, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning message row: %w", err)
		}
		if msg.ID, err = uuid.Parse(msgID); err != nil {
			return nil, fmt.Errorf("parsing message ID: %w", err)
		}
		if msg.ConversationID, err = uuid.Parse(convID); err != nil {
			return nil, fmt.Errorf("parsing conversation ID: %w", err)
		}
		msg.Sender = domain.Sender(sender)
		messages = append(messages, msg)
	}

	return messages, rows.Err()
}

// AddMessage appends a message to a conversation.
func (s *SQLiteStore) AddMessage(ctx context.Context, msg *domain.ConversationMessage) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO conversation_messages (id, conversation_id, sender, content, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, msg.ID.String(), msg.ConversationID.String(), string(msg.Sender), msg.Content, msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("adding message: %w", err)
	}
	return nil
}

// Create stores a generated report.
func (s *SQLiteStore) Create(ctx context.Context, report *domain.Report) error {
	symptoms, diseases, suggestions, err := marshalReportLists(report)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO reports (
			id, conversation_id, title, summary, content,
			detected_symptoms, diseases_with_probabilities, health_suggestions,
			severity_level, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		report.ID.String(), report.ConversationID.String(),
		report.Title, report.Summary, report.Content,
		symptoms, diseases, suggestions,
		string(report.SeverityLevel), report.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating report: %w", err)
	}
	return nil
}

// GetByID retrieves a report by ID.
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (*domain.Report, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, conversation_id, title, summary, content,
			detected_symptoms, diseases_with_probabilities, health_suggestions,
			severity_level, created_at
		FROM reports WHERE id = ?
	`, id)

	report, err := scanReport(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("report not found: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("getting report: %w", err)
	}
	return report, nil
}

// ListByConversation returns all reports for a conversation, newest first.
func (s *SQLiteStore) ListByConversation(ctx context.Context, conversationID string) ([]domain.Report, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, conversation_id, title, summary, content,
			detected_symptoms, diseases_with_probabilities, health_suggestions,
			severity_level, created_at
		FROM reports
		WHERE conversation_id = ?
		ORDER BY created_at DESC
	`, conversationID)
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

	return reports, rows.Err()
}

// GetProfile reads the profile projection used for greetings and reports.
func (s *SQLiteStore) GetProfile(ctx context.Context, userID string) (*domain.UserProfile, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, nickname, gender, age_range, usual_illness FROM users WHERE id = ?", userID)

	var profile domain.UserProfile
	var id, usualIllness string
	err := row.Scan(&id, &profile.Nickname, &profile.Gender, &profile.AgeRange, &usualIllness)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user not found: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("getting user profile: %w", err)
	}

	if profile.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("parsing user ID: %w", err)
	}
	if err := json.Unmarshal([]byte(usualIllness), &profile.UsualIllness); err != nil {
		return nil, fmt.Errorf("decoding usual illness: %w", err)
	}
	return &profile, nil
}

// CreateUser inserts a user row. Intended for the embedded deployment where
// no external CRUD service owns the users table.
func (s *SQLiteStore) CreateUser(ctx context.Context, profile *domain.UserProfile) error {
	usualIllness, err := json.Marshal(orEmpty(profile.UsualIllness))
	if err != nil {
		return fmt.Errorf("encoding usual illness: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO users (id, nickname, gender, age_range, usual_illness, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, profile.ID.String(), profile.Nickname, profile.Gender, profile.AgeRange, string(usualIllness), time.Now())
	if err != nil {
		return fmt.Errorf("creating user: %w", err)
	}
	return nil
}

// CreateConversation inserts a conversation row.
func (s *SQLiteStore) CreateConversation(ctx context.Context, conv *domain.Conversation) error {
	if conv.CreatedAt.IsZero() {
		conv.CreatedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO conversations (id, user_id, title, created_at)
		VALUES (?, ?, ?, ?)
	`, conv.ID.String(), conv.UserID.String(), conv.Title, conv.CreatedAt)
	if err != nil {
		return fmt.Errorf("creating conversation: %w", err)
	}
	return nil
}

// Close closes the store and releases resources.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// scanner is an interface for sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanDisease(s scanner) (*domain.Disease, error) {
	var disease domain.Disease
	var id string
	if err := s.Scan(&id, &disease.Name, &disease.Description, &disease.CreatedAt); err != nil {
		return nil, err
	}

	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("parsing disease ID: %w", err)
	}
	disease.ID = parsed
	return &disease, nil
}

func scanReport(s scanner) (*domain.Report, error) {
	var report domain.Report
	var id, convID, severity string
	var symptoms, diseases, suggestions string

	err := s.Scan(
		&id, &convID, &report.Title, &report.Summary, &report.Content,
		&symptoms, &diseases, &suggestions,
		&severity, &report.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if report.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("parsing report ID: %w", err)
	}
	if report.ConversationID, err = uuid.Parse(convID); err != nil {
		return nil, fmt.Errorf("parsing conversation ID: %w", err)
	}
	report.SeverityLevel = domain.SeverityLevel(severity)

	if err := json.Unmarshal([]byte(symptoms), &report.DetectedSymptoms); err != nil {
		return nil, fmt.Errorf("decoding detected symptoms: %w", err)
	}
	if err := json.Unmarshal([]byte(diseases), &report.Diseases); err != nil {
		return nil, fmt.Errorf("decoding diseases: %w", err)
	}
	if err := json.Unmarshal([]byte(suggestions), &report.Suggestions); err != nil {
		return nil, fmt.Errorf("decoding suggestions: %w", err)
	}
	return &report, nil
}

// marshalReportLists encodes the report's list fields as JSON text. Nil
// slices encode as empty arrays.
func marshalReportLists(report *domain.Report) (symptoms, diseases, suggestions string, err error) {
	b, err := json.Marshal(orEmpty(report.DetectedSymptoms))
	if err != nil {
		return "", "", "", fmt.Errorf("encoding detected symptoms: %w", err)
	}
	symptoms = string(b)

	d := report.Diseases
	if d == nil {
		d = []domain.DiseaseProbability{}
	}
	b, err = json.Marshal(d)
	if err != nil {
		return "", "", "", fmt.Errorf("encoding diseases: %w", err)
	}
	diseases = string(b)

	b, err = json.Marshal(orEmpty(report.Suggestions))
	if err != nil {
		return "", "", "", fmt.Errorf("encoding suggestions: %w", err)
	}
	suggestions = string(b)
	return symptoms, diseases, suggestions, nil
}

func orEmpty(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
