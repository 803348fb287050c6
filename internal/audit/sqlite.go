package audit

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements the Store interface using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStore creates a new SQLite audit store.
// It creates the database file and schema if they don't exist.
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

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// scanner is an interface for sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

// scanRecord scans a row into a Record struct.
func scanRecord(s scanner) (*Record, error) {
	rec := &Record{}
	var strategy string

	err := s.Scan(
		&rec.ID, &rec.ConversationID, &strategy, &rec.Provider,
		&rec.SymptomCount, &rec.DiseaseCount, &rec.SuggestionCount,
		&rec.TopDisease, &rec.TopProbability, &rec.DurationMS, &rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	rec.Strategy = Strategy(strategy)
	return rec, nil
}

// createSchema creates the database tables and indexes.
func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS analysis_audit (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		conversation_id TEXT NOT NULL,
		strategy TEXT NOT NULL,
		provider TEXT DEFAULT '',
		symptom_count INTEGER NOT NULL DEFAULT 0,
		disease_count INTEGER NOT NULL DEFAULT 0,
		suggestion_count INTEGER NOT NULL DEFAULT 0,
		top_disease TEXT DEFAULT '',
		top_probability REAL NOT NULL DEFAULT 0,
		duration_ms INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_audit_conversation ON analysis_audit(conversation_id);
	CREATE INDEX IF NOT EXISTS idx_audit_strategy ON analysis_audit(strategy);
	CREATE INDEX IF NOT EXISTS idx_audit_created_at ON analysis_audit(created_at);
	`

	_, err := db.Exec(schema)
	return err
}

// Save appends an analysis record.
func (s *SQLiteStore) Save(ctx context.Context, record *Record) error {
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO analysis_audit (
			conversation_id, strategy, provider,
			symptom_count, disease_count, suggestion_count,
			top_disease, top_probability, duration_ms, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		record.ConversationID,
		string(record.Strategy),
		record.Provider,
		record.SymptomCount,
		record.DiseaseCount,
		record.SuggestionCount,
		record.TopDisease,
		record.TopProbability,
		record.DurationMS,
		record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert record: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get record ID: %w", err)
	}
	record.ID = id

	return nil
}

// List returns records ordered by most recent first, with pagination.
func (s *SQLiteStore) List(ctx context.Context, limit, offset int) ([]*Record, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, conversation_id, strategy, provider,
			symptom_count, disease_count, suggestion_count,
			top_disease, top_probability, duration_ms, created_at
		FROM analysis_audit
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

// Count returns the total number of records.
func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM analysis_audit").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return count, nil
}

// CountByStrategy returns the number of records per strategy.
func (s *SQLiteStore) CountByStrategy(ctx context.Context) (map[Strategy]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT strategy, COUNT(*) FROM analysis_audit GROUP BY strategy")
	if err != nil {
		return nil, fmt.Errorf("failed to count by strategy: %w", err)
	}
	defer rows.Close()

	counts := make(map[Strategy]int64)
	for rows.Next() {
		var strategy string
		var count int64
		if err := rows.Scan(&strategy, &count); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		counts[Strategy(strategy)] = count
	}

	return counts, rows.Err()
}

// Close closes the store and releases resources.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
