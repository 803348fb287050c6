package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// PostgresStore implements the Store interface using PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL audit store.
// It expects the analysis_audit table to already exist (created via migrations).
func NewPostgresStore(db *sql.DB) (*PostgresStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// NewPostgresStoreFromURL creates a new PostgreSQL audit store from a connection URL.
func NewPostgresStoreFromURL(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	store, err := NewPostgresStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

// Save appends an analysis record.
func (s *PostgresStore) Save(ctx context.Context, record *Record) error {
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO analysis_audit (
			conversation_id, strategy, provider,
			symptom_count, disease_count, suggestion_count,
			top_disease, top_probability, duration_ms, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`

	err := s.db.QueryRowContext(ctx, query,
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
	).Scan(&record.ID)
	if err != nil {
		return fmt.Errorf("failed to insert record: %w", err)
	}

	return nil
}

// List returns records ordered by most recent first, with pagination.
func (s *PostgresStore) List(ctx context.Context, limit, offset int) ([]*Record, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, conversation_id, strategy, provider,
			symptom_count, disease_count, suggestion_count,
			top_disease, top_probability, duration_ms, created_at
		FROM analysis_audit
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2
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
func (s *PostgresStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM analysis_audit").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return count, nil
}

// CountByStrategy returns the number of records per strategy.
func (s *PostgresStore) CountByStrategy(ctx context.Context) (map[Strategy]int64, error) {
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
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
