// Package audit provides persistent records of analysis runs.
// It stores which strategy produced each result so fallback rates
// and delegated-provider behavior can be reviewed later.
package audit

import (
	"context"
	"time"
)

// Strategy identifies how an analysis result was produced.
type Strategy string

const (
	StrategyDelegated     Strategy = "delegated"
	StrategyLocalFallback Strategy = "local_fallback"
	StrategyEmpty         Strategy = "empty"
)

// Record represents a single analysis run.
type Record struct {
	ID              int64     `json:"id,omitempty"`
	ConversationID  string    `json:"conversation_id"`
	Strategy        Strategy  `json:"strategy"`
	Provider        string    `json:"provider,omitempty"` // delegated provider name, empty for local runs
	SymptomCount    int       `json:"symptom_count"`
	DiseaseCount    int       `json:"disease_count"`
	SuggestionCount int       `json:"suggestion_count"`
	TopDisease      string    `json:"top_disease,omitempty"`
	TopProbability  float64   `json:"top_probability,omitempty"`
	DurationMS      int64     `json:"duration_ms"`
	CreatedAt       time.Time `json:"created_at"`
}

// Store defines the interface for audit record storage.
type Store interface {
	// Save appends an analysis record.
	Save(ctx context.Context, record *Record) error

	// List returns records ordered by most recent first, with pagination.
	List(ctx context.Context, limit, offset int) ([]*Record, error)

	// Count returns the total number of records.
	Count(ctx context.Context) (int64, error)

	// CountByStrategy returns the number of records per strategy.
	CountByStrategy(ctx context.Context) (map[Strategy]int64, error)

	// Close closes the store and releases resources.
	Close() error
}
