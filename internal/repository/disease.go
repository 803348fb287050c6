// Package repository contains the Postgres persistence layer for diseases,
// conversations and reports.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/health-consult-server/internal/domain"
)

// DiseaseRepository handles disease persistence. Disease names are unique;
// rows are created lazily the first time an analysis references them.
type DiseaseRepository struct {
	db  *pgxpool.Pool
	log *logrus.Logger
}

// NewDiseaseRepository creates a new disease repository.
func NewDiseaseRepository(db *pgxpool.Pool, logger *logrus.Logger) *DiseaseRepository {
	return &DiseaseRepository{
		db:  db,
		log: logger,
	}
}

// FindByName retrieves a disease by exact name match.
func (r *DiseaseRepository) FindByName(ctx context.Context, name string) (*domain.Disease, error) {
	query := `
		SELECT id, name, description, created_at
		FROM diseases
		WHERE name = $1`

	var disease domain.Disease
	err := r.db.QueryRow(ctx, query, name).Scan(
		&disease.ID,
		&disease.Name,
		&disease.Description,
		&disease.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("disease not found: %w", domain.ErrNotFound)
		}
		r.log.WithFields(logrus.Fields{
			"name":  name,
			"error": err,
		}).Error("Failed to get disease by name")
		return nil, fmt.Errorf("getting disease by name: %w", err)
	}

	return &disease, nil
}

// FindOrCreate returns the disease row for a name, creating it if absent.
// The insert uses ON CONFLICT DO NOTHING followed by a re-read, so
// concurrent analyses referencing the same new disease agree on one row.
func (r *DiseaseRepository) FindOrCreate(ctx context.Context, name, description string) (*domain.Disease, error) {
	disease, err := r.FindByName(ctx, name)
	if err == nil {
		return disease, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	insert := `
		INSERT INTO diseases (id, name, description, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (name) DO NOTHING`

	id := uuid.New()
	if _, err := r.db.Exec(ctx, insert, id, name, description, time.Now().UTC()); err != nil {
		r.log.WithFields(logrus.Fields{
			"name":  name,
			"error": err,
		}).Error("Failed to create disease")
		return nil, fmt.Errorf("creating disease: %w", err)
	}

	// Re-read unconditionally: on conflict the winning row belongs to a
	// concurrent caller and carries a different ID.
	disease, err = r.FindByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("re-reading disease after create: %w", err)
	}

	r.log.WithFields(logrus.Fields{
		"disease_id": disease.ID,
		"name":       name,
	}).Info("Disease resolved")

	return disease, nil
}
