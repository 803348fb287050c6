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

// UserProfileRepository reads the user profile projection used by greeting
// and report personalization. User records themselves are owned by the
// surrounding CRUD layer.
type UserProfileRepository struct {
	db  *pgxpool.Pool
	log *logrus.Logger
}

// NewUserProfileRepository creates a new user profile repository.
func NewUserProfileRepository(db *pgxpool.Pool, logger *logrus.Logger) *UserProfileRepository {
	return &UserProfileRepository{
		db:  db,
		log: logger,
	}
}

// GetProfile retrieves a user's profile projection.
func (r *UserProfileRepository) GetProfile(ctx context.Context, userID string) (*domain.UserProfile, error) {
	query := `
		SELECT id, nickname, gender, age_range, usual_illness
		FROM users
		WHERE id = $1`

	var profile domain.UserProfile
	var usualIllness []byte

	err := r.db.QueryRow(ctx, query, userID).Scan(
		&profile.ID,
		&profile.Nickname,
		&profile.Gender,
		&profile.AgeRange,
		&usualIllness,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user not found: %w", domain.ErrNotFound)
		}
		r.log.WithFields(logrus.Fields{
			"user_id": userID,
			"error":   err,
		}).Error("Failed to get user profile")
		return nil, fmt.Errorf("getting user profile: %w", err)
	}

	if err := json.Unmarshal(usualIllness, &profile.UsualIllness); err != nil {
		return nil, fmt.Errorf("decoding usual illness list: %w", err)
	}

	return &profile, nil
}
