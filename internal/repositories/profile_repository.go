package repositories

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/jmoiron/sqlx"

	"collab-service/internal/models"
)

// ProfileRepository reads user profiles owned by the profile service.
type ProfileRepository interface {
	GetProfile(ctx context.Context, userID string) (models.UserSummary, error)
	SearchProfiles(ctx context.Context, query, excludeID string, limit int) ([]models.UserSummary, error)
}

// ProfileRepo is a sqlx implementation of ProfileRepository.
type ProfileRepo struct {
	db *sqlx.DB
}

// NewProfileRepo constructs a ProfileRepo.
func NewProfileRepo(db *sqlx.DB) *ProfileRepo {
	return &ProfileRepo{db: db}
}

// GetProfile fetches one profile.
func (r *ProfileRepo) GetProfile(ctx context.Context, userID string) (models.UserSummary, error) {
	var p models.UserSummary
	err := r.db.GetContext(ctx, &p, `SELECT id, username, display_name, avatar_url FROM profiles WHERE id=$1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.UserSummary{}, ErrProfileNotFound
	}
	return p, err
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// SearchProfiles matches username or display name case-insensitively.
func (r *ProfileRepo) SearchProfiles(ctx context.Context, query, excludeID string, limit int) ([]models.UserSummary, error) {
	pattern := "%" + likeEscaper.Replace(query) + "%"
	var out []models.UserSummary
	err := r.db.SelectContext(ctx, &out, `SELECT id, username, display_name, avatar_url FROM profiles
        WHERE (username ILIKE $1 OR display_name ILIKE $1) AND id <> $2
        ORDER BY username
        LIMIT $3`, pattern, excludeID, limit)
	return out, err
}
