package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"collab-service/internal/models"
)

// WhiteboardRepository stores one snapshot per room.
type WhiteboardRepository interface {
	GetWhiteboard(ctx context.Context, roomID string) (models.WhiteboardDocument, error)
	EnsureWhiteboard(ctx context.Context, roomID string) error
	SaveWhiteboard(ctx context.Context, doc models.WhiteboardDocument) (models.WhiteboardDocument, error)
}

// WhiteboardRepo is a sqlx implementation of WhiteboardRepository.
type WhiteboardRepo struct {
	db *sqlx.DB
}

// NewWhiteboardRepo constructs a WhiteboardRepo.
func NewWhiteboardRepo(db *sqlx.DB) *WhiteboardRepo {
	return &WhiteboardRepo{db: db}
}

// GetWhiteboard loads the room's snapshot.
func (r *WhiteboardRepo) GetWhiteboard(ctx context.Context, roomID string) (models.WhiteboardDocument, error) {
	var doc models.WhiteboardDocument
	err := r.db.GetContext(ctx, &doc, `SELECT room_id, snapshot, updated_at, updated_by FROM whiteboards WHERE room_id=$1`, roomID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.WhiteboardDocument{}, ErrWhiteboardNotFound
	}
	return doc, err
}

// EnsureWhiteboard creates an empty document if none exists.
func (r *WhiteboardRepo) EnsureWhiteboard(ctx context.Context, roomID string) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO whiteboards (room_id) VALUES ($1) ON CONFLICT (room_id) DO NOTHING`, roomID)
	if IsUniqueViolation(err) {
		return nil
	}
	return err
}

// SaveWhiteboard upserts the full snapshot.
func (r *WhiteboardRepo) SaveWhiteboard(ctx context.Context, doc models.WhiteboardDocument) (models.WhiteboardDocument, error) {
	var out models.WhiteboardDocument
	err := r.db.GetContext(ctx, &out, `INSERT INTO whiteboards (room_id, snapshot, updated_at, updated_by)
        VALUES ($1, $2, NOW(), $3)
        ON CONFLICT (room_id) DO UPDATE SET snapshot=EXCLUDED.snapshot, updated_at=EXCLUDED.updated_at, updated_by=EXCLUDED.updated_by
        RETURNING room_id, snapshot, updated_at, updated_by`, doc.RoomID, doc.Snapshot, doc.UpdatedBy)
	return out, err
}
