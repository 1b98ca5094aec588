package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"collab-service/internal/models"
)

// MessageRepository defines interactions for chat messages.
type MessageRepository interface {
	CreateMessage(ctx context.Context, messageID, roomID, authorID, content string) (models.Message, error)
	GetMessage(ctx context.Context, messageID string) (models.Message, error)
	ListMessages(ctx context.Context, roomID string, since time.Time, limit int) ([]models.Message, error)
	ListMessagesAfter(ctx context.Context, roomID string, createdAt time.Time, afterID string, limit int) ([]models.Message, error)
	UpdateContent(ctx context.Context, messageID, authorID, content string) (models.Message, error)
	MarkDeletedForEveryone(ctx context.Context, messageID, authorID string) (models.Message, error)
	MarkDeletedFor(ctx context.Context, messageID, userID string) (models.Message, error)
}

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

const messageColumns = `id, room_id, author_id, content, created_at, edited, deleted_for_everyone, deleted_for`

// CreateMessage stores a message stamped with the room's new activity time.
// Bumping the room row first serializes inserts per room, so commit order
// matches created_at order for change feed consumers.
func (r *MessageRepo) CreateMessage(ctx context.Context, messageID, roomID, authorID, content string) (models.Message, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Message{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var stamp time.Time
	err = tx.GetContext(ctx, &stamp, `UPDATE rooms SET last_activity_at = GREATEST(clock_timestamp(), last_activity_at)
        WHERE id=$1 RETURNING last_activity_at`, roomID)
	if errors.Is(err, sql.ErrNoRows) {
		err = ErrRoomNotFound
		return models.Message{}, err
	}
	if err != nil {
		return models.Message{}, err
	}

	var msg models.Message
	err = tx.GetContext(ctx, &msg, `INSERT INTO messages (id, room_id, author_id, content, created_at)
        VALUES ($1, $2, $3, $4, $5) RETURNING `+messageColumns, messageID, roomID, authorID, content, stamp)
	if err != nil {
		return models.Message{}, err
	}
	if err = tx.Commit(); err != nil {
		return models.Message{}, err
	}
	return msg, nil
}

// GetMessage retrieves a single message.
func (r *MessageRepo) GetMessage(ctx context.Context, messageID string) (models.Message, error) {
	var msg models.Message
	err := r.db.GetContext(ctx, &msg, `SELECT `+messageColumns+` FROM messages WHERE id=$1`, messageID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrMessageNotFound
	}
	return msg, err
}

// ListMessages returns messages created at or after since, oldest first.
// The cursor is inclusive; callers de-duplicate by id.
func (r *MessageRepo) ListMessages(ctx context.Context, roomID string, since time.Time, limit int) ([]models.Message, error) {
	var msgs []models.Message
	err := r.db.SelectContext(ctx, &msgs, `SELECT `+messageColumns+` FROM messages
        WHERE room_id=$1 AND created_at >= $2
        ORDER BY created_at ASC, id ASC
        LIMIT $3`, roomID, since, limit)
	return msgs, err
}

// ListMessagesAfter continues a listing strictly after the (createdAt, afterID)
// key of the last row seen, oldest first.
func (r *MessageRepo) ListMessagesAfter(ctx context.Context, roomID string, createdAt time.Time, afterID string, limit int) ([]models.Message, error) {
	var msgs []models.Message
	err := r.db.SelectContext(ctx, &msgs, `SELECT `+messageColumns+` FROM messages
        WHERE room_id=$1 AND (created_at, id) > ($2, $3)
        ORDER BY created_at ASC, id ASC
        LIMIT $4`, roomID, createdAt, afterID, limit)
	return msgs, err
}

// UpdateContent edits a message the author has not deleted for everyone.
func (r *MessageRepo) UpdateContent(ctx context.Context, messageID, authorID, content string) (models.Message, error) {
	var msg models.Message
	err := r.db.GetContext(ctx, &msg, `UPDATE messages SET content=$3, edited=TRUE
        WHERE id=$1 AND author_id=$2 AND deleted_for_everyone=FALSE
        RETURNING `+messageColumns, messageID, authorID, content)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrMessageNotFound
	}
	return msg, err
}

// MarkDeletedForEveryone sets the flag; repeating it changes nothing.
func (r *MessageRepo) MarkDeletedForEveryone(ctx context.Context, messageID, authorID string) (models.Message, error) {
	var msg models.Message
	err := r.db.GetContext(ctx, &msg, `UPDATE messages SET deleted_for_everyone=TRUE
        WHERE id=$1 AND author_id=$2
        RETURNING `+messageColumns, messageID, authorID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrMessageNotFound
	}
	return msg, err
}

// MarkDeletedFor appends userID to the per-user deletion set once. A message
// deleted for everyone is left untouched.
func (r *MessageRepo) MarkDeletedFor(ctx context.Context, messageID, userID string) (models.Message, error) {
	_, err := r.db.ExecContext(ctx, `UPDATE messages SET deleted_for = array_append(deleted_for, $2)
        WHERE id=$1 AND deleted_for_everyone=FALSE AND NOT ($2 = ANY(deleted_for))`, messageID, userID)
	if err != nil {
		return models.Message{}, err
	}
	return r.GetMessage(ctx, messageID)
}
