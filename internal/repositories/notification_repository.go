package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"collab-service/internal/models"
)

// NotificationRepository persists in-app notifications.
type NotificationRepository interface {
	CreateNotification(ctx context.Context, n models.Notification) (models.Notification, error)
	ListNotifications(ctx context.Context, recipientID string, limit int) ([]models.Notification, error)
	GetNotification(ctx context.Context, id string) (models.Notification, error)
	MarkRead(ctx context.Context, id, recipientID string) error
	DeleteNotification(ctx context.Context, id, recipientID string) error
	PurgeReadBefore(ctx context.Context, before time.Time) (int64, error)
}

// NotificationRepo is a sqlx implementation of NotificationRepository.
type NotificationRepo struct {
	db *sqlx.DB
}

// NewNotificationRepo constructs a NotificationRepo.
func NewNotificationRepo(db *sqlx.DB) *NotificationRepo {
	return &NotificationRepo{db: db}
}

const notificationColumns = `id, recipient_id, type, sender_id, title, body, link, read, created_at`

// CreateNotification inserts n and returns the stored row.
func (r *NotificationRepo) CreateNotification(ctx context.Context, n models.Notification) (models.Notification, error) {
	var out models.Notification
	err := r.db.GetContext(ctx, &out, `INSERT INTO notifications (id, recipient_id, type, sender_id, title, body, link)
        VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING `+notificationColumns,
		n.ID, n.RecipientID, n.Type, n.SenderID, n.Title, n.Body, n.Link)
	return out, err
}

// ListNotifications returns the newest notifications for a recipient.
func (r *NotificationRepo) ListNotifications(ctx context.Context, recipientID string, limit int) ([]models.Notification, error) {
	var out []models.Notification
	err := r.db.SelectContext(ctx, &out, `SELECT `+notificationColumns+` FROM notifications
        WHERE recipient_id=$1 ORDER BY created_at DESC LIMIT $2`, recipientID, limit)
	return out, err
}

// GetNotification fetches one notification.
func (r *NotificationRepo) GetNotification(ctx context.Context, id string) (models.Notification, error) {
	var out models.Notification
	err := r.db.GetContext(ctx, &out, `SELECT `+notificationColumns+` FROM notifications WHERE id=$1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Notification{}, ErrNotificationNotFound
	}
	return out, err
}

// MarkRead sets the read flag on the recipient's notification.
func (r *NotificationRepo) MarkRead(ctx context.Context, id, recipientID string) error {
	return r.execOwned(ctx, `UPDATE notifications SET read=TRUE WHERE id=$1 AND recipient_id=$2`, id, recipientID)
}

// DeleteNotification removes the recipient's notification.
func (r *NotificationRepo) DeleteNotification(ctx context.Context, id, recipientID string) error {
	return r.execOwned(ctx, `DELETE FROM notifications WHERE id=$1 AND recipient_id=$2`, id, recipientID)
}

// PurgeReadBefore deletes read notifications created before the cutoff.
func (r *NotificationRepo) PurgeReadBefore(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM notifications WHERE read=TRUE AND created_at < $1`, before)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *NotificationRepo) execOwned(ctx context.Context, query, id, recipientID string) error {
	res, err := r.db.ExecContext(ctx, query, id, recipientID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrNotificationNotFound
	}
	return nil
}
