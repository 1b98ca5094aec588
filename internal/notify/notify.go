package notify

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"collab-service/internal/apperr"
	"collab-service/internal/models"
	"collab-service/internal/observability"
	"collab-service/internal/presence"
	"collab-service/internal/repositories"
)

const (
	pushBodyLimit = 120
	defaultLimit  = 50
	maxLimit      = 200
)

// Input describes one notification to create.
type Input struct {
	RecipientID string
	Type        models.NotificationType
	Title       string
	Body        string
	SenderID    *string
	Link        *string
}

// Fanout creates in-app notifications and forwards them to push delivery.
// The stored row is authoritative; push is best effort.
type Fanout struct {
	repo    repositories.NotificationRepository
	pusher  Pusher
	viewers presence.Viewers
}

// NewFanout builds a Fanout. pusher and viewers may be nil.
func NewFanout(repo repositories.NotificationRepository, pusher Pusher, viewers presence.Viewers) *Fanout {
	return &Fanout{repo: repo, pusher: pusher, viewers: viewers}
}

// Notify stores a notification and pushes an abbreviated copy.
func (f *Fanout) Notify(ctx context.Context, in Input) (models.Notification, error) {
	if in.RecipientID == "" {
		return models.Notification{}, apperr.Validation("recipient is required")
	}
	if !in.Type.Valid() {
		return models.Notification{}, apperr.Validation("unknown notification type %q", in.Type)
	}
	if strings.TrimSpace(in.Title) == "" {
		return models.Notification{}, apperr.Validation("title is required")
	}

	n, err := f.repo.CreateNotification(ctx, models.Notification{
		ID:          uuid.NewString(),
		RecipientID: in.RecipientID,
		Type:        in.Type,
		SenderID:    in.SenderID,
		Title:       in.Title,
		Body:        in.Body,
		Link:        in.Link,
	})
	if err != nil {
		return models.Notification{}, apperr.Storage("create notification", err)
	}
	observability.IncNotification(string(in.Type))

	if f.pusher != nil {
		if err := f.pusher.Push(ctx, n.RecipientID, payloadFor(n)); err != nil {
			warn := apperr.DeliveryWarning("push notification", err)
			observability.IncPushFailure()
			log.Printf("notify: %v recipient=%s notification_id=%s", warn, n.RecipientID, n.ID)
		}
	}
	return n, nil
}

// MessageSent notifies every member except the author who is not viewing
// the room. Failures are logged only.
func (f *Fanout) MessageSent(ctx context.Context, room models.Room, msg models.Message, preview string) {
	title := "New message"
	if room.Group != nil && room.Group.Name != "" {
		title = room.Group.Name
	}
	link := "/rooms/" + room.ID
	sender := msg.AuthorID

	for _, member := range room.MemberIDs {
		if member == msg.AuthorID {
			continue
		}
		if f.viewers != nil {
			viewing, err := f.viewers.IsViewing(ctx, room.ID, member)
			if err != nil {
				log.Printf("notify: presence lookup failed room_id=%s user_id=%s: %v", room.ID, member, err)
			}
			if viewing {
				continue
			}
		}
		_, err := f.Notify(ctx, Input{
			RecipientID: member,
			Type:        models.NotificationMessage,
			Title:       title,
			Body:        preview,
			SenderID:    &sender,
			Link:        &link,
		})
		if err != nil {
			log.Printf("notify: message fanout failed room_id=%s recipient=%s: %v", room.ID, member, err)
		}
	}
}

// List returns the recipient's newest notifications.
func (f *Fanout) List(ctx context.Context, recipientID string, limit int) ([]models.Notification, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	list, err := f.repo.ListNotifications(ctx, recipientID, limit)
	if err != nil {
		return nil, apperr.Storage("list notifications", err)
	}
	return list, nil
}

// Get returns a notification owned by recipientID.
func (f *Fanout) Get(ctx context.Context, id, recipientID string) (models.Notification, error) {
	n, err := f.repo.GetNotification(ctx, id)
	if errors.Is(err, repositories.ErrNotificationNotFound) || (err == nil && n.RecipientID != recipientID) {
		return models.Notification{}, apperr.NotFound("notification %s not found", id)
	}
	if err != nil {
		return models.Notification{}, apperr.Storage("load notification", err)
	}
	return n, nil
}

// MarkRead flags the recipient's notification as read.
func (f *Fanout) MarkRead(ctx context.Context, id, recipientID string) error {
	return ownedErr(id, "mark notification read", f.repo.MarkRead(ctx, id, recipientID))
}

// Delete removes the recipient's notification.
func (f *Fanout) Delete(ctx context.Context, id, recipientID string) error {
	return ownedErr(id, "delete notification", f.repo.DeleteNotification(ctx, id, recipientID))
}

// PurgeRead deletes read notifications older than age.
func (f *Fanout) PurgeRead(ctx context.Context, age time.Duration) (int64, error) {
	n, err := f.repo.PurgeReadBefore(ctx, time.Now().Add(-age))
	if err != nil {
		return 0, apperr.Storage("purge notifications", err)
	}
	return n, nil
}

func ownedErr(id, op string, err error) error {
	if errors.Is(err, repositories.ErrNotificationNotFound) {
		return apperr.NotFound("notification %s not found", id)
	}
	if err != nil {
		return apperr.Storage(op, err)
	}
	return nil
}

func payloadFor(n models.Notification) PushPayload {
	p := PushPayload{
		NotificationID: n.ID,
		Type:           string(n.Type),
		Title:          n.Title,
		Body:           truncate(n.Body, pushBodyLimit),
	}
	if n.Link != nil {
		p.Link = *n.Link
	}
	return p
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit-1]) + "…"
}
