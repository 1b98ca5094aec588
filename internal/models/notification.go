package models

import "time"

// NotificationType enumerates notification kinds.
type NotificationType string

const (
	NotificationFriendRequest NotificationType = "friend_request"
	NotificationMessage       NotificationType = "message"
	NotificationSystem        NotificationType = "system"
	NotificationCalendar      NotificationType = "calendar"
)

// Valid reports whether t is a known type.
func (t NotificationType) Valid() bool {
	switch t {
	case NotificationFriendRequest, NotificationMessage, NotificationSystem, NotificationCalendar:
		return true
	}
	return false
}

// Notification is an in-app notification owned by its recipient.
type Notification struct {
	ID          string           `db:"id" json:"id"`
	RecipientID string           `db:"recipient_id" json:"recipient_id"`
	Type        NotificationType `db:"type" json:"type"`
	SenderID    *string          `db:"sender_id" json:"sender_id,omitempty"`
	Title       string           `db:"title" json:"title"`
	Body        string           `db:"body" json:"body"`
	Link        *string          `db:"link" json:"link,omitempty"`
	Read        bool             `db:"read" json:"read"`
	CreatedAt   time.Time        `db:"created_at" json:"created_at"`
}
