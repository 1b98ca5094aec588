package models

import (
	"time"

	"github.com/lib/pq"
)

// Message is a chat message. Messages are soft deleted only.
type Message struct {
	ID                 string         `db:"id" json:"id"`
	RoomID             string         `db:"room_id" json:"room_id"`
	AuthorID           string         `db:"author_id" json:"author_id"`
	Content            string         `db:"content" json:"content"`
	CreatedAt          time.Time      `db:"created_at" json:"created_at"`
	Edited             bool           `db:"edited" json:"edited"`
	DeletedForEveryone bool           `db:"deleted_for_everyone" json:"deleted_for_everyone"`
	DeletedFor         pq.StringArray `db:"deleted_for" json:"deleted_for"`
}

// DeletedForUser reports whether userID removed the message from their own view.
func (m Message) DeletedForUser(userID string) bool {
	for _, id := range m.DeletedFor {
		if id == userID {
			return true
		}
	}
	return false
}

// VisibleTo reports whether the message should be shown to userID.
func (m Message) VisibleTo(userID string) bool {
	return !m.DeletedForEveryone && !m.DeletedForUser(userID)
}

// ForViewer strips what a viewer must not see: the content of a message
// deleted for everyone, and other members' per-user deletions.
func (m Message) ForViewer(userID string) Message {
	out := m
	if out.DeletedForEveryone {
		out.Content = ""
	}
	if m.DeletedForUser(userID) {
		out.DeletedFor = pq.StringArray{userID}
	} else {
		out.DeletedFor = pq.StringArray{}
	}
	return out
}
