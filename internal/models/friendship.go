package models

import "time"

// FriendshipStatus is the relationship state of a user pair.
type FriendshipStatus string

const (
	FriendshipNone     FriendshipStatus = "none"
	FriendshipPending  FriendshipStatus = "pending"
	FriendshipAccepted FriendshipStatus = "accepted"
)

// Friendship is the single record kept per unordered user pair.
type Friendship struct {
	ID          string           `db:"id" json:"id"`
	RequesterID string           `db:"requester_id" json:"requester_id"`
	AddresseeID string           `db:"addressee_id" json:"addressee_id"`
	Status      FriendshipStatus `db:"status" json:"status"`
	CreatedAt   time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time        `db:"updated_at" json:"updated_at"`
}

// Involves reports whether userID is either side of the record.
func (f Friendship) Involves(userID string) bool {
	return f.RequesterID == userID || f.AddresseeID == userID
}

// Other returns the counterpart of userID.
func (f Friendship) Other(userID string) string {
	if f.RequesterID == userID {
		return f.AddresseeID
	}
	return f.RequesterID
}

// UserSummary is the profile view used by search and friend lists.
type UserSummary struct {
	ID            string           `db:"id" json:"id"`
	Username      string           `db:"username" json:"username"`
	DisplayName   string           `db:"display_name" json:"display_name"`
	AvatarURL     string           `db:"avatar_url" json:"avatar_url,omitempty"`
	Relationship  FriendshipStatus `db:"-" json:"relationship,omitempty"`
	RequestedByMe bool             `db:"-" json:"requested_by_me,omitempty"`
}

// FriendRequest is a pending incoming request joined with the requester's profile.
type FriendRequest struct {
	FriendshipID string      `json:"friendship_id"`
	Requester    UserSummary `json:"requester"`
	CreatedAt    time.Time   `json:"created_at"`
}
