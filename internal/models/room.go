package models

import "time"

// RoomKind tags the Room union.
type RoomKind string

const (
	RoomKindPrivate RoomKind = "private"
	RoomKindGroup   RoomKind = "group"
)

// GroupInfo carries the fields only meaningful for group rooms.
type GroupInfo struct {
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// Room is a pairwise or group chat channel.
type Room struct {
	ID             string     `json:"id"`
	Kind           RoomKind   `json:"kind"`
	MemberIDs      []string   `json:"member_ids"`
	Group          *GroupInfo `json:"group,omitempty"`
	LastActivityAt time.Time  `json:"last_activity_at"`
	CreatedAt      time.Time  `json:"created_at"`
}

// IsPrivate reports whether the room is a 1:1 room.
func (r Room) IsPrivate() bool {
	return r.Kind == RoomKindPrivate
}

// HasMember checks membership.
func (r Room) HasMember(userID string) bool {
	for _, id := range r.MemberIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// Peer returns the other member of a private room.
func (r Room) Peer(userID string) string {
	if !r.IsPrivate() {
		return ""
	}
	for _, id := range r.MemberIDs {
		if id != userID {
			return id
		}
	}
	return ""
}

// GroupPatch is a partial update of a group's variant fields. Nil means unchanged.
type GroupPatch struct {
	Name      *string `json:"name,omitempty"`
	AvatarURL *string `json:"avatar_url,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p GroupPatch) Empty() bool {
	return p.Name == nil && p.AvatarURL == nil
}
