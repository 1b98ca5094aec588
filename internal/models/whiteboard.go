package models

import "time"

// WhiteboardDocument is the full serialized state of a room's whiteboard.
// Snapshot is never a delta.
type WhiteboardDocument struct {
	RoomID    string    `db:"room_id" json:"room_id"`
	Snapshot  []byte    `db:"snapshot" json:"snapshot,omitempty"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
	UpdatedBy string    `db:"updated_by" json:"updated_by"`
}

// Empty reports whether there is nothing to load.
func (d WhiteboardDocument) Empty() bool {
	return len(d.Snapshot) == 0
}
