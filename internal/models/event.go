package models

// RoomEvent is sent over room websocket connections.
type RoomEvent struct {
	Type    string   `json:"type"`
	Message *Message `json:"message,omitempty"`
}

// UserEvent is sent over the user-scoped notification connection.
type UserEvent struct {
	Type         string        `json:"type"`
	Notification *Notification `json:"notification,omitempty"`
	Friendship   *Friendship   `json:"friendship,omitempty"`
}

// WhiteboardEvent is exchanged over whiteboard websocket connections.
type WhiteboardEvent struct {
	Type     string `json:"type"`
	Snapshot []byte `json:"snapshot,omitempty"`
}
