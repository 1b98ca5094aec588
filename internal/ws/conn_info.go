package ws

import "time"

// Connection kinds, used as metric labels and routing key suffixes.
const (
	KindRoom         = "room"
	KindNotification = "notification"
	KindWhiteboard   = "whiteboard"
)

type ConnInfo struct {
	ConnID      string
	Kind        string
	ResourceID  string
	UserID      string
	DeviceID    string
	IP          string
	RequestID   string
	TraceID     string
	ConnectedAt time.Time
}

func (i ConnInfo) scope() string {
	return i.Kind + ":" + i.ResourceID
}
