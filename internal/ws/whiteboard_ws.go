package ws

import (
	"context"
	"encoding/json"
	"log"

	"github.com/gin-gonic/gin"

	"collab-service/internal/middleware"
	"collab-service/internal/models"
	"collab-service/internal/rooms"
	"collab-service/internal/whiteboard"
)

// Whiteboard frame types.
const (
	EventSnapshot = "snapshot"
	EventUpdate   = "update"
)

const snapshotFrameLimit = 16 << 20

// WhiteboardWebSocketHandler binds a connection to a whiteboard session.
// Clients send whole snapshots as "update" frames and receive "snapshot"
// frames for the initial state and every remote change.
type WhiteboardWebSocketHandler struct {
	hub    *Hub
	rooms  *rooms.Service
	engine *whiteboard.Engine
}

func NewWhiteboardWebSocketHandler(hub *Hub, rooms *rooms.Service, engine *whiteboard.Engine) *WhiteboardWebSocketHandler {
	return &WhiteboardWebSocketHandler{hub: hub, rooms: rooms, engine: engine}
}

// Handle serves GET /ws/whiteboards/:room_id.
func (h *WhiteboardWebSocketHandler) Handle(c *gin.Context) {
	roomID := c.Param("room_id")
	if _, err := h.rooms.AuthorizeView(c.Request.Context(), roomID, middleware.UserID(c)); err != nil {
		rejectHandshake(c, err)
		return
	}

	client, err := h.hub.upgrade(c, KindWhiteboard, roomID)
	if err != nil {
		return
	}

	send := func(snapshot []byte) {
		if err := client.WriteJSON(models.WhiteboardEvent{Type: EventSnapshot, Snapshot: snapshot}); err != nil {
			h.hub.ReportError(client, err)
			client.close()
		}
	}

	session, err := h.engine.Attach(context.Background(), roomID, send)
	if err != nil {
		h.hub.ReportError(client, err)
		h.hub.Remove(client, "attach failed")
		client.close()
		return
	}
	send(session.Snapshot())

	h.hub.Go(func() {
		defer session.Detach()
		h.hub.readLoop(client, snapshotFrameLimit, func(data []byte) {
			var ev models.WhiteboardEvent
			if err := json.Unmarshal(data, &ev); err != nil {
				log.Printf("whiteboard ws: bad frame conn_id=%s: %v", client.info.ConnID, err)
				return
			}
			if ev.Type == EventUpdate {
				session.Update(ev.Snapshot)
			}
		})
	})
}
