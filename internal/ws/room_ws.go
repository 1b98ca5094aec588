package ws

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"collab-service/internal/messages"
	"collab-service/internal/middleware"
	"collab-service/internal/models"
	"collab-service/internal/presence"
	"collab-service/internal/rooms"
)

const (
	controlFrameLimit = 4 << 10
	presenceRefresh   = presence.DefaultTTL / 2
)

// RoomWebSocketHandler streams a room's messages to a member and marks
// them as viewing the room while connected.
type RoomWebSocketHandler struct {
	hub      *Hub
	rooms    *rooms.Service
	messages *messages.Service
	viewers  presence.Viewers
}

// NewRoomWebSocketHandler constructs a RoomWebSocketHandler.
func NewRoomWebSocketHandler(hub *Hub, rooms *rooms.Service, msgs *messages.Service, viewers presence.Viewers) *RoomWebSocketHandler {
	return &RoomWebSocketHandler{hub: hub, rooms: rooms, messages: msgs, viewers: viewers}
}

// Handle serves GET /ws/rooms/:room_id?since=<RFC3339>.
func (h *RoomWebSocketHandler) Handle(c *gin.Context) {
	roomID := c.Param("room_id")
	userID := middleware.UserID(c)

	var since time.Time
	if raw := c.Query("since"); raw != "" {
		parsed, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid since"})
			return
		}
		since = parsed
	}

	if _, err := h.rooms.AuthorizeView(c.Request.Context(), roomID, userID); err != nil {
		rejectHandshake(c, err)
		return
	}

	client, err := h.hub.upgrade(c, KindRoom, roomID)
	if err != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	stream, err := h.messages.Subscribe(ctx, roomID, userID, since)
	if err != nil {
		cancel()
		h.hub.ReportError(client, err)
		h.hub.Remove(client, "subscribe failed")
		client.close()
		return
	}

	h.enter(ctx, roomID, userID, client.info.ConnID)
	go h.pump(ctx, client, stream, roomID, userID)
	h.hub.Go(func() {
		defer func() {
			stream.Close()
			cancel()
			if err := h.viewers.Leave(context.Background(), roomID, userID, client.info.ConnID); err != nil {
				log.Printf("presence leave failed: room_id=%s user_id=%s err=%v", roomID, userID, err)
			}
		}()
		h.hub.readLoop(client, controlFrameLimit, nil)
	})
}

// pump forwards stream events and keeps the viewer's presence alive.
func (h *RoomWebSocketHandler) pump(ctx context.Context, client *Client, stream *messages.Stream, roomID, userID string) {
	ticker := time.NewTicker(presenceRefresh)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.enter(ctx, roomID, userID, client.info.ConnID)
		case ev, ok := <-stream.Events():
			if !ok {
				client.close()
				return
			}
			msg := ev.Message
			if err := client.WriteJSON(models.RoomEvent{Type: ev.Type, Message: &msg}); err != nil {
				h.hub.ReportError(client, err)
				client.close()
				return
			}
		}
	}
}

func (h *RoomWebSocketHandler) enter(ctx context.Context, roomID, userID, connID string) {
	if err := h.viewers.Enter(ctx, roomID, userID, connID); err != nil {
		log.Printf("presence enter failed: room_id=%s user_id=%s err=%v", roomID, userID, err)
	}
}
