package ws

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"collab-service/internal/apperr"
	"collab-service/internal/middleware"
	"collab-service/internal/observability"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func newConnID() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return ""
	}
	return hex.EncodeToString(buf)
}

// upgrade switches the request to a websocket and registers it with the
// hub. The caller must run serve on the returned client.
func (h *Hub) upgrade(c *gin.Context, kind, resourceID string) (*Client, error) {
	ctx, span := otel.Tracer("collab-service/ws").Start(c.Request.Context(), "ws.handshake",
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String("ws.kind", kind),
			attribute.String("ws.resource_id", resourceID),
		),
	)
	defer span.End()

	conn, err := upgrader.Upgrade(c.Writer, c.Request.WithContext(ctx), nil)
	if err != nil {
		return nil, err
	}
	client := newClient(conn, ConnInfo{
		ConnID:      newConnID(),
		Kind:        kind,
		ResourceID:  resourceID,
		UserID:      middleware.UserID(c),
		DeviceID:    observability.DeviceIDFromRequest(c.Request),
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   observability.RequestIDFromRequest(c.Request),
		TraceID:     span.SpanContext().TraceID().String(),
		ConnectedAt: time.Now(),
	})
	h.Add(client)
	return client, nil
}

// readLoop hands each text frame to onMessage until the peer goes away.
// It unregisters the client and closes the connection on return.
func (h *Hub) readLoop(client *Client, maxBytes int64, onMessage func([]byte)) {
	var closeReason string
	defer func() {
		h.Remove(client, closeReason)
		client.close()
	}()

	client.conn.SetReadLimit(maxBytes)
	for {
		_, data, err := client.conn.ReadMessage()
		if err != nil {
			closeReason = err.Error()
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.ReportError(client, err)
			}
			return
		}
		if onMessage != nil {
			onMessage(data)
		}
	}
}

// rejectHandshake answers a failed authorization before the upgrade.
func rejectHandshake(c *gin.Context, err error) {
	status := http.StatusForbidden
	switch apperr.KindOf(err) {
	case apperr.KindNotFound:
		status = http.StatusNotFound
	case apperr.KindStorage:
		status = http.StatusInternalServerError
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
