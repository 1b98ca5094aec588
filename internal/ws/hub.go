package ws

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"collab-service/internal/observability"
)

const writeWait = 10 * time.Second

// Client is one upgraded connection. gorilla allows a single concurrent
// writer, so every write goes through WriteJSON.
type Client struct {
	conn *websocket.Conn
	info ConnInfo
	mu   sync.Mutex
}

func newClient(conn *websocket.Conn, info ConnInfo) *Client {
	return &Client{conn: conn, info: info}
}

// WriteJSON sends v as a text frame.
func (c *Client) WriteJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(v)
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		_ = c.conn.Close()
	}
}

// Hub tracks live connections per scope and reports their lifecycle.
type Hub struct {
	scopes map[string]map[*Client]struct{}
	mu     sync.RWMutex
	loops  sync.WaitGroup
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{scopes: make(map[string]map[*Client]struct{})}
}

// Add registers a client under its scope.
func (h *Hub) Add(c *Client) {
	h.mu.Lock()
	scope := c.info.scope()
	if _, ok := h.scopes[scope]; !ok {
		h.scopes[scope] = make(map[*Client]struct{})
	}
	h.scopes[scope][c] = struct{}{}
	h.mu.Unlock()

	observability.IncWSActive(c.info.Kind)
	h.publish(c.info, "ws_connect", "")
}

// Remove drops a client. Removing an unknown client is a no-op.
func (h *Hub) Remove(c *Client, reason string) {
	h.mu.Lock()
	scope := c.info.scope()
	conns, ok := h.scopes[scope]
	if ok {
		if _, ok = conns[c]; ok {
			delete(conns, c)
			if len(conns) == 0 {
				delete(h.scopes, scope)
			}
		}
	}
	h.mu.Unlock()
	if !ok {
		return
	}

	observability.DecWSActive(c.info.Kind)
	h.publish(c.info, "ws_disconnect", reason)
}

// Count returns the number of live clients in a scope.
func (h *Hub) Count(kind, resourceID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.scopes[kind+":"+resourceID])
}

// Stats counts live connections per kind.
func (h *Hub) Stats() map[string]int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make(map[string]int)
	for _, conns := range h.scopes {
		for c := range conns {
			out[c.info.Kind]++
		}
	}
	return out
}

// CloseAll closes every connection; their read loops then unregister them.
func (h *Hub) CloseAll() {
	h.mu.RLock()
	clients := make([]*Client, 0)
	for _, conns := range h.scopes {
		for c := range conns {
			clients = append(clients, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.close()
	}
}

// Go runs a connection's read loop and its cleanup. Wait blocks on it.
func (h *Hub) Go(fn func()) {
	h.loops.Add(1)
	go func() {
		defer h.loops.Done()
		fn()
	}()
}

// Wait blocks until every connection goroutine started by Go returned.
func (h *Hub) Wait() {
	h.loops.Wait()
}

// ReportError records a failed read or write on a client.
func (h *Hub) ReportError(c *Client, err error) {
	log.Printf("websocket error: kind=%s resource_id=%s conn_id=%s err=%v", c.info.Kind, c.info.ResourceID, c.info.ConnID, err)
	h.publish(c.info, "ws_error", err.Error())
}

func (h *Hub) publish(info ConnInfo, event, reason string) {
	observability.IncWSEvent(info.Kind, event)
	payload := map[string]interface{}{
		"ws": map[string]interface{}{
			"kind":        info.Kind,
			"resource_id": info.ResourceID,
			"event":       event,
			"conn_id":     info.ConnID,
			"duration_ms": time.Since(info.ConnectedAt).Milliseconds(),
			"reason":      reason,
		},
		"identity": map[string]interface{}{
			"user_id":   info.UserID,
			"device_id": info.DeviceID,
			"ip":        info.IP,
		},
	}

	headers := observability.BuildHeaders(info.RequestID, info.TraceID)
	_ = observability.PublishEvent(context.Background(), wsRoutingKey(info.Kind), observability.EventEnvelope{
		EventType: "ws_events",
		EventName: event,
		Payload:   payload,
	}, headers)
}

func wsRoutingKey(kind string) string {
	return "ws_events." + kind + "s"
}
