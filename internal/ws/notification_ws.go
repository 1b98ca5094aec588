package ws

import (
	"context"
	"log"
	"time"

	"github.com/gin-gonic/gin"

	"collab-service/internal/apperr"
	"collab-service/internal/feed"
	"collab-service/internal/middleware"
	"collab-service/internal/models"
)

// User scope event types.
const (
	EventNotification        = "notification"
	EventNotificationUpdated = "notification_updated"
	EventNotificationDeleted = "notification_deleted"
	EventFriendship          = "friendship"
	EventFriendshipRemoved   = "friendship_removed"
	EventResync              = "resync"
)

const reloadTimeout = 5 * time.Second

// NotificationLoader reads a recipient's notification. Change events carry
// only its key columns.
type NotificationLoader interface {
	Get(ctx context.Context, id, recipientID string) (models.Notification, error)
}

// NotificationWebSocketHandler pushes a user's notifications and
// relationship changes as they are committed.
type NotificationWebSocketHandler struct {
	hub           *Hub
	feed          feed.Subscriber
	notifications NotificationLoader
}

func NewNotificationWebSocketHandler(hub *Hub, subscriber feed.Subscriber, notifications NotificationLoader) *NotificationWebSocketHandler {
	return &NotificationWebSocketHandler{hub: hub, feed: subscriber, notifications: notifications}
}

// Handle serves GET /ws/notifications.
func (h *NotificationWebSocketHandler) Handle(c *gin.Context) {
	userID := middleware.UserID(c)
	client, err := h.hub.upgrade(c, KindNotification, userID)
	if err != nil {
		return
	}

	var subs []*feed.Subscription
	unsubscribe := func() {
		for _, s := range subs {
			s.Unsubscribe()
		}
	}

	// A listener resync reaches every subscription; only one of them reports it.
	scopes := []struct {
		table  string
		filter feed.Filter
		resync bool
	}{
		{feed.TableNotifications, feed.Filter{"recipient_id": userID}, true},
		{feed.TableFriendships, feed.Filter{"requester_id": userID}, false},
		{feed.TableFriendships, feed.Filter{"addressee_id": userID}, false},
	}
	for _, scope := range scopes {
		sub, err := h.feed.Subscribe(scope.table, scope.filter, h.forward(client, userID, scope.resync))
		if err != nil {
			unsubscribe()
			h.hub.ReportError(client, err)
			h.hub.Remove(client, "subscribe failed")
			client.close()
			return
		}
		subs = append(subs, sub)
	}

	h.hub.Go(func() {
		defer unsubscribe()
		h.hub.readLoop(client, controlFrameLimit, nil)
	})
}

func (h *NotificationWebSocketHandler) forward(client *Client, userID string, resync bool) feed.Handler {
	return func(ev feed.Event) {
		out, ok := userEvent(ev, resync)
		if !ok {
			return
		}
		if out.Notification != nil && ev.Op != feed.OpDelete {
			if !h.reload(&out, userID) {
				return
			}
		}
		if err := client.WriteJSON(out); err != nil {
			h.hub.ReportError(client, err)
			client.close()
		}
	}
}

// reload replaces the event's key-only notification with the stored row.
func (h *NotificationWebSocketHandler) reload(out *models.UserEvent, userID string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), reloadTimeout)
	defer cancel()
	n, err := h.notifications.Get(ctx, out.Notification.ID, userID)
	if apperr.Is(err, apperr.KindNotFound) {
		return false
	}
	if err != nil {
		log.Printf("notification ws: reload failed notification_id=%s user_id=%s: %v", out.Notification.ID, userID, err)
		return false
	}
	out.Notification = &n
	return true
}

func userEvent(ev feed.Event, resync bool) (models.UserEvent, bool) {
	if ev.Op == feed.OpResync {
		// a lagging subscription resyncs alone and always reports it
		return models.UserEvent{Type: EventResync}, resync || ev.Table != ""
	}

	switch ev.Table {
	case feed.TableNotifications:
		var n models.Notification
		if err := ev.Decode(&n); err != nil {
			log.Printf("notification ws: bad row: %v", err)
			return models.UserEvent{}, false
		}
		kind := EventNotification
		switch ev.Op {
		case feed.OpUpdate:
			kind = EventNotificationUpdated
		case feed.OpDelete:
			kind = EventNotificationDeleted
		}
		return models.UserEvent{Type: kind, Notification: &n}, true
	case feed.TableFriendships:
		var f models.Friendship
		if err := ev.Decode(&f); err != nil {
			log.Printf("notification ws: bad row: %v", err)
			return models.UserEvent{}, false
		}
		kind := EventFriendship
		if ev.Op == feed.OpDelete {
			kind = EventFriendshipRemoved
		}
		return models.UserEvent{Type: kind, Friendship: &f}, true
	}
	return models.UserEvent{}, false
}
