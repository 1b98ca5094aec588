package ws

import (
	"testing"
	"time"
)

func TestHubAddAndRemoveClient(t *testing.T) {
	hub := NewHub()
	client := newClient(nil, ConnInfo{Kind: KindRoom, ResourceID: "r1", ConnectedAt: time.Now()})

	hub.Add(client)
	if hub.Count(KindRoom, "r1") != 1 {
		t.Fatalf("expected room scope to be created")
	}

	hub.Remove(client, "")
	hub.Remove(client, "")
	if hub.Count(KindRoom, "r1") != 0 || len(hub.scopes) != 0 {
		t.Fatalf("expected room scope to be removed")
	}
}

func TestHubScopesAreSeparate(t *testing.T) {
	hub := NewHub()
	hub.Add(newClient(nil, ConnInfo{Kind: KindRoom, ResourceID: "x"}))
	hub.Add(newClient(nil, ConnInfo{Kind: KindWhiteboard, ResourceID: "x"}))
	hub.Add(newClient(nil, ConnInfo{Kind: KindWhiteboard, ResourceID: "x"}))

	if got := hub.Count(KindWhiteboard, "x"); got != 2 {
		t.Fatalf("expected 2 whiteboard clients, got %d", got)
	}
	if got := hub.Count(KindRoom, "x"); got != 1 {
		t.Fatalf("expected 1 room client, got %d", got)
	}
	if stats := hub.Stats(); stats[KindWhiteboard] != 2 || stats[KindRoom] != 1 {
		t.Fatalf("unexpected stats %v", stats)
	}
	hub.CloseAll()
}

func TestWSRoutingKey(t *testing.T) {
	if got := wsRoutingKey(KindNotification); got != "ws_events.notifications" {
		t.Fatalf("unexpected routing key %q", got)
	}
}
