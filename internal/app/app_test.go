package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"collab-service/internal/config"
	"collab-service/internal/feed"
	"collab-service/internal/messages"
	"collab-service/internal/mocks"
	"collab-service/internal/models"
	"collab-service/internal/presence"
)

type e2e struct {
	cfg     config.Config
	store   *mocks.MemoryStore
	viewers *presence.Memory
	app     *App
	server  *httptest.Server
}

func setup(t *testing.T) *e2e {
	t.Helper()
	gin.SetMode(gin.TestMode)

	broker := feed.NewBroker()
	t.Cleanup(broker.Close)
	store := mocks.NewMemoryStore(broker)
	store.AddProfile(models.UserSummary{ID: "user-a", Username: "ana", DisplayName: "Ana"})
	store.AddProfile(models.UserSummary{ID: "user-b", Username: "beto", DisplayName: "Beto"})

	cfg := config.Default()
	cfg.JWTSecret = "e2e-secret"
	cfg.WhiteboardDebounce = 30 * time.Millisecond
	cfg.WhiteboardSuppress = 50 * time.Millisecond

	viewers := presence.NewMemory()
	a := New(Options{
		Config: cfg,
		Stores: Stores{
			Rooms:         store,
			Messages:      store,
			Friendships:   store,
			Profiles:      store,
			Notifications: store,
			Whiteboards:   store,
		},
		Feed:    broker,
		Viewers: viewers,
	})
	server := httptest.NewServer(a.Router)
	t.Cleanup(func() {
		a.Shutdown()
		server.Close()
	})
	return &e2e{cfg: cfg, store: store, viewers: viewers, app: a, server: server}
}

func (e *e2e) token(t *testing.T, userID string) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   userID,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte(e.cfg.JWTSecret))
	require.NoError(t, err)
	return signed
}

func (e *e2e) call(t *testing.T, method, path, userID string, body any, out any) int {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, e.server.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+e.token(t, userID))
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil && resp.StatusCode < 300 && resp.StatusCode != http.StatusNoContent {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func (e *e2e) dial(t *testing.T, path, userID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(e.server.URL, "http") + path + "?token=" + e.token(t, userID)
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	_ = resp.Body.Close()
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readEvent[T any](t *testing.T, conn *websocket.Conn) T {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var out T
	require.NoError(t, conn.ReadJSON(&out))
	return out
}

func TestUnauthenticatedRequestsAreRejected(t *testing.T) {
	e := setup(t)
	resp, err := http.Get(e.server.URL + "/rooms")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, err = http.Get(e.server.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestFriendshipToFirstMessage(t *testing.T) {
	e := setup(t)
	ctx := context.Background()

	var f models.Friendship
	require.Equal(t, http.StatusOK, e.call(t, http.MethodPost, "/friends/requests", "user-a", gin.H{"addressee_id": "user-b"}, &f))
	assert.Equal(t, models.FriendshipPending, f.Status)

	require.Equal(t, http.StatusOK, e.call(t, http.MethodPost, "/friends/requests/user-a/accept", "user-b", nil, &f))
	assert.Equal(t, models.FriendshipAccepted, f.Status)

	var inbox struct {
		Notifications []models.Notification `json:"notifications"`
	}
	require.Equal(t, http.StatusOK, e.call(t, http.MethodGet, "/notifications", "user-a", nil, &inbox))
	require.Len(t, inbox.Notifications, 1)
	assert.Equal(t, models.NotificationSystem, inbox.Notifications[0].Type)

	var room models.Room
	require.Equal(t, http.StatusOK, e.call(t, http.MethodPost, "/rooms/private", "user-a", gin.H{"user_id": "user-b"}, &room))

	// B watches the room's stream and the user scope without opening the room.
	stream, err := e.app.Messages.Subscribe(ctx, room.ID, "user-b", time.Time{})
	require.NoError(t, err)
	defer stream.Close()
	userScope := e.dial(t, "/ws/notifications", "user-b")
	require.Eventually(t, func() bool { return e.app.Hub.Count("notification", "user-b") == 1 }, time.Second, 5*time.Millisecond)

	require.Equal(t, http.StatusCreated, e.call(t, http.MethodPost, "/rooms/"+room.ID+"/messages", "user-a", gin.H{"content": "hola"}, nil))

	timeline := messages.NewTimeline("user-b")
	select {
	case ev := <-stream.Events():
		timeline.Apply(ev)
	case <-time.After(2 * time.Second):
		t.Fatal("no message on stream")
	}
	select {
	case ev := <-stream.Events():
		t.Fatalf("unexpected second event %+v", ev)
	case <-time.After(100 * time.Millisecond):
	}
	require.Equal(t, 1, timeline.Len())
	assert.Equal(t, "hola", timeline.Visible()[0].Content)

	for {
		ev := readEvent[models.UserEvent](t, userScope)
		if ev.Type == "notification" && ev.Notification.Type == models.NotificationMessage {
			assert.Equal(t, "hola", ev.Notification.Body)
			require.NotNil(t, ev.Notification.Link)
			assert.Equal(t, "/rooms/"+room.ID, *ev.Notification.Link)
			break
		}
	}
}

func TestWhiteboardLateEditorLoadsCommittedSnapshot(t *testing.T) {
	e := setup(t)
	var room models.Room
	require.Equal(t, http.StatusCreated, e.call(t, http.MethodPost, "/rooms/groups", "user-a", gin.H{"name": "Board", "member_ids": []string{"user-b"}}, &room))

	editor1 := e.dial(t, "/ws/whiteboards/"+room.ID, "user-a")
	initial := readEvent[models.WhiteboardEvent](t, editor1)
	assert.Empty(t, initial.Snapshot)

	s1 := []byte(`{"shapes":[{"id":"s1","type":"rect"}]}`)
	require.NoError(t, editor1.WriteJSON(models.WhiteboardEvent{Type: "update", Snapshot: s1}))

	require.Eventually(t, func() bool {
		doc, err := e.store.GetWhiteboard(context.Background(), room.ID)
		return err == nil && bytes.Equal(doc.Snapshot, s1)
	}, 2*time.Second, 10*time.Millisecond)

	editor2 := e.dial(t, "/ws/whiteboards/"+room.ID, "user-b")
	loaded := readEvent[models.WhiteboardEvent](t, editor2)
	assert.Equal(t, "snapshot", loaded.Type)
	assert.JSONEq(t, string(s1), string(loaded.Snapshot))
}
