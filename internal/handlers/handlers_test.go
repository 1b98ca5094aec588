package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"collab-service/internal/feed"
	"collab-service/internal/friends"
	"collab-service/internal/messages"
	"collab-service/internal/middleware"
	"collab-service/internal/mocks"
	"collab-service/internal/models"
	"collab-service/internal/notify"
	"collab-service/internal/presence"
	"collab-service/internal/rooms"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

type testEnv struct {
	store    *mocks.MemoryStore
	uploader *mocks.UploaderMock
	router   *gin.Engine
}

func setupRouter(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	broker := feed.NewBroker()
	t.Cleanup(broker.Close)
	store := mocks.NewMemoryStore(broker)
	for _, id := range []string{"alice", "bob", "carol"} {
		store.AddProfile(models.UserSummary{ID: id, Username: id, DisplayName: id})
	}

	roomSvc := rooms.NewService(store, store)
	fanout := notify.NewFanout(store, nil, presence.NewMemory())
	uploader := new(mocks.UploaderMock)

	api := API{
		Rooms:         NewRoomHandler(roomSvc, uploader, nil),
		Messages:      NewMessageHandler(messages.NewService(store, roomSvc, fanout, broker), roomSvc, uploader, nil),
		Friends:       NewFriendHandler(friends.NewService(store, store, fanout), nil),
		Notifications: NewNotificationHandler(fanout),
		Whiteboards:   NewWhiteboardHandler(roomSvc, uploader),
	}

	r := gin.New()
	authed := r.Group("/", func(c *gin.Context) {
		c.Set(middleware.ContextUserID, c.GetHeader("X-Test-User"))
		c.Next()
	})
	api.Register(authed, middleware.RateLimit(middleware.NewLimiterPool(1000, 1000)))
	return &testEnv{store: store, uploader: uploader, router: r}
}

func (e *testEnv) do(t *testing.T, method, path, user string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Test-User", user)
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) upload(t *testing.T, path, user string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", "upload.bin")
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("X-Test-User", user)
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func (e *testEnv) befriend(t *testing.T, a, b string) models.Room {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/friends/requests", a, gin.H{"addressee_id": b})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = e.do(t, http.MethodPost, "/friends/requests/"+a+"/accept", b, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = e.do(t, http.MethodPost, "/rooms/private", a, gin.H{"user_id": b})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return decode[models.Room](t, rec)
}

func TestSendRequiresAcceptedFriendship(t *testing.T) {
	env := setupRouter(t)

	rec := env.do(t, http.MethodPost, "/rooms/private", "alice", gin.H{"user_id": "bob"})
	require.Equal(t, http.StatusOK, rec.Code)
	room := decode[models.Room](t, rec)

	rec = env.do(t, http.MethodPost, "/rooms/"+room.ID+"/messages", "alice", gin.H{"content": "hi"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodGet, "/rooms", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	listed := decode[struct {
		Rooms []roomView `json:"rooms"`
	}](t, rec)
	require.Len(t, listed.Rooms, 1)
	assert.False(t, listed.Rooms[0].CanChat)
}

func TestMessageLifecycle(t *testing.T) {
	env := setupRouter(t)
	room := env.befriend(t, "alice", "bob")

	rec := env.do(t, http.MethodPost, "/rooms/"+room.ID+"/messages", "alice", gin.H{"content": "hola"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	sent := decode[messageView](t, rec)
	assert.Equal(t, messages.ContentText, sent.Parsed.Kind)

	rec = env.do(t, http.MethodPatch, "/messages/"+sent.ID, "bob", gin.H{"content": "hijack"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodPatch, "/messages/"+sent.ID, "alice", gin.H{"content": "hola!"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[messageView](t, rec).Edited)

	rec = env.do(t, http.MethodDelete, "/messages/"+sent.ID+"?scope=self", "bob", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/rooms/"+room.ID+"/messages", "bob", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	history := decode[struct {
		Messages []messageView `json:"messages"`
	}](t, rec)
	assert.Empty(t, history.Messages)

	rec = env.do(t, http.MethodGet, "/rooms/"+room.ID+"/messages", "alice", nil)
	history = decode[struct {
		Messages []messageView `json:"messages"`
	}](t, rec)
	require.Len(t, history.Messages, 1)
	assert.Equal(t, "hola!", history.Messages[0].Content)
	assert.Empty(t, history.Messages[0].DeletedFor)

	rec = env.do(t, http.MethodDelete, "/messages/"+sent.ID+"?scope=all", "alice", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHistoryRejectsBadCursor(t *testing.T) {
	env := setupRouter(t)
	room := env.befriend(t, "alice", "bob")

	rec := env.do(t, http.MethodGet, "/rooms/"+room.ID+"/messages?since=yesterday", "alice", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet, "/rooms/"+room.ID+"/messages", "carol", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestStorageFailureIsRetryable(t *testing.T) {
	env := setupRouter(t)
	room := env.befriend(t, "alice", "bob")

	env.store.FailNext("CreateMessage", errors.New("connection reset"))
	rec := env.do(t, http.MethodPost, "/rooms/"+room.ID+"/messages", "alice", gin.H{"content": "hola"})
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, true, decode[map[string]any](t, rec)["retryable"])
}

func TestUploadMediaReturnsTaggedContent(t *testing.T) {
	env := setupRouter(t)
	room := env.befriend(t, "alice", "bob")

	env.uploader.On("Upload", mock.Anything, "rooms/"+room.ID, pngHeader, "image/png").
		Return("https://cdn.test/rooms/a.png", nil).Once()

	rec := env.upload(t, "/rooms/"+room.ID+"/media", "alice", pngHeader)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	body := decode[map[string]string](t, rec)
	assert.Equal(t, "[image]https://cdn.test/rooms/a.png", body["content"])
	env.uploader.AssertExpectations(t)

	rec = env.upload(t, "/rooms/"+room.ID+"/media", "alice", []byte("plain text file"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGroupAvatarAndLeave(t *testing.T) {
	env := setupRouter(t)

	rec := env.do(t, http.MethodPost, "/rooms/groups", "alice", gin.H{"name": "Team", "member_ids": []string{"bob"}})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	group := decode[models.Room](t, rec)

	env.uploader.On("Upload", mock.Anything, "avatars/"+group.ID, pngHeader, "image/png").
		Return("https://cdn.test/avatars/x.png", nil).Once()
	rec = env.upload(t, "/rooms/"+group.ID+"/avatar", "bob", pngHeader)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[models.Room](t, rec)
	require.NotNil(t, updated.Group)
	assert.Equal(t, "https://cdn.test/avatars/x.png", updated.Group.AvatarURL)

	rec = env.do(t, http.MethodPatch, "/rooms/"+group.ID, "carol", gin.H{"name": "Mine"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodDelete, "/rooms/"+group.ID+"/members/me", "bob", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = env.do(t, http.MethodGet, "/rooms/"+group.ID+"/messages", "bob", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestFriendRoutes(t *testing.T) {
	env := setupRouter(t)

	rec := env.do(t, http.MethodPost, "/friends/requests", "alice", gin.H{"addressee_id": "bob"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/friends/requests", "bob", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	pending := decode[struct {
		Requests []models.FriendRequest `json:"requests"`
	}](t, rec)
	require.Len(t, pending.Requests, 1)
	assert.Equal(t, "alice", pending.Requests[0].Requester.ID)

	rec = env.do(t, http.MethodPost, "/friends/requests/bob/accept", "alice", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(t, http.MethodDelete, "/friends/requests/bob", "alice", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = env.do(t, http.MethodDelete, "/friends/requests/bob", "alice", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodGet, "/users/search?q=bo", "alice", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = env.do(t, http.MethodGet, "/users/search?q=car", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	found := decode[struct {
		Users []models.UserSummary `json:"users"`
	}](t, rec)
	require.Len(t, found.Users, 1)
	assert.Equal(t, models.FriendshipNone, found.Users[0].Relationship)
}

func TestNotificationOwnership(t *testing.T) {
	env := setupRouter(t)

	rec := env.do(t, http.MethodPost, "/friends/requests", "alice", gin.H{"addressee_id": "bob"})
	require.Equal(t, http.StatusOK, rec.Code)

	list := env.store.Notifications("bob")
	require.Len(t, list, 1)
	id := list[0].ID

	rec = env.do(t, http.MethodPost, "/notifications/"+id+"/read", "alice", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = env.do(t, http.MethodPost, "/notifications/"+id+"/read", "bob", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, http.MethodGet, "/notifications", "bob", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[struct {
		Notifications []models.Notification `json:"notifications"`
	}](t, rec)
	require.Len(t, got.Notifications, 1)
	assert.True(t, got.Notifications[0].Read)

	rec = env.do(t, http.MethodDelete, "/notifications/"+id, "bob", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, env.store.Notifications("bob"))
}

func TestWhiteboardMediaRequiresMembership(t *testing.T) {
	env := setupRouter(t)
	room := env.befriend(t, "alice", "bob")

	rec := env.upload(t, "/whiteboards/"+room.ID+"/media", "carol", pngHeader)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	env.uploader.On("Upload", mock.Anything, "whiteboards/"+room.ID, pngHeader, "image/png").
		Return("", errors.New("bucket missing")).Once()
	rec = env.upload(t, "/whiteboards/"+room.ID+"/media", "alice", pngHeader)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	env.uploader.AssertExpectations(t)
}

func TestDebugRouteDisabled(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterDebugRoutes(r, DebugSources{}, false)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/audit-test", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDebugRealtimeReportsFeedSubscriptions(t *testing.T) {
	gin.SetMode(gin.TestMode)
	broker := feed.NewBroker()
	defer broker.Close()
	sub, err := broker.Subscribe(feed.TableMessages, feed.Filter{"room_id": "r1"}, func(feed.Event) {})
	require.NoError(t, err)
	defer sub.Unsubscribe()

	r := gin.New()
	RegisterDebugRoutes(r, DebugSources{Feed: broker}, true)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/realtime", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Subscriptions map[string]int `json:"subscriptions"`
		Connections   map[string]int `json:"connections"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Subscriptions[feed.TableMessages])
	assert.Empty(t, body.Connections)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/audit-test", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
