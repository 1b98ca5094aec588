package notify_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"collab-service/internal/apperr"
	"collab-service/internal/mocks"
	"collab-service/internal/models"
	"collab-service/internal/notify"
	"collab-service/internal/presence"
)

func TestNotifyStoresAndPushesAbbreviatedPayload(t *testing.T) {
	store := mocks.NewMemoryStore(nil)
	pusher := new(mocks.PusherMock)
	fanout := notify.NewFanout(store, pusher, nil)

	link := "/friends/requests"
	body := strings.Repeat("é", 130)
	pusher.On("Push", mock.Anything, "bob", mock.MatchedBy(func(p notify.PushPayload) bool {
		return p.Type == "friend_request" && p.Link == link && len([]rune(p.Body)) == 120 && strings.HasSuffix(p.Body, "…")
	})).Return(nil).Once()

	n, err := fanout.Notify(context.Background(), notify.Input{
		RecipientID: "bob",
		Type:        models.NotificationFriendRequest,
		Title:       "New friend request",
		Body:        body,
		Link:        &link,
	})
	require.NoError(t, err)
	assert.Equal(t, body, n.Body, "stored row keeps the full body")
	assert.Len(t, store.Notifications("bob"), 1)
	pusher.AssertExpectations(t)
}

func TestNotifyPushFailureIsNotReturned(t *testing.T) {
	store := mocks.NewMemoryStore(nil)
	pusher := new(mocks.PusherMock)
	fanout := notify.NewFanout(store, pusher, nil)

	pusher.On("Push", mock.Anything, "bob", mock.Anything).Return(assert.AnError).Once()

	_, err := fanout.Notify(context.Background(), notify.Input{RecipientID: "bob", Type: models.NotificationSystem, Title: "hi"})
	require.NoError(t, err)
	assert.Len(t, store.Notifications("bob"), 1)
}

func TestNotifyStorageFailure(t *testing.T) {
	repo := new(mocks.NotificationRepositoryMock)
	pusher := new(mocks.PusherMock)
	fanout := notify.NewFanout(repo, pusher, nil)

	repo.On("CreateNotification", mock.Anything, mock.Anything).Return(nil, assert.AnError).Once()

	_, err := fanout.Notify(context.Background(), notify.Input{RecipientID: "bob", Type: models.NotificationSystem, Title: "hi"})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindStorage))
	pusher.AssertNotCalled(t, "Push", mock.Anything, mock.Anything, mock.Anything)
}

func TestNotifyRejectsUnknownType(t *testing.T) {
	fanout := notify.NewFanout(mocks.NewMemoryStore(nil), nil, nil)
	_, err := fanout.Notify(context.Background(), notify.Input{RecipientID: "bob", Type: "spam", Title: "x"})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestMessageSentSkipsAuthorAndViewers(t *testing.T) {
	ctx := context.Background()
	store := mocks.NewMemoryStore(nil)
	viewers := presence.NewMemory()
	fanout := notify.NewFanout(store, nil, viewers)

	require.NoError(t, viewers.Enter(ctx, "g1", "carol", "conn-1"))
	room := models.Room{
		ID:        "g1",
		Kind:      models.RoomKindGroup,
		MemberIDs: []string{"alice", "bob", "carol"},
		Group:     &models.GroupInfo{Name: "Climbing"},
	}
	fanout.MessageSent(ctx, room, models.Message{ID: "m1", RoomID: "g1", AuthorID: "alice"}, "see you at 6")

	assert.Empty(t, store.Notifications("alice"))
	assert.Empty(t, store.Notifications("carol"))
	got := store.Notifications("bob")
	require.Len(t, got, 1)
	assert.Equal(t, models.NotificationMessage, got[0].Type)
	assert.Equal(t, "Climbing", got[0].Title)
	assert.Equal(t, "see you at 6", got[0].Body)
	require.NotNil(t, got[0].SenderID)
	assert.Equal(t, "alice", *got[0].SenderID)
}

func TestRecipientOperations(t *testing.T) {
	ctx := context.Background()
	store := mocks.NewMemoryStore(nil)
	fanout := notify.NewFanout(store, nil, nil)

	n, err := fanout.Notify(ctx, notify.Input{RecipientID: "bob", Type: models.NotificationCalendar, Title: "Standup"})
	require.NoError(t, err)

	err = fanout.MarkRead(ctx, n.ID, "mallory")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	_, err = fanout.Get(ctx, n.ID, "mallory")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	require.NoError(t, fanout.MarkRead(ctx, n.ID, "bob"))
	list, err := fanout.List(ctx, "bob", 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].Read)

	assert.True(t, apperr.Is(fanout.Delete(ctx, n.ID, "mallory"), apperr.KindNotFound))
	require.NoError(t, fanout.Delete(ctx, n.ID, "bob"))
	assert.Empty(t, store.Notifications("bob"))
}

func TestPurgeReadUsesCutoff(t *testing.T) {
	repo := new(mocks.NotificationRepositoryMock)
	fanout := notify.NewFanout(repo, nil, nil)

	repo.On("PurgeReadBefore", mock.Anything, mock.MatchedBy(func(before time.Time) bool {
		return time.Since(before) > 29*24*time.Hour
	})).Return(int64(4), nil).Once()

	n, err := fanout.PurgeRead(context.Background(), 30*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
	repo.AssertExpectations(t)
}
