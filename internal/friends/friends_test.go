package friends

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"collab-service/internal/apperr"
	"collab-service/internal/mocks"
	"collab-service/internal/models"
	"collab-service/internal/notify"
)

func newService(t *testing.T) (*Service, *mocks.MemoryStore) {
	t.Helper()
	store := mocks.NewMemoryStore(nil)
	for _, p := range []models.UserSummary{
		{ID: "alice", Username: "alice", DisplayName: "Alice Liddell"},
		{ID: "bob", Username: "bobby", DisplayName: "Bob"},
		{ID: "carol", Username: "carol_ann", DisplayName: "Carol"},
		{ID: "dave", Username: "dave", DisplayName: "Bobcat Dave"},
	} {
		store.AddProfile(p)
	}
	return NewService(store, store, notify.NewFanout(store, nil, nil)), store
}

func TestRequestCreatesPendingAndNotifies(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()

	f, err := svc.Request(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.Equal(t, models.FriendshipPending, f.Status)
	assert.Equal(t, "alice", f.RequesterID)

	got := store.Notifications("bob")
	require.Len(t, got, 1)
	assert.Equal(t, models.NotificationFriendRequest, got[0].Type)
	assert.Contains(t, got[0].Body, "Alice Liddell")
}

func TestRequestInEitherDirectionIsNoop(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()

	first, err := svc.Request(ctx, "alice", "bob")
	require.NoError(t, err)
	again, err := svc.Request(ctx, "bob", "alice")
	require.NoError(t, err)

	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, "alice", again.RequesterID)
	assert.Equal(t, 1, store.Count("friendships"))
	assert.Empty(t, store.Notifications("alice"))
}

func TestRequestValidation(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.Request(ctx, "alice", "alice")
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	_, err = svc.Request(ctx, "alice", "ghost")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestAcceptOnlyByAddressee(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()
	_, err := svc.Request(ctx, "alice", "bob")
	require.NoError(t, err)

	f, ok, err := svc.Accept(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.False(t, ok, "requester cannot accept their own request")
	assert.Equal(t, models.FriendshipPending, f.Status)

	_, ok, err = svc.Accept(ctx, "carol", "alice")
	require.NoError(t, err)
	assert.False(t, ok)

	f, ok, err = svc.Accept(ctx, "bob", "alice")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, models.FriendshipAccepted, f.Status)

	system := store.Notifications("alice")
	require.Len(t, system, 1)
	assert.Equal(t, models.NotificationSystem, system[0].Type)

	_, ok, err = svc.Accept(ctx, "bob", "alice")
	require.NoError(t, err)
	assert.False(t, ok, "already accepted")
	assert.Len(t, store.Notifications("alice"), 1)
}

func TestDeclineAndWithdrawRevertToNone(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.Request(ctx, "alice", "bob")
	require.NoError(t, err)
	removed, err := svc.Decline(ctx, "bob", "alice")
	require.NoError(t, err)
	assert.True(t, removed)
	status, err := svc.Status(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.Equal(t, models.FriendshipNone, status)

	_, err = svc.Request(ctx, "alice", "bob")
	require.NoError(t, err)
	removed, err = svc.Decline(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.True(t, removed, "requester can withdraw")

	_, err = svc.Request(ctx, "alice", "bob")
	require.NoError(t, err)
	_, _, err = svc.Accept(ctx, "bob", "alice")
	require.NoError(t, err)
	removed, err = svc.Decline(ctx, "bob", "alice")
	require.NoError(t, err)
	assert.False(t, removed)
	status, _ = svc.Status(ctx, "alice", "bob")
	assert.Equal(t, models.FriendshipAccepted, status)
}

func TestSearchAnnotatesRelationships(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.Request(ctx, "alice", "bob")
	require.NoError(t, err)
	_, err = svc.Request(ctx, "dave", "alice")
	require.NoError(t, err)

	results, err := svc.Search(ctx, "alice", "BOB")
	require.NoError(t, err)
	require.Len(t, results, 2)

	byID := map[string]models.UserSummary{}
	for _, r := range results {
		byID[r.ID] = r
	}
	assert.Equal(t, models.FriendshipPending, byID["bob"].Relationship)
	assert.True(t, byID["bob"].RequestedByMe)
	assert.Equal(t, models.FriendshipPending, byID["dave"].Relationship)
	assert.False(t, byID["dave"].RequestedByMe)

	results, err = svc.Search(ctx, "alice", "ali")
	require.NoError(t, err)
	assert.Empty(t, results, "caller is excluded")

	results, err = svc.Search(ctx, "alice", "carol")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, models.FriendshipNone, results[0].Relationship)
}

func TestSearchMinimumLength(t *testing.T) {
	svc, _ := newService(t)
	_, err := svc.Search(context.Background(), "alice", " bo ")
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestListViews(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	_, err := svc.Request(ctx, "alice", "bob")
	require.NoError(t, err)
	_, err = svc.Request(ctx, "carol", "bob")
	require.NoError(t, err)
	_, _, err = svc.Accept(ctx, "bob", "alice")
	require.NoError(t, err)

	friends, err := svc.ListFriends(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, friends, 1)
	assert.Equal(t, "alice", friends[0].ID)

	pending, err := svc.ListPendingIncoming(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "carol", pending[0].Requester.ID)
}

func TestStorageErrorsSurface(t *testing.T) {
	svc, store := newService(t)
	store.FailNext("ListFriends", assert.AnError)
	_, err := svc.ListFriends(context.Background(), "bob")
	assert.True(t, apperr.Is(err, apperr.KindStorage))

	store.FailNext("CreatePending", assert.AnError)
	_, err = svc.Request(context.Background(), "alice", "bob")
	assert.True(t, apperr.Is(err, apperr.KindStorage))
}
