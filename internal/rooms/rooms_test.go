package rooms

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"collab-service/internal/apperr"
	"collab-service/internal/mocks"
	"collab-service/internal/models"
)

func newService() (*Service, *mocks.MemoryStore) {
	store := mocks.NewMemoryStore(nil)
	return NewService(store, store), store
}

func TestPrivateRoomIDIsSymmetric(t *testing.T) {
	assert.Equal(t, PrivateRoomID("alice", "bob"), PrivateRoomID("bob", "alice"))
	assert.NotEqual(t, PrivateRoomID("alice", "bob"), PrivateRoomID("alice", "carol"))
	// A separator keeps ("ab","c") and ("a","bc") apart.
	assert.NotEqual(t, PrivateRoomID("ab", "c"), PrivateRoomID("a", "bc"))
}

func TestResolvePrivateRoomIsIdempotent(t *testing.T) {
	svc, store := newService()
	ctx := context.Background()

	first, err := svc.ResolvePrivateRoom(ctx, "alice", "bob")
	require.NoError(t, err)
	second, err := svc.ResolvePrivateRoom(ctx, "bob", "alice")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, models.RoomKindPrivate, first.Kind)
	assert.ElementsMatch(t, []string{"alice", "bob"}, second.MemberIDs)
	assert.Equal(t, 1, store.Count("rooms"))
}

func TestResolvePrivateRoomConcurrent(t *testing.T) {
	svc, store := newService()
	ctx := context.Background()

	var wg sync.WaitGroup
	ids := make([]string, 8)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			a, b := "alice", "bob"
			if i%2 == 1 {
				a, b = b, a
			}
			room, err := svc.ResolvePrivateRoom(ctx, a, b)
			assert.NoError(t, err)
			ids[i] = room.ID
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
	assert.Equal(t, 1, store.Count("rooms"))
}

func TestResolvePrivateRoomValidation(t *testing.T) {
	svc, _ := newService()
	_, err := svc.ResolvePrivateRoom(context.Background(), "alice", "alice")
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	_, err = svc.ResolvePrivateRoom(context.Background(), "", "bob")
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestResolvePrivateRoomStorageError(t *testing.T) {
	repo := new(mocks.RoomRepositoryMock)
	svc := NewService(repo, nil)
	repo.On("EnsurePrivateRoom", mock.Anything, PrivateRoomID("a", "b"), "a", "b").Return(nil, assert.AnError).Once()

	_, err := svc.ResolvePrivateRoom(context.Background(), "a", "b")
	assert.True(t, apperr.Is(err, apperr.KindStorage))
	repo.AssertExpectations(t)
}

func TestCreateGroup(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	room, err := svc.CreateGroup(ctx, "alice", "  Book club ", []string{"bob", "alice", "bob"})
	require.NoError(t, err)
	assert.Equal(t, models.RoomKindGroup, room.Kind)
	assert.Equal(t, "Book club", room.Group.Name)
	assert.ElementsMatch(t, []string{"alice", "bob"}, room.MemberIDs)

	_, err = svc.CreateGroup(ctx, "alice", "", []string{"bob"})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = svc.CreateGroup(ctx, "alice", "solo", []string{"alice"})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestListRoomsOrderedByActivity(t *testing.T) {
	svc, store := newService()
	ctx := context.Background()

	older, err := svc.CreateGroup(ctx, "alice", "older", []string{"bob"})
	require.NoError(t, err)
	newer, err := svc.CreateGroup(ctx, "alice", "newer", []string{"carol"})
	require.NoError(t, err)
	_, err = svc.CreateGroup(ctx, "bob", "not mine", []string{"carol"})
	require.NoError(t, err)

	rooms, err := svc.ListRoomsForUser(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, rooms, 2)
	assert.Equal(t, newer.ID, rooms[0].ID)

	_, err = store.CreateMessage(ctx, "m1", older.ID, "alice", "bump")
	require.NoError(t, err)
	rooms, err = svc.ListRoomsForUser(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, older.ID, rooms[0].ID)
}

func TestUpdateGroup(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()
	group, err := svc.CreateGroup(ctx, "alice", "Trip", []string{"bob"})
	require.NoError(t, err)

	avatar := "https://cdn.example.com/a.png"
	updated, err := svc.UpdateGroup(ctx, group.ID, "bob", models.GroupPatch{AvatarURL: &avatar})
	require.NoError(t, err)
	assert.Equal(t, "Trip", updated.Group.Name)
	assert.Equal(t, avatar, updated.Group.AvatarURL)

	blank := "  "
	_, err = svc.UpdateGroup(ctx, group.ID, "bob", models.GroupPatch{Name: &blank})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	name := "Trip 2"
	_, err = svc.UpdateGroup(ctx, group.ID, "mallory", models.GroupPatch{Name: &name})
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	_, err = svc.UpdateGroup(ctx, "missing", "bob", models.GroupPatch{Name: &name})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	private, err := svc.ResolvePrivateRoom(ctx, "alice", "bob")
	require.NoError(t, err)
	_, err = svc.UpdateGroup(ctx, private.ID, "alice", models.GroupPatch{Name: &name})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestLeaveGroup(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()
	group, err := svc.CreateGroup(ctx, "alice", "Trip", []string{"bob", "carol"})
	require.NoError(t, err)

	require.NoError(t, svc.LeaveGroup(ctx, group.ID, "bob"))
	require.NoError(t, svc.LeaveGroup(ctx, group.ID, "bob"))

	_, err = svc.AuthorizeView(ctx, group.ID, "bob")
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	private, err := svc.ResolvePrivateRoom(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.True(t, apperr.Is(svc.LeaveGroup(ctx, private.ID, "alice"), apperr.KindValidation))
}

func TestAuthorizeChatRequiresAcceptedFriendship(t *testing.T) {
	svc, store := newService()
	ctx := context.Background()

	room, err := svc.ResolvePrivateRoom(ctx, "alice", "bob")
	require.NoError(t, err)

	_, err = svc.AuthorizeChat(ctx, room.ID, "alice")
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	_, err = store.CreatePending(ctx, "f1", "alice", "bob")
	require.NoError(t, err)
	ok, err := svc.ChatAllowed(ctx, room, "alice")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = store.Accept(ctx, "alice", "bob")
	require.NoError(t, err)
	_, err = svc.AuthorizeChat(ctx, room.ID, "bob")
	require.NoError(t, err)

	_, err = svc.AuthorizeChat(ctx, room.ID, "mallory")
	assert.True(t, apperr.Is(err, apperr.KindForbidden))
}

func TestChatAllowedStorageError(t *testing.T) {
	svc, store := newService()
	ctx := context.Background()
	room, err := svc.ResolvePrivateRoom(ctx, "alice", "bob")
	require.NoError(t, err)

	store.FailNext("GetBetween", assert.AnError)
	_, err = svc.ChatAllowed(ctx, room, "alice")
	assert.True(t, apperr.Is(err, apperr.KindStorage))
}
