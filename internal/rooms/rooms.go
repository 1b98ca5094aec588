package rooms

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"collab-service/internal/apperr"
	"collab-service/internal/models"
	"collab-service/internal/repositories"
)

// privateNamespace seeds the name-based UUIDs of private rooms.
var privateNamespace = uuid.MustParse("6f1f4f52-9a1c-4c43-8a8e-2b7d0c1e5a10")

// PrivateRoomID derives the room id for a user pair. Argument order does not matter.
func PrivateRoomID(userA, userB string) string {
	lo, hi := userA, userB
	if hi < lo {
		lo, hi = hi, lo
	}
	return uuid.NewSHA1(privateNamespace, []byte(lo+"\x00"+hi)).String()
}

// Service is the room directory.
type Service struct {
	rooms       repositories.RoomRepository
	friendships repositories.FriendshipRepository
}

// NewService builds a Service.
func NewService(rooms repositories.RoomRepository, friendships repositories.FriendshipRepository) *Service {
	return &Service{rooms: rooms, friendships: friendships}
}

// ResolvePrivateRoom returns the pair's private room, creating it on first contact.
func (s *Service) ResolvePrivateRoom(ctx context.Context, userA, userB string) (models.Room, error) {
	if userA == "" || userB == "" {
		return models.Room{}, apperr.Validation("both users are required")
	}
	if userA == userB {
		return models.Room{}, apperr.Validation("cannot open a private room with yourself")
	}
	room, err := s.rooms.EnsurePrivateRoom(ctx, PrivateRoomID(userA, userB), userA, userB)
	if err != nil {
		return models.Room{}, apperr.Storage("resolve private room", err)
	}
	return room, nil
}

// CreateGroup creates a group room. The creator is always a member.
func (s *Service) CreateGroup(ctx context.Context, creatorID, name string, memberIDs []string) (models.Room, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Room{}, apperr.Validation("group name is required")
	}
	members := distinct(append([]string{creatorID}, memberIDs...))
	if len(members) < 2 {
		return models.Room{}, apperr.Validation("a group needs at least 2 distinct members")
	}
	room, err := s.rooms.CreateGroup(ctx, uuid.NewString(), name, members)
	if err != nil {
		return models.Room{}, apperr.Storage("create group", err)
	}
	return room, nil
}

// ListRoomsForUser returns the user's rooms, most recently active first.
func (s *Service) ListRoomsForUser(ctx context.Context, userID string) ([]models.Room, error) {
	rooms, err := s.rooms.ListRoomsForUser(ctx, userID)
	if err != nil {
		return nil, apperr.Storage("list rooms", err)
	}
	return rooms, nil
}

// UpdateGroup applies a partial update on behalf of a member.
func (s *Service) UpdateGroup(ctx context.Context, roomID, callerID string, patch models.GroupPatch) (models.Room, error) {
	if patch.Name != nil {
		trimmed := strings.TrimSpace(*patch.Name)
		if trimmed == "" {
			return models.Room{}, apperr.Validation("group name cannot be blank")
		}
		patch.Name = &trimmed
	}
	room, err := s.GetRoom(ctx, roomID)
	if err != nil {
		return models.Room{}, err
	}
	if room.Kind != models.RoomKindGroup {
		return models.Room{}, apperr.NotFound("group %s not found", roomID)
	}
	if !room.HasMember(callerID) {
		return models.Room{}, apperr.Forbidden("not a group member")
	}
	if patch.Empty() {
		return room, nil
	}
	updated, err := s.rooms.UpdateGroup(ctx, roomID, patch)
	if errors.Is(err, repositories.ErrRoomNotFound) {
		return models.Room{}, apperr.NotFound("group %s not found", roomID)
	}
	if err != nil {
		return models.Room{}, apperr.Storage("update group", err)
	}
	return updated, nil
}

// LeaveGroup removes the user from a group. Leaving twice is not an error.
func (s *Service) LeaveGroup(ctx context.Context, roomID, userID string) error {
	room, err := s.GetRoom(ctx, roomID)
	if err != nil {
		return err
	}
	if room.Kind != models.RoomKindGroup {
		return apperr.Validation("only group rooms can be left")
	}
	if err := s.rooms.RemoveMember(ctx, roomID, userID); err != nil {
		return apperr.Storage("leave group", err)
	}
	return nil
}

// GetRoom loads a room.
func (s *Service) GetRoom(ctx context.Context, roomID string) (models.Room, error) {
	room, err := s.rooms.GetRoom(ctx, roomID)
	if errors.Is(err, repositories.ErrRoomNotFound) {
		return models.Room{}, apperr.NotFound("room %s not found", roomID)
	}
	if err != nil {
		return models.Room{}, apperr.Storage("load room", err)
	}
	return room, nil
}

// AuthorizeView loads the room and checks membership.
func (s *Service) AuthorizeView(ctx context.Context, roomID, userID string) (models.Room, error) {
	room, err := s.GetRoom(ctx, roomID)
	if err != nil {
		return models.Room{}, err
	}
	if !room.HasMember(userID) {
		return models.Room{}, apperr.Forbidden("not a room member")
	}
	return room, nil
}

// AuthorizeChat checks that userID may change the room's messages. Private
// rooms also need an accepted friendship between the two members.
func (s *Service) AuthorizeChat(ctx context.Context, roomID, userID string) (models.Room, error) {
	room, err := s.AuthorizeView(ctx, roomID, userID)
	if err != nil {
		return models.Room{}, err
	}
	ok, err := s.ChatAllowed(ctx, room, userID)
	if err != nil {
		return models.Room{}, err
	}
	if !ok {
		return models.Room{}, apperr.Forbidden("friendship not accepted")
	}
	return room, nil
}

// ChatAllowed reports whether a member may chat in room. It is false for a
// private room whose friendship is missing or still pending.
func (s *Service) ChatAllowed(ctx context.Context, room models.Room, userID string) (bool, error) {
	if !room.HasMember(userID) {
		return false, nil
	}
	if !room.IsPrivate() {
		return true, nil
	}
	peer := room.Peer(userID)
	if peer == "" {
		return false, nil
	}
	f, err := s.friendships.GetBetween(ctx, userID, peer)
	if errors.Is(err, repositories.ErrFriendshipNotFound) {
		return false, nil
	}
	if err != nil {
		return false, apperr.Storage("check friendship", err)
	}
	return f.Status == models.FriendshipAccepted, nil
}

func distinct(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
