package friends

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"collab-service/internal/apperr"
	"collab-service/internal/models"
	"collab-service/internal/notify"
	"collab-service/internal/repositories"
)

const (
	minQueryRunes = 3
	searchLimit   = 20
)

// Notifier creates notifications for relationship changes.
type Notifier interface {
	Notify(ctx context.Context, in notify.Input) (models.Notification, error)
}

// Service drives the friendship state machine none → pending → accepted.
type Service struct {
	friendships repositories.FriendshipRepository
	profiles    repositories.ProfileRepository
	notifier    Notifier
}

// NewService builds a Service. notifier may be nil.
func NewService(friendships repositories.FriendshipRepository, profiles repositories.ProfileRepository, notifier Notifier) *Service {
	return &Service{friendships: friendships, profiles: profiles, notifier: notifier}
}

// Request creates a pending request, or returns the pair's existing record
// unchanged whatever its direction or state.
func (s *Service) Request(ctx context.Context, requesterID, addresseeID string) (models.Friendship, error) {
	if requesterID == "" || addresseeID == "" {
		return models.Friendship{}, apperr.Validation("both users are required")
	}
	if requesterID == addresseeID {
		return models.Friendship{}, apperr.Validation("cannot befriend yourself")
	}

	existing, err := s.friendships.GetBetween(ctx, requesterID, addresseeID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, repositories.ErrFriendshipNotFound) {
		return models.Friendship{}, apperr.Storage("load friendship", err)
	}

	if _, err := s.profiles.GetProfile(ctx, addresseeID); err != nil {
		if errors.Is(err, repositories.ErrProfileNotFound) {
			return models.Friendship{}, apperr.NotFound("user %s not found", addresseeID)
		}
		return models.Friendship{}, apperr.Storage("load profile", err)
	}

	f, err := s.friendships.CreatePending(ctx, uuid.NewString(), requesterID, addresseeID)
	if errors.Is(err, repositories.ErrFriendshipExists) {
		// lost a race with the other side
		existing, err := s.friendships.GetBetween(ctx, requesterID, addresseeID)
		if err != nil {
			return models.Friendship{}, apperr.Storage("load friendship", err)
		}
		return existing, nil
	}
	if err != nil {
		return models.Friendship{}, apperr.Storage("create friend request", err)
	}

	link := "/friends/requests"
	s.notify(ctx, notify.Input{
		RecipientID: addresseeID,
		Type:        models.NotificationFriendRequest,
		Title:       "New friend request",
		Body:        fmt.Sprintf("%s wants to be your friend", s.displayName(ctx, requesterID)),
		SenderID:    &requesterID,
		Link:        &link,
	})
	return f, nil
}

// Accept moves the pending request from requesterID to callerID to accepted.
// Any other state is left alone and reported with ok=false.
func (s *Service) Accept(ctx context.Context, callerID, requesterID string) (models.Friendship, bool, error) {
	f, err := s.friendships.Accept(ctx, requesterID, callerID)
	if errors.Is(err, repositories.ErrFriendshipNotFound) {
		current, err := s.friendships.GetBetween(ctx, callerID, requesterID)
		if err != nil && !errors.Is(err, repositories.ErrFriendshipNotFound) {
			return models.Friendship{}, false, apperr.Storage("load friendship", err)
		}
		return current, false, nil
	}
	if err != nil {
		return models.Friendship{}, false, apperr.Storage("accept friend request", err)
	}

	link := "/friends"
	s.notify(ctx, notify.Input{
		RecipientID: requesterID,
		Type:        models.NotificationSystem,
		Title:       "Friend request accepted",
		Body:        fmt.Sprintf("%s accepted your friend request", s.displayName(ctx, callerID)),
		SenderID:    &callerID,
		Link:        &link,
	})
	return f, true, nil
}

// Decline removes a pending request between the two users. The addressee
// declines and the requester withdraws through the same call; the pair
// returns to none. Accepted friendships are not touched.
func (s *Service) Decline(ctx context.Context, callerID, otherID string) (bool, error) {
	_, err := s.friendships.DeletePending(ctx, callerID, otherID)
	if errors.Is(err, repositories.ErrFriendshipNotFound) {
		return false, nil
	}
	if err != nil {
		return false, apperr.Storage("decline friend request", err)
	}
	return true, nil
}

// Status returns the relationship between two users.
func (s *Service) Status(ctx context.Context, userA, userB string) (models.FriendshipStatus, error) {
	f, err := s.friendships.GetBetween(ctx, userA, userB)
	if errors.Is(err, repositories.ErrFriendshipNotFound) {
		return models.FriendshipNone, nil
	}
	if err != nil {
		return "", apperr.Storage("load friendship", err)
	}
	return f.Status, nil
}

// Search matches usernames and display names, excluding the caller, and
// annotates each result with its relationship to the caller.
func (s *Service) Search(ctx context.Context, callerID, query string) ([]models.UserSummary, error) {
	query = strings.TrimSpace(query)
	if utf8.RuneCountInString(query) < minQueryRunes {
		return nil, apperr.Validation("search needs at least %d characters", minQueryRunes)
	}
	results, err := s.profiles.SearchProfiles(ctx, query, callerID, searchLimit)
	if err != nil {
		return nil, apperr.Storage("search users", err)
	}
	if len(results) == 0 {
		return []models.UserSummary{}, nil
	}

	ids := make([]string, 0, len(results))
	for _, r := range results {
		ids = append(ids, r.ID)
	}
	relations, err := s.friendships.ListForUser(ctx, callerID, ids)
	if err != nil {
		return nil, apperr.Storage("load relationships", err)
	}
	byOther := make(map[string]models.Friendship, len(relations))
	for _, f := range relations {
		byOther[f.Other(callerID)] = f
	}

	for i := range results {
		results[i].Relationship = models.FriendshipNone
		if f, ok := byOther[results[i].ID]; ok {
			results[i].Relationship = f.Status
			results[i].RequestedByMe = f.Status == models.FriendshipPending && f.RequesterID == callerID
		}
	}
	return results, nil
}

// ListFriends returns accepted friends.
func (s *Service) ListFriends(ctx context.Context, userID string) ([]models.UserSummary, error) {
	list, err := s.friendships.ListFriends(ctx, userID)
	if err != nil {
		return nil, apperr.Storage("list friends", err)
	}
	return list, nil
}

// ListPendingIncoming returns requests waiting for userID to answer.
func (s *Service) ListPendingIncoming(ctx context.Context, userID string) ([]models.FriendRequest, error) {
	list, err := s.friendships.ListPendingIncoming(ctx, userID)
	if err != nil {
		return nil, apperr.Storage("list friend requests", err)
	}
	return list, nil
}

func (s *Service) displayName(ctx context.Context, userID string) string {
	p, err := s.profiles.GetProfile(ctx, userID)
	if err != nil {
		return "Someone"
	}
	if p.DisplayName != "" {
		return p.DisplayName
	}
	return p.Username
}

func (s *Service) notify(ctx context.Context, in notify.Input) {
	if s.notifier == nil {
		return
	}
	if _, err := s.notifier.Notify(ctx, in); err != nil {
		log.Printf("friends: notification failed recipient=%s type=%s: %v", in.RecipientID, in.Type, err)
	}
}
