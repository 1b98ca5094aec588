package messages

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"collab-service/internal/apperr"
	"collab-service/internal/feed"
	"collab-service/internal/models"
	"collab-service/internal/observability"
	"collab-service/internal/repositories"
)

// MaxContentRunes bounds a single message.
const MaxContentRunes = 4000

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

// Scope selects who a deletion applies to.
type Scope string

const (
	ScopeSelf     Scope = "self"
	ScopeEveryone Scope = "everyone"
)

// ParseScope validates a scope string.
func ParseScope(raw string) (Scope, error) {
	switch Scope(raw) {
	case ScopeSelf, ScopeEveryone:
		return Scope(raw), nil
	}
	return "", apperr.Validation("scope must be %q or %q", ScopeSelf, ScopeEveryone)
}

// Authorizer is the part of the room directory the pipeline relies on.
type Authorizer interface {
	AuthorizeView(ctx context.Context, roomID, userID string) (models.Room, error)
	AuthorizeChat(ctx context.Context, roomID, userID string) (models.Room, error)
}

// Fanout is told about every stored message.
type Fanout interface {
	MessageSent(ctx context.Context, room models.Room, msg models.Message, preview string)
}

// Service is the message pipeline.
type Service struct {
	repo   repositories.MessageRepository
	rooms  Authorizer
	fanout Fanout
	feed   feed.Subscriber
}

// NewService builds a Service. fanout may be nil.
func NewService(repo repositories.MessageRepository, rooms Authorizer, fanout Fanout, subscriber feed.Subscriber) *Service {
	return &Service{repo: repo, rooms: rooms, fanout: fanout, feed: subscriber}
}

// Send stores a message and notifies members who are not viewing the room.
// A failed store is returned as a storage error and never retried here.
func (s *Service) Send(ctx context.Context, roomID, authorID, content string) (models.Message, error) {
	if err := validateContent(content); err != nil {
		return models.Message{}, err
	}
	room, err := s.rooms.AuthorizeChat(ctx, roomID, authorID)
	if err != nil {
		return models.Message{}, err
	}

	msg, err := s.repo.CreateMessage(ctx, uuid.NewString(), roomID, authorID, content)
	if errors.Is(err, repositories.ErrRoomNotFound) {
		return models.Message{}, apperr.NotFound("room %s not found", roomID)
	}
	if err != nil {
		return models.Message{}, apperr.Storage("send message", err)
	}
	observability.IncMessageOp("send")

	if s.fanout != nil {
		s.fanout.MessageSent(ctx, room, msg, Preview(content))
	}
	return msg, nil
}

// Edit replaces the content of the editor's own message.
func (s *Service) Edit(ctx context.Context, messageID, editorID, content string) (models.Message, error) {
	if err := validateContent(content); err != nil {
		return models.Message{}, err
	}
	current, err := s.load(ctx, messageID)
	if err != nil {
		return models.Message{}, err
	}
	if current.AuthorID != editorID {
		return models.Message{}, apperr.Forbidden("only the author can edit a message")
	}
	if current.DeletedForEveryone {
		return models.Message{}, apperr.Forbidden("message was deleted")
	}
	if _, err := s.rooms.AuthorizeChat(ctx, current.RoomID, editorID); err != nil {
		return models.Message{}, err
	}

	msg, err := s.repo.UpdateContent(ctx, messageID, editorID, content)
	if errors.Is(err, repositories.ErrMessageNotFound) {
		// deleted for everyone between the load and the update
		return models.Message{}, apperr.Forbidden("message was deleted")
	}
	if err != nil {
		return models.Message{}, apperr.Storage("edit message", err)
	}
	observability.IncMessageOp("edit")
	return msg.ForViewer(editorID), nil
}

// Delete hides a message for the requester or, for its author, for everyone.
// Repeating a deletion has no further effect.
func (s *Service) Delete(ctx context.Context, messageID, requesterID string, scope Scope) (models.Message, error) {
	if _, err := ParseScope(string(scope)); err != nil {
		return models.Message{}, err
	}
	current, err := s.load(ctx, messageID)
	if err != nil {
		return models.Message{}, err
	}
	if _, err := s.rooms.AuthorizeView(ctx, current.RoomID, requesterID); err != nil {
		return models.Message{}, err
	}

	var msg models.Message
	switch scope {
	case ScopeEveryone:
		if current.AuthorID != requesterID {
			return models.Message{}, apperr.Forbidden("only the author can delete for everyone")
		}
		if current.DeletedForEveryone {
			return current.ForViewer(requesterID), nil
		}
		msg, err = s.repo.MarkDeletedForEveryone(ctx, messageID, requesterID)
	default:
		if current.DeletedForEveryone || current.DeletedForUser(requesterID) {
			return current.ForViewer(requesterID), nil
		}
		msg, err = s.repo.MarkDeletedFor(ctx, messageID, requesterID)
	}
	if errors.Is(err, repositories.ErrMessageNotFound) {
		return models.Message{}, apperr.NotFound("message %s not found", messageID)
	}
	if err != nil {
		return models.Message{}, apperr.Storage("delete message", err)
	}
	observability.IncMessageOp("delete_" + string(scope))
	return msg.ForViewer(requesterID), nil
}

// History returns the messages visible to viewerID created at or after since.
func (s *Service) History(ctx context.Context, roomID, viewerID string, since time.Time, limit int) ([]models.Message, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	if _, err := s.rooms.AuthorizeView(ctx, roomID, viewerID); err != nil {
		return nil, err
	}
	msgs, err := s.repo.ListMessages(ctx, roomID, since, limit)
	if err != nil {
		return nil, apperr.Storage("load messages", err)
	}
	out := make([]models.Message, 0, len(msgs))
	for _, m := range msgs {
		if m.VisibleTo(viewerID) {
			out = append(out, m.ForViewer(viewerID))
		}
	}
	return out, nil
}

func (s *Service) load(ctx context.Context, messageID string) (models.Message, error) {
	msg, err := s.repo.GetMessage(ctx, messageID)
	if errors.Is(err, repositories.ErrMessageNotFound) {
		return models.Message{}, apperr.NotFound("message %s not found", messageID)
	}
	if err != nil {
		return models.Message{}, apperr.Storage("load message", err)
	}
	return msg, nil
}

func validateContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return apperr.Validation("message content is required")
	}
	if utf8.RuneCountInString(content) > MaxContentRunes {
		return apperr.Validation("message exceeds %d characters", MaxContentRunes)
	}
	parsed := ParseContent(content)
	if parsed.IsMedia() && !validMediaURL(parsed.URL) {
		return apperr.Validation("media reference needs an http(s) url")
	}
	return nil
}
