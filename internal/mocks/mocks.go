package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"collab-service/internal/models"
	"collab-service/internal/notify"
)

type RoomRepositoryMock struct {
	mock.Mock
}

func (m *RoomRepositoryMock) EnsurePrivateRoom(ctx context.Context, roomID string, userA, userB string) (models.Room, error) {
	args := m.Called(ctx, roomID, userA, userB)
	var room models.Room
	if val := args.Get(0); val != nil {
		room = val.(models.Room)
	}
	return room, args.Error(1)
}

func (m *RoomRepositoryMock) CreateGroup(ctx context.Context, roomID string, name string, memberIDs []string) (models.Room, error) {
	args := m.Called(ctx, roomID, name, memberIDs)
	var room models.Room
	if val := args.Get(0); val != nil {
		room = val.(models.Room)
	}
	return room, args.Error(1)
}

func (m *RoomRepositoryMock) GetRoom(ctx context.Context, roomID string) (models.Room, error) {
	args := m.Called(ctx, roomID)
	var room models.Room
	if val := args.Get(0); val != nil {
		room = val.(models.Room)
	}
	return room, args.Error(1)
}

func (m *RoomRepositoryMock) ListRoomsForUser(ctx context.Context, userID string) ([]models.Room, error) {
	args := m.Called(ctx, userID)
	var list []models.Room
	if val := args.Get(0); val != nil {
		list = val.([]models.Room)
	}
	return list, args.Error(1)
}

func (m *RoomRepositoryMock) UpdateGroup(ctx context.Context, roomID string, patch models.GroupPatch) (models.Room, error) {
	args := m.Called(ctx, roomID, patch)
	var room models.Room
	if val := args.Get(0); val != nil {
		room = val.(models.Room)
	}
	return room, args.Error(1)
}

func (m *RoomRepositoryMock) RemoveMember(ctx context.Context, roomID string, userID string) error {
	args := m.Called(ctx, roomID, userID)
	return args.Error(0)
}

type MessageRepositoryMock struct {
	mock.Mock
}

func (m *MessageRepositoryMock) CreateMessage(ctx context.Context, messageID, roomID, authorID, content string) (models.Message, error) {
	args := m.Called(ctx, messageID, roomID, authorID, content)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) GetMessage(ctx context.Context, messageID string) (models.Message, error) {
	args := m.Called(ctx, messageID)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) ListMessages(ctx context.Context, roomID string, since time.Time, limit int) ([]models.Message, error) {
	args := m.Called(ctx, roomID, since, limit)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Error(1)
}

func (m *MessageRepositoryMock) ListMessagesAfter(ctx context.Context, roomID string, createdAt time.Time, afterID string, limit int) ([]models.Message, error) {
	args := m.Called(ctx, roomID, createdAt, afterID, limit)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Error(1)
}

func (m *MessageRepositoryMock) UpdateContent(ctx context.Context, messageID, authorID, content string) (models.Message, error) {
	args := m.Called(ctx, messageID, authorID, content)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) MarkDeletedForEveryone(ctx context.Context, messageID, authorID string) (models.Message, error) {
	args := m.Called(ctx, messageID, authorID)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) MarkDeletedFor(ctx context.Context, messageID, userID string) (models.Message, error) {
	args := m.Called(ctx, messageID, userID)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

type NotificationRepositoryMock struct {
	mock.Mock
}

func (m *NotificationRepositoryMock) CreateNotification(ctx context.Context, n models.Notification) (models.Notification, error) {
	args := m.Called(ctx, n)
	var out models.Notification
	if val := args.Get(0); val != nil {
		out = val.(models.Notification)
	}
	return out, args.Error(1)
}

func (m *NotificationRepositoryMock) ListNotifications(ctx context.Context, recipientID string, limit int) ([]models.Notification, error) {
	args := m.Called(ctx, recipientID, limit)
	var list []models.Notification
	if val := args.Get(0); val != nil {
		list = val.([]models.Notification)
	}
	return list, args.Error(1)
}

func (m *NotificationRepositoryMock) GetNotification(ctx context.Context, id string) (models.Notification, error) {
	args := m.Called(ctx, id)
	var out models.Notification
	if val := args.Get(0); val != nil {
		out = val.(models.Notification)
	}
	return out, args.Error(1)
}

func (m *NotificationRepositoryMock) MarkRead(ctx context.Context, id, recipientID string) error {
	args := m.Called(ctx, id, recipientID)
	return args.Error(0)
}

func (m *NotificationRepositoryMock) DeleteNotification(ctx context.Context, id, recipientID string) error {
	args := m.Called(ctx, id, recipientID)
	return args.Error(0)
}

func (m *NotificationRepositoryMock) PurgeReadBefore(ctx context.Context, before time.Time) (int64, error) {
	args := m.Called(ctx, before)
	return args.Get(0).(int64), args.Error(1)
}

type PusherMock struct {
	mock.Mock
}

func (m *PusherMock) Push(ctx context.Context, recipientID string, payload notify.PushPayload) error {
	args := m.Called(ctx, recipientID, payload)
	return args.Error(0)
}

type UploaderMock struct {
	mock.Mock
}

func (m *UploaderMock) Upload(ctx context.Context, prefix string, data []byte, contentType string) (string, error) {
	args := m.Called(ctx, prefix, data, contentType)
	return args.String(0), args.Error(1)
}
