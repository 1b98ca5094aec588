package mocks

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/lib/pq"

	"collab-service/internal/feed"
	"collab-service/internal/models"
	"collab-service/internal/repositories"
)

// MemoryStore implements every repository in memory and publishes row
// changes to a feed broker the way the database trigger does.
type MemoryStore struct {
	mu    sync.Mutex
	pubMu sync.Mutex

	broker *feed.Broker
	muted  bool
	clock  time.Time
	fail   map[string]error

	profiles      map[string]models.UserSummary
	rooms         map[string]models.Room
	messages      map[string]models.Message
	friendships   map[string]models.Friendship
	notifications map[string]models.Notification
	whiteboards   map[string]models.WhiteboardDocument
}

// NewMemoryStore builds an empty store. broker may be nil.
func NewMemoryStore(broker *feed.Broker) *MemoryStore {
	return &MemoryStore{
		broker:        broker,
		clock:         time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		fail:          make(map[string]error),
		profiles:      make(map[string]models.UserSummary),
		rooms:         make(map[string]models.Room),
		messages:      make(map[string]models.Message),
		friendships:   make(map[string]models.Friendship),
		notifications: make(map[string]models.Notification),
		whiteboards:   make(map[string]models.WhiteboardDocument),
	}
}

// FailNext makes the next call of the named method return err.
func (s *MemoryStore) FailNext(method string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail[method] = err
}

// Mute stops publishing change events, as if the feed listener were
// disconnected. Writes still succeed.
func (s *MemoryStore) Mute(muted bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.muted = muted
}

// AddProfile seeds a profile row.
func (s *MemoryStore) AddProfile(p models.UserSummary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.ID] = p
}

// Count returns the number of rows in table.
func (s *MemoryStore) Count(table string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch table {
	case "rooms":
		return len(s.rooms)
	case feed.TableMessages:
		return len(s.messages)
	case feed.TableFriendships:
		return len(s.friendships)
	case feed.TableNotifications:
		return len(s.notifications)
	case feed.TableWhiteboards:
		return len(s.whiteboards)
	}
	return 0
}

// Notifications returns every stored notification for recipientID.
func (s *MemoryStore) Notifications(recipientID string) []models.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Notification
	for _, n := range s.notifications {
		if n.RecipientID == recipientID {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// tick must be called with mu held. Each write gets a distinct, increasing time.
func (s *MemoryStore) tick() time.Time {
	s.clock = s.clock.Add(time.Millisecond)
	return s.clock
}

func (s *MemoryStore) takeFailure(method string) error {
	if err, ok := s.fail[method]; ok {
		delete(s.fail, method)
		return err
	}
	return nil
}

// write runs fn under the data lock and publishes the resulting change
// events before any later write can publish, so feed order is commit order.
func (s *MemoryStore) write(method string, fn func() ([]feed.Event, error)) error {
	s.pubMu.Lock()
	defer s.pubMu.Unlock()

	s.mu.Lock()
	if err := s.takeFailure(method); err != nil {
		s.mu.Unlock()
		return err
	}
	events, err := fn()
	muted := s.muted
	s.mu.Unlock()
	if err != nil {
		return err
	}
	if s.broker != nil && !muted {
		for _, ev := range events {
			s.broker.Publish(ev)
		}
	}
	return nil
}

func (s *MemoryStore) read(method string) error {
	return s.takeFailure(method)
}

// notifyPayloadLimit mirrors PostgreSQL's NOTIFY payload limit; a trigger
// payload this large aborts the write.
const notifyPayloadLimit = 8000

// notifiable returns the error the row_changes trigger would raise for ev.
func notifiable(ev feed.Event) error {
	raw, _ := json.Marshal(ev)
	if len(raw) >= notifyPayloadLimit {
		return fmt.Errorf("pg_notify: payload string too long (%d bytes)", len(raw))
	}
	return nil
}

func change(table string, op feed.Op, row any, excluded ...string) feed.Event {
	raw, _ := json.Marshal(row)
	var cols map[string]any
	_ = json.Unmarshal(raw, &cols)
	for _, col := range excluded {
		delete(cols, col)
	}
	raw, _ = json.Marshal(cols)
	return feed.Event{Table: table, Op: op, Row: raw}
}

func copyRoom(r models.Room) models.Room {
	r.MemberIDs = append([]string{}, r.MemberIDs...)
	sort.Strings(r.MemberIDs)
	if r.Group != nil {
		g := *r.Group
		r.Group = &g
	}
	return r
}

func copyMessage(m models.Message) models.Message {
	m.DeletedFor = append(pq.StringArray{}, m.DeletedFor...)
	return m
}

// Rooms

func (s *MemoryStore) EnsurePrivateRoom(ctx context.Context, roomID string, userA, userB string) (models.Room, error) {
	err := s.write("EnsurePrivateRoom", func() ([]feed.Event, error) {
		room, ok := s.rooms[roomID]
		if !ok {
			now := s.tick()
			room = models.Room{ID: roomID, Kind: models.RoomKindPrivate, LastActivityAt: now, CreatedAt: now}
		}
		for _, id := range []string{userA, userB} {
			if !room.HasMember(id) {
				room.MemberIDs = append(room.MemberIDs, id)
			}
		}
		s.rooms[roomID] = room
		return nil, nil
	})
	if err != nil {
		return models.Room{}, err
	}
	return s.GetRoom(ctx, roomID)
}

func (s *MemoryStore) CreateGroup(ctx context.Context, roomID string, name string, memberIDs []string) (models.Room, error) {
	err := s.write("CreateGroup", func() ([]feed.Event, error) {
		if _, ok := s.rooms[roomID]; ok {
			return nil, &pq.Error{Code: "23505"}
		}
		now := s.tick()
		s.rooms[roomID] = models.Room{
			ID:             roomID,
			Kind:           models.RoomKindGroup,
			MemberIDs:      append([]string{}, memberIDs...),
			Group:          &models.GroupInfo{Name: name},
			LastActivityAt: now,
			CreatedAt:      now,
		}
		return nil, nil
	})
	if err != nil {
		return models.Room{}, err
	}
	return s.GetRoom(ctx, roomID)
}

func (s *MemoryStore) GetRoom(ctx context.Context, roomID string) (models.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.read("GetRoom"); err != nil {
		return models.Room{}, err
	}
	room, ok := s.rooms[roomID]
	if !ok {
		return models.Room{}, repositories.ErrRoomNotFound
	}
	return copyRoom(room), nil
}

func (s *MemoryStore) ListRoomsForUser(ctx context.Context, userID string) ([]models.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.read("ListRoomsForUser"); err != nil {
		return nil, err
	}
	out := []models.Room{}
	for _, room := range s.rooms {
		if room.HasMember(userID) {
			out = append(out, copyRoom(room))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].LastActivityAt.Equal(out[j].LastActivityAt) {
			return out[i].LastActivityAt.After(out[j].LastActivityAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *MemoryStore) UpdateGroup(ctx context.Context, roomID string, patch models.GroupPatch) (models.Room, error) {
	err := s.write("UpdateGroup", func() ([]feed.Event, error) {
		room, ok := s.rooms[roomID]
		if !ok || room.Kind != models.RoomKindGroup {
			return nil, repositories.ErrRoomNotFound
		}
		g := *room.Group
		if patch.Name != nil {
			g.Name = *patch.Name
		}
		if patch.AvatarURL != nil {
			g.AvatarURL = *patch.AvatarURL
		}
		room.Group = &g
		s.rooms[roomID] = room
		return nil, nil
	})
	if err != nil {
		return models.Room{}, err
	}
	return s.GetRoom(ctx, roomID)
}

func (s *MemoryStore) RemoveMember(ctx context.Context, roomID string, userID string) error {
	return s.write("RemoveMember", func() ([]feed.Event, error) {
		room, ok := s.rooms[roomID]
		if !ok {
			return nil, nil
		}
		kept := room.MemberIDs[:0:0]
		for _, id := range room.MemberIDs {
			if id != userID {
				kept = append(kept, id)
			}
		}
		room.MemberIDs = kept
		s.rooms[roomID] = room
		return nil, nil
	})
}

// Messages

func (s *MemoryStore) CreateMessage(ctx context.Context, messageID, roomID, authorID, content string) (models.Message, error) {
	var msg models.Message
	err := s.write("CreateMessage", func() ([]feed.Event, error) {
		room, ok := s.rooms[roomID]
		if !ok {
			return nil, repositories.ErrRoomNotFound
		}
		if _, ok := s.messages[messageID]; ok {
			return nil, &pq.Error{Code: "23505"}
		}
		room.LastActivityAt = s.tick()
		s.rooms[roomID] = room
		msg = models.Message{
			ID:         messageID,
			RoomID:     roomID,
			AuthorID:   authorID,
			Content:    content,
			CreatedAt:  room.LastActivityAt,
			DeletedFor: pq.StringArray{},
		}
		s.messages[messageID] = msg
		return []feed.Event{change(feed.TableMessages, feed.OpInsert, msg, "content")}, nil
	})
	return copyMessage(msg), err
}

func (s *MemoryStore) GetMessage(ctx context.Context, messageID string) (models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.read("GetMessage"); err != nil {
		return models.Message{}, err
	}
	msg, ok := s.messages[messageID]
	if !ok {
		return models.Message{}, repositories.ErrMessageNotFound
	}
	return copyMessage(msg), nil
}

func (s *MemoryStore) ListMessages(ctx context.Context, roomID string, since time.Time, limit int) ([]models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.read("ListMessages"); err != nil {
		return nil, err
	}
	return s.listMessages(roomID, limit, func(m models.Message) bool {
		return !m.CreatedAt.Before(since)
	}), nil
}

func (s *MemoryStore) ListMessagesAfter(ctx context.Context, roomID string, createdAt time.Time, afterID string, limit int) ([]models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.read("ListMessagesAfter"); err != nil {
		return nil, err
	}
	return s.listMessages(roomID, limit, func(m models.Message) bool {
		return m.CreatedAt.After(createdAt) || (m.CreatedAt.Equal(createdAt) && m.ID > afterID)
	}), nil
}

// listMessages must be called with mu held.
func (s *MemoryStore) listMessages(roomID string, limit int, keep func(models.Message) bool) []models.Message {
	var out []models.Message
	for _, m := range s.messages {
		if m.RoomID == roomID && keep(m) {
			out = append(out, copyMessage(m))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// AddMessage seeds a message row as is, without publishing a change event.
func (s *MemoryStore) AddMessage(m models.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.DeletedFor == nil {
		m.DeletedFor = pq.StringArray{}
	}
	s.messages[m.ID] = m
}

func (s *MemoryStore) updateMessage(method, messageID string, fn func(*models.Message) (bool, error)) (models.Message, error) {
	var msg models.Message
	err := s.write(method, func() ([]feed.Event, error) {
		current, ok := s.messages[messageID]
		if !ok {
			return nil, repositories.ErrMessageNotFound
		}
		changed, err := fn(&current)
		if err != nil {
			return nil, err
		}
		msg = current
		if !changed {
			return nil, nil
		}
		s.messages[messageID] = current
		return []feed.Event{change(feed.TableMessages, feed.OpUpdate, current, "content")}, nil
	})
	return copyMessage(msg), err
}

func (s *MemoryStore) UpdateContent(ctx context.Context, messageID, authorID, content string) (models.Message, error) {
	return s.updateMessage("UpdateContent", messageID, func(m *models.Message) (bool, error) {
		if m.AuthorID != authorID || m.DeletedForEveryone {
			return false, repositories.ErrMessageNotFound
		}
		m.Content = content
		m.Edited = true
		return true, nil
	})
}

func (s *MemoryStore) MarkDeletedForEveryone(ctx context.Context, messageID, authorID string) (models.Message, error) {
	return s.updateMessage("MarkDeletedForEveryone", messageID, func(m *models.Message) (bool, error) {
		if m.AuthorID != authorID {
			return false, repositories.ErrMessageNotFound
		}
		m.DeletedForEveryone = true
		return true, nil
	})
}

func (s *MemoryStore) MarkDeletedFor(ctx context.Context, messageID, userID string) (models.Message, error) {
	return s.updateMessage("MarkDeletedFor", messageID, func(m *models.Message) (bool, error) {
		if m.DeletedForEveryone || m.DeletedForUser(userID) {
			return false, nil
		}
		m.DeletedFor = append(append(pq.StringArray{}, m.DeletedFor...), userID)
		return true, nil
	})
}

// Friendships

func (s *MemoryStore) findPair(userA, userB string) (models.Friendship, bool) {
	for _, f := range s.friendships {
		if f.Involves(userA) && f.Involves(userB) {
			return f, true
		}
	}
	return models.Friendship{}, false
}

func (s *MemoryStore) GetBetween(ctx context.Context, userA, userB string) (models.Friendship, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.read("GetBetween"); err != nil {
		return models.Friendship{}, err
	}
	f, ok := s.findPair(userA, userB)
	if !ok {
		return models.Friendship{}, repositories.ErrFriendshipNotFound
	}
	return f, nil
}

func (s *MemoryStore) CreatePending(ctx context.Context, id, requesterID, addresseeID string) (models.Friendship, error) {
	var f models.Friendship
	err := s.write("CreatePending", func() ([]feed.Event, error) {
		if _, ok := s.findPair(requesterID, addresseeID); ok {
			return nil, repositories.ErrFriendshipExists
		}
		now := s.tick()
		f = models.Friendship{
			ID:          id,
			RequesterID: requesterID,
			AddresseeID: addresseeID,
			Status:      models.FriendshipPending,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		s.friendships[id] = f
		return []feed.Event{change(feed.TableFriendships, feed.OpInsert, f)}, nil
	})
	return f, err
}

func (s *MemoryStore) Accept(ctx context.Context, requesterID, addresseeID string) (models.Friendship, error) {
	var f models.Friendship
	err := s.write("Accept", func() ([]feed.Event, error) {
		current, ok := s.findPair(requesterID, addresseeID)
		if !ok || current.RequesterID != requesterID || current.Status != models.FriendshipPending {
			return nil, repositories.ErrFriendshipNotFound
		}
		current.Status = models.FriendshipAccepted
		current.UpdatedAt = s.tick()
		s.friendships[current.ID] = current
		f = current
		return []feed.Event{change(feed.TableFriendships, feed.OpUpdate, current)}, nil
	})
	return f, err
}

func (s *MemoryStore) DeletePending(ctx context.Context, userA, userB string) (models.Friendship, error) {
	var f models.Friendship
	err := s.write("DeletePending", func() ([]feed.Event, error) {
		current, ok := s.findPair(userA, userB)
		if !ok || current.Status != models.FriendshipPending {
			return nil, repositories.ErrFriendshipNotFound
		}
		delete(s.friendships, current.ID)
		f = current
		return []feed.Event{change(feed.TableFriendships, feed.OpDelete, current)}, nil
	})
	return f, err
}

func (s *MemoryStore) ListForUser(ctx context.Context, userID string, otherIDs []string) ([]models.Friendship, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.read("ListForUser"); err != nil {
		return nil, err
	}
	out := []models.Friendship{}
	for _, other := range otherIDs {
		if f, ok := s.findPair(userID, other); ok {
			out = append(out, f)
		}
	}
	return out, nil
}

func (s *MemoryStore) ListFriends(ctx context.Context, userID string) ([]models.UserSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.read("ListFriends"); err != nil {
		return nil, err
	}
	out := []models.UserSummary{}
	for _, f := range s.friendships {
		if f.Status != models.FriendshipAccepted || !f.Involves(userID) {
			continue
		}
		if p, ok := s.profiles[f.Other(userID)]; ok {
			p.Relationship = models.FriendshipAccepted
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (s *MemoryStore) ListPendingIncoming(ctx context.Context, userID string) ([]models.FriendRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.read("ListPendingIncoming"); err != nil {
		return nil, err
	}
	out := []models.FriendRequest{}
	for _, f := range s.friendships {
		if f.Status != models.FriendshipPending || f.AddresseeID != userID {
			continue
		}
		p, ok := s.profiles[f.RequesterID]
		if !ok {
			continue
		}
		p.Relationship = models.FriendshipPending
		out = append(out, models.FriendRequest{FriendshipID: f.ID, Requester: p, CreatedAt: f.CreatedAt})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// Profiles

func (s *MemoryStore) GetProfile(ctx context.Context, userID string) (models.UserSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.read("GetProfile"); err != nil {
		return models.UserSummary{}, err
	}
	p, ok := s.profiles[userID]
	if !ok {
		return models.UserSummary{}, repositories.ErrProfileNotFound
	}
	return p, nil
}

func (s *MemoryStore) SearchProfiles(ctx context.Context, query, excludeID string, limit int) ([]models.UserSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.read("SearchProfiles"); err != nil {
		return nil, err
	}
	q := strings.ToLower(query)
	out := []models.UserSummary{}
	for _, p := range s.profiles {
		if p.ID == excludeID {
			continue
		}
		if strings.Contains(strings.ToLower(p.Username), q) || strings.Contains(strings.ToLower(p.DisplayName), q) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Notifications

var notificationLargeColumns = []string{"title", "body"}

func (s *MemoryStore) CreateNotification(ctx context.Context, n models.Notification) (models.Notification, error) {
	err := s.write("CreateNotification", func() ([]feed.Event, error) {
		n.CreatedAt = s.tick()
		n.Read = false
		ev := change(feed.TableNotifications, feed.OpInsert, n, notificationLargeColumns...)
		if err := notifiable(ev); err != nil {
			return nil, err
		}
		s.notifications[n.ID] = n
		return []feed.Event{ev}, nil
	})
	return n, err
}

func (s *MemoryStore) ListNotifications(ctx context.Context, recipientID string, limit int) ([]models.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.read("ListNotifications"); err != nil {
		return nil, err
	}
	out := []models.Notification{}
	for _, n := range s.notifications {
		if n.RecipientID == recipientID {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) GetNotification(ctx context.Context, id string) (models.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.read("GetNotification"); err != nil {
		return models.Notification{}, err
	}
	n, ok := s.notifications[id]
	if !ok {
		return models.Notification{}, repositories.ErrNotificationNotFound
	}
	return n, nil
}

func (s *MemoryStore) MarkRead(ctx context.Context, id, recipientID string) error {
	return s.write("MarkRead", func() ([]feed.Event, error) {
		n, ok := s.notifications[id]
		if !ok || n.RecipientID != recipientID {
			return nil, repositories.ErrNotificationNotFound
		}
		n.Read = true
		s.notifications[id] = n
		return []feed.Event{change(feed.TableNotifications, feed.OpUpdate, n, notificationLargeColumns...)}, nil
	})
}

func (s *MemoryStore) DeleteNotification(ctx context.Context, id, recipientID string) error {
	return s.write("DeleteNotification", func() ([]feed.Event, error) {
		n, ok := s.notifications[id]
		if !ok || n.RecipientID != recipientID {
			return nil, repositories.ErrNotificationNotFound
		}
		delete(s.notifications, id)
		return []feed.Event{change(feed.TableNotifications, feed.OpDelete, n, notificationLargeColumns...)}, nil
	})
}

func (s *MemoryStore) PurgeReadBefore(ctx context.Context, before time.Time) (int64, error) {
	var purged int64
	err := s.write("PurgeReadBefore", func() ([]feed.Event, error) {
		var events []feed.Event
		for id, n := range s.notifications {
			if n.Read && n.CreatedAt.Before(before) {
				delete(s.notifications, id)
				events = append(events, change(feed.TableNotifications, feed.OpDelete, n, notificationLargeColumns...))
				purged++
			}
		}
		return events, nil
	})
	return purged, err
}

// Whiteboards

func (s *MemoryStore) GetWhiteboard(ctx context.Context, roomID string) (models.WhiteboardDocument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.read("GetWhiteboard"); err != nil {
		return models.WhiteboardDocument{}, err
	}
	doc, ok := s.whiteboards[roomID]
	if !ok {
		return models.WhiteboardDocument{}, repositories.ErrWhiteboardNotFound
	}
	doc.Snapshot = append([]byte(nil), doc.Snapshot...)
	return doc, nil
}

func (s *MemoryStore) EnsureWhiteboard(ctx context.Context, roomID string) error {
	return s.write("EnsureWhiteboard", func() ([]feed.Event, error) {
		if _, ok := s.whiteboards[roomID]; ok {
			return nil, nil
		}
		doc := models.WhiteboardDocument{RoomID: roomID, UpdatedAt: s.tick()}
		s.whiteboards[roomID] = doc
		return []feed.Event{change(feed.TableWhiteboards, feed.OpInsert, doc, "snapshot")}, nil
	})
}

func (s *MemoryStore) SaveWhiteboard(ctx context.Context, doc models.WhiteboardDocument) (models.WhiteboardDocument, error) {
	var saved models.WhiteboardDocument
	err := s.write("SaveWhiteboard", func() ([]feed.Event, error) {
		_, existed := s.whiteboards[doc.RoomID]
		saved = models.WhiteboardDocument{
			RoomID:    doc.RoomID,
			Snapshot:  append([]byte(nil), doc.Snapshot...),
			UpdatedAt: s.tick(),
			UpdatedBy: doc.UpdatedBy,
		}
		s.whiteboards[doc.RoomID] = saved
		op := feed.OpUpdate
		if !existed {
			op = feed.OpInsert
		}
		return []feed.Event{change(feed.TableWhiteboards, op, saved, "snapshot")}, nil
	})
	return saved, err
}

var (
	_ repositories.RoomRepository         = (*MemoryStore)(nil)
	_ repositories.MessageRepository      = (*MemoryStore)(nil)
	_ repositories.FriendshipRepository   = (*MemoryStore)(nil)
	_ repositories.ProfileRepository      = (*MemoryStore)(nil)
	_ repositories.NotificationRepository = (*MemoryStore)(nil)
	_ repositories.WhiteboardRepository   = (*MemoryStore)(nil)
)
