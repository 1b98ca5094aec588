package messages

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"collab-service/internal/apperr"
	"collab-service/internal/feed"
	"collab-service/internal/models"
	"collab-service/internal/repositories"
)

// Stream event types.
const (
	EventMessage = "message"
	EventUpdate  = "update"
)

const (
	streamBuffer = 64
	backlogPage  = 200
)

// Event is one delivery on a Stream. Message is already shaped for the viewer.
type Event struct {
	Type    string         `json:"type"`
	Message models.Message `json:"message"`
}

// Stream is a live view of one room: the backlog since a cursor followed by
// change feed events. New messages are delivered at most once per stream and
// in non-decreasing creation order.
type Stream struct {
	repo     repositories.MessageRepository
	roomID   string
	viewerID string

	ctx    context.Context
	cancel context.CancelFunc
	sub    *feed.Subscription
	queue  chan feed.Event
	out    chan Event
	once   sync.Once

	seen      map[string]struct{}
	watermark time.Time
}

// Subscribe opens a stream on roomID for a member. The feed subscription is
// taken before the backlog is read so nothing committed in between is lost.
func (s *Service) Subscribe(ctx context.Context, roomID, viewerID string, since time.Time) (*Stream, error) {
	if _, err := s.rooms.AuthorizeView(ctx, roomID, viewerID); err != nil {
		return nil, err
	}

	streamCtx, cancel := context.WithCancel(ctx)
	st := &Stream{
		repo:      s.repo,
		roomID:    roomID,
		viewerID:  viewerID,
		ctx:       streamCtx,
		cancel:    cancel,
		queue:     make(chan feed.Event, streamBuffer),
		out:       make(chan Event, streamBuffer),
		seen:      make(map[string]struct{}),
		watermark: since,
	}

	sub, err := s.feed.Subscribe(feed.TableMessages, feed.Filter{"room_id": roomID}, st.enqueue)
	if err != nil {
		cancel()
		return nil, apperr.Storage("subscribe to room", err)
	}
	st.sub = sub

	go st.run()
	return st, nil
}

// Events is closed when the stream ends.
func (st *Stream) Events() <-chan Event {
	return st.out
}

// Close unsubscribes from the feed. Safe to call more than once.
func (st *Stream) Close() {
	st.once.Do(func() {
		st.sub.Unsubscribe()
		st.cancel()
	})
}

func (st *Stream) enqueue(ev feed.Event) {
	select {
	case st.queue <- ev:
	case <-st.ctx.Done():
	}
}

func (st *Stream) run() {
	defer close(st.out)
	defer st.Close()

	if !st.catchUp() {
		return
	}
	for {
		select {
		case <-st.ctx.Done():
			return
		case ev := <-st.queue:
			if !st.handle(ev) {
				return
			}
		}
	}
}

// catchUp emits every message at or after the watermark not yet delivered.
// Pages after the first continue from the last (created_at, id) key.
func (st *Stream) catchUp() bool {
	var last *models.Message
	for {
		var page []models.Message
		var err error
		if last == nil {
			page, err = st.repo.ListMessages(st.ctx, st.roomID, st.watermark, backlogPage)
		} else {
			page, err = st.repo.ListMessagesAfter(st.ctx, st.roomID, last.CreatedAt, last.ID, backlogPage)
		}
		if err != nil {
			if st.ctx.Err() == nil {
				log.Printf("messages: backlog read failed room_id=%s: %v", st.roomID, err)
			}
			return st.ctx.Err() == nil
		}
		for _, m := range page {
			if _, ok := st.seen[m.ID]; ok {
				continue
			}
			if !st.emitNew(m) {
				return false
			}
		}
		if len(page) < backlogPage {
			return true
		}
		last = &page[len(page)-1]
	}
}

func (st *Stream) handle(ev feed.Event) bool {
	if ev.Op == feed.OpResync {
		return st.catchUp()
	}

	var row struct {
		ID string `json:"id"`
	}
	if err := ev.Decode(&row); err != nil || row.ID == "" {
		log.Printf("messages: undecodable feed row room_id=%s: %v", st.roomID, err)
		return true
	}
	if ev.Op == feed.OpInsert {
		if _, ok := st.seen[row.ID]; ok {
			return true
		}
	}

	msg, err := st.repo.GetMessage(st.ctx, row.ID)
	if errors.Is(err, repositories.ErrMessageNotFound) {
		return true
	}
	if err != nil {
		if st.ctx.Err() != nil {
			return false
		}
		log.Printf("messages: refetch failed message_id=%s: %v", row.ID, err)
		return true
	}

	if _, ok := st.seen[msg.ID]; !ok && !msg.CreatedAt.Before(st.watermark) {
		return st.emitNew(msg)
	}
	// already delivered, or older than the cursor: the consumer merges it
	return st.emit(Event{Type: EventUpdate, Message: msg.ForViewer(st.viewerID)})
}

func (st *Stream) emitNew(msg models.Message) bool {
	st.seen[msg.ID] = struct{}{}
	if msg.CreatedAt.After(st.watermark) {
		st.watermark = msg.CreatedAt
	}
	return st.emit(Event{Type: EventMessage, Message: msg.ForViewer(st.viewerID)})
}

func (st *Stream) emit(ev Event) bool {
	select {
	case st.out <- ev:
		return true
	case <-st.ctx.Done():
		return false
	}
}
