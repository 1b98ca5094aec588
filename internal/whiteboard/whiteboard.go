package whiteboard

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/juju/clock"

	"collab-service/internal/apperr"
	"collab-service/internal/feed"
	"collab-service/internal/models"
	"collab-service/internal/observability"
	"collab-service/internal/repositories"
)

const (
	DefaultDebounce = time.Second
	DefaultSuppress = 1500 * time.Millisecond

	ioTimeout = 10 * time.Second
)

// Options tune an Engine. Zero values select the defaults and the wall clock.
type Options struct {
	Clock    clock.Clock
	Debounce time.Duration
	Suppress time.Duration
}

// Engine attaches editors to room whiteboards. Documents converge by whole
// snapshot, last writer wins.
type Engine struct {
	repo     repositories.WhiteboardRepository
	feed     feed.Subscriber
	clock    clock.Clock
	debounce time.Duration
	suppress time.Duration
	flushes  sync.WaitGroup
}

// NewEngine builds an Engine.
func NewEngine(repo repositories.WhiteboardRepository, subscriber feed.Subscriber, opts Options) *Engine {
	if opts.Clock == nil {
		opts.Clock = clock.WallClock
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Suppress <= 0 {
		opts.Suppress = DefaultSuppress
	}
	return &Engine{
		repo:     repo,
		feed:     subscriber,
		clock:    opts.Clock,
		debounce: opts.Debounce,
		suppress: opts.Suppress,
	}
}

// Wait blocks until saves flushed by Detach have finished.
func (e *Engine) Wait() {
	e.flushes.Wait()
}

// Session is one editor's live handle on a room's document.
type Session struct {
	id       string
	roomID   string
	engine   *Engine
	onRemote func(snapshot []byte)
	sub      *feed.Subscription

	mu            sync.Mutex
	snapshot      []byte
	timer         clock.Timer
	suppressUntil time.Time
	detached      bool
	// remoteApplied is set once a remote snapshot replaced the local one.
	remoteApplied bool

	saveMu sync.Mutex
}

// Attach opens a session on roomID. The stored snapshot becomes the local
// state without scheduling a save; a failed load leaves the document empty.
// onRemote is called with each snapshot applied from another editor.
func (e *Engine) Attach(ctx context.Context, roomID string, onRemote func(snapshot []byte)) (*Session, error) {
	if roomID == "" {
		return nil, apperr.Validation("room id is required")
	}
	s := &Session{
		id:       uuid.NewString(),
		roomID:   roomID,
		engine:   e,
		onRemote: onRemote,
	}

	sub, err := e.feed.Subscribe(feed.TableWhiteboards, feed.Filter{"room_id": roomID}, s.handleRemote)
	if err != nil {
		return nil, apperr.Storage("subscribe to whiteboard", err)
	}
	s.sub = sub

	if err := e.repo.EnsureWhiteboard(ctx, roomID); err != nil {
		log.Printf("whiteboard: ensure document failed room_id=%s: %v", roomID, err)
	}
	doc, err := e.repo.GetWhiteboard(ctx, roomID)
	switch {
	case errors.Is(err, repositories.ErrWhiteboardNotFound):
	case err != nil:
		log.Printf("whiteboard: load failed room_id=%s, starting empty: %v", roomID, err)
	default:
		s.mu.Lock()
		// a remote save applied meanwhile is at least as new as this load
		if !s.remoteApplied {
			s.snapshot = doc.Snapshot
		}
		s.mu.Unlock()
	}
	log.Printf("whiteboard: attached room_id=%s session=%s bytes=%d", roomID, s.id, len(s.Snapshot()))
	return s, nil
}

// ID identifies the session as the writer of its saves.
func (s *Session) ID() string {
	return s.id
}

// Snapshot returns a copy of the local document.
func (s *Session) Snapshot() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte(nil), s.snapshot...)
}

// Update replaces the local document and (re)starts the save debounce.
func (s *Session) Update(snapshot []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.detached {
		return
	}
	s.snapshot = append([]byte(nil), snapshot...)
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = s.engine.clock.AfterFunc(s.engine.debounce, s.flush)
}

// Detach stops remote updates at once. An edit burst still waiting for its
// debounce is saved in the background.
func (s *Session) Detach() {
	s.mu.Lock()
	if s.detached {
		s.mu.Unlock()
		return
	}
	s.detached = true
	pending := s.timer != nil && s.timer.Stop()
	s.timer = nil
	snapshot := append([]byte(nil), s.snapshot...)
	s.mu.Unlock()

	s.sub.Unsubscribe()
	if pending {
		s.engine.flushes.Add(1)
		go func() {
			defer s.engine.flushes.Done()
			s.save(snapshot)
		}()
	}
	log.Printf("whiteboard: detached room_id=%s session=%s flush=%t", s.roomID, s.id, pending)
}

func (s *Session) flush() {
	s.mu.Lock()
	if s.detached {
		s.mu.Unlock()
		return
	}
	s.timer = nil
	snapshot := append([]byte(nil), s.snapshot...)
	s.mu.Unlock()

	if !s.save(snapshot) {
		return
	}
	s.mu.Lock()
	if !s.detached {
		s.suppressUntil = s.engine.clock.Now().Add(s.engine.suppress)
	}
	s.mu.Unlock()
}

// save writes snapshot. Failures are logged; the next edit schedules another save.
func (s *Session) save(snapshot []byte) bool {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), ioTimeout)
	defer cancel()
	_, err := s.engine.repo.SaveWhiteboard(ctx, models.WhiteboardDocument{
		RoomID:    s.roomID,
		Snapshot:  snapshot,
		UpdatedBy: s.id,
	})
	if err != nil {
		observability.IncWhiteboardSave("error")
		log.Printf("whiteboard: save failed room_id=%s session=%s: %v", s.roomID, s.id, err)
		return false
	}
	observability.IncWhiteboardSave("ok")
	return true
}

func (s *Session) handleRemote(ev feed.Event) {
	if ev.Op == feed.OpDelete {
		return
	}
	if ev.Op != feed.OpResync {
		var row struct {
			UpdatedBy string `json:"updated_by"`
		}
		if err := ev.Decode(&row); err == nil {
			switch row.UpdatedBy {
			case s.id:
				observability.IncWhiteboardRemote("own")
				return
			case "":
				// created empty by an attaching session; nothing to apply
				observability.IncWhiteboardRemote("created")
				return
			}
		}
	}

	if s.ignoreRemote() {
		observability.IncWhiteboardRemote("suppressed")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), ioTimeout)
	defer cancel()
	doc, err := s.engine.repo.GetWhiteboard(ctx, s.roomID)
	if err != nil {
		log.Printf("whiteboard: remote load failed room_id=%s: %v", s.roomID, err)
		return
	}
	if doc.UpdatedBy == s.id {
		observability.IncWhiteboardRemote("own")
		return
	}

	s.mu.Lock()
	if s.detached {
		s.mu.Unlock()
		return
	}
	s.snapshot = doc.Snapshot
	s.remoteApplied = true
	s.mu.Unlock()

	observability.IncWhiteboardRemote("applied")
	if s.onRemote != nil {
		s.onRemote(append([]byte(nil), doc.Snapshot...))
	}
}

func (s *Session) ignoreRemote() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.detached || s.engine.clock.Now().Before(s.suppressUntil)
}
