package messages

import (
	"sort"
	"sync"

	"collab-service/internal/models"
)

// Timeline is the consumer-side view of a room. Apply is idempotent:
// replaying an event, or receiving an insert after its update, changes nothing.
type Timeline struct {
	mu       sync.Mutex
	viewerID string
	byID     map[string]models.Message
	order    []string
}

// NewTimeline creates an empty timeline for viewerID.
func NewTimeline(viewerID string) *Timeline {
	return &Timeline{viewerID: viewerID, byID: make(map[string]models.Message)}
}

// Apply merges ev and reports whether the timeline changed.
func (t *Timeline) Apply(ev Event) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	msg := ev.Message
	current, ok := t.byID[msg.ID]
	if !ok {
		t.byID[msg.ID] = msg
		t.insert(msg)
		return true
	}
	if ev.Type == EventMessage || !newer(msg, current) {
		return false
	}
	t.byID[msg.ID] = msg
	return true
}

func (t *Timeline) insert(msg models.Message) {
	i := sort.Search(len(t.order), func(i int) bool {
		return !less(t.byID[t.order[i]], msg)
	})
	t.order = append(t.order, "")
	copy(t.order[i+1:], t.order[i:])
	t.order[i] = msg.ID
}

// Messages returns every known message in timestamp order.
func (t *Timeline) Messages() []models.Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]models.Message, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, t.byID[id])
	}
	return out
}

// Visible hides messages deleted for everyone or for the viewer.
func (t *Timeline) Visible() []models.Message {
	all := t.Messages()
	out := all[:0]
	for _, m := range all {
		if m.VisibleTo(t.viewerID) {
			out = append(out, m)
		}
	}
	return out
}

// Len is the number of known messages.
func (t *Timeline) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.order)
}

func less(a, b models.Message) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}

// newer reports whether next carries state current lacks. Message state
// only moves forward: edited, deleted for everyone, more per-user deletions.
func newer(next, current models.Message) bool {
	if current.DeletedForEveryone && !next.DeletedForEveryone {
		return false
	}
	if len(next.DeletedFor) < len(current.DeletedFor) {
		return false
	}
	return next.Content != current.Content ||
		next.Edited != current.Edited ||
		next.DeletedForEveryone != current.DeletedForEveryone ||
		len(next.DeletedFor) != len(current.DeletedFor)
}
