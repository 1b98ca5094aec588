package feed

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"sync/atomic"

	"collab-service/internal/observability"
)

// Op is the kind of row change.
type Op string

const (
	OpInsert Op = "INSERT"
	OpUpdate Op = "UPDATE"
	OpDelete Op = "DELETE"
	// OpResync means events may have been missed. It reaches every
	// subscription, with an empty Table, after the upstream listener
	// reconnected, and a single subscription, with its own Table, after it
	// fell behind and the broker dropped events for it.
	OpResync Op = "RESYNC"
)

// Tables that publish change events.
const (
	TableMessages      = "messages"
	TableFriendships   = "friendships"
	TableNotifications = "notifications"
	TableWhiteboards   = "whiteboards"
)

// Event is a row-level change. Row carries the key columns of the row;
// large columns are omitted and must be re-fetched.
type Event struct {
	Table string          `json:"table"`
	Op    Op              `json:"op"`
	Row   json.RawMessage `json:"row"`
}

// Decode unmarshals the row into v.
func (e Event) Decode(v any) error {
	if len(e.Row) == 0 {
		return fmt.Errorf("event for %s has no row", e.Table)
	}
	return json.Unmarshal(e.Row, v)
}

// Filter is an equality match on row columns.
type Filter map[string]string

// Handler receives events on the subscription's own goroutine.
type Handler func(Event)

// Subscriber is the consumer side of the change feed.
type Subscriber interface {
	Subscribe(table string, filter Filter, handler Handler) (*Subscription, error)
}

const subscriptionBuffer = 256

// Subscription is a live registration. Events are delivered in publish
// order until the buffer overflows; from then on events are dropped until
// the buffer drains and the handler gets an OpResync.
type Subscription struct {
	table   string
	filter  Filter
	handler Handler
	events  chan Event
	done    chan struct{}
	once    sync.Once
	broker  *Broker
	lagging atomic.Bool
}

// Unsubscribe stops delivery. Safe to call more than once.
func (s *Subscription) Unsubscribe() {
	s.broker.Unsubscribe(s)
}

func (s *Subscription) run() {
	for {
		if len(s.events) == 0 && s.lagging.Swap(false) {
			s.handler(Event{Table: s.table, Op: OpResync})
		}
		select {
		case <-s.done:
			return
		case ev := <-s.events:
			s.handler(ev)
		}
	}
}

// offer queues ev without blocking.
func (s *Subscription) offer(ev Event) {
	if s.lagging.Load() {
		return
	}
	select {
	case s.events <- ev:
	default:
		if !s.lagging.Swap(true) {
			observability.IncFeedOverflow(s.table)
			log.Printf("feed: subscription on %s fell behind, dropping events until resync", s.table)
		}
	}
}

func (s *Subscription) matches(ev Event, row map[string]any) bool {
	if ev.Op == OpResync {
		return true
	}
	if s.table != ev.Table {
		return false
	}
	for col, want := range s.filter {
		got, ok := row[col]
		if !ok || fmt.Sprint(got) != want {
			return false
		}
	}
	return true
}

// Broker fans events from one upstream source out to local subscriptions.
type Broker struct {
	mu     sync.RWMutex
	subs   map[*Subscription]struct{}
	closed bool
}

// NewBroker creates an empty broker.
func NewBroker() *Broker {
	return &Broker{subs: make(map[*Subscription]struct{})}
}

// Subscribe registers handler for events on table matching filter.
func (b *Broker) Subscribe(table string, filter Filter, handler Handler) (*Subscription, error) {
	if table == "" || handler == nil {
		return nil, fmt.Errorf("subscribe: table and handler are required")
	}
	sub := &Subscription{
		table:   table,
		filter:  filter,
		handler: handler,
		events:  make(chan Event, subscriptionBuffer),
		done:    make(chan struct{}),
		broker:  b,
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, fmt.Errorf("subscribe: broker closed")
	}
	b.subs[sub] = struct{}{}
	observability.SetFeedSubscriptions(len(b.subs))
	go sub.run()
	return sub, nil
}

// Unsubscribe removes sub and stops its goroutine.
func (b *Broker) Unsubscribe(sub *Subscription) {
	b.mu.Lock()
	delete(b.subs, sub)
	observability.SetFeedSubscriptions(len(b.subs))
	b.mu.Unlock()
	sub.once.Do(func() { close(sub.done) })
}

// Stats counts live subscriptions per table.
func (b *Broker) Stats() map[string]int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make(map[string]int)
	for sub := range b.subs {
		out[sub.table]++
	}
	return out
}

// Publish delivers ev to every matching subscription. It never blocks: a
// subscription whose buffer is full is switched to resync.
func (b *Broker) Publish(ev Event) {
	var row map[string]any
	if ev.Op != OpResync {
		if err := json.Unmarshal(ev.Row, &row); err != nil {
			log.Printf("feed: drop undecodable %s event: %v", ev.Table, err)
			return
		}
	}

	b.mu.RLock()
	targets := make([]*Subscription, 0, len(b.subs))
	for sub := range b.subs {
		if sub.matches(ev, row) {
			targets = append(targets, sub)
		}
	}
	b.mu.RUnlock()

	for _, sub := range targets {
		sub.offer(ev)
	}
	observability.IncFeedEvent(ev.Table, string(ev.Op))
}

// Close unsubscribes everyone and rejects new subscriptions.
func (b *Broker) Close() {
	b.mu.Lock()
	b.closed = true
	subs := b.subs
	b.subs = make(map[*Subscription]struct{})
	b.mu.Unlock()
	for sub := range subs {
		sub.once.Do(func() { close(sub.done) })
	}
	observability.SetFeedSubscriptions(0)
}
