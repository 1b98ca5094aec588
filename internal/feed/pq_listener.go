package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/lib/pq"
)

// Channel is the NOTIFY channel written by the row change trigger.
const Channel = "row_changes"

// Listener pumps PostgreSQL notifications into a Broker.
type Listener struct {
	listener *pq.Listener
	broker   *Broker
}

// NewListener opens a dedicated LISTEN connection.
func NewListener(dsn string, broker *Broker) (*Listener, error) {
	l := pq.NewListener(dsn, 2*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		switch ev {
		case pq.ListenerEventConnectionAttemptFailed:
			log.Printf("feed: listener connect failed: %v", err)
		case pq.ListenerEventDisconnected:
			log.Printf("feed: listener disconnected: %v", err)
		case pq.ListenerEventReconnected:
			log.Printf("feed: listener reconnected")
		}
	})
	if err := l.Listen(Channel); err != nil {
		l.Close()
		return nil, fmt.Errorf("listen %s: %w", Channel, err)
	}
	return &Listener{listener: l, broker: broker}, nil
}

// Run blocks until ctx is done.
func (l *Listener) Run(ctx context.Context) {
	defer l.listener.Close()
	log.Printf("feed: listening channel=%s", Channel)
	for {
		select {
		case <-ctx.Done():
			log.Printf("feed: listener stopping")
			return
		case n := <-l.listener.Notify:
			if n == nil {
				// pq sends nil after a reconnect; anything sent meanwhile is lost.
				l.broker.Publish(Event{Op: OpResync})
				continue
			}
			var ev Event
			if err := json.Unmarshal([]byte(n.Extra), &ev); err != nil {
				log.Printf("feed: bad payload on %s: %v", n.Channel, err)
				continue
			}
			l.broker.Publish(ev)
		case <-time.After(90 * time.Second):
			go func() {
				if err := l.listener.Ping(); err != nil {
					log.Printf("feed: listener ping failed: %v", err)
				}
			}()
		}
	}
}
