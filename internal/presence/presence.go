package presence

import (
	"context"
	"sync"
)

// Viewers tracks which users currently have a room open. A user may have
// several connections to the same room; the user stops viewing when the
// last one leaves.
type Viewers interface {
	Enter(ctx context.Context, roomID, userID, connID string) error
	Leave(ctx context.Context, roomID, userID, connID string) error
	IsViewing(ctx context.Context, roomID, userID string) (bool, error)
}

// Memory is a single-process Viewers.
type Memory struct {
	mu    sync.Mutex
	rooms map[string]map[string]map[string]struct{}
}

// NewMemory returns an empty in-process tracker.
func NewMemory() *Memory {
	return &Memory{rooms: make(map[string]map[string]map[string]struct{})}
}

func (m *Memory) Enter(_ context.Context, roomID, userID, connID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	users, ok := m.rooms[roomID]
	if !ok {
		users = make(map[string]map[string]struct{})
		m.rooms[roomID] = users
	}
	conns, ok := users[userID]
	if !ok {
		conns = make(map[string]struct{})
		users[userID] = conns
	}
	conns[connID] = struct{}{}
	return nil
}

func (m *Memory) Leave(_ context.Context, roomID, userID, connID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	users := m.rooms[roomID]
	conns := users[userID]
	delete(conns, connID)
	if len(conns) == 0 {
		delete(users, userID)
	}
	if len(users) == 0 {
		delete(m.rooms, roomID)
	}
	return nil
}

func (m *Memory) IsViewing(_ context.Context, roomID, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rooms[roomID][userID]) > 0, nil
}
