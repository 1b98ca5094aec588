package presence

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryTracksConnectionsPerUser(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.Enter(ctx, "r1", "alice", "c1"))
	require.NoError(t, m.Enter(ctx, "r1", "alice", "c2"))

	viewing, err := m.IsViewing(ctx, "r1", "alice")
	require.NoError(t, err)
	assert.True(t, viewing)

	require.NoError(t, m.Leave(ctx, "r1", "alice", "c1"))
	viewing, _ = m.IsViewing(ctx, "r1", "alice")
	assert.True(t, viewing, "second tab still open")

	require.NoError(t, m.Leave(ctx, "r1", "alice", "c2"))
	viewing, _ = m.IsViewing(ctx, "r1", "alice")
	assert.False(t, viewing)
	assert.Empty(t, m.rooms)
}

func TestMemoryIsPerRoom(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.Enter(ctx, "r1", "bob", "c1"))

	viewing, _ := m.IsViewing(ctx, "r2", "bob")
	assert.False(t, viewing)
	require.NoError(t, m.Leave(ctx, "r2", "bob", "missing"))
}

func TestRedisKeyLayout(t *testing.T) {
	assert.Equal(t, "presence:room:r1:user:u9", key("r1", "u9"))
	assert.Equal(t, DefaultTTL, NewRedis(nil, 0).ttl)
}
