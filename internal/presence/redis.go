package presence

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultTTL bounds how long a crashed instance's connections keep a user
// marked as viewing. Live connections refresh it by calling Enter again.
const DefaultTTL = 2 * time.Minute

// Redis shares viewer state across service instances.
type Redis struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedis builds a tracker on rdb. A non-positive ttl selects DefaultTTL.
func NewRedis(rdb *redis.Client, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Redis{rdb: rdb, ttl: ttl}
}

func key(roomID, userID string) string {
	return fmt.Sprintf("presence:room:%s:user:%s", roomID, userID)
}

// Enter adds connID to the viewer set and refreshes its expiry.
func (r *Redis) Enter(ctx context.Context, roomID, userID, connID string) error {
	k := key(roomID, userID)
	pipe := r.rdb.TxPipeline()
	pipe.SAdd(ctx, k, connID)
	pipe.Expire(ctx, k, r.ttl)
	_, err := pipe.Exec(ctx)
	return err
}

func (r *Redis) Leave(ctx context.Context, roomID, userID, connID string) error {
	return r.rdb.SRem(ctx, key(roomID, userID), connID).Err()
}

func (r *Redis) IsViewing(ctx context.Context, roomID, userID string) (bool, error) {
	n, err := r.rdb.SCard(ctx, key(roomID, userID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Open connects to addr the way the other services do and pings once.
func Open(ctx context.Context, addr string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return rdb, nil
}
