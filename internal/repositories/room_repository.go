package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"collab-service/internal/models"
)

// RoomRepository abstracts room and membership persistence.
type RoomRepository interface {
	EnsurePrivateRoom(ctx context.Context, roomID string, userA, userB string) (models.Room, error)
	CreateGroup(ctx context.Context, roomID string, name string, memberIDs []string) (models.Room, error)
	GetRoom(ctx context.Context, roomID string) (models.Room, error)
	ListRoomsForUser(ctx context.Context, userID string) ([]models.Room, error)
	UpdateGroup(ctx context.Context, roomID string, patch models.GroupPatch) (models.Room, error)
	RemoveMember(ctx context.Context, roomID string, userID string) error
}

// RoomRepo is a sqlx implementation of RoomRepository.
type RoomRepo struct {
	db *sqlx.DB
}

// NewRoomRepo constructs a RoomRepo.
func NewRoomRepo(db *sqlx.DB) *RoomRepo {
	return &RoomRepo{db: db}
}

type roomRow struct {
	ID             string         `db:"id"`
	Kind           string         `db:"kind"`
	Name           sql.NullString `db:"name"`
	AvatarURL      sql.NullString `db:"avatar_url"`
	LastActivityAt time.Time      `db:"last_activity_at"`
	CreatedAt      time.Time      `db:"created_at"`
	MemberIDs      pq.StringArray `db:"member_ids"`
}

func (r roomRow) toModel() models.Room {
	room := models.Room{
		ID:             r.ID,
		Kind:           models.RoomKind(r.Kind),
		MemberIDs:      []string(r.MemberIDs),
		LastActivityAt: r.LastActivityAt,
		CreatedAt:      r.CreatedAt,
	}
	if room.MemberIDs == nil {
		room.MemberIDs = []string{}
	}
	if room.Kind == models.RoomKindGroup {
		room.Group = &models.GroupInfo{Name: r.Name.String, AvatarURL: r.AvatarURL.String}
	}
	return room
}

const roomSelect = `SELECT r.id, r.kind, r.name, r.avatar_url, r.last_activity_at, r.created_at,
        COALESCE(ARRAY(SELECT m.user_id FROM room_members m WHERE m.room_id = r.id ORDER BY m.user_id), '{}') AS member_ids
        FROM rooms r`

// EnsurePrivateRoom inserts the room and both memberships if absent. Each
// statement is an idempotent upsert, so concurrent calls from both members
// converge and a partial run is repaired by the next call.
func (r *RoomRepo) EnsurePrivateRoom(ctx context.Context, roomID string, userA, userB string) (models.Room, error) {
	statements := []struct {
		query string
		args  []any
	}{
		{`INSERT INTO rooms (id, kind) VALUES ($1, 'private') ON CONFLICT (id) DO NOTHING`, []any{roomID}},
		{`INSERT INTO room_members (room_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`, []any{roomID, userA}},
		{`INSERT INTO room_members (room_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`, []any{roomID, userB}},
	}
	for _, st := range statements {
		if _, err := r.db.ExecContext(ctx, st.query, st.args...); err != nil && !IsUniqueViolation(err) {
			return models.Room{}, err
		}
	}
	return r.GetRoom(ctx, roomID)
}

// CreateGroup creates a group and its members atomically.
func (r *RoomRepo) CreateGroup(ctx context.Context, roomID string, name string, memberIDs []string) (models.Room, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Room{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `INSERT INTO rooms (id, kind, name) VALUES ($1, 'group', $2)`, roomID, name); err != nil {
		return models.Room{}, err
	}
	for _, id := range memberIDs {
		if _, err = tx.ExecContext(ctx, `INSERT INTO room_members (room_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`, roomID, id); err != nil {
			return models.Room{}, err
		}
	}
	if err = tx.Commit(); err != nil {
		return models.Room{}, err
	}
	return r.GetRoom(ctx, roomID)
}

// GetRoom fetches a room with its members.
func (r *RoomRepo) GetRoom(ctx context.Context, roomID string) (models.Room, error) {
	var row roomRow
	err := r.db.GetContext(ctx, &row, roomSelect+` WHERE r.id=$1`, roomID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Room{}, ErrRoomNotFound
	}
	if err != nil {
		return models.Room{}, err
	}
	return row.toModel(), nil
}

// ListRoomsForUser returns rooms containing the user, most recently active first.
func (r *RoomRepo) ListRoomsForUser(ctx context.Context, userID string) ([]models.Room, error) {
	var rows []roomRow
	err := r.db.SelectContext(ctx, &rows, roomSelect+`
        WHERE EXISTS (SELECT 1 FROM room_members m WHERE m.room_id = r.id AND m.user_id = $1)
        ORDER BY r.last_activity_at DESC, r.id`, userID)
	if err != nil {
		return nil, err
	}
	rooms := make([]models.Room, 0, len(rows))
	for _, row := range rows {
		rooms = append(rooms, row.toModel())
	}
	return rooms, nil
}

// UpdateGroup applies a partial update to a group room.
func (r *RoomRepo) UpdateGroup(ctx context.Context, roomID string, patch models.GroupPatch) (models.Room, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE rooms SET
            name = COALESCE($2, name),
            avatar_url = COALESCE($3, avatar_url)
        WHERE id=$1 AND kind='group'`, roomID, patch.Name, patch.AvatarURL)
	if err != nil {
		return models.Room{}, err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return models.Room{}, err
	}
	if count == 0 {
		return models.Room{}, ErrRoomNotFound
	}
	return r.GetRoom(ctx, roomID)
}

// RemoveMember deletes a membership. Removing an absent member is not an error.
func (r *RoomRepo) RemoveMember(ctx context.Context, roomID string, userID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM room_members WHERE room_id=$1 AND user_id=$2`, roomID, userID)
	return err
}
