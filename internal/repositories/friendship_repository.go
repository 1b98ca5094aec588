package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"collab-service/internal/models"
)

// FriendshipRepository persists the per-pair relationship record.
type FriendshipRepository interface {
	GetBetween(ctx context.Context, userA, userB string) (models.Friendship, error)
	CreatePending(ctx context.Context, id, requesterID, addresseeID string) (models.Friendship, error)
	Accept(ctx context.Context, requesterID, addresseeID string) (models.Friendship, error)
	DeletePending(ctx context.Context, userA, userB string) (models.Friendship, error)
	ListForUser(ctx context.Context, userID string, otherIDs []string) ([]models.Friendship, error)
	ListFriends(ctx context.Context, userID string) ([]models.UserSummary, error)
	ListPendingIncoming(ctx context.Context, userID string) ([]models.FriendRequest, error)
}

// FriendshipRepo is a sqlx implementation of FriendshipRepository.
type FriendshipRepo struct {
	db *sqlx.DB
}

// NewFriendshipRepo constructs a FriendshipRepo.
func NewFriendshipRepo(db *sqlx.DB) *FriendshipRepo {
	return &FriendshipRepo{db: db}
}

const friendshipColumns = `id, requester_id, addressee_id, status, created_at, updated_at`

// GetBetween finds the record for the unordered pair.
func (r *FriendshipRepo) GetBetween(ctx context.Context, userA, userB string) (models.Friendship, error) {
	var f models.Friendship
	err := r.db.GetContext(ctx, &f, `SELECT `+friendshipColumns+` FROM friendships
        WHERE (requester_id=$1 AND addressee_id=$2) OR (requester_id=$2 AND addressee_id=$1)`, userA, userB)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Friendship{}, ErrFriendshipNotFound
	}
	return f, err
}

// CreatePending inserts a pending request. A record for the pair in either
// direction yields ErrFriendshipExists.
func (r *FriendshipRepo) CreatePending(ctx context.Context, id, requesterID, addresseeID string) (models.Friendship, error) {
	var f models.Friendship
	err := r.db.GetContext(ctx, &f, `INSERT INTO friendships (id, requester_id, addressee_id, status)
        VALUES ($1, $2, $3, 'pending') RETURNING `+friendshipColumns, id, requesterID, addresseeID)
	if IsUniqueViolation(err) {
		return models.Friendship{}, ErrFriendshipExists
	}
	return f, err
}

// Accept transitions the exact pending record requester→addressee.
func (r *FriendshipRepo) Accept(ctx context.Context, requesterID, addresseeID string) (models.Friendship, error) {
	var f models.Friendship
	err := r.db.GetContext(ctx, &f, `UPDATE friendships SET status='accepted', updated_at=NOW()
        WHERE requester_id=$1 AND addressee_id=$2 AND status='pending'
        RETURNING `+friendshipColumns, requesterID, addresseeID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Friendship{}, ErrFriendshipNotFound
	}
	return f, err
}

// DeletePending removes a pending record for the pair, in either direction.
func (r *FriendshipRepo) DeletePending(ctx context.Context, userA, userB string) (models.Friendship, error) {
	var f models.Friendship
	err := r.db.GetContext(ctx, &f, `DELETE FROM friendships
        WHERE ((requester_id=$1 AND addressee_id=$2) OR (requester_id=$2 AND addressee_id=$1)) AND status='pending'
        RETURNING `+friendshipColumns, userA, userB)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Friendship{}, ErrFriendshipNotFound
	}
	return f, err
}

// ListForUser returns the records between userID and any of otherIDs.
func (r *FriendshipRepo) ListForUser(ctx context.Context, userID string, otherIDs []string) ([]models.Friendship, error) {
	if len(otherIDs) == 0 {
		return []models.Friendship{}, nil
	}
	var out []models.Friendship
	err := r.db.SelectContext(ctx, &out, `SELECT `+friendshipColumns+` FROM friendships
        WHERE (requester_id=$1 AND addressee_id = ANY($2)) OR (addressee_id=$1 AND requester_id = ANY($2))`,
		userID, pq.Array(otherIDs))
	return out, err
}

// ListFriends returns profiles of accepted friends.
func (r *FriendshipRepo) ListFriends(ctx context.Context, userID string) ([]models.UserSummary, error) {
	var out []models.UserSummary
	err := r.db.SelectContext(ctx, &out, `SELECT p.id, p.username, p.display_name, p.avatar_url
        FROM friendships f
        JOIN profiles p ON p.id = CASE WHEN f.requester_id=$1 THEN f.addressee_id ELSE f.requester_id END
        WHERE (f.requester_id=$1 OR f.addressee_id=$1) AND f.status='accepted'
        ORDER BY p.username`, userID)
	for i := range out {
		out[i].Relationship = models.FriendshipAccepted
	}
	return out, err
}

type pendingRow struct {
	FriendshipID string `db:"friendship_id"`
	models.UserSummary
	CreatedAt sql.NullTime `db:"created_at"`
}

// ListPendingIncoming returns pending requests addressed to userID, newest first.
func (r *FriendshipRepo) ListPendingIncoming(ctx context.Context, userID string) ([]models.FriendRequest, error) {
	var rows []pendingRow
	err := r.db.SelectContext(ctx, &rows, `SELECT f.id AS friendship_id, f.created_at,
            p.id, p.username, p.display_name, p.avatar_url
        FROM friendships f
        JOIN profiles p ON p.id = f.requester_id
        WHERE f.addressee_id=$1 AND f.status='pending'
        ORDER BY f.created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	out := make([]models.FriendRequest, 0, len(rows))
	for _, row := range rows {
		requester := row.UserSummary
		requester.Relationship = models.FriendshipPending
		out = append(out, models.FriendRequest{
			FriendshipID: row.FriendshipID,
			Requester:    requester,
			CreatedAt:    row.CreatedAt.Time,
		})
	}
	return out, nil
}
