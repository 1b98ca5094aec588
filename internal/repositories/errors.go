package repositories

import (
	"errors"

	"github.com/lib/pq"
)

var (
	ErrRoomNotFound         = errors.New("room not found")
	ErrMessageNotFound      = errors.New("message not found")
	ErrFriendshipNotFound   = errors.New("friendship not found")
	ErrFriendshipExists     = errors.New("friendship already exists")
	ErrNotificationNotFound = errors.New("notification not found")
	ErrWhiteboardNotFound   = errors.New("whiteboard not found")
	ErrProfileNotFound      = errors.New("profile not found")
)

const uniqueViolation = "23505"

// IsUniqueViolation reports whether err is a PostgreSQL unique constraint failure.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
