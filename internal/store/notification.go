package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/kwren/taskhive-api/internal/domain"
)

// NotificationStore defines the interface for notification persistence.
//
// All per-notification mutations are keyed by (userID, id): a notification
// that exists but belongs to someone else behaves exactly like one that does
// not exist, returning ErrNotificationNotFound.
type NotificationStore interface {
	// Create saves a new notification to the store.
	Create(ctx context.Context, n *domain.Notification) error

	// ListForUser returns the user's notifications newest-first, optionally
	// restricted to unread ones, capped at limit.
	ListForUser(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit int) ([]*domain.Notification, error)

	// CountUnread returns the number of unread notifications for the user.
	CountUnread(ctx context.Context, userID uuid.UUID) (int, error)

	// MarkRead sets the read flag on one of the user's notifications and
	// returns the updated record.
	MarkRead(ctx context.Context, userID, id uuid.UUID) (*domain.Notification, error)

	// MarkAllRead marks all of the user's unread notifications as read and
	// returns how many records changed. Calling it with nothing unread is
	// not an error.
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error)

	// Delete removes one of the user's notifications.
	Delete(ctx context.Context, userID, id uuid.UUID) error

	// DeleteByTask removes every notification referencing the given task.
	// Used to cascade a task deletion; deleting zero rows is not an error.
	DeleteByTask(ctx context.Context, taskID uuid.UUID) error
}
