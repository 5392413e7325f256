package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/kwren/taskhive-api/internal/domain"
	"github.com/kwren/taskhive-api/internal/realtime"
	"github.com/kwren/taskhive-api/internal/store"
)

// NotificationService provides notification persistence and realtime
// delivery.
//
// Persistence is the source of truth: every notification is written to the
// store before any realtime push is attempted, and the push itself is
// fire-and-forget. A recipient who is offline, or whose push is lost, still
// sees the notification on their next list fetch.
type NotificationService interface {
	// NotifyUser persists a notification for the user and schedules a
	// debounced realtime push. taskID may be nil.
	NotifyUser(ctx context.Context, userID uuid.UUID, message string, nType domain.NotificationType, taskID *uuid.UUID) error

	// NotifyAdmins persists a notification for every admin except exclude
	// and schedules a single debounced push to all connected admins.
	NotifyAdmins(ctx context.Context, message string, nType domain.NotificationType, taskID *uuid.UUID, exclude uuid.UUID) error

	// ListForUser returns the user's notifications newest-first along with
	// their current unread count.
	ListForUser(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit int) ([]*domain.Notification, int, error)

	// MarkRead marks one of the user's notifications as read and returns it.
	// Returns store.ErrNotificationNotFound if it does not exist or belongs
	// to another user.
	MarkRead(ctx context.Context, userID, id uuid.UUID) (*domain.Notification, error)

	// MarkAllRead marks all of the user's unread notifications as read and
	// returns how many changed.
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error)

	// Delete removes one of the user's notifications.
	// Returns store.ErrNotificationNotFound if it does not exist or belongs
	// to another user.
	Delete(ctx context.Context, userID, id uuid.UUID) error

	// DeleteForTask removes every notification referencing the task. Used
	// when a task is deleted.
	DeleteForTask(ctx context.Context, taskID uuid.UUID) error
}

// notificationServiceImpl implements the NotificationService interface.
type notificationServiceImpl struct {
	store    store.NotificationStore
	users    store.UserStore
	hub      *realtime.Hub
	debounce *realtime.Debouncer
	logger   *slog.Logger
	timeFunc func() time.Time
}

// NewNotificationService creates a new NotificationService.
// It returns an error if any of the required dependencies are nil. hub may
// be nil, in which case realtime pushes are skipped entirely.
func NewNotificationService(
	notificationStore store.NotificationStore,
	userStore store.UserStore,
	hub *realtime.Hub,
	debounce *realtime.Debouncer,
	logger *slog.Logger,
) (NotificationService, error) {
	if notificationStore == nil {
		return nil, domain.NewValidationError("notificationStore", "cannot be nil", domain.ErrValidation)
	}
	if userStore == nil {
		return nil, domain.NewValidationError("userStore", "cannot be nil", domain.ErrValidation)
	}
	if debounce == nil {
		return nil, domain.NewValidationError("debounce", "cannot be nil", domain.ErrValidation)
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &notificationServiceImpl{
		store:    notificationStore,
		users:    userStore,
		hub:      hub,
		debounce: debounce,
		logger:   logger.With(slog.String("component", "notification_service")),
		timeFunc: func() time.Time { return time.Now().UTC() },
	}, nil
}

// NotifyUser implements NotificationService.NotifyUser
func (s *notificationServiceImpl) NotifyUser(ctx context.Context, userID uuid.UUID, message string, nType domain.NotificationType, taskID *uuid.UUID) error {
	n, err := domain.NewNotification(userID, message, nType, taskID)
	if err != nil {
		return err
	}

	if err := s.store.Create(ctx, n); err != nil {
		return fmt.Errorf("failed to persist notification: %w", err)
	}

	// Push after persist, never before. The frame carries the stored record
	// so the client renders exactly what a later fetch would return.
	hub := s.hub
	key := fmt.Sprintf("notification_%s_%s", userID, n.ID)
	s.debounce.Schedule(key, func() {
		hub.PushToUser(userID, realtime.EventNotification, n)
	})

	return nil
}

// NotifyAdmins implements NotificationService.NotifyAdmins
func (s *notificationServiceImpl) NotifyAdmins(ctx context.Context, message string, nType domain.NotificationType, taskID *uuid.UUID, exclude uuid.UUID) error {
	admins, err := s.users.ListAdmins(ctx)
	if err != nil {
		return fmt.Errorf("failed to list admins: %w", err)
	}

	for _, admin := range admins {
		if admin.ID == exclude {
			continue
		}
		n, err := domain.NewNotification(admin.ID, message, nType, taskID)
		if err != nil {
			return err
		}
		if err := s.store.Create(ctx, n); err != nil {
			return fmt.Errorf("failed to persist admin notification: %w", err)
		}
	}

	// One push covers the whole admin group. The payload is anonymous (no
	// recipient id) since each admin has their own stored copy.
	payload := map[string]any{
		"id":        uuid.New(),
		"message":   message,
		"type":      nType,
		"read":      false,
		"createdAt": s.timeFunc().Format(time.RFC3339),
	}
	if taskID != nil {
		payload["taskId"] = *taskID
	}

	hub := s.hub
	key := "notification_admins"
	if taskID != nil {
		key = fmt.Sprintf("notification_admins_%s", *taskID)
	}
	s.debounce.Schedule(key, func() {
		hub.PushToAdmins(realtime.EventNotification, payload)
	})

	return nil
}

// ListForUser implements NotificationService.ListForUser
func (s *notificationServiceImpl) ListForUser(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit int) ([]*domain.Notification, int, error) {
	notifications, err := s.store.ListForUser(ctx, userID, unreadOnly, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list notifications: %w", err)
	}

	unread, err := s.store.CountUnread(ctx, userID)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}

	return notifications, unread, nil
}

// MarkRead implements NotificationService.MarkRead
func (s *notificationServiceImpl) MarkRead(ctx context.Context, userID, id uuid.UUID) (*domain.Notification, error) {
	return s.store.MarkRead(ctx, userID, id)
}

// MarkAllRead implements NotificationService.MarkAllRead
func (s *notificationServiceImpl) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	modified, err := s.store.MarkAllRead(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}

	s.logger.Debug("notifications marked read",
		slog.String("user_id", userID.String()),
		slog.Int64("modified", modified))
	return modified, nil
}

// Delete implements NotificationService.Delete
func (s *notificationServiceImpl) Delete(ctx context.Context, userID, id uuid.UUID) error {
	return s.store.Delete(ctx, userID, id)
}

// DeleteForTask implements NotificationService.DeleteForTask
func (s *notificationServiceImpl) DeleteForTask(ctx context.Context, taskID uuid.UUID) error {
	return s.store.DeleteByTask(ctx, taskID)
}
