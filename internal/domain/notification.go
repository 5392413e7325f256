package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// NotificationType identifies what kind of task event produced a notification.
// The string values are part of the wire compatibility surface.
type NotificationType string

// Notification types.
const (
	NotificationTaskAssigned      NotificationType = "task_assigned"
	NotificationTaskUpdated       NotificationType = "task_updated"
	NotificationTaskStatusChanged NotificationType = "task_status_changed"
	NotificationTaskCompleted     NotificationType = "task_completed"
	NotificationSystem            NotificationType = "system"
)

// IsValid reports whether the type is one of the known notification types.
func (t NotificationType) IsValid() bool {
	switch t {
	case NotificationTaskAssigned, NotificationTaskUpdated,
		NotificationTaskStatusChanged, NotificationTaskCompleted, NotificationSystem:
		return true
	}
	return false
}

// Notification is a persisted message addressed to a single recipient,
// usually produced as a side effect of a task lifecycle event. TaskID is
// optional: system notifications carry no task reference, and notifications
// are cascaded away when their parent task is deleted.
type Notification struct {
	ID        uuid.UUID        `json:"id"`
	UserID    uuid.UUID        `json:"userId"`
	Message   string           `json:"message"`
	Type      NotificationType `json:"type"`
	TaskID    *uuid.UUID       `json:"taskId,omitempty"`
	Read      bool             `json:"read"`
	CreatedAt time.Time        `json:"createdAt"`
}

// NewNotification creates an unread Notification for the given recipient.
// taskID may be nil for notifications not tied to a task.
func NewNotification(userID uuid.UUID, message string, nType NotificationType, taskID *uuid.UUID) (*Notification, error) {
	n := &Notification{
		ID:        uuid.New(),
		UserID:    userID,
		Message:   strings.TrimSpace(message),
		Type:      nType,
		TaskID:    taskID,
		Read:      false,
		CreatedAt: time.Now().UTC(),
	}

	if err := n.Validate(); err != nil {
		return nil, err
	}

	return n, nil
}

// Validate checks if the Notification has valid data.
func (n *Notification) Validate() error {
	if n.ID == uuid.Nil {
		return NewValidationError("id", "cannot be empty", ErrInvalidID)
	}
	if n.UserID == uuid.Nil {
		return NewValidationError("userId", "cannot be empty", ErrInvalidID)
	}
	if n.Message == "" {
		return NewValidationError("message", "cannot be empty", ErrValidation)
	}
	if !n.Type.IsValid() {
		return NewValidationError("type", "must be a valid notification type", ErrValidation)
	}
	return nil
}
