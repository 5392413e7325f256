package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status is a task workflow state. The string values (including the embedded
// spaces) are part of the wire compatibility surface and must not change.
type Status string

// Task statuses. StatusCancelled never appears on new tasks but is treated as
// terminal by the duplicate-task guard.
const (
	StatusToDo       Status = "To Do"
	StatusInProgress Status = "In Progress"
	StatusReview     Status = "Review"
	StatusCompleted  Status = "Completed"
	StatusCancelled  Status = "Cancelled"
)

// ActiveStatuses are the statuses a task may be set to. Transitions between
// them are deliberately unrestricted: any value is reachable from any other,
// so a completed task can be reopened.
var ActiveStatuses = []Status{StatusToDo, StatusInProgress, StatusReview, StatusCompleted}

// IsValid reports whether the status is one of the settable status values.
func (s Status) IsValid() bool {
	switch s {
	case StatusToDo, StatusInProgress, StatusReview, StatusCompleted:
		return true
	}
	return false
}

// IsTerminal reports whether the status ends a task's active life. Terminal
// tasks are ignored by the duplicate-task guard.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Priority is a task urgency level.
type Priority string

// Task priorities, lowest to highest.
const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
	PriorityUrgent Priority = "Urgent"
)

// IsValid reports whether the priority is one of the known priority values.
func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// maxTitleLength bounds task titles, matching the stored column size.
const maxTitleLength = 100

// Task is a unit of assignable work with a due date, priority and status.
// The creator holds edit rights, the assignee drives status transitions.
type Task struct {
	ID           uuid.UUID `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	DueDate      time.Time `json:"dueDate"`
	Priority     Priority  `json:"priority"`
	Status       Status    `json:"status"`
	CreatorID    uuid.UUID `json:"creatorId"`
	AssignedToID uuid.UUID `json:"assignedToId"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// NewTask creates a new Task assigned by creatorID to assignedToID.
// Status is always forced to "To Do"; an empty priority defaults to Medium.
// Returns an error if validation fails.
func NewTask(title, description string, dueDate time.Time, priority Priority, creatorID, assignedToID uuid.UUID) (*Task, error) {
	if priority == "" {
		priority = PriorityMedium
	}

	now := time.Now().UTC()
	task := &Task{
		ID:           uuid.New(),
		Title:        strings.TrimSpace(title),
		Description:  strings.TrimSpace(description),
		DueDate:      dueDate,
		Priority:     priority,
		Status:       StatusToDo,
		CreatorID:    creatorID,
		AssignedToID: assignedToID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := task.Validate(); err != nil {
		return nil, err
	}

	return task, nil
}

// Validate checks if the Task has valid data.
func (t *Task) Validate() error {
	if t.ID == uuid.Nil {
		return NewValidationError("id", "cannot be empty", ErrInvalidID)
	}
	if t.Title == "" {
		return NewValidationError("title", "cannot be empty", ErrValidation)
	}
	if len(t.Title) > maxTitleLength {
		return NewValidationError("title", "cannot exceed 100 characters", ErrValidation)
	}
	if t.Description == "" {
		return NewValidationError("description", "cannot be empty", ErrValidation)
	}
	if t.DueDate.IsZero() {
		return NewValidationError("dueDate", "cannot be empty", ErrValidation)
	}
	if !t.Priority.IsValid() {
		return NewValidationError("priority", "must be Low, Medium, High or Urgent", ErrInvalidPriority)
	}
	if !t.Status.IsValid() {
		return NewValidationError("status", "must be a valid status", ErrInvalidStatus)
	}
	if t.CreatorID == uuid.Nil {
		return NewValidationError("creatorId", "cannot be empty", ErrInvalidID)
	}
	if t.AssignedToID == uuid.Nil {
		return NewValidationError("assignedToId", "cannot be empty", ErrInvalidID)
	}
	return nil
}

// IsOverdue reports whether the task's due date has passed without the task
// being completed, relative to now. Always recomputed, never stored.
func (t *Task) IsOverdue(now time.Time) bool {
	return t.DueDate.Before(now) && t.Status != StatusCompleted
}
