package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/kwren/taskhive-api/internal/domain"
)

// TaskScope bounds a query to the tasks a viewer is allowed to see.
// Admins see every task; other users only tasks they created or are
// assigned to.
type TaskScope struct {
	ViewerID uuid.UUID
	Admin    bool
}

// TaskFilter describes an optional narrowing of a task listing.
// Zero values mean "no filter".
type TaskFilter struct {
	Status   domain.Status
	Priority domain.Priority

	// AssignedOnly/CreatedOnly narrow a non-admin listing to tasks assigned
	// to or created by the viewer. For admins they are no-ops, matching the
	// admin's full visibility.
	AssignedOnly bool
	CreatedOnly  bool

	// SortField is a whitelisted task column name (dueDate, priority,
	// status, title, createdAt, updatedAt). Empty means dueDate.
	SortField string
	SortDesc  bool

	Page  int
	Limit int
}

// TaskStats is the dashboard projection over a viewer's visible tasks.
type TaskStats struct {
	Total        int
	Completed    int
	Overdue      int
	HighPriority int
	ByStatus     map[domain.Status]int
	ByPriority   map[domain.Priority]int
}

// TaskStore defines the interface for task data persistence.
type TaskStore interface {
	// Create saves a new task to the store.
	Create(ctx context.Context, task *domain.Task) error

	// GetByID retrieves a task by its unique ID.
	// Returns ErrTaskNotFound if the task does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error)

	// Update persists the task's current field values.
	// Returns ErrTaskNotFound if the task does not exist.
	Update(ctx context.Context, task *domain.Task) error

	// Delete removes a task. The caller is responsible for cascading
	// dependent notifications. Returns ErrTaskNotFound if absent.
	Delete(ctx context.Context, id uuid.UUID) error

	// List returns tasks visible within scope, narrowed by filter, plus the
	// total match count before pagination.
	List(ctx context.Context, scope TaskScope, filter TaskFilter) ([]*domain.Task, int, error)

	// Recent returns the most recently updated tasks visible within scope,
	// newest first.
	Recent(ctx context.Context, scope TaskScope, limit int) ([]*domain.Task, error)

	// FindActiveDuplicate looks for a non-terminal task with the same title
	// (case-insensitive, trimmed), creator and assignee.
	// Returns ErrTaskNotFound when there is no such task.
	FindActiveDuplicate(ctx context.Context, title string, creatorID, assignedToID uuid.UUID) (*domain.Task, error)

	// Stats computes the dashboard aggregates over the scope's visible tasks.
	Stats(ctx context.Context, scope TaskScope) (*TaskStats, error)
}
