// Package service contains the application-specific use cases and business
// logic. It orchestrates interactions between domain objects, repositories
// (defined in internal/store) and the realtime hub to fulfill application
// features.
package service

import (
	"errors"
	"fmt"

	"github.com/kwren/taskhive-api/internal/domain"
)

// Common service errors - sentinel errors used across service implementations.
// Callers check for these with errors.Is(); the API layer maps them to HTTP
// status codes.
var (
	// ErrNotAuthorized indicates the actor may not perform the operation on
	// the target resource. Maps to HTTP 403 Forbidden.
	ErrNotAuthorized = errors.New("not authorized")

	// ErrNotAssignee indicates a status change attempted by someone other
	// than the task's assignee. Maps to HTTP 403 Forbidden.
	ErrNotAssignee = errors.New("only assigned user can update task status")

	// ErrSelfAssign indicates an admin tried to assign a task to themselves.
	// Maps to HTTP 400 Bad Request.
	ErrSelfAssign = errors.New("admin cannot assign tasks to themselves")

	// ErrAssigneeNotFound indicates the requested assignee does not exist.
	// Maps to HTTP 404 Not Found.
	ErrAssigneeNotFound = errors.New("assigned user not found")

	// ErrDuplicateTask indicates an active task with the same title, creator
	// and assignee already exists. Maps to HTTP 409 Conflict; the concrete
	// DuplicateTaskError carries the conflicting task.
	ErrDuplicateTask = errors.New("a similar active task already exists for this user")
)

// DuplicateTaskError reports a duplicate-task conflict along with the
// existing task that caused it, so the API layer can echo its identity.
type DuplicateTaskError struct {
	Existing *domain.Task
}

// Error implements the error interface for DuplicateTaskError.
func (e *DuplicateTaskError) Error() string {
	return fmt.Sprintf("%v: %q (%s)", ErrDuplicateTask, e.Existing.Title, e.Existing.Status)
}

// Unwrap lets errors.Is(err, ErrDuplicateTask) match.
func (e *DuplicateTaskError) Unwrap() error {
	return ErrDuplicateTask
}

// TaskServiceError is a custom error type for unexpected task service
// failures. Expected conditions use the sentinel errors above instead.
type TaskServiceError struct {
	Operation string
	Message   string
	Err       error
}

// Error implements the error interface for TaskServiceError.
func (e *TaskServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("task service %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("task service %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *TaskServiceError) Unwrap() error {
	return e.Err
}

// NewTaskServiceError creates a new TaskServiceError.
func NewTaskServiceError(operation, message string, err error) *TaskServiceError {
	return &TaskServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}
