// Package policy holds the authorization rules for task operations.
//
// Authorization rules:
//   - Admins can view, edit and delete any task
//   - Creators can view and edit their tasks, and delete them once completed
//   - Only the assignee drives status transitions (admins included are denied)
//   - Admins may not assign tasks to themselves
//
// Every function is a pure predicate over (actor, task); callers translate
// false into an authorization failure. No side effects, no I/O.
package policy

import (
	"github.com/google/uuid"
	"github.com/kwren/taskhive-api/internal/domain"
)

// CanViewTask reports whether actor may read the task.
func CanViewTask(actor *domain.User, task *domain.Task) bool {
	if actor.IsAdmin() {
		return true
	}
	return actor.ID == task.CreatorID || actor.ID == task.AssignedToID
}

// CanEditTask reports whether actor may modify the task's fields.
func CanEditTask(actor *domain.User, task *domain.Task) bool {
	return actor.IsAdmin() || actor.ID == task.CreatorID
}

// CanChangeStatus reports whether actor may transition the task's status.
// Only the assignee qualifies; creators and admins are deliberately excluded.
func CanChangeStatus(actor *domain.User, task *domain.Task) bool {
	return actor.ID == task.AssignedToID
}

// CanDeleteTask reports whether actor may delete the task. Admins may delete
// any task at any time; creators only their own completed tasks.
func CanDeleteTask(actor *domain.User, task *domain.Task) bool {
	if actor.IsAdmin() {
		return true
	}
	return actor.ID == task.CreatorID && task.Status == domain.StatusCompleted
}

// CanAssignTo reports whether actor may assign a task to assigneeID.
// Admins may not self-assign; everyone else may assign to anyone,
// themselves included.
func CanAssignTo(actor *domain.User, assigneeID uuid.UUID) bool {
	return !(actor.IsAdmin() && actor.ID == assigneeID)
}
