package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/kwren/taskhive-api/internal/domain"
)

// RegisterRequest represents the payload for user registration.
type RegisterRequest struct {
	Name     string `json:"name"     validate:"required,max=100"`
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Role     string `json:"role"     validate:"omitempty,oneof=user admin"`
}

// LoginRequest represents the payload for user login.
type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// UpdateProfileRequest represents the payload for updating the
// authenticated user's profile.
type UpdateProfileRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

// CreateTaskRequest represents the payload for creating a task.
// Status is not accepted: new tasks always start in "To Do".
type CreateTaskRequest struct {
	Title        string    `json:"title"        validate:"required,max=100"`
	Description  string    `json:"description"  validate:"required"`
	DueDate      time.Time `json:"dueDate"      validate:"required"`
	Priority     string    `json:"priority"     validate:"omitempty,oneof=Low Medium High Urgent"`
	AssignedToID uuid.UUID `json:"assignedToId"  validate:"required"`
}

// UpdateTaskRequest represents the payload for editing a task. All fields are
// optional; only the fields present in the request are changed. Status is
// deliberately absent: it can only move through the status endpoint, which
// enforces the assignee rule.
type UpdateTaskRequest struct {
	Title        *string    `json:"title"       validate:"omitempty,max=100"`
	Description  *string    `json:"description" validate:"omitempty"`
	DueDate      *time.Time `json:"dueDate"     validate:"omitempty"`
	Priority     *string    `json:"priority"    validate:"omitempty,oneof=Low Medium High Urgent"`
	AssignedToID *uuid.UUID `json:"assignedToId" validate:"omitempty"`
}

// UpdateTaskStatusRequest represents the payload for moving a task to a new
// status. The value is validated against the settable statuses in the service
// so the error carries the domain message.
type UpdateTaskStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// TaskResponse is the wire representation of a task. IsOverdue is computed
// at render time, never stored.
type TaskResponse struct {
	ID           uuid.UUID       `json:"id"`
	Title        string          `json:"title"`
	Description  string          `json:"description"`
	DueDate      time.Time       `json:"dueDate"`
	Priority     domain.Priority `json:"priority"`
	Status       domain.Status   `json:"status"`
	CreatorID    uuid.UUID       `json:"creatorId"`
	AssignedToID uuid.UUID       `json:"assignedToId"`
	IsOverdue    bool            `json:"isOverdue"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

// NewTaskResponse converts a domain task to its wire representation,
// computing overdue state relative to now.
func NewTaskResponse(task *domain.Task, now time.Time) TaskResponse {
	return TaskResponse{
		ID:           task.ID,
		Title:        task.Title,
		Description:  task.Description,
		DueDate:      task.DueDate,
		Priority:     task.Priority,
		Status:       task.Status,
		CreatorID:    task.CreatorID,
		AssignedToID: task.AssignedToID,
		IsOverdue:    task.IsOverdue(now),
		CreatedAt:    task.CreatedAt,
		UpdatedAt:    task.UpdatedAt,
	}
}

// NewTaskResponses converts a slice of domain tasks, sharing a single now.
func NewTaskResponses(tasks []*domain.Task, now time.Time) []TaskResponse {
	out := make([]TaskResponse, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, NewTaskResponse(t, now))
	}
	return out
}
