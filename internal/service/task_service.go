package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/kwren/taskhive-api/internal/domain"
	"github.com/kwren/taskhive-api/internal/platform/logger"
	"github.com/kwren/taskhive-api/internal/policy"
	"github.com/kwren/taskhive-api/internal/realtime"
	"github.com/kwren/taskhive-api/internal/store"
)

// CreateTaskInput carries the fields for a new task. The creator is always
// the acting user; status always starts at "To Do".
type CreateTaskInput struct {
	Title        string
	Description  string
	DueDate      time.Time
	Priority     domain.Priority
	AssignedToID uuid.UUID
}

// UpdateTaskInput carries an edit to an existing task. Nil fields are left
// unchanged. Status is deliberately absent: status moves only through
// UpdateStatus, which enforces the assignee-only rule.
type UpdateTaskInput struct {
	Title        *string
	Description  *string
	DueDate      *time.Time
	Priority     *domain.Priority
	AssignedToID *uuid.UUID
}

// DashboardStats aggregates a viewer's visible tasks for the dashboard.
type DashboardStats struct {
	TotalTasks        int
	CompletedTasks    int
	OverdueTasks      int
	HighPriorityTasks int
	CompletionRate    float64
	ByStatus          map[domain.Status]int
	ByPriority        map[domain.Priority]int
	RecentTasks       []*domain.Task
}

// TaskService provides task lifecycle operations: creation with the
// duplicate guard, edits, assignee-driven status transitions, deletion and
// the dashboard projections. Every operation takes the acting user and
// enforces the policy package's rules before touching storage.
type TaskService interface {
	// Create creates a task assigned by actor to the given assignee.
	// Returns the task and the resolved assignee.
	// Returns ErrSelfAssign, ErrAssigneeNotFound or a *DuplicateTaskError
	// when the corresponding precondition fails.
	Create(ctx context.Context, actor *domain.User, in CreateTaskInput) (*domain.Task, *domain.User, error)

	// Get returns a single task. Returns ErrNotAuthorized if actor may not
	// view it and store.ErrTaskNotFound if it does not exist.
	Get(ctx context.Context, actor *domain.User, id uuid.UUID) (*domain.Task, error)

	// List returns the tasks actor may see, narrowed by filter, plus the
	// total match count before pagination.
	List(ctx context.Context, actor *domain.User, filter store.TaskFilter) ([]*domain.Task, int, error)

	// Recent returns actor's most recently updated visible tasks.
	Recent(ctx context.Context, actor *domain.User, limit int) ([]*domain.Task, error)

	// Update edits a task's fields. Returns ErrNotAuthorized unless actor is
	// an admin or the creator. Reassignment validates the new assignee and
	// notifies both the new and previous one.
	Update(ctx context.Context, actor *domain.User, id uuid.UUID, in UpdateTaskInput) (*domain.Task, error)

	// UpdateStatus transitions a task's status and returns the updated task
	// along with the status it moved from. Returns ErrNotAssignee unless
	// actor is the task's assignee.
	UpdateStatus(ctx context.Context, actor *domain.User, id uuid.UUID, status domain.Status) (*domain.Task, domain.Status, error)

	// Delete removes a task and its notifications. Returns ErrNotAuthorized
	// unless actor is an admin, or the creator of a completed task.
	Delete(ctx context.Context, actor *domain.User, id uuid.UUID) error

	// DashboardStats computes the dashboard aggregates over actor's visible
	// tasks, including the five most recently created ones.
	DashboardStats(ctx context.Context, actor *domain.User) (*DashboardStats, error)
}

// taskServiceImpl implements the TaskService interface.
type taskServiceImpl struct {
	tasks    store.TaskStore
	users    store.UserStore
	notifier NotificationService
	hub      *realtime.Hub
	debounce *realtime.Debouncer
	logger   *slog.Logger
	timeFunc func() time.Time
}

// NewTaskService creates a new TaskService.
// It returns an error if any of the required dependencies are nil. hub may
// be nil, in which case realtime broadcasts are skipped entirely.
func NewTaskService(
	taskStore store.TaskStore,
	userStore store.UserStore,
	notifier NotificationService,
	hub *realtime.Hub,
	debounce *realtime.Debouncer,
	logger *slog.Logger,
) (TaskService, error) {
	if taskStore == nil {
		return nil, domain.NewValidationError("taskStore", "cannot be nil", domain.ErrValidation)
	}
	if userStore == nil {
		return nil, domain.NewValidationError("userStore", "cannot be nil", domain.ErrValidation)
	}
	if notifier == nil {
		return nil, domain.NewValidationError("notifier", "cannot be nil", domain.ErrValidation)
	}
	if debounce == nil {
		return nil, domain.NewValidationError("debounce", "cannot be nil", domain.ErrValidation)
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &taskServiceImpl{
		tasks:    taskStore,
		users:    userStore,
		notifier: notifier,
		hub:      hub,
		debounce: debounce,
		logger:   logger.With(slog.String("component", "task_service")),
		timeFunc: func() time.Time { return time.Now().UTC() },
	}, nil
}

// Create implements TaskService.Create
func (s *taskServiceImpl) Create(ctx context.Context, actor *domain.User, in CreateTaskInput) (*domain.Task, *domain.User, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if !policy.CanAssignTo(actor, in.AssignedToID) {
		return nil, nil, ErrSelfAssign
	}

	assignee, err := s.users.GetByID(ctx, in.AssignedToID)
	if err != nil {
		if store.IsNotFoundError(err) {
			return nil, nil, ErrAssigneeNotFound
		}
		return nil, nil, NewTaskServiceError("create", "failed to resolve assignee", err)
	}

	existing, err := s.tasks.FindActiveDuplicate(ctx, in.Title, actor.ID, in.AssignedToID)
	if err == nil {
		return nil, nil, &DuplicateTaskError{Existing: existing}
	}
	if !errors.Is(err, store.ErrTaskNotFound) {
		return nil, nil, NewTaskServiceError("create", "duplicate check failed", err)
	}

	task, err := domain.NewTask(in.Title, in.Description, in.DueDate, in.Priority, actor.ID, in.AssignedToID)
	if err != nil {
		return nil, nil, err
	}

	if err := s.tasks.Create(ctx, task); err != nil {
		return nil, nil, NewTaskServiceError("create", "failed to save task", err)
	}

	if assignee.ID != actor.ID {
		message := fmt.Sprintf("%s assigned you a new task: %q", actor.Name, task.Title)
		s.notify(ctx, assignee.ID, message, domain.NotificationTaskAssigned, task.ID)
	}

	s.broadcast(fmt.Sprintf("task_created_%s", task.ID), realtime.EventTaskCreated, task)

	log.Info("task created",
		slog.String("task_id", task.ID.String()),
		slog.String("creator_id", actor.ID.String()),
		slog.String("assigned_to_id", assignee.ID.String()))
	return task, assignee, nil
}

// Get implements TaskService.Get
func (s *taskServiceImpl) Get(ctx context.Context, actor *domain.User, id uuid.UUID) (*domain.Task, error) {
	task, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !policy.CanViewTask(actor, task) {
		return nil, fmt.Errorf("%w to access this task", ErrNotAuthorized)
	}
	return task, nil
}

// List implements TaskService.List
func (s *taskServiceImpl) List(ctx context.Context, actor *domain.User, filter store.TaskFilter) ([]*domain.Task, int, error) {
	scope := store.TaskScope{ViewerID: actor.ID, Admin: actor.IsAdmin()}
	return s.tasks.List(ctx, scope, filter)
}

// Recent implements TaskService.Recent
func (s *taskServiceImpl) Recent(ctx context.Context, actor *domain.User, limit int) ([]*domain.Task, error) {
	scope := store.TaskScope{ViewerID: actor.ID, Admin: actor.IsAdmin()}
	return s.tasks.Recent(ctx, scope, limit)
}

// Update implements TaskService.Update
func (s *taskServiceImpl) Update(ctx context.Context, actor *domain.User, id uuid.UUID, in UpdateTaskInput) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	task, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !policy.CanEditTask(actor, task) {
		return nil, fmt.Errorf("%w to update this task", ErrNotAuthorized)
	}

	previousAssignee := task.AssignedToID
	reassigning := in.AssignedToID != nil && *in.AssignedToID != previousAssignee

	if in.AssignedToID != nil {
		if !policy.CanAssignTo(actor, *in.AssignedToID) {
			return nil, ErrSelfAssign
		}
		if reassigning {
			if _, err := s.users.GetByID(ctx, *in.AssignedToID); err != nil {
				if store.IsNotFoundError(err) {
					return nil, ErrAssigneeNotFound
				}
				return nil, NewTaskServiceError("update", "failed to resolve assignee", err)
			}
		}
	}

	if in.Title != nil {
		task.Title = *in.Title
	}
	if in.Description != nil {
		task.Description = *in.Description
	}
	if in.DueDate != nil {
		task.DueDate = *in.DueDate
	}
	if in.Priority != nil {
		task.Priority = *in.Priority
	}
	if in.AssignedToID != nil {
		task.AssignedToID = *in.AssignedToID
	}
	task.UpdatedAt = s.timeFunc()

	if err := s.tasks.Update(ctx, task); err != nil {
		return nil, err
	}

	if reassigning {
		s.notify(ctx, task.AssignedToID,
			fmt.Sprintf("%s assigned you a task: %q", actor.Name, task.Title),
			domain.NotificationTaskAssigned, task.ID)
		s.notify(ctx, previousAssignee,
			fmt.Sprintf("Task %q has been reassigned", task.Title),
			domain.NotificationTaskUpdated, task.ID)
	}

	s.broadcast(fmt.Sprintf("task_updated_%s", task.ID), realtime.EventTaskUpdated, task)

	log.Info("task updated",
		slog.String("task_id", task.ID.String()),
		slog.String("actor_id", actor.ID.String()),
		slog.Bool("reassigned", reassigning))
	return task, nil
}

// UpdateStatus implements TaskService.UpdateStatus
func (s *taskServiceImpl) UpdateStatus(ctx context.Context, actor *domain.User, id uuid.UUID, status domain.Status) (*domain.Task, domain.Status, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if !status.IsValid() {
		return nil, "", domain.NewValidationError("status", "invalid status value", domain.ErrInvalidStatus)
	}

	task, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return nil, "", err
	}

	if !policy.CanChangeStatus(actor, task) {
		return nil, "", ErrNotAssignee
	}

	oldStatus := task.Status
	task.Status = status
	task.UpdatedAt = s.timeFunc()

	if err := s.tasks.Update(ctx, task); err != nil {
		return nil, "", err
	}

	if oldStatus != status {
		message := statusChangeMessage(actor.Name, task.Title, oldStatus, status)

		if task.CreatorID != actor.ID {
			s.notify(ctx, task.CreatorID, message, domain.NotificationTaskStatusChanged, task.ID)
		}

		if status == domain.StatusCompleted {
			completed := fmt.Sprintf("Task %q has been completed by %s", task.Title, actor.Name)
			if err := s.notifier.NotifyAdmins(ctx, completed, domain.NotificationTaskCompleted, &task.ID, actor.ID); err != nil {
				log.Warn("failed to notify admins of completion",
					slog.String("task_id", task.ID.String()),
					slog.String("error", err.Error()))
			}
		}
	}

	s.broadcast(fmt.Sprintf("task_updated_%s", task.ID), realtime.EventTaskUpdated, task)

	log.Info("task status updated",
		slog.String("task_id", task.ID.String()),
		slog.String("from", string(oldStatus)),
		slog.String("to", string(status)),
		slog.String("actor_id", actor.ID.String()))
	return task, oldStatus, nil
}

// Delete implements TaskService.Delete
func (s *taskServiceImpl) Delete(ctx context.Context, actor *domain.User, id uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	task, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if !policy.CanDeleteTask(actor, task) {
		return fmt.Errorf("%w to delete this task: only admins can delete any task, creators can delete their own completed tasks", ErrNotAuthorized)
	}

	// Notifications go first so a crash in between leaves no orphans
	// pointing at a missing task.
	if err := s.notifier.DeleteForTask(ctx, id); err != nil {
		return NewTaskServiceError("delete", "failed to remove task notifications", err)
	}
	if err := s.tasks.Delete(ctx, id); err != nil {
		return err
	}

	s.broadcast(fmt.Sprintf("task_deleted_%s", id), realtime.EventTaskDeleted, id.String())

	log.Info("task deleted",
		slog.String("task_id", id.String()),
		slog.String("actor_id", actor.ID.String()))
	return nil
}

// DashboardStats implements TaskService.DashboardStats
func (s *taskServiceImpl) DashboardStats(ctx context.Context, actor *domain.User) (*DashboardStats, error) {
	scope := store.TaskScope{ViewerID: actor.ID, Admin: actor.IsAdmin()}

	stats, err := s.tasks.Stats(ctx, scope)
	if err != nil {
		return nil, err
	}

	recent, err := s.tasks.Recent(ctx, scope, 5)
	if err != nil {
		return nil, err
	}

	var completionRate float64
	if stats.Total > 0 {
		completionRate = float64(stats.Completed) / float64(stats.Total) * 100
	}

	return &DashboardStats{
		TotalTasks:        stats.Total,
		CompletedTasks:    stats.Completed,
		OverdueTasks:      stats.Overdue,
		HighPriorityTasks: stats.HighPriority,
		CompletionRate:    completionRate,
		ByStatus:          stats.ByStatus,
		ByPriority:        stats.ByPriority,
		RecentTasks:       recent,
	}, nil
}

// notify persists and pushes a notification, logging instead of failing the
// already-committed task mutation when it goes wrong.
func (s *taskServiceImpl) notify(ctx context.Context, userID uuid.UUID, message string, nType domain.NotificationType, taskID uuid.UUID) {
	if err := s.notifier.NotifyUser(ctx, userID, message, nType, &taskID); err != nil {
		s.logger.Warn("failed to deliver notification",
			slog.String("user_id", userID.String()),
			slog.String("task_id", taskID.String()),
			slog.String("error", err.Error()))
	}
}

// broadcast schedules a debounced broadcast of a task event to every
// connected client.
func (s *taskServiceImpl) broadcast(key, event string, payload any) {
	hub := s.hub
	s.debounce.Schedule(key, func() {
		hub.BroadcastAll(event, payload)
	})
}

// statusChangeMessage renders the human-readable description of a status
// transition.
func statusChangeMessage(actorName, title string, from, to domain.Status) string {
	switch to {
	case domain.StatusInProgress:
		return fmt.Sprintf("%s started working on task: %q", actorName, title)
	case domain.StatusReview:
		return fmt.Sprintf("%s sent task %q for review", actorName, title)
	case domain.StatusCompleted:
		return fmt.Sprintf("%s completed task: %q", actorName, title)
	default:
		return fmt.Sprintf("%s changed task %q status from %s to %s", actorName, title, from, to)
	}
}
