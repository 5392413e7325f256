package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kwren/taskhive-api/internal/api/middleware"
	"github.com/kwren/taskhive-api/internal/api/shared"
	"github.com/kwren/taskhive-api/internal/domain"
	"github.com/kwren/taskhive-api/internal/platform/logger"
	"github.com/kwren/taskhive-api/internal/redact"
	"github.com/kwren/taskhive-api/internal/service"
	"github.com/kwren/taskhive-api/internal/store"
)

// TaskHandler handles task-related API requests.
type TaskHandler struct {
	taskService service.TaskService
	logger      *slog.Logger
	timeFunc    func() time.Time
}

// NewTaskHandler creates a new TaskHandler with the given dependencies.
func NewTaskHandler(taskService service.TaskService, logger *slog.Logger) *TaskHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &TaskHandler{
		taskService: taskService,
		logger:      logger,
		timeFunc:    func() time.Time { return time.Now().UTC() },
	}
}

// duplicateTaskResponse is the conflict body returned when the duplicate
// guard trips. The existing task's identity rides at the top level so
// clients can offer a "view existing" shortcut.
type duplicateTaskResponse struct {
	Success      bool             `json:"success"`
	Message      string           `json:"message"`
	ExistingTask existingTaskInfo `json:"existingTask"`
}

type existingTaskInfo struct {
	ID     uuid.UUID     `json:"id"`
	Title  string        `json:"title"`
	Status domain.Status `json:"status"`
}

// Create handles POST /api/tasks.
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.CurrentUser(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Authorization header required")
		return
	}

	var req CreateTaskRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	task, assignee, err := h.taskService.Create(r.Context(), actor, service.CreateTaskInput{
		Title:        req.Title,
		Description:  req.Description,
		DueDate:      req.DueDate,
		Priority:     domain.Priority(req.Priority),
		AssignedToID: req.AssignedToID,
	})
	if err != nil {
		var dupErr *service.DuplicateTaskError
		if errors.As(err, &dupErr) {
			shared.RespondWithJSON(w, r, http.StatusConflict, duplicateTaskResponse{
				Success: false,
				Message: GetSafeErrorMessage(err),
				ExistingTask: existingTaskInfo{
					ID:     dupErr.Existing.ID,
					Title:  dupErr.Existing.Title,
					Status: dupErr.Existing.Status,
				},
			})
			return
		}
		h.respondError(w, r, err, "failed to create task")
		return
	}

	shared.RespondWithData(w, r, http.StatusCreated, map[string]any{
		"task":    NewTaskResponse(task, h.timeFunc()),
		"message": "Task assigned to " + assignee.Name,
	})
}

// List handles GET /api/tasks.
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.CurrentUser(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Authorization header required")
		return
	}

	filter := parseTaskFilter(r)
	tasks, total, err := h.taskService.List(r.Context(), actor, filter)
	if err != nil {
		h.respondError(w, r, err, "failed to list tasks")
		return
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	limit := filter.Limit
	if limit < 1 {
		limit = 10
	}

	shared.RespondWithData(w, r, http.StatusOK, map[string]any{
		"tasks":   NewTaskResponses(tasks, h.timeFunc()),
		"total":   total,
		"page":    page,
		"limit":   limit,
		"hasMore": (page-1)*limit+len(tasks) < total,
	})
}

// Recent handles GET /api/tasks/recent.
func (h *TaskHandler) Recent(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.CurrentUser(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Authorization header required")
		return
	}

	limit := parsePositiveInt(r.URL.Query().Get("limit"), 5)
	tasks, err := h.taskService.Recent(r.Context(), actor, limit)
	if err != nil {
		h.respondError(w, r, err, "failed to fetch recent tasks")
		return
	}

	shared.RespondWithData(w, r, http.StatusOK, map[string]any{
		"recentTasks": NewTaskResponses(tasks, h.timeFunc()),
	})
}

// Dashboard handles GET /api/tasks/dashboard.
func (h *TaskHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.CurrentUser(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Authorization header required")
		return
	}

	stats, err := h.taskService.DashboardStats(r.Context(), actor)
	if err != nil {
		h.respondError(w, r, err, "failed to build dashboard")
		return
	}

	shared.RespondWithData(w, r, http.StatusOK, map[string]any{
		"stats": map[string]any{
			"totalTasks":        stats.TotalTasks,
			"completedTasks":    stats.CompletedTasks,
			"overdueTasks":      stats.OverdueTasks,
			"highPriorityTasks": stats.HighPriorityTasks,
			"completionRate":    stats.CompletionRate,
		},
		"charts": map[string]any{
			"byStatus":   stats.ByStatus,
			"byPriority": stats.ByPriority,
		},
		"recentTasks": NewTaskResponses(stats.RecentTasks, h.timeFunc()),
	})
}

// Get handles GET /api/tasks/{id}.
func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.CurrentUser(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Authorization header required")
		return
	}

	id, ok := parseTaskID(w, r)
	if !ok {
		return
	}

	task, err := h.taskService.Get(r.Context(), actor, id)
	if err != nil {
		h.respondError(w, r, err, "failed to fetch task")
		return
	}

	shared.RespondWithData(w, r, http.StatusOK, map[string]any{
		"task": NewTaskResponse(task, h.timeFunc()),
	})
}

// Update handles PUT /api/tasks/{id}.
func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.CurrentUser(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Authorization header required")
		return
	}

	id, ok := parseTaskID(w, r)
	if !ok {
		return
	}

	var req UpdateTaskRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	in := service.UpdateTaskInput{
		Title:        req.Title,
		Description:  req.Description,
		DueDate:      req.DueDate,
		AssignedToID: req.AssignedToID,
	}
	if req.Priority != nil {
		p := domain.Priority(*req.Priority)
		in.Priority = &p
	}

	task, err := h.taskService.Update(r.Context(), actor, id, in)
	if err != nil {
		h.respondError(w, r, err, "failed to update task")
		return
	}

	shared.RespondWithData(w, r, http.StatusOK, map[string]any{
		"task": NewTaskResponse(task, h.timeFunc()),
	})
}

// UpdateStatus handles PATCH /api/tasks/{id}/status.
func (h *TaskHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.CurrentUser(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Authorization header required")
		return
	}

	id, ok := parseTaskID(w, r)
	if !ok {
		return
	}

	var req UpdateTaskStatusRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	task, oldStatus, err := h.taskService.UpdateStatus(r.Context(), actor, id, domain.Status(req.Status))
	if err != nil {
		h.respondError(w, r, err, "failed to update task status")
		return
	}

	shared.RespondWithData(w, r, http.StatusOK, map[string]any{
		"task":    NewTaskResponse(task, h.timeFunc()),
		"message": "Task status updated from " + string(oldStatus) + " to " + string(task.Status),
	})
}

// Delete handles DELETE /api/tasks/{id}.
func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.CurrentUser(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Authorization header required")
		return
	}

	id, ok := parseTaskID(w, r)
	if !ok {
		return
	}

	if err := h.taskService.Delete(r.Context(), actor, id); err != nil {
		h.respondError(w, r, err, "failed to delete task")
		return
	}

	shared.RespondWithMessage(w, r, http.StatusOK, "Task deleted successfully")
}

func (h *TaskHandler) respondError(w http.ResponseWriter, r *http.Request, err error, logMsg string) {
	status := MapErrorToStatusCode(err)
	if status >= http.StatusInternalServerError {
		log := logger.FromContextOrDefault(r.Context(), h.logger)
		log.Error(logMsg, "error", redact.Error(err))
	}
	shared.RespondWithError(w, r, status, GetSafeErrorMessage(err))
}

// parseTaskID extracts and validates the {id} URL parameter, writing a 400
// response on failure.
func parseTaskID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid task ID")
		return uuid.Nil, false
	}
	return id, true
}

// parseTaskFilter reads listing query parameters. The sort parameter takes
// the form "field" or "field:desc"; unknown fields fall back to the store's
// default ordering.
func parseTaskFilter(r *http.Request) store.TaskFilter {
	q := r.URL.Query()

	filter := store.TaskFilter{
		Status:       domain.Status(q.Get("status")),
		Priority:     domain.Priority(q.Get("priority")),
		AssignedOnly: q.Get("assigned") == "true",
		CreatedOnly:  q.Get("created") == "true",
		Page:         parsePositiveInt(q.Get("page"), 1),
		Limit:        parsePositiveInt(q.Get("limit"), 10),
	}

	if sort := q.Get("sort"); sort != "" {
		field, order, _ := strings.Cut(sort, ":")
		filter.SortField = field
		filter.SortDesc = order == "desc"
	}

	return filter
}

func parsePositiveInt(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}
