package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kwren/taskhive-api/internal/api/middleware"
	"github.com/kwren/taskhive-api/internal/api/shared"
	"github.com/kwren/taskhive-api/internal/platform/logger"
	"github.com/kwren/taskhive-api/internal/redact"
	"github.com/kwren/taskhive-api/internal/service"
)

// NotificationHandler handles notification inbox API requests.
type NotificationHandler struct {
	notificationService service.NotificationService
	logger              *slog.Logger
}

// NewNotificationHandler creates a new NotificationHandler with the given
// dependencies.
func NewNotificationHandler(notificationService service.NotificationService, logger *slog.Logger) *NotificationHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &NotificationHandler{
		notificationService: notificationService,
		logger:              logger,
	}
}

// List handles GET /api/notifications.
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Authorization header required")
		return
	}

	q := r.URL.Query()
	unreadOnly := q.Get("unreadOnly") == "true"
	limit := parsePositiveInt(q.Get("limit"), 20)

	notifications, unreadCount, err := h.notificationService.ListForUser(r.Context(), user.ID, unreadOnly, limit)
	if err != nil {
		h.respondError(w, r, err, "failed to list notifications")
		return
	}

	shared.RespondWithData(w, r, http.StatusOK, map[string]any{
		"notifications": notifications,
		"unreadCount":   unreadCount,
	})
}

// MarkRead handles PUT /api/notifications/{id}/read.
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Authorization header required")
		return
	}

	id, ok := parseNotificationID(w, r)
	if !ok {
		return
	}

	notification, err := h.notificationService.MarkRead(r.Context(), user.ID, id)
	if err != nil {
		h.respondError(w, r, err, "failed to mark notification as read")
		return
	}

	shared.RespondWithData(w, r, http.StatusOK, map[string]any{"notification": notification})
}

// MarkAllRead handles PUT /api/notifications/read-all.
func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Authorization header required")
		return
	}

	modified, err := h.notificationService.MarkAllRead(r.Context(), user.ID)
	if err != nil {
		h.respondError(w, r, err, "failed to mark all notifications as read")
		return
	}

	shared.RespondWithDataAndMessage(w, r, http.StatusOK,
		map[string]any{"modifiedCount": modified},
		"All notifications marked as read")
}

// Delete handles DELETE /api/notifications/{id}.
func (h *NotificationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Authorization header required")
		return
	}

	id, ok := parseNotificationID(w, r)
	if !ok {
		return
	}

	if err := h.notificationService.Delete(r.Context(), user.ID, id); err != nil {
		h.respondError(w, r, err, "failed to delete notification")
		return
	}

	shared.RespondWithMessage(w, r, http.StatusOK, "Notification deleted successfully")
}

func (h *NotificationHandler) respondError(w http.ResponseWriter, r *http.Request, err error, logMsg string) {
	status := MapErrorToStatusCode(err)
	if status >= http.StatusInternalServerError {
		log := logger.FromContextOrDefault(r.Context(), h.logger)
		log.Error(logMsg, "error", redact.Error(err))
	}
	shared.RespondWithError(w, r, status, GetSafeErrorMessage(err))
}

func parseNotificationID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid notification ID")
		return uuid.Nil, false
	}
	return id, true
}
