package api

import (
	"log/slog"
	"net/http"

	"github.com/kwren/taskhive-api/internal/api/middleware"
	"github.com/kwren/taskhive-api/internal/api/shared"
	"github.com/kwren/taskhive-api/internal/platform/logger"
	"github.com/kwren/taskhive-api/internal/redact"
	"github.com/kwren/taskhive-api/internal/service"
)

// UserHandler handles user profile API requests.
type UserHandler struct {
	userService service.UserService
	logger      *slog.Logger
}

// NewUserHandler creates a new UserHandler with the given dependencies.
func NewUserHandler(userService service.UserService, logger *slog.Logger) *UserHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &UserHandler{
		userService: userService,
		logger:      logger,
	}
}

// UpdateProfile handles PUT /api/users/profile.
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Authorization header required")
		return
	}

	var req UpdateProfileRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	updated, err := h.userService.UpdateProfile(r.Context(), user.ID, req.Name)
	if err != nil {
		h.respondError(w, r, err, "failed to update profile")
		return
	}

	shared.RespondWithData(w, r, http.StatusOK, map[string]any{"user": updated})
}

// ListUsers handles GET /api/users/all. Restricted to admins by middleware;
// used to populate assignee pickers.
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.userService.ListUsers(r.Context())
	if err != nil {
		h.respondError(w, r, err, "failed to list users")
		return
	}

	shared.RespondWithData(w, r, http.StatusOK, map[string]any{"users": users})
}

func (h *UserHandler) respondError(w http.ResponseWriter, r *http.Request, err error, logMsg string) {
	status := MapErrorToStatusCode(err)
	if status >= http.StatusInternalServerError {
		log := logger.FromContextOrDefault(r.Context(), h.logger)
		log.Error(logMsg, "error", redact.Error(err))
	}
	shared.RespondWithError(w, r, status, GetSafeErrorMessage(err))
}
