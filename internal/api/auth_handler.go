package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/kwren/taskhive-api/internal/api/middleware"
	"github.com/kwren/taskhive-api/internal/api/shared"
	"github.com/kwren/taskhive-api/internal/domain"
	"github.com/kwren/taskhive-api/internal/platform/logger"
	"github.com/kwren/taskhive-api/internal/redact"
	"github.com/kwren/taskhive-api/internal/service"
	"github.com/kwren/taskhive-api/internal/store"
)

// AuthHandler handles authentication-related API requests.
type AuthHandler struct {
	userService service.UserService
	logger      *slog.Logger
}

// NewAuthHandler creates a new AuthHandler with the given dependencies.
func NewAuthHandler(userService service.UserService, logger *slog.Logger) *AuthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthHandler{
		userService: userService,
		logger:      logger,
	}
}

// Register handles POST /api/auth/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest

	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	user, token, err := h.userService.Register(r.Context(), req.Name, req.Email, req.Password, domain.Role(req.Role))
	if err != nil {
		h.respondError(w, r, err, "failed to register user")
		return
	}

	shared.RespondWithData(w, r, http.StatusCreated, map[string]any{
		"user":  user,
		"token": token,
	})
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest

	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	user, token, err := h.userService.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		h.respondError(w, r, err, "failed to authenticate user")
		return
	}

	shared.RespondWithData(w, r, http.StatusOK, map[string]any{
		"user":  user,
		"token": token,
	})
}

// Logout handles POST /api/auth/logout. Tokens are stateless, so this exists
// for client symmetry only.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithMessage(w, r, http.StatusOK, "Logged out successfully")
}

// Me handles GET /api/auth/me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Authorization header required")
		return
	}

	// Re-read so a profile change on another session is reflected.
	fresh, err := h.userService.GetUser(r.Context(), user.ID)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			shared.RespondWithError(w, r, http.StatusNotFound, "User not found")
			return
		}
		h.respondError(w, r, err, "failed to load current user")
		return
	}

	shared.RespondWithData(w, r, http.StatusOK, map[string]any{"user": fresh})
}

func (h *AuthHandler) respondError(w http.ResponseWriter, r *http.Request, err error, logMsg string) {
	status := MapErrorToStatusCode(err)
	if status >= http.StatusInternalServerError {
		log := logger.FromContextOrDefault(r.Context(), h.logger)
		log.Error(logMsg, "error", redact.Error(err))
	}
	shared.RespondWithError(w, r, status, GetSafeErrorMessage(err))
}
