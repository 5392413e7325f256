package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/kwren/taskhive-api/internal/api/middleware"
	"github.com/kwren/taskhive-api/internal/api/shared"
	"github.com/kwren/taskhive-api/internal/realtime"
)

// RouterDeps bundles the handlers and middleware the router mounts.
type RouterDeps struct {
	Auth          *AuthHandler
	Users         *UserHandler
	Tasks         *TaskHandler
	Notifications *NotificationHandler
	AuthMW        *middleware.AuthMiddleware
	Hub           *realtime.Hub
}

// NewRouter builds the HTTP route tree. All /api routes except registration
// and login require a valid bearer token; websocket upgrades authenticate
// inside the hub because browsers cannot set headers on the handshake.
func NewRouter(deps RouterDeps) chi.Router {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.TraceMiddleware)
	r.Use(chimiddleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		shared.RespondWithData(w, r, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", deps.Auth.Register)
			r.Post("/login", deps.Auth.Login)
			r.Post("/logout", deps.Auth.Logout)
			r.With(deps.AuthMW.Authenticate).Get("/me", deps.Auth.Me)
		})

		r.Route("/users", func(r chi.Router) {
			r.Use(deps.AuthMW.Authenticate)
			r.Put("/profile", deps.Users.UpdateProfile)
			r.With(deps.AuthMW.RequireAdmin).Get("/all", deps.Users.ListUsers)
		})

		r.Route("/tasks", func(r chi.Router) {
			r.Use(deps.AuthMW.Authenticate)
			r.Post("/", deps.Tasks.Create)
			r.Get("/", deps.Tasks.List)
			r.Get("/recent", deps.Tasks.Recent)
			r.Get("/dashboard", deps.Tasks.Dashboard)
			r.Get("/{id}", deps.Tasks.Get)
			r.Put("/{id}", deps.Tasks.Update)
			r.Patch("/{id}/status", deps.Tasks.UpdateStatus)
			r.Delete("/{id}", deps.Tasks.Delete)
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Use(deps.AuthMW.Authenticate)
			r.Get("/", deps.Notifications.List)
			r.Put("/read-all", deps.Notifications.MarkAllRead)
			r.Put("/{id}/read", deps.Notifications.MarkRead)
			r.Delete("/{id}", deps.Notifications.Delete)
		})
	})

	if deps.Hub != nil {
		r.Get("/ws", deps.Hub.HandleConnection)
	}

	return r
}
