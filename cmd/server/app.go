package main

import (
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/kwren/taskhive-api/internal/api"
	"github.com/kwren/taskhive-api/internal/api/middleware"
	"github.com/kwren/taskhive-api/internal/config"
	"github.com/kwren/taskhive-api/internal/platform/postgres"
	"github.com/kwren/taskhive-api/internal/realtime"
	"github.com/kwren/taskhive-api/internal/service"
	"github.com/kwren/taskhive-api/internal/service/auth"
	"github.com/kwren/taskhive-api/internal/store"
)

// application holds the shared application dependencies so startup wiring
// and shutdown cleanup live in one place.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	userStore         store.UserStore
	taskStore         store.TaskStore
	notificationStore store.NotificationStore

	jwtService  auth.JWTService
	userService service.UserService
	taskService service.TaskService
	notifier    service.NotificationService

	hub      *realtime.Hub
	debounce *realtime.Debouncer

	router http.Handler
}

// newApplication wires every layer: stores over the database connection,
// the realtime hub and debouncer, the services, and the HTTP route tree.
func newApplication(cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
	}

	app.userStore = postgres.NewPostgresUserStore(db, logger)
	app.taskStore = postgres.NewPostgresTaskStore(db, logger)
	app.notificationStore = postgres.NewPostgresNotificationStore(db, logger)

	jwtService, err := auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to create JWT service: %w", err)
	}
	app.jwtService = jwtService

	app.hub = realtime.NewHub(jwtService, app.userStore, logger)
	app.debounce = realtime.NewDebouncer(realtime.DefaultDebounceWindow)

	app.notifier, err = service.NewNotificationService(
		app.notificationStore, app.userStore, app.hub, app.debounce, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create notification service: %w", err)
	}

	app.taskService, err = service.NewTaskService(
		app.taskStore, app.userStore, app.notifier, app.hub, app.debounce, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create task service: %w", err)
	}

	app.userService, err = service.NewUserService(
		app.userStore, auth.NewBcryptHasher(), jwtService, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create user service: %w", err)
	}

	app.router = api.NewRouter(api.RouterDeps{
		Auth:          api.NewAuthHandler(app.userService, logger),
		Users:         api.NewUserHandler(app.userService, logger),
		Tasks:         api.NewTaskHandler(app.taskService, logger),
		Notifications: api.NewNotificationHandler(app.notifier, logger),
		AuthMW:        middleware.NewAuthMiddleware(jwtService, app.userStore),
		Hub:           app.hub,
	})

	return app, nil
}

// cleanup releases resources in reverse dependency order. The realtime hub
// goes first so connected clients see a close frame before the stores go
// away; the database connection is closed by run's deferred call.
func (app *application) cleanup() {
	if app.hub != nil {
		app.hub.Close()
	}
	if app.debounce != nil {
		app.debounce.Close()
	}
}
