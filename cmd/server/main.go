// Package main implements the entry point for the TaskHive API server,
// a task assignment service with role-based access and realtime
// notifications over websockets.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/kwren/taskhive-api/internal/config"
	"github.com/kwren/taskhive-api/internal/platform/logger"
)

func main() {
	migrateCmd := flag.String("migrate", "", "run a migration command (up|down|status) and exit")
	flag.Parse()

	if err := run(*migrateCmd); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}

// run loads configuration, prepares all application dependencies, and either
// executes a one-off migration command or serves HTTP until shutdown.
func run(migrateCmd string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger, err := logger.Setup(cfg.Server)
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}

	db, err := setupDatabase(cfg, appLogger)
	if err != nil {
		return fmt.Errorf("failed to set up database: %w", err)
	}
	defer func() { _ = db.Close() }()

	if migrateCmd != "" {
		return runMigrationCommand(db, migrateCmd, appLogger)
	}

	// Pending migrations are applied on every start so a deploy never runs
	// against an older schema.
	if err := migrateUp(db, appLogger); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	app, err := newApplication(cfg, appLogger, db)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer app.cleanup()

	return app.startHTTPServer(context.Background())
}
