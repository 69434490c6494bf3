package main

// Run database migrations:
//   go run ./cmd/migrate
//   SQLITE_PATH=./data/roasts.db go run ./cmd/migrate

import (
	"context"
	"os"

	"roast-backend/internal/shared/config"
	"roast-backend/internal/shared/storage/db"
	"roast-backend/internal/shared/telemetry"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	sqlDB, dialect, err := db.Open(ctx, db.Target{
		DatabaseURL: cfg.DatabaseURL,
		SQLitePath:  cfg.SQLitePath,
		Profile:     db.ProfileMigrate,
	})
	if err != nil {
		telemetry.Error("migrate.connect_failed", map[string]any{
			"dialect": string(dialect),
			"error":   err.Error(),
			"hint":    "set DATABASE_URL or SQLITE_PATH",
		})
		os.Exit(1)
	}

	if err := db.RunMigrations(ctx, sqlDB, dialect); err != nil {
		telemetry.Error("migrate.failed", map[string]any{"dialect": string(dialect), "error": err.Error()})
		sqlDB.Close()
		os.Exit(1)
	}
	sqlDB.Close()
	telemetry.Info("migrate.complete", map[string]any{"dialect": string(dialect)})
}
