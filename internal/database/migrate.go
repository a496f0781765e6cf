package database

import (
	"context"
	"embed"
	"fmt"
	"log/slog"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const migrationsDir = "migrations"

// Migrate applies every pending embedded migration.
func (db *DB) Migrate(ctx context.Context) error {
	return db.withGoose(ctx, func(ctx context.Context, run gooseRunner) error {
		if err := run.up(ctx); err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}
		slog.Info("database schema ensured")
		return nil
	})
}

// MigrateDown rolls back the most recent migration.
func (db *DB) MigrateDown(ctx context.Context) error {
	return db.withGoose(ctx, func(ctx context.Context, run gooseRunner) error {
		return run.down(ctx)
	})
}

// MigrationStatus logs the state of every migration through goose's logger.
func (db *DB) MigrationStatus(ctx context.Context) error {
	return db.withGoose(ctx, func(ctx context.Context, run gooseRunner) error {
		return run.status(ctx)
	})
}

type gooseRunner struct {
	up     func(ctx context.Context) error
	down   func(ctx context.Context) error
	status func(ctx context.Context) error
}

func (db *DB) withGoose(ctx context.Context, fn func(ctx context.Context, run gooseRunner) error) error {
	if db == nil || db.Pool == nil {
		return fmt.Errorf("database pool is not initialized")
	}

	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}

	sqlDB, err := goose.OpenDBWithDriver("pgx", db.Pool.Config().ConnConfig.ConnString())
	if err != nil {
		return fmt.Errorf("open migration connection: %w", err)
	}
	defer sqlDB.Close()

	return fn(ctx, gooseRunner{
		up:     func(ctx context.Context) error { return goose.UpContext(ctx, sqlDB, migrationsDir) },
		down:   func(ctx context.Context) error { return goose.DownContext(ctx, sqlDB, migrationsDir) },
		status: func(ctx context.Context) error { return goose.StatusContext(ctx, sqlDB, migrationsDir) },
	})
}
