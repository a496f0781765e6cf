package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"go-blog-api/internal/config"
	"go-blog-api/internal/database"
)

var migrateCmd = &cobra.Command{
	Use:       "migrate [up|down|status]",
	Short:     "Manage the database schema",
	Long:      `Applies, rolls back or reports the embedded SQL migrations against DATABASE_URL.`,
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{"up", "down", "status"},
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.StoreDriver != config.StoreDriverPostgres {
			return errors.New("migrations require STORE_DRIVER=postgres")
		}

		direction := "up"
		if len(args) == 1 {
			direction = args[0]
		}

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		db, err := database.New(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer db.Close()

		switch direction {
		case "up":
			err = db.Migrate(ctx)
		case "down":
			err = db.MigrateDown(ctx)
		case "status":
			err = db.MigrationStatus(ctx)
		default:
			return fmt.Errorf("unknown migration direction %q", direction)
		}
		if err != nil {
			return fmt.Errorf("migrate %s failed: %w", direction, err)
		}

		slog.Info("migrations complete", "direction", direction)
		return nil
	},
}
