package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"go-blog-api/internal/config"
	"go-blog-api/internal/logger"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "blog-api",
	Short: "Blog platform API server",
	Long: `Serves the blog REST API: authentication with rotating refresh tokens,
posts, comments and the admin console endpoints.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		if cmd.Flags().Changed("log-level") {
			cfg.LogLevel, _ = cmd.Flags().GetString("log-level")
		}
		slog.SetDefault(logger.New(os.Stdout, cfg.LogFormat, cfg.LogLevel))
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveCmd.RunE(cmd, args)
	},
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error (env: LOG_LEVEL)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(createAdminCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}
