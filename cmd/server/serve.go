package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"go-blog-api/internal/app"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		if port, _ := cmd.Flags().GetString("port"); port != "" {
			cfg.ServerPort = port
		}

		application, err := app.New(cmd.Context(), cfg)
		if err != nil {
			return fmt.Errorf("failed to initialize application: %w", err)
		}

		return application.Run()
	},
}

func init() {
	serveCmd.Flags().String("port", "", "Listen port (env: SERVER_PORT)")
}
