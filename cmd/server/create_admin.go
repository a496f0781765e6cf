package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"go-blog-api/internal/app"
	"go-blog-api/internal/config"
)

var (
	adminEmail    string
	adminPassword string
	adminName     string
)

var createAdminCmd = &cobra.Command{
	Use:   "create-admin",
	Short: "Create an admin account or promote an existing user",
	Long: `Ensures an ADMIN user exists for --email. A new account is created with
--password; an existing account keeps its password and is promoted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.StoreDriver == config.StoreDriverMemory {
			return errors.New("create-admin has no effect with STORE_DRIVER=memory")
		}
		if strings.TrimSpace(adminEmail) == "" {
			return errors.New("--email is required")
		}

		cfg.AdminEmail = adminEmail
		cfg.AdminPassword = adminPassword
		if adminName != "" {
			cfg.AdminName = adminName
		}

		application, err := app.New(cmd.Context(), cfg)
		if err != nil {
			return fmt.Errorf("failed to create admin: %w", err)
		}
		application.Close()

		fmt.Fprintf(cmd.OutOrStdout(), "admin %s is ready\n", adminEmail)
		return nil
	},
}

func init() {
	createAdminCmd.Flags().StringVar(&adminEmail, "email", "", "Admin email address")
	createAdminCmd.Flags().StringVar(&adminPassword, "password", "", "Password for a newly created admin")
	createAdminCmd.Flags().StringVar(&adminName, "name", "", "Display name (default ADMIN_NAME)")
}
