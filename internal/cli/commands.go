package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"pms/internal/app/server"
	"pms/internal/domain/auth"
	"pms/internal/platform/db"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := LoadConfig()
			slog.SetDefault(server.NewLogger(cfg))
			return server.Run(cmd.Context(), cfg)
		},
	}
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := LoadConfig()
			conn, err := db.Open(cmd.Context(), cfg)
			if err != nil {
				return fmt.Errorf("db connect: %w", err)
			}
			defer conn.Close()
			if err := db.Migrate(cmd.Context(), conn); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}

func newSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Create the default department, category and admin account",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := LoadConfig()
			conn, err := db.Open(cmd.Context(), cfg)
			if err != nil {
				return fmt.Errorf("db connect: %w", err)
			}
			defer conn.Close()
			if err := db.Migrate(cmd.Context(), conn); err != nil {
				return err
			}
			if err := db.Seed(cmd.Context(), conn, cfg); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "seed complete")
			return nil
		},
	}
}

func newTokenCmd() *cobra.Command {
	var npk, role string
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for local testing",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := LoadConfig()
			if strings.TrimSpace(cfg.JWTSecret) == "" {
				return errors.New("JWT_SECRET is required")
			}
			role = strings.ToUpper(strings.TrimSpace(role))
			if !auth.ValidRole(role) {
				return fmt.Errorf("unknown role %q", role)
			}
			token, err := auth.GenerateToken(cfg.JWTSecret, auth.Claims{NPK: npk, Role: role}, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&npk, "npk", "", "Employee number the token identifies")
	cmd.Flags().StringVar(&role, "role", auth.RoleUser, "USER, OPERATION or ADMIN")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "Token lifetime")
	_ = cmd.MarkFlagRequired("npk")

	return cmd
}
