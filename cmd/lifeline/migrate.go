package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"lifeline/internal/platform/config"
	"lifeline/internal/platform/postgres"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.Postgres.URL == "" {
				return errors.New("LIFELINE_POSTGRES_URL is required")
			}

			ctx := cmd.Context()
			pool, err := postgres.NewPool(ctx, cfg.Postgres.URL, cfg.Postgres.MaxConns, cfg.Postgres.MinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			count, err := postgres.Migrate(ctx, pool)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Applied %d migration(s).\n", count)
			return nil
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List embedded migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			migrations, err := postgres.LoadMigrations()
			if err != nil {
				return err
			}
			for _, m := range migrations {
				fmt.Fprintf(cmd.OutOrStdout(), "%03d  %s\n", m.Version, m.Name)
			}
			return nil
		},
	})
	return cmd
}
