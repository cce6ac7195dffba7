package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/99minutos/accounts/internal/infrastructure/db/postgres"
	"github.com/99minutos/accounts/internal/pkg/config"
)

func newMigrateCmd() *cobra.Command {
	var databaseURL string

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations against the accounts table",
	}
	migrateCmd.PersistentFlags().StringVar(&databaseURL, "database-url", "", "overrides DATABASE_URL")

	resolve := func(ctx context.Context) (string, error) {
		if databaseURL != "" {
			return databaseURL, nil
		}
		cfg, err := config.Load(ctx)
		if err != nil {
			return "", err
		}
		return cfg.Postgres.URL, nil
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply all up migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			url, err := resolve(cmd.Context())
			if err != nil {
				return err
			}
			return migrateUp(url)
		},
	}

	downCmd := &cobra.Command{
		Use:   "down",
		Short: "Roll back all migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			url, err := resolve(cmd.Context())
			if err != nil {
				return err
			}
			return withMigrator(url, (*postgres.Migrator).Down)
		},
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the applied migration version",
		RunE: func(cmd *cobra.Command, args []string) error {
			url, err := resolve(cmd.Context())
			if err != nil {
				return err
			}
			return withMigrator(url, func(m *postgres.Migrator) error {
				version, dirty, err := m.Version()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "version %d (dirty: %t)\n", version, dirty)
				return nil
			})
		},
	}

	migrateCmd.AddCommand(upCmd, downCmd, versionCmd)
	return migrateCmd
}

func migrateUp(databaseURL string) error {
	return withMigrator(databaseURL, (*postgres.Migrator).Up)
}

func withMigrator(databaseURL string, fn func(*postgres.Migrator) error) error {
	m, err := postgres.NewMigrator(databaseURL)
	if err != nil {
		return err
	}
	defer func() { _ = m.Close() }()
	return fn(m)
}
