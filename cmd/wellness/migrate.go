// ABOUTME: CLI commands for applying and inspecting schema migrations.
// ABOUTME: Migrations are embedded per dialect and run with golang-migrate.
package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the database schema",
	Long: `Apply or inspect database schema migrations.

Opening the database already applies pending migrations, so 'migrate up'
is mainly useful to prepare a PostgreSQL database before the first deploy.

USAGE:

  wellness migrate up       # Apply all pending migrations
  wellness migrate status   # Show applied and latest versions`,
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply pending migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		status, err := repo.MigrationStatus()
		if err != nil {
			return err
		}
		color.Green("✓ Schema is at version %d (%s)", status.Version, repo.Dialect())
		return nil
	},
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show schema version",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		status, err := repo.MigrationStatus()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Backend:  %s\n", repo.Dialect())
		if path := repo.Path(); path != "" {
			fmt.Fprintf(out, "Database: %s\n", path)
		}
		fmt.Fprintf(out, "Version:  %d (latest %d)\n", status.Version, status.Latest)
		switch {
		case status.Dirty:
			color.Red("Schema is dirty: a migration failed part way")
		case status.Current():
			color.Green("✓ Schema is up to date")
		default:
			color.Yellow("Schema is behind; run 'wellness migrate up'")
		}
		return nil
	},
}

func init() {
	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateStatusCmd)
	rootCmd.AddCommand(migrateCmd)
}
