package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	migrate "github.com/golang-migrate/migrate/v4"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	pgstore "herbmanager/backend/internal/store/postgres"
)

var dbURL string

var rootCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply or roll back the herb manager database schema",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if dbURL == "" {
			dbURL = os.Getenv("DATABASE_URL")
		}
		if dbURL == "" {
			return errors.New("--db flag or DATABASE_URL is required")
		}
		return nil
	},
	SilenceUsage: true,
}

var upCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMigrator(func(m *migrate.Migrate) error {
			if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
			return nil
		})
	},
}

var downCmd = &cobra.Command{
	Use:   "down [steps]",
	Short: "Roll back migrations (one step by default)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		steps := 1
		if len(args) == 1 {
			n, err := strconv.Atoi(args[0])
			if err != nil || n < 1 {
				return fmt.Errorf("steps must be a positive integer, got %q", args[0])
			}
			steps = n
		}
		return withMigrator(func(m *migrate.Migrate) error {
			if err := m.Steps(-steps); err != nil && !errors.Is(err, migrate.ErrNoChange) {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "rolled back %d step(s)\n", steps)
			return nil
		})
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the current schema version",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMigrator(func(m *migrate.Migrate) error {
			version, dirty, err := m.Version()
			if errors.Is(err, migrate.ErrNilVersion) {
				fmt.Fprintln(cmd.OutOrStdout(), "no migrations applied")
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "version %d (dirty=%t)\n", version, dirty)
			return nil
		})
	},
}

func withMigrator(fn func(m *migrate.Migrate) error) error {
	m, err := pgstore.NewMigrator(dbURL)
	if err != nil {
		return err
	}
	defer func() { _, _ = m.Close() }()
	return fn(m)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbURL, "db", "", "Database connection URL (defaults to DATABASE_URL)")
	rootCmd.AddCommand(upCmd, downCmd, versionCmd)
}

func main() {
	_ = godotenv.Load()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
