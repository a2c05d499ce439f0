package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/turtacn/FloraTraits/internal/infrastructure/database/postgres"
	"github.com/turtacn/FloraTraits/pkg/errors"
)

// NewMigrateCmd manages the extraction schema.
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or inspect database schema migrations",
	}
	cmd.AddCommand(newMigrateUpCmd(), newMigrateDownCmd(), newMigrateStatusCmd())
	return cmd
}

func newMigrateUpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := runMigration(cmd, (*postgres.Migrator).Up); err != nil {
				return err
			}
			PrintSuccess(cmd, "schema is up to date")
			return nil
		},
	}
}

func newMigrateDownCmd() *cobra.Command {
	var steps int
	cmd := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if steps <= 0 {
				return errors.InvalidParam("--steps must be positive")
			}
			err := runMigration(cmd, func(m *postgres.Migrator) error { return m.Down(steps) })
			if err != nil {
				return err
			}
			PrintSuccess(cmd, fmt.Sprintf("rolled back %d migration(s)", steps))
			return nil
		},
	}
	cmd.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")
	return cmd
}

func newMigrateStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the applied schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var st postgres.MigrationStatus
			err := runMigration(cmd, func(m *postgres.Migrator) error {
				var err error
				st, err = m.Status()
				return err
			})
			if err != nil {
				return err
			}
			return PrintResult(cmd, migrationStatus(st))
		},
	}
}

func runMigration(cmd *cobra.Command, fn func(*postgres.Migrator) error) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}
	if !cliCtx.Config.Database.Enabled {
		return errors.New(errors.ErrCodeServiceUnavailable, "migrations need database.enabled=true")
	}
	return withMigrator(cliCtx.Config.Database, cliCtx.Logger, fn)
}

type migrationStatus postgres.MigrationStatus

func (s migrationStatus) String() string {
	if s.Dirty {
		return fmt.Sprintf("version %d (dirty)", s.Version)
	}
	return fmt.Sprintf("version %d", s.Version)
}
