package main

import (
	"github.com/spf13/cobra"

	"github.com/stockagent/stockagent/internal/database"
)

func (a *app) migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage versioned database migrations",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := database.RunMigrations(a.cfg.DB.DSN()); err != nil {
					return err
				}
				a.out.Success("Migrations applied")
				return nil
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back every migration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := database.MigrateDown(a.cfg.DB.DSN()); err != nil {
					return err
				}
				a.out.Warn("All migrations rolled back")
				return nil
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Show the current migration version",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				v, dirty, err := database.MigrationVersion(a.cfg.DB.DSN())
				if err != nil {
					return err
				}
				if dirty {
					a.out.Warn("Version %d (dirty)", v)
					return nil
				}
				a.out.Info("Version %d", v)
				return nil
			},
		},
	)
	return cmd
}

func (a *app) schemaCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Work with the raw SQL schema",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "apply",
		Short: "Run the schema scripts once against a fresh database",
		Long: "Runs the tables, indexes, trigger and row-level-security policies as plain SQL.\n" +
			"The scripts carry no IF NOT EXISTS guards, so a second run fails with a duplicate-object error.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := &connections{}
			defer c.close()

			pool, err := a.postgres(cmd.Context(), c)
			if err != nil {
				return err
			}
			if err := database.ApplySchema(cmd.Context(), pool); err != nil {
				return err
			}
			a.out.Success("Schema applied")
			return nil
		},
	})
	return cmd
}
