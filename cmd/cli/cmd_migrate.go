package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sguter90/airmaestro/pkg/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.Flags().Bool("status", false, "only list pending migrations")
}

func runMigrate(cmd *cobra.Command, args []string) error {
	app := appFromCommand(cmd)

	status, _ := cmd.Flags().GetBool("status")
	if !status {
		// DB applies pending migrations on open
		if _, err := app.DB(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Database is up to date")
		return nil
	}

	dm, err := database.NewDatabaseManager(app.cfg.Database, app.log)
	if err != nil {
		return err
	}
	defer dm.Close()

	runner, err := database.NewMigrationsRunner(dm.GetDB())
	if err != nil {
		return err
	}
	runner.SetLogger(app.log)

	pending, err := runner.Pending()
	if err != nil {
		return err
	}

	if len(pending) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No pending migrations")
		return nil
	}
	for _, m := range pending {
		fmt.Fprintf(cmd.OutOrStdout(), "%06d_%s\n", m.Version, m.Name)
	}
	return nil
}
