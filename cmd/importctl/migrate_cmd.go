package main

import (
	"github.com/spf13/cobra"

	"study-tracker/backend/pkg/database"
)

func newMigrateCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := database.NewDB(&e.cfg.Database, e.cfg.Log.Level, e.logger)
			if err != nil {
				return err
			}
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			defer sqlDB.Close()

			status, err := database.RunMigrations(sqlDB, e.logger)
			if err != nil {
				return err
			}
			return writeJSON(cmdOutput{Command: "migrate", Result: status})
		},
	}
}
