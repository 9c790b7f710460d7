package main

import (
	"github.com/spf13/cobra"

	"github.com/loyd0/LoydFam-sub000/internal/logger"
	"github.com/loyd0/LoydFam-sub000/internal/migrations"
)

func newMigrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.openDB(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			return migrations.RunMigrations(cmd.Context(), db, logger.FromContext(cmd.Context()).Named("migrations"))
		},
	}
}
