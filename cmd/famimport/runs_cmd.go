package main

import (
	"github.com/spf13/cobra"

	"github.com/loyd0/LoydFam-sub000/internal/repositories"
)

func newRunsCmd(a *app) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent import runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.openDB(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			runs, err := repositories.ListRuns(cmd.Context(), db, limit)
			if err != nil {
				return err
			}
			return writeJSON(runs)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs")
	return cmd
}
