package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/loyd0/LoydFam-sub000/internal/importer"
	"github.com/loyd0/LoydFam-sub000/internal/logger"
	"github.com/loyd0/LoydFam-sub000/internal/migrations"
)

func newImportCmd(a *app) *cobra.Command {
	var (
		actor       string
		sourceTag   string
		migrate     bool
		metricsAddr string
	)

	cmd := &cobra.Command{
		Use:   "import <file.xlsx>",
		Short: "Archive, map, upsert and validate one workbook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logger.FromContext(ctx)

			path := args[0]
			payload, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read workbook: %w", err)
			}

			db, err := a.openDB(ctx)
			if err != nil {
				return err
			}
			defer db.Close()

			if migrate {
				if err := migrations.RunMigrations(ctx, db, log.Named("migrations")); err != nil {
					return fmt.Errorf("migrate: %w", err)
				}
			}

			opts, err := importer.OptionsFromConfig(a.cfg, log.Named("importer"))
			if err != nil {
				return err
			}
			if sourceTag != "" {
				opts.SourceTag = sourceTag
			}

			stop := serveMetrics(metricsAddr, log)
			defer stop()

			var actorID *string
			if actor != "" {
				actorID = &actor
			}

			summary, err := importer.New(db, opts).Run(ctx, payload, filepath.Base(path), actorID)
			if err != nil {
				logger.ErrorCtx(ctx, err, zap.String("file", path))
			} else {
				logger.InfoCtx(ctx, "import finished",
					zap.String("file", path),
					zap.String("run_id", summary.RunID),
					zap.Int("people", summary.People))
			}
			if summary != nil {
				if werr := writeJSON(summary); werr != nil && err == nil {
					err = werr
				}
			}
			return err
		},
	}

	cmd.Flags().StringVar(&actor, "actor", "", "Actor recorded on the run and activity log")
	cmd.Flags().StringVar(&sourceTag, "source-tag", "", "Override import.source_tag for external keys")
	cmd.Flags().BoolVar(&migrate, "migrate", true, "Apply pending migrations before importing")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address while importing, e.g. :9102")
	return cmd
}
