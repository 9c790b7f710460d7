package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/uptrace/bun"

	"github.com/loyd0/LoydFam-sub000/internal/config"
	"github.com/loyd0/LoydFam-sub000/internal/database"
	"github.com/loyd0/LoydFam-sub000/internal/logger"
)

type rootOptions struct {
	configFile string
	envPath    string
	debug      bool
}

// app carries what every subcommand needs once configuration is loaded.
// The logger travels on the command context.
type app struct {
	cfg *config.Config
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	a := &app{}

	cmd := &cobra.Command{
		Use:           "famimport",
		Short:         "Import family-tree workbooks into the genealogy store",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configFile, opts.envPath)
			if err != nil {
				return err
			}
			if opts.debug {
				cfg.Debug = true
			}
			if err := logger.Initialize(logger.Config{
				Debug:  cfg.Debug,
				Fields: map[string]string{"service": "famimport"},
			}); err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			a.cfg = cfg
			cmd.SetContext(logger.WithContext(cmd.Context(), logger.Named(cmd.Name())))
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logger.Sync()
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configFile, "config", "", "Path to a YAML config file")
	cmd.PersistentFlags().StringVar(&opts.envPath, "env", "", "Directory holding .env files")
	cmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "Enable debug logging")

	cmd.AddCommand(newMigrateCmd(a))
	cmd.AddCommand(newImportCmd(a))
	cmd.AddCommand(newRunsCmd(a))
	cmd.AddCommand(newIssuesCmd(a))
	cmd.AddCommand(newPeopleCmd(a))
	return cmd
}

// openDB connects to the configured store. Callers close it.
func (a *app) openDB(ctx context.Context) (*bun.DB, error) {
	db, err := database.NewDB(database.Options{
		Driver:       a.cfg.Database.Driver,
		DSN:          a.cfg.Database.DSN,
		Debug:        a.cfg.Database.Debug,
		MaxOpenConns: a.cfg.Database.MaxOpenConns,
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}
