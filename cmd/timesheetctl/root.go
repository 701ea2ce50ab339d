package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/garnizeh/timesheet/internal/config"
	"github.com/garnizeh/timesheet/internal/db"
	"github.com/garnizeh/timesheet/pkg/logging"
)

// globals are the persistent flags shared by every subcommand.
type globals struct {
	configPath string
	envFile    string
	dbPath     string
	logLevel   string

	cfg    *config.Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	g := &globals{}
	root := &cobra.Command{
		Use:           "timesheetctl",
		Short:         "Administer a timesheet database",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return g.load(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&g.configPath, "config", "", "path to config YAML file")
	pf.StringVar(&g.envFile, "env-file", ".env", "path to a .env file (optional)")
	pf.StringVar(&g.dbPath, "db", "", "database path (overrides the configuration)")
	pf.StringVar(&g.logLevel, "log-level", "warn", "log level: debug, info, warn, error")

	root.AddCommand(
		newMigrateCmd(g),
		newHoursCmd(),
		newReportCmd(g),
		newDBCmd(g),
	)
	return root
}

func (g *globals) load(cmd *cobra.Command) error {
	if err := config.LoadDotEnv(g.envFile); err != nil {
		return err
	}
	cfg, err := config.LoadConfig(g.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if g.dbPath != "" {
		cfg.DatabasePath = g.dbPath
	}
	logger, err := logging.New(logging.Options{Level: g.logLevel, Format: cfg.Log.Format, Output: cmd.ErrOrStderr()})
	if err != nil {
		return err
	}
	g.cfg, g.logger = cfg, logger
	return nil
}

func (g *globals) open(ctx context.Context) (*db.DB, error) {
	return db.New(ctx, g.cfg.DatabasePath, g.logger)
}
