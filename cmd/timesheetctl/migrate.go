package main

import (
	"fmt"

	"github.com/spf13/cobra"

	dbfs "github.com/garnizeh/timesheet/db"
	"github.com/garnizeh/timesheet/internal/db"
)

func newMigrateCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := g.open(cmd.Context())
			if err != nil {
				return err
			}
			defer conn.Close()

			if err := db.Migrate(cmd.Context(), conn, dbfs.Migrations); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Database %s is up to date.\n", g.cfg.DatabasePath)
			return nil
		},
	}
}
