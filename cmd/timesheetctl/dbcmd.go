package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/garnizeh/timesheet/internal/db"
)

func newDBCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Back up and restore the database file",
	}
	cmd.AddCommand(newBackupCmd(g), newRestoreCmd(g))
	return cmd
}

func newBackupCmd(g *globals) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Write a consistent copy of the database",
		Long:  "Write a consistent copy of the database with VACUUM INTO. The server may keep running.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dst := out
			if dst == "" {
				dst = g.cfg.DatabasePath + ".bak"
			}
			if _, err := os.Stat(dst); err == nil {
				return fmt.Errorf("%s already exists", dst)
			}

			conn, err := g.open(cmd.Context())
			if err != nil {
				return err
			}
			defer conn.Close()

			if _, err := conn.Exec(cmd.Context(), "VACUUM INTO ?", dst); err != nil {
				return fmt.Errorf("backup: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Database backup written to %s.\n", dst)
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "backup file (default <database>.bak)")
	return cmd
}

func newRestoreCmd(g *globals) *cobra.Command {
	var from string
	cmd := &cobra.Command{
		Use:   "restore",
		Short: "Replace the database with a backup",
		Long:  "Replace the database with a backup after checking its integrity. Stop the server first.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			src := from
			if src == "" {
				src = g.cfg.DatabasePath + ".bak"
			}
			if err := checkIntegrity(cmd, g, src); err != nil {
				return err
			}
			if err := copyFile(src, g.cfg.DatabasePath); err != nil {
				return fmt.Errorf("restore: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Database restored from %s.\n", src)
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "backup file (default <database>.bak)")
	return cmd
}

func checkIntegrity(cmd *cobra.Command, g *globals, path string) error {
	if _, err := os.Stat(path); err != nil {
		return err
	}
	conn, err := db.New(cmd.Context(), "file:"+path+"?mode=ro", g.logger)
	if err != nil {
		return err
	}
	defer conn.Close()

	var result string
	if err := conn.QueryRow(cmd.Context(), "PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("%s is not a usable database: %w", path, err)
	}
	if result != "ok" {
		return fmt.Errorf("%s failed the integrity check: %s", path, result)
	}
	return nil
}

// copyFile replaces dst atomically and drops any stale WAL files of dst.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".restore-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, in); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	for _, suffix := range []string{"-wal", "-shm"} {
		if err := os.Remove(dst + suffix); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	return os.Rename(tmp.Name(), dst)
}
