package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/garnizeh/timesheet/internal/report"
	"github.com/garnizeh/timesheet/internal/repository/sqlite"
	"github.com/garnizeh/timesheet/internal/timesheet"
)

type reportOptions struct {
	email  string
	jobID  int64
	month  string
	out    string
	format string
}

func newReportCmd(g *globals) *cobra.Command {
	o := &reportOptions{}
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Generate the monthly report of one job",
		Long: `Generate the monthly hours report of one job of a user.

With --format pdf (the default) the report is written to --out, or to a file
named after the brand, job and month in the current directory. With
--format json the document is printed to stdout.`,
		Example: "  timesheetctl report --email anna@example.com --job-id 3 --month 2024-03",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(cmd, g, o)
		},
	}
	f := cmd.Flags()
	f.StringVar(&o.email, "email", "", "owner of the job")
	f.Int64Var(&o.jobID, "job-id", 0, "job to report on")
	f.StringVar(&o.month, "month", "", "month as YYYY-MM")
	f.StringVar(&o.out, "out", "", "output file for the PDF")
	f.StringVar(&o.format, "format", "pdf", "pdf or json")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("job-id")
	_ = cmd.MarkFlagRequired("month")
	return cmd
}

func runReport(cmd *cobra.Command, g *globals, o *reportOptions) error {
	if o.format != "pdf" && o.format != "json" {
		return fmt.Errorf("unsupported format %q", o.format)
	}
	m, err := timesheet.ParseMonth(o.month)
	if err != nil {
		return err
	}
	locale, err := report.ParseLocale(g.cfg.Locale)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	conn, err := g.open(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	repo := sqlite.New(conn, g.logger)
	user, err := repo.GetUserByEmail(ctx, o.email)
	if err != nil {
		return err
	}
	if user == nil {
		return fmt.Errorf("no user with email %s", o.email)
	}
	svc := timesheet.NewService(repo, timesheet.Options{Locale: locale, Brand: g.cfg.Brand, Logger: g.logger})

	doc, err := svc.BuildReport(ctx, user.ID, o.jobID, m)
	if err != nil {
		return explain(err)
	}
	if o.format == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	}

	out := o.out
	if out == "" {
		out = report.FileName(doc)
	}
	if err := writePDF(out, locale, doc); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d shifts, %s hours).\n", out, len(doc.Rows), doc.Total)
	return nil
}

// writePDF renders into a temporary file next to path and renames it, so a
// failed render never leaves a truncated report behind.
func writePDF(path string, locale report.Locale, doc *report.Document) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".report-*.pdf")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := (report.PDFRenderer{Locale: locale}).Render(tmp, doc); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func explain(err error) error {
	switch {
	case errors.Is(err, report.ErrNoData):
		return errors.New("no shifts to include in the report for this period")
	case errors.Is(err, timesheet.ErrNotFound):
		return errors.New("job not found for this user")
	}
	return err
}
