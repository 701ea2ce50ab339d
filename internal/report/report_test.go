package report_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/garnizeh/timesheet/internal/hours"
	"github.com/garnizeh/timesheet/internal/models"
	"github.com/garnizeh/timesheet/internal/report"
)

func shift(jobID int64, date, start, end string, note string) models.Shift {
	d, err := models.ParseDate(date)
	if err != nil {
		panic(err)
	}
	s := models.Shift{JobID: jobID, Date: d, Start: start, End: end, Hours: hours.Compute(start, end)}
	if note != "" {
		s.Note = &note
	}
	return s
}

func fixedFormatter(l report.Locale) *report.Formatter {
	f := report.NewFormatter(l)
	f.Now = func() time.Time { return time.Date(2024, 4, 2, 10, 30, 0, 0, time.UTC) }
	return f
}

func TestFormat_Rows(t *testing.T) {
	shifts := []models.Shift{
		shift(1, "2024-03-15", "13:00", "16:30", ""),
		shift(1, "2024-03-01", "09:00", "17:00", "inventario"),
	}

	doc, err := fixedFormatter(report.Italian).Format(shifts, "Acme", "marzo 2024")
	if err != nil {
		t.Fatalf("Format: %v", err)
	}

	want := []report.Row{
		{Date: "01/03/2024", Weekday: "venerdì", Start: "09:00", End: "17:00", Hours: "8.00", Note: "inventario"},
		{Date: "15/03/2024", Weekday: "venerdì", Start: "13:00", End: "16:30", Hours: "3.50", Note: ""},
	}
	if diff := cmp.Diff(want, doc.Rows); diff != "" {
		t.Fatalf("rows mismatch (-want +got):\n%s", diff)
	}
	if doc.Total != "11.50" {
		t.Fatalf("expected total 11.50, got %s", doc.Total)
	}
	if doc.Title != "Timesheet - Report Acme - marzo 2024" {
		t.Fatalf("unexpected title %q", doc.Title)
	}
	if !doc.GeneratedAt.Equal(time.Date(2024, 4, 2, 10, 30, 0, 0, time.UTC)) {
		t.Fatalf("unexpected generation time %v", doc.GeneratedAt)
	}
	// input must not be reordered
	if shifts[0].Date.String() != "2024-03-15" {
		t.Fatalf("input slice was modified")
	}
}

func TestFormat_EnglishLocale(t *testing.T) {
	doc, err := fixedFormatter(report.English).Format([]models.Shift{shift(2, "2024-03-04", "08:00", "12:15", "")}, "Beta", "March 2024")
	if err != nil {
		t.Fatalf("Format: %v", err)
	}
	if doc.Rows[0].Date != "03/04/2024" || doc.Rows[0].Weekday != "Monday" {
		t.Fatalf("unexpected row %+v", doc.Rows[0])
	}
	if doc.Rows[0].Hours != "4.25" {
		t.Fatalf("unexpected hours %s", doc.Rows[0].Hours)
	}
}

func TestFormat_TotalEqualsRowSum(t *testing.T) {
	starts := []string{"06:00", "07:10", "08:20", "09:35", "10:50", "11:05"}
	ends := []string{"14:00", "15:55", "12:40", "18:05", "19:20", "23:59"}
	var shifts []models.Shift
	for i := range starts {
		day := []string{"2024-05-01", "2024-05-02", "2024-05-03", "2024-05-04", "2024-05-05", "2024-05-06"}[i]
		shifts = append(shifts, shift(9, day, starts[i], ends[i], ""))
	}

	doc, err := fixedFormatter(report.Italian).Format(shifts, "Gamma", "maggio 2024")
	if err != nil {
		t.Fatalf("Format: %v", err)
	}
	if len(doc.Rows) != len(shifts) {
		t.Fatalf("expected %d rows, got %d", len(shifts), len(doc.Rows))
	}

	var sum hours.Hours
	for _, r := range doc.Rows {
		var h hours.Hours
		if err := h.UnmarshalJSON([]byte(r.Hours)); err != nil {
			t.Fatalf("row hours %q: %v", r.Hours, err)
		}
		sum += h
	}
	if sum.String() != doc.Total {
		t.Fatalf("row sum %s != total %s", sum, doc.Total)
	}
}

func TestFormat_Preconditions(t *testing.T) {
	f := fixedFormatter(report.Italian)

	if _, err := f.Format(nil, "Acme", "marzo 2024"); !errors.Is(err, report.ErrNoData) {
		t.Fatalf("expected ErrNoData, got %v", err)
	}

	mixed := []models.Shift{
		shift(1, "2024-03-01", "09:00", "17:00", ""),
		shift(2, "2024-03-02", "09:00", "17:00", ""),
	}
	_, err := f.Format(mixed, "Acme", "marzo 2024")
	if !errors.Is(err, report.ErrJobMismatch) {
		t.Fatalf("expected ErrJobMismatch, got %v", err)
	}
	if !errors.Is(err, report.ErrCannotGenerate) {
		t.Fatalf("expected mismatch to be a cannot-generate error")
	}
}

func TestLocale(t *testing.T) {
	if got := report.Italian.MonthLabel(2024, time.March); got != "marzo 2024" {
		t.Fatalf("unexpected label %q", got)
	}
	if got := report.English.MonthLabel(2023, time.December); got != "December 2023" {
		t.Fatalf("unexpected label %q", got)
	}

	for in, want := range map[string]report.Locale{"it": report.Italian, "IT-it": report.Italian, "en_US": report.English} {
		got, err := report.ParseLocale(in)
		if err != nil || got != want {
			t.Fatalf("ParseLocale(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := report.ParseLocale("fr"); err == nil {
		t.Fatalf("expected error for unsupported locale")
	}
}

func TestPDFRenderer(t *testing.T) {
	var shifts []models.Shift
	for d := 1; d <= 31; d++ {
		date := time.Date(2024, 3, d, 0, 0, 0, 0, time.UTC).Format(models.DateLayout)
		note := "turno serale"
		if d%3 == 0 {
			// wraps over many lines and forces taller rows across page breaks
			note = strings.Repeat("consegna straordinaria al magazzino, più attesa ", 10)
		}
		shifts = append(shifts, shift(1, date, "09:00", "17:30", note))
	}
	doc, err := fixedFormatter(report.Italian).Format(shifts, "Caffè Roma", "marzo 2024")
	if err != nil {
		t.Fatalf("Format: %v", err)
	}

	var buf bytes.Buffer
	if err := (report.PDFRenderer{Locale: report.Italian}).Render(&buf, doc); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")) {
		t.Fatalf("output is not a PDF")
	}
	if err := (report.PDFRenderer{}).Render(&buf, nil); err == nil {
		t.Fatalf("expected error for nil document")
	}
}

func TestFileName(t *testing.T) {
	doc := &report.Document{Creator: "Timesheet", JobName: "Bar  Centrale/Nord", MonthLabel: "marzo 2024"}
	got := report.FileName(doc)
	if got != "Timesheet_Bar_Centrale-Nord_marzo_2024.pdf" {
		t.Fatalf("unexpected file name %q", got)
	}
	if strings.ContainsAny(got, " /") {
		t.Fatalf("file name must not contain spaces or slashes: %q", got)
	}
}
