// Package report shapes a month of shifts for one job into a printable
// document and renders it as PDF.
package report

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/garnizeh/timesheet/internal/hours"
	"github.com/garnizeh/timesheet/internal/models"
)

var (
	// ErrCannotGenerate is the family of precondition failures. Callers
	// should surface it to the user instead of producing an empty document.
	ErrCannotGenerate = errors.New("cannot generate report")
	ErrNoData         = fmt.Errorf("%w: no shifts to include in the report for this period", ErrCannotGenerate)
	ErrJobMismatch    = fmt.Errorf("%w: shifts belong to different jobs", ErrCannotGenerate)
)

const (
	DefaultBrand = "Timesheet"
	subject      = "Work hours report"
)

// Row is one table line of the report.
type Row struct {
	Date    string `json:"date"`
	Weekday string `json:"weekday"`
	Start   string `json:"start"`
	End     string `json:"end"`
	Hours   string `json:"hours"`
	Note    string `json:"note"`
}

// Document is everything a renderer needs, already formatted.
type Document struct {
	Title       string      `json:"title"`
	Subject     string      `json:"subject"`
	Creator     string      `json:"creator"`
	JobName     string      `json:"job_name"`
	MonthLabel  string      `json:"month_label"`
	GeneratedAt time.Time   `json:"generated_at"`
	Rows        []Row       `json:"rows"`
	Total       string      `json:"total"`
	TotalHours  hours.Hours `json:"total_hours"`
}

// Formatter builds Documents. The zero value formats in the default locale
// with the default brand and the wall clock.
type Formatter struct {
	Locale Locale
	Brand  string
	Now    func() time.Time
}

// NewFormatter returns a Formatter for the given locale.
func NewFormatter(l Locale) *Formatter {
	return &Formatter{Locale: l, Brand: DefaultBrand, Now: time.Now}
}

// Format turns shifts of a single job into a Document. The input slice is
// not modified.
func (f *Formatter) Format(shifts []models.Shift, jobName, monthLabel string) (*Document, error) {
	if len(shifts) == 0 {
		return nil, ErrNoData
	}
	jobID := shifts[0].JobID
	for _, s := range shifts[1:] {
		if s.JobID != jobID {
			return nil, ErrJobMismatch
		}
	}

	ordered := make([]models.Shift, len(shifts))
	copy(ordered, shifts)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Date.Before(ordered[j].Date)
	})

	loc := f.locale()
	doc := &Document{
		Title:       fmt.Sprintf("%s - Report %s - %s", f.brand(), jobName, monthLabel),
		Subject:     subject,
		Creator:     f.brand(),
		JobName:     jobName,
		MonthLabel:  monthLabel,
		GeneratedAt: f.now(),
		Rows:        make([]Row, 0, len(ordered)),
	}
	for _, s := range ordered {
		doc.Rows = append(doc.Rows, Row{
			Date:    loc.FormatDate(s.Date.Time),
			Weekday: loc.Weekday(s.Date.Weekday()),
			Start:   s.Start,
			End:     s.End,
			Hours:   s.Hours.String(),
			Note:    s.NoteText(),
		})
		doc.TotalHours += s.Hours
	}
	doc.Total = doc.TotalHours.String()
	return doc, nil
}

func (f *Formatter) locale() Locale {
	if f.Locale == "" {
		return DefaultLocale
	}
	return f.Locale
}

func (f *Formatter) brand() string {
	if f.Brand == "" {
		return DefaultBrand
	}
	return f.Brand
}

func (f *Formatter) now() time.Time {
	if f.Now == nil {
		return time.Now()
	}
	return f.Now()
}
