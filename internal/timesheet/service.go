package timesheet

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/garnizeh/timesheet/internal/hours"
	"github.com/garnizeh/timesheet/internal/metrics"
	"github.com/garnizeh/timesheet/internal/models"
	"github.com/garnizeh/timesheet/internal/report"
	"github.com/garnizeh/timesheet/pkg/repository"
)

const (
	maxJobName = 100
	maxNote    = 500
)

// Tasks is the slice of the background queue the service needs.
type Tasks interface {
	Enqueue(ctx context.Context, typ string, payload any, priority int, maxAttempts int) (int64, error)
	Get(ctx context.Context, id int64) (*models.Task, error)
}

// Options configures a Service. Zero values fall back to defaults.
type Options struct {
	Locale    report.Locale
	Brand     string
	ExportDir string
	Metrics   *metrics.Metrics
	Logger    *slog.Logger
	Tasks     Tasks
}

// Service applies the timesheet rules on top of a repository.Store.
type Service struct {
	store     repository.Store
	locale    report.Locale
	brand     string
	exportDir string
	metrics   *metrics.Metrics
	logger    *slog.Logger
	tasks     Tasks
}

func NewService(store repository.Store, opts Options) *Service {
	if opts.Locale == "" {
		opts.Locale = report.DefaultLocale
	}
	if opts.Brand == "" {
		opts.Brand = report.DefaultBrand
	}
	if opts.ExportDir == "" {
		opts.ExportDir = "exports"
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Service{
		store:     store,
		locale:    opts.Locale,
		brand:     opts.Brand,
		exportDir: opts.ExportDir,
		metrics:   opts.Metrics,
		logger:    opts.Logger,
		tasks:     opts.Tasks,
	}
}

// Locale is the language reports are produced in.
func (s *Service) Locale() report.Locale { return s.locale }

// ShiftInput is what a client may set on a shift. Hours is never accepted
// from outside; it is derived from Start and End.
type ShiftInput struct {
	JobID int64   `json:"job_id"`
	Date  string  `json:"date"`
	Start string  `json:"start"`
	End   string  `json:"end"`
	Note  *string `json:"note,omitempty"`
}

func (in ShiftInput) toShift(userID int64) (*models.Shift, error) {
	if in.JobID <= 0 {
		return nil, fmt.Errorf("%w: job_id is required", ErrInvalidShift)
	}
	d, err := models.ParseDate(in.Date)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidShift, err)
	}
	start, err := hours.ParseClock(in.Start)
	if err != nil {
		return nil, fmt.Errorf("%w: start: %v", ErrInvalidShift, err)
	}
	end, err := hours.ParseClock(in.End)
	if err != nil {
		return nil, fmt.Errorf("%w: end: %v", ErrInvalidShift, err)
	}

	sh := &models.Shift{
		UserID: userID,
		JobID:  in.JobID,
		Date:   d,
		Start:  start.String(),
		End:    end.String(),
		Hours:  hours.Between(start, end),
	}
	if in.Note != nil {
		note := strings.TrimSpace(*in.Note)
		if utf8.RuneCountInString(note) > maxNote {
			return nil, fmt.Errorf("%w: note longer than %d characters", ErrInvalidShift, maxNote)
		}
		if note != "" {
			sh.Note = &note
		}
	}
	return sh, nil
}

// requireJob returns ErrNotFound unless jobID names a job of userID.
func (s *Service) requireJob(ctx context.Context, userID, jobID int64) (*models.Job, error) {
	j, err := s.store.GetJob(ctx, userID, jobID)
	if err != nil {
		return nil, fmt.Errorf("load job: %w", err)
	}
	if j == nil {
		return nil, fmt.Errorf("job %d: %w", jobID, ErrNotFound)
	}
	return j, nil
}

// CreateShift validates in, checks the job belongs to the user and stores the
// shift with freshly computed hours.
func (s *Service) CreateShift(ctx context.Context, userID int64, in ShiftInput) (*models.Shift, error) {
	sh, err := in.toShift(userID)
	if err != nil {
		return nil, err
	}
	if _, err := s.requireJob(ctx, userID, sh.JobID); err != nil {
		return nil, err
	}

	id, err := s.store.CreateShift(ctx, sh)
	if err != nil {
		return nil, fmt.Errorf("create shift: %w", err)
	}
	sh.ID = id
	s.metrics.ShiftSaved("create")
	s.logger.Debug("shift created", slog.Int64("shift_id", id), slog.Int64("user_id", userID), slog.String("hours", sh.Hours.String()))
	return sh, nil
}

// UpdateShift replaces every client-settable field of shift id and
// recomputes its hours.
func (s *Service) UpdateShift(ctx context.Context, userID, id int64, in ShiftInput) (*models.Shift, error) {
	sh, err := in.toShift(userID)
	if err != nil {
		return nil, err
	}
	existing, err := s.store.GetShift(ctx, userID, id)
	if err != nil {
		return nil, fmt.Errorf("load shift: %w", err)
	}
	if existing == nil {
		return nil, fmt.Errorf("shift %d: %w", id, ErrNotFound)
	}
	if _, err := s.requireJob(ctx, userID, sh.JobID); err != nil {
		return nil, err
	}

	sh.ID = id
	sh.Created = existing.Created
	ok, err := s.store.UpdateShift(ctx, sh)
	if err != nil {
		return nil, fmt.Errorf("update shift: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("shift %d: %w", id, ErrNotFound)
	}
	s.metrics.ShiftSaved("update")
	return sh, nil
}

func (s *Service) GetShift(ctx context.Context, userID, id int64) (*models.Shift, error) {
	sh, err := s.store.GetShift(ctx, userID, id)
	if err != nil {
		return nil, fmt.Errorf("load shift: %w", err)
	}
	if sh == nil {
		return nil, fmt.Errorf("shift %d: %w", id, ErrNotFound)
	}
	return sh, nil
}

func (s *Service) DeleteShift(ctx context.Context, userID, id int64) error {
	ok, err := s.store.DeleteShift(ctx, userID, id)
	if err != nil {
		return fmt.Errorf("delete shift: %w", err)
	}
	if !ok {
		return fmt.Errorf("shift %d: %w", id, ErrNotFound)
	}
	return nil
}

func validJobName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%w: name is required", ErrInvalidJob)
	}
	if utf8.RuneCountInString(name) > maxJobName {
		return "", fmt.Errorf("%w: name longer than %d characters", ErrInvalidJob, maxJobName)
	}
	return name, nil
}

func (s *Service) CreateJob(ctx context.Context, userID int64, name string) (*models.Job, error) {
	name, err := validJobName(name)
	if err != nil {
		return nil, err
	}
	j := &models.Job{UserID: userID, Name: name}
	id, err := s.store.CreateJob(ctx, j)
	if err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}
	j.ID = id
	return j, nil
}

func (s *Service) ListJobs(ctx context.Context, userID int64, order repository.JobOrder) ([]models.Job, error) {
	jobs, err := s.store.ListJobs(ctx, userID, order)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	return jobs, nil
}

func (s *Service) RenameJob(ctx context.Context, userID, id int64, name string) (*models.Job, error) {
	name, err := validJobName(name)
	if err != nil {
		return nil, err
	}
	ok, err := s.store.RenameJob(ctx, userID, id, name)
	if err != nil {
		return nil, fmt.Errorf("rename job: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("job %d: %w", id, ErrNotFound)
	}
	return s.requireJob(ctx, userID, id)
}

// DeleteJob removes the job and every shift recorded against it.
func (s *Service) DeleteJob(ctx context.Context, userID, id int64) error {
	ok, err := s.store.DeleteJob(ctx, userID, id)
	if err != nil {
		return fmt.Errorf("delete job: %w", err)
	}
	if !ok {
		return fmt.Errorf("job %d: %w", id, ErrNotFound)
	}
	s.logger.Info("job deleted", slog.Int64("job_id", id), slog.Int64("user_id", userID))
	return nil
}

// GetProfile never fails for a missing profile; it returns empty names.
func (s *Service) GetProfile(ctx context.Context, userID int64) (*models.Profile, error) {
	p, err := s.store.GetProfile(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	if p == nil {
		p = &models.Profile{UserID: userID}
	}
	return p, nil
}

func (s *Service) SaveProfile(ctx context.Context, userID int64, givenName, familyName string) (*models.Profile, error) {
	p := &models.Profile{
		UserID:     userID,
		GivenName:  strings.TrimSpace(givenName),
		FamilyName: strings.TrimSpace(familyName),
	}
	if err := s.store.UpsertProfile(ctx, p); err != nil {
		return nil, fmt.Errorf("save profile: %w", err)
	}
	return p, nil
}

// MonthView is the month screen: the user's jobs plus the selected job's
// shifts and total.
type MonthView struct {
	Month  string         `json:"month"`
	Jobs   []models.Job   `json:"jobs"`
	JobID  *int64         `json:"job_id"`
	Shifts []models.Shift `json:"shifts"`
	Total  hours.Hours    `json:"total_hours"`
}

// MonthView loads jobs and the month's shifts concurrently and aggregates
// them. Without a job the shifts are empty and the total is zero.
func (s *Service) MonthView(ctx context.Context, userID int64, m Month, jobID *int64) (*MonthView, error) {
	var (
		jobs   []models.Job
		shifts []models.Shift
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		jobs, err = s.store.ListJobs(gctx, userID, repository.JobsByName)
		if err != nil {
			return fmt.Errorf("list jobs: %w", err)
		}
		return nil
	})
	if jobID != nil {
		g.Go(func() error {
			var err error
			shifts, err = s.store.ListShifts(gctx, userID, m.Start(), m.End(), jobID)
			if err != nil {
				return fmt.Errorf("list shifts: %w", err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if jobID != nil && !containsJob(jobs, *jobID) {
		return nil, fmt.Errorf("job %d: %w", *jobID, ErrNotFound)
	}

	agg := FilterAndTotal(shifts, m.Start(), m.End(), jobID)
	return &MonthView{Month: m.String(), Jobs: jobs, JobID: jobID, Shifts: agg.Shifts, Total: agg.Total}, nil
}

func containsJob(jobs []models.Job, id int64) bool {
	for _, j := range jobs {
		if j.ID == id {
			return true
		}
	}
	return false
}

// Calendar returns the month grid of one job.
func (s *Service) Calendar(ctx context.Context, userID int64, m Month, jobID *int64) (*Calendar, error) {
	view, err := s.MonthView(ctx, userID, m, jobID)
	if err != nil {
		return nil, err
	}
	cal := BuildCalendar(m, view.Shifts)
	return &cal, nil
}

func (s *Service) formatter() *report.Formatter {
	f := report.NewFormatter(s.locale)
	f.Brand = s.brand
	return f
}

func (s *Service) buildReport(ctx context.Context, userID, jobID int64, m Month) (*report.Document, error) {
	job, err := s.requireJob(ctx, userID, jobID)
	if err != nil {
		return nil, err
	}
	shifts, err := s.store.ListShifts(ctx, userID, m.Start(), m.End(), &jobID)
	if err != nil {
		return nil, fmt.Errorf("list shifts: %w", err)
	}
	agg := FilterAndTotal(shifts, m.Start(), m.End(), &jobID)
	return s.formatter().Format(agg.Shifts, job.Name, s.locale.MonthLabel(m.Year, m.Month))
}

// BuildReport formats the month of one job. It fails with an error matching
// report.ErrCannotGenerate when the month has no shifts.
func (s *Service) BuildReport(ctx context.Context, userID, jobID int64, m Month) (*report.Document, error) {
	doc, err := s.buildReport(ctx, userID, jobID, m)
	if err != nil {
		return nil, err
	}
	s.metrics.ReportGenerated("json")
	return doc, nil
}

// RenderReport writes the month of one job to w as PDF.
func (s *Service) RenderReport(ctx context.Context, userID, jobID int64, m Month, w io.Writer) (*report.Document, error) {
	doc, err := s.buildReport(ctx, userID, jobID, m)
	if err != nil {
		return nil, err
	}
	if err := (report.PDFRenderer{Locale: s.locale}).Render(w, doc); err != nil {
		return nil, fmt.Errorf("render report: %w", err)
	}
	s.metrics.ReportGenerated("pdf")
	return doc, nil
}
