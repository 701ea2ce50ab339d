package timesheet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/garnizeh/timesheet/internal/models"
	"github.com/garnizeh/timesheet/internal/queue"
	"github.com/garnizeh/timesheet/internal/report"
)

// TaskExportReport is the queue task type that renders a PDF report to disk.
const TaskExportReport = "report.export"

const (
	exportPriority    = 10
	exportMaxAttempts = 3
)

// ErrTasksUnavailable is returned by the export methods when the service was
// built without a task queue.
var ErrTasksUnavailable = errors.New("background tasks are not configured")

// ExportPayload is the body of a TaskExportReport task.
type ExportPayload struct {
	UserID int64  `json:"user_id"`
	JobID  int64  `json:"job_id"`
	Month  string `json:"month"`
}

// Export is the client view of an export task.
type Export struct {
	ID        int64  `json:"id"`
	Status    string `json:"status"`
	JobID     int64  `json:"job_id"`
	Month     string `json:"month"`
	Attempts  int    `json:"attempts"`
	LastError string `json:"last_error,omitempty"`
	FileName  string `json:"file_name,omitempty"`
}

// ExportPath is where the PDF of a task ends up.
func (s *Service) ExportPath(userID, taskID int64) string {
	return filepath.Join(s.exportDir, strconv.FormatInt(userID, 10), strconv.FormatInt(taskID, 10)+".pdf")
}

// RequestExport queues the PDF rendering of one job's month.
func (s *Service) RequestExport(ctx context.Context, userID, jobID int64, m Month) (*Export, error) {
	if s.tasks == nil {
		return nil, ErrTasksUnavailable
	}
	if _, err := s.requireJob(ctx, userID, jobID); err != nil {
		return nil, err
	}
	pl := ExportPayload{UserID: userID, JobID: jobID, Month: m.String()}
	id, err := s.tasks.Enqueue(ctx, TaskExportReport, pl, exportPriority, exportMaxAttempts)
	if err != nil {
		return nil, fmt.Errorf("enqueue export: %w", err)
	}
	return &Export{ID: id, Status: queue.StatusPending, JobID: jobID, Month: pl.Month}, nil
}

// ExportStatus returns the export task id of userID. Tasks of other users
// and tasks of other types are reported as not found.
func (s *Service) ExportStatus(ctx context.Context, userID, taskID int64) (*Export, error) {
	if s.tasks == nil {
		return nil, ErrTasksUnavailable
	}
	t, err := s.tasks.Get(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("load task: %w", err)
	}
	if t == nil || t.Type != TaskExportReport {
		return nil, fmt.Errorf("export %d: %w", taskID, ErrNotFound)
	}
	var pl ExportPayload
	if err := json.Unmarshal(t.Payload, &pl); err != nil || pl.UserID != userID {
		return nil, fmt.Errorf("export %d: %w", taskID, ErrNotFound)
	}

	e := &Export{ID: t.ID, Status: t.Status, JobID: pl.JobID, Month: pl.Month, Attempts: t.Attempts, LastError: t.LastError}
	if t.Status == queue.StatusDone {
		e.FileName = filepath.Base(s.ExportPath(userID, taskID))
	}
	return e, nil
}

// HandleExportTask is the queue handler of TaskExportReport. Errors that
// retrying cannot fix are marked permanent.
func (s *Service) HandleExportTask(ctx context.Context, t *models.Task) error {
	var pl ExportPayload
	if err := json.Unmarshal(t.Payload, &pl); err != nil {
		return queue.Permanent(fmt.Errorf("decode export payload: %w", err))
	}
	m, err := ParseMonth(pl.Month)
	if err != nil {
		return queue.Permanent(err)
	}

	path := s.ExportPath(pl.UserID, t.ID)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".export-*.pdf")
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}
	defer os.Remove(tmp.Name())

	doc, err := s.RenderReport(ctx, pl.UserID, pl.JobID, m, tmp)
	if cerr := tmp.Close(); err == nil && cerr != nil {
		err = cerr
	}
	if err != nil {
		if errors.Is(err, report.ErrCannotGenerate) || errors.Is(err, ErrNotFound) {
			return queue.Permanent(err)
		}
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("publish export file: %w", err)
	}

	s.logger.Info("report exported",
		slog.Int64("task_id", t.ID),
		slog.Int64("user_id", pl.UserID),
		slog.String("file", report.FileName(doc)),
		slog.Int("rows", len(doc.Rows)),
	)
	return nil
}

// OpenExport opens the finished PDF of a task owned by userID, along with
// the suggested download name. A task that gave up returns an
// *ExportFailedError, one still in flight ErrNotReady.
func (s *Service) OpenExport(ctx context.Context, userID, taskID int64) (*os.File, string, error) {
	e, err := s.ExportStatus(ctx, userID, taskID)
	if err != nil {
		return nil, "", err
	}
	if e.Status == queue.StatusFailed {
		return nil, "", &ExportFailedError{TaskID: taskID, Reason: e.LastError}
	}
	if e.Status != queue.StatusDone {
		return nil, "", fmt.Errorf("export %d is %s: %w", taskID, e.Status, ErrNotReady)
	}
	f, err := os.Open(s.ExportPath(userID, taskID))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, "", fmt.Errorf("export %d file: %w", taskID, ErrNotFound)
		}
		return nil, "", err
	}

	name := fmt.Sprintf("export-%d.pdf", taskID)
	if m, perr := ParseMonth(e.Month); perr == nil {
		if job, jerr := s.store.GetJob(ctx, userID, e.JobID); jerr == nil && job != nil {
			name = report.FileName(&report.Document{Creator: s.brand, JobName: job.Name, MonthLabel: s.locale.MonthLabel(m.Year, m.Month)})
		}
	}
	return f, name, nil
}
