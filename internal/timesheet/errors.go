package timesheet

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidMonth = errors.New("invalid month")
	ErrInvalidShift = errors.New("invalid shift")
	ErrInvalidJob   = errors.New("invalid job")
	// ErrNotFound covers records that do not exist and records owned by
	// another user; callers cannot tell the two apart.
	ErrNotFound = errors.New("not found")
	// ErrNotReady is returned when an export is requested before its task
	// has finished.
	ErrNotReady = errors.New("not ready")
	// ErrExportFailed is returned when an export task gave up for good.
	ErrExportFailed = errors.New("export failed")
)

// ExportFailedError carries the last error of a failed export task. It
// matches ErrExportFailed.
type ExportFailedError struct {
	TaskID int64
	Reason string
}

func (e *ExportFailedError) Error() string {
	return fmt.Sprintf("export %d failed: %s", e.TaskID, e.Reason)
}

func (e *ExportFailedError) Unwrap() error { return ErrExportFailed }
