// Package queue runs persisted background tasks with retries.
//
// inputs: rows of the tasks table, handlers keyed by task type
// outputs: status updates, dead-letter copies of tasks that gave up
// error modes: db errors, handler errors, permanent handler errors
package queue

import (
	"context"
	"errors"
	"time"

	"github.com/garnizeh/timesheet/internal/models"
)

// Task statuses.
const (
	StatusPending = "pending"
	StatusRunning = "running"
	StatusRetry   = "retry"
	StatusDone    = "done"
	StatusFailed  = "failed"
)

// Handler is the function that processes a task
type Handler func(ctx context.Context, t *models.Task) error

// ErrMaxAttempts indicates the task reached max attempts
var ErrMaxAttempts = errors.New("max attempts reached")

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying. The task fails immediately.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was wrapped with Permanent.
func IsPermanent(err error) bool {
	var pe *permanentError
	return errors.As(err, &pe)
}

// BackoffDuration returns exponential backoff duration for attempt n
func BackoffDuration(attempt int) time.Duration {
	if attempt <= 0 {
		return time.Second
	}
	if attempt > 16 {
		attempt = 16
	}
	d := time.Duration(1<<uint(attempt)) * time.Second
	max := 5 * time.Minute
	if d > max {
		return max
	}
	return d
}
