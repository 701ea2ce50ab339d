package queue

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/garnizeh/timesheet/internal/db"
	"github.com/garnizeh/timesheet/internal/models"
)

// Store persists tasks. Repository is the SQLite implementation.
type Store interface {
	Enqueue(ctx context.Context, t *models.Task) (int64, error)
	// ClaimNext marks the next due task as running and returns it, or nil
	// when nothing is due.
	ClaimNext(ctx context.Context) (*models.Task, error)
	UpdateTask(ctx context.Context, t *models.Task) error
	// RequeueRunning puts tasks left running by a stopped or crashed worker
	// back in line and reports how many there were.
	RequeueRunning(ctx context.Context) (int64, error)
	MoveToDeadLetter(ctx context.Context, t *models.Task) error
	GetTask(ctx context.Context, id int64) (*models.Task, error)
}

type Repository struct {
	db *db.DB
}

var _ Store = (*Repository)(nil)

func NewRepository(d *db.DB) *Repository { return &Repository{db: d} }

const taskColumns = `id, type, payload, status, attempts, max_attempts, priority, scheduled_at, next_try_at, last_error, created, updated`

func millis(t time.Time) int64 { return t.UTC().UnixMilli() }

// Enqueue inserts a task into the tasks table and returns the new ID
func (r *Repository) Enqueue(ctx context.Context, t *models.Task) (int64, error) {
	if t.MaxAttempts == 0 {
		t.MaxAttempts = 5
	}
	if t.ScheduledAt.IsZero() {
		t.ScheduledAt = time.Now()
	}
	now := millis(time.Now())
	q := `INSERT INTO tasks(type, payload, status, attempts, max_attempts, priority, scheduled_at, created, updated) VALUES(?,?,?,?,?,?,?,?,?)`
	res, err := r.db.Exec(ctx, q, t.Type, string(t.Payload), StatusPending, t.Attempts, t.MaxAttempts, t.Priority, millis(t.ScheduledAt), now, now)
	if err != nil {
		return 0, fmt.Errorf("enqueue failed: %w", err)
	}
	return res.LastInsertId()
}

// ClaimNext picks the due task with the lowest priority value and flips it to
// running in the same statement, so two workers never get the same task.
func (r *Repository) ClaimNext(ctx context.Context) (*models.Task, error) {
	now := millis(time.Now())
	q := `UPDATE tasks SET status = 'running', updated = ?
		WHERE id = (
			SELECT id FROM tasks
			WHERE (status = 'pending' OR status = 'retry')
			  AND (next_try_at IS NULL OR next_try_at <= ?)
			  AND scheduled_at <= ?
			ORDER BY priority ASC, scheduled_at ASC, id ASC
			LIMIT 1
		)
		RETURNING ` + taskColumns
	t, err := scanTask(r.db.QueryRow(ctx, q, now, now, now))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("claim next task: %w", err)
	}
	return t, nil
}

// RequeueRunning flips every running task to retry, due immediately. Only
// call it while no worker of this database is active.
func (r *Repository) RequeueRunning(ctx context.Context) (int64, error) {
	q := `UPDATE tasks SET status = 'retry', next_try_at = NULL, updated = ? WHERE status = 'running'`
	res, err := r.db.Exec(ctx, q, millis(time.Now()))
	if err != nil {
		return 0, fmt.Errorf("requeue running tasks: %w", err)
	}
	return res.RowsAffected()
}

// GetTask returns nil, nil for an unknown id.
func (r *Repository) GetTask(ctx context.Context, id int64) (*models.Task, error) {
	t, err := scanTask(r.db.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get task: %w", err)
	}
	return t, nil
}

// UpdateTask updates attempts, status, next_try_at, last_error
func (r *Repository) UpdateTask(ctx context.Context, t *models.Task) error {
	var nextTry any
	if t.NextTryAt != nil {
		nextTry = millis(*t.NextTryAt)
	}
	q := `UPDATE tasks SET status = ?, attempts = ?, next_try_at = ?, last_error = ?, updated = ? WHERE id = ?`
	_, err := r.db.Exec(ctx, q, t.Status, t.Attempts, nextTry, t.LastError, millis(time.Now()), t.ID)
	return err
}

// MoveToDeadLetter copies the task to dead_letter_tasks and marks the
// original failed. The original row is kept so its status stays queryable.
func (r *Repository) MoveToDeadLetter(ctx context.Context, t *models.Task) error {
	tx, err := r.db.GetConn().BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	now := millis(time.Now())

	insert := `INSERT INTO dead_letter_tasks(task_id, type, payload, attempts, last_error, failed_at) VALUES(?,?,?,?,?,?)`
	if _, err := tx.ExecContext(ctx, insert, t.ID, t.Type, string(t.Payload), t.Attempts, t.LastError, now); err != nil {
		_ = tx.Rollback()
		return err
	}
	update := `UPDATE tasks SET status = ?, attempts = ?, next_try_at = NULL, last_error = ?, updated = ? WHERE id = ?`
	if _, err := tx.ExecContext(ctx, update, StatusFailed, t.Attempts, t.LastError, now, t.ID); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// CountDeadLetters returns how many tasks gave up.
func (r *Repository) CountDeadLetters(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.QueryRow(ctx, `SELECT COUNT(1) FROM dead_letter_tasks`).Scan(&n)
	return n, err
}

func scanTask(row *sql.Row) (*models.Task, error) {
	var (
		t           models.Task
		payload     sql.NullString
		scheduledAt int64
		nextTry     sql.NullInt64
		lastError   sql.NullString
		created     int64
		updated     int64
	)
	if err := row.Scan(&t.ID, &t.Type, &payload, &t.Status, &t.Attempts, &t.MaxAttempts, &t.Priority, &scheduledAt, &nextTry, &lastError, &created, &updated); err != nil {
		return nil, err
	}
	t.ScheduledAt = time.UnixMilli(scheduledAt).UTC()
	t.Created = time.UnixMilli(created).UTC()
	t.Updated = time.UnixMilli(updated).UTC()
	if payload.Valid {
		t.Payload = json.RawMessage(payload.String)
	}
	if nextTry.Valid {
		n := time.UnixMilli(nextTry.Int64).UTC()
		t.NextTryAt = &n
	}
	if lastError.Valid {
		t.LastError = lastError.String
	}
	return &t, nil
}
