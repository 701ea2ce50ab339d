package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/garnizeh/timesheet/internal/models"
	"github.com/garnizeh/timesheet/pkg/repository"
)

func (r *SQLiteRepo) CreateJob(ctx context.Context, j *models.Job) (int64, error) {
	if j == nil {
		return 0, fmt.Errorf("job is nil")
	}

	j.Created = now()
	res, err := r.conn.Exec(ctx, `INSERT INTO jobs (user_id, name, created) VALUES (?, ?, ?)`, j.UserID, j.Name, j.Created)
	if err != nil {
		return 0, err
	}

	return res.LastInsertId()
}

func (r *SQLiteRepo) GetJob(ctx context.Context, userID, id int64) (*models.Job, error) {
	row := r.conn.QueryRow(ctx, `SELECT id, user_id, name, created FROM jobs WHERE id = ? AND user_id = ?`, id, userID)
	var j models.Job
	if err := row.Scan(&j.ID, &j.UserID, &j.Name, &j.Created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, err
	}

	return &j, nil
}

func (r *SQLiteRepo) ListJobs(ctx context.Context, userID int64, order repository.JobOrder) ([]models.Job, error) {
	orderBy := "name COLLATE NOCASE ASC, id ASC"
	if order == repository.JobsNewestFirst {
		orderBy = "created DESC, id DESC"
	}

	rows, err := r.conn.GetConn().QueryContext(ctx, `SELECT id, user_id, name, created FROM jobs WHERE user_id = ? ORDER BY `+orderBy, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Job{}
	for rows.Next() {
		var j models.Job
		if err := rows.Scan(&j.ID, &j.UserID, &j.Name, &j.Created); err != nil {
			return nil, err
		}

		out = append(out, j)
	}

	return out, rows.Err()
}

func (r *SQLiteRepo) RenameJob(ctx context.Context, userID, id int64, name string) (bool, error) {
	res, err := r.conn.Exec(ctx, `UPDATE jobs SET name = ? WHERE id = ? AND user_id = ?`, name, id, userID)
	if err != nil {
		return false, err
	}

	n, err := res.RowsAffected()
	return n > 0, err
}

// DeleteJob removes the job's shifts and then the job in one transaction.
func (r *SQLiteRepo) DeleteJob(ctx context.Context, userID, id int64) (bool, error) {
	tx, err := r.conn.GetConn().BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM shifts WHERE job_id = ? AND user_id = ?`, id, userID)
	if err != nil {
		_ = tx.Rollback()
		return false, err
	}
	removedShifts, _ := res.RowsAffected()

	res, err = tx.ExecContext(ctx, `DELETE FROM jobs WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		_ = tx.Rollback()
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		_ = tx.Rollback()
		return false, err
	}
	if n == 0 {
		// nothing of ours to delete; keep whatever belongs to someone else
		_ = tx.Rollback()
		return false, nil
	}

	if err := tx.Commit(); err != nil {
		return false, err
	}

	r.logger.Debug("job deleted", slog.Int64("job_id", id), slog.Int64("user_id", userID), slog.Int64("shifts", removedShifts))
	return true, nil
}
