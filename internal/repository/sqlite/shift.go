package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/garnizeh/timesheet/internal/hours"
	"github.com/garnizeh/timesheet/internal/models"
)

const shiftColumns = `id, user_id, job_id, date, start_time, end_time, quarters, note, created`

func (r *SQLiteRepo) CreateShift(ctx context.Context, s *models.Shift) (int64, error) {
	if s == nil {
		return 0, fmt.Errorf("shift is nil")
	}

	s.Created = now()
	res, err := r.conn.Exec(ctx, `INSERT INTO shifts (user_id, job_id, date, start_time, end_time, quarters, note, created) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		s.UserID, s.JobID, s.Date.String(), s.Start, s.End, int64(s.Hours), s.Note, s.Created)
	if err != nil {
		return 0, err
	}

	return res.LastInsertId()
}

func (r *SQLiteRepo) GetShift(ctx context.Context, userID, id int64) (*models.Shift, error) {
	row := r.conn.QueryRow(ctx, `SELECT `+shiftColumns+` FROM shifts WHERE id = ? AND user_id = ?`, id, userID)
	s, err := scanShift(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, err
	}

	return s, nil
}

func (r *SQLiteRepo) ListShifts(ctx context.Context, userID int64, from, to models.Date, jobID *int64) ([]models.Shift, error) {
	q := `SELECT ` + shiftColumns + ` FROM shifts WHERE user_id = ? AND date >= ? AND date <= ?`
	args := []any{userID, from.String(), to.String()}
	if jobID != nil {
		q += ` AND job_id = ?`
		args = append(args, *jobID)
	}
	q += ` ORDER BY date ASC, id ASC`

	rows, err := r.conn.GetConn().QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Shift{}
	for rows.Next() {
		s, err := scanShift(rows)
		if err != nil {
			return nil, err
		}

		out = append(out, *s)
	}

	return out, rows.Err()
}

func (r *SQLiteRepo) UpdateShift(ctx context.Context, s *models.Shift) (bool, error) {
	if s == nil {
		return false, fmt.Errorf("shift is nil")
	}

	res, err := r.conn.Exec(ctx, `UPDATE shifts SET job_id = ?, date = ?, start_time = ?, end_time = ?, quarters = ?, note = ? WHERE id = ? AND user_id = ?`,
		s.JobID, s.Date.String(), s.Start, s.End, int64(s.Hours), s.Note, s.ID, s.UserID)
	if err != nil {
		return false, err
	}

	n, err := res.RowsAffected()
	return n > 0, err
}

func (r *SQLiteRepo) DeleteShift(ctx context.Context, userID, id int64) (bool, error) {
	res, err := r.conn.Exec(ctx, `DELETE FROM shifts WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return false, err
	}

	n, err := res.RowsAffected()
	return n > 0, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanShift(sc scanner) (*models.Shift, error) {
	var (
		s        models.Shift
		date     string
		quarters int64
		note     sql.NullString
	)
	if err := sc.Scan(&s.ID, &s.UserID, &s.JobID, &date, &s.Start, &s.End, &quarters, &note, &s.Created); err != nil {
		return nil, err
	}

	d, err := models.ParseDate(date)
	if err != nil {
		return nil, fmt.Errorf("shift %d: %w", s.ID, err)
	}
	s.Date = d
	s.Hours = hours.Hours(quarters)
	if note.Valid {
		v := note.String
		s.Note = &v
	}

	return &s, nil
}
