package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/garnizeh/timesheet/internal/models"
	"github.com/garnizeh/timesheet/pkg/repository"
)

// CreateUser stores a new account. Emails are compared case-insensitively;
// a taken email yields repository.ErrDuplicate.
func (r *SQLiteRepo) CreateUser(ctx context.Context, u *models.User) (int64, error) {
	if u == nil {
		return 0, fmt.Errorf("user is nil")
	}

	res, err := r.conn.Exec(ctx, `INSERT INTO users (email, password_hash, updated) VALUES (?, ?, ?)`, normalizeEmail(u.Email), u.PasswordHash, now())
	if err != nil {
		if isUniqueViolation(err) {
			return 0, repository.ErrDuplicate
		}
		return 0, err
	}

	return res.LastInsertId()
}

func (r *SQLiteRepo) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	row := r.conn.QueryRow(ctx, `SELECT id, email, password_hash, updated FROM users WHERE id = ?`, id)
	return scanUser(row)
}

func (r *SQLiteRepo) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	row := r.conn.QueryRow(ctx, `SELECT id, email, password_hash, updated FROM users WHERE email = ?`, normalizeEmail(email))
	return scanUser(row)
}

func scanUser(row *sql.Row) (*models.User, error) {
	var u models.User
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, err
	}

	return &u, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
