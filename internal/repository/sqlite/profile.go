package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/garnizeh/timesheet/internal/models"
)

func (r *SQLiteRepo) GetProfile(ctx context.Context, userID int64) (*models.Profile, error) {
	row := r.conn.QueryRow(ctx, `SELECT user_id, given_name, family_name, updated FROM profiles WHERE user_id = ?`, userID)
	var p models.Profile
	if err := row.Scan(&p.UserID, &p.GivenName, &p.FamilyName, &p.Updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, err
	}

	return &p, nil
}

// UpsertProfile inserts the profile or replaces the names of an existing one.
func (r *SQLiteRepo) UpsertProfile(ctx context.Context, p *models.Profile) error {
	if p == nil {
		return fmt.Errorf("profile is nil")
	}

	p.Updated = now()
	_, err := r.conn.Exec(ctx, `INSERT INTO profiles (user_id, given_name, family_name, updated) VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET given_name = excluded.given_name, family_name = excluded.family_name, updated = excluded.updated`,
		p.UserID, p.GivenName, p.FamilyName, p.Updated)
	return err
}
