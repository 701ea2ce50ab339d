package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/garnizeh/timesheet/internal/hours"
)

// DateLayout is the wire and storage format of calendar dates.
const DateLayout = "2006-01-02"

// Date is a calendar day without time of day, always stored in UTC.
type Date struct {
	time.Time
}

// NewDate builds a Date from its parts.
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return Date{Time: t}, nil
}

// String returns the YYYY-MM-DD form.
func (d Date) String() string {
	return d.Format(DateLayout)
}

// Before reports whether d is an earlier day than o.
func (d Date) Before(o Date) bool { return d.Time.Before(o.Time) }

// After reports whether d is a later day than o.
func (d Date) After(o Date) bool { return d.Time.After(o.Time) }

// Equal reports whether d and o are the same day.
func (d Date) Equal(o Date) bool { return d.Time.Equal(o.Time) }

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

type User struct {
	ID           int64  `json:"id" db:"id"`
	Email        string `json:"email" db:"email"`
	PasswordHash string `json:"-" db:"password_hash"`
	Updated      int64  `json:"updated" db:"updated"`
}

// Profile is keyed by the owning user's id.
type Profile struct {
	UserID     int64  `json:"id" db:"user_id"`
	GivenName  string `json:"given_name" db:"given_name"`
	FamilyName string `json:"family_name" db:"family_name"`
	Updated    int64  `json:"updated" db:"updated"`
}

// Job is an employer or project that shifts are recorded against.
type Job struct {
	ID      int64  `json:"id" db:"id"`
	UserID  int64  `json:"user_id" db:"user_id"`
	Name    string `json:"name" db:"name"`
	Created int64  `json:"created" db:"created"`
}

// Shift is one worked interval on a given day. Hours is derived from Start
// and End and must never be set independently of them.
type Shift struct {
	ID      int64       `json:"id" db:"id"`
	UserID  int64       `json:"user_id" db:"user_id"`
	JobID   int64       `json:"job_id" db:"job_id"`
	Date    Date        `json:"date" db:"date"`
	Start   string      `json:"start" db:"start_time"`
	End     string      `json:"end" db:"end_time"`
	Hours   hours.Hours `json:"hours" db:"hours"`
	Note    *string     `json:"note,omitempty" db:"note"`
	Created int64       `json:"created" db:"created"`
}

// NoteText returns the note or the empty string.
func (s Shift) NoteText() string {
	if s.Note == nil {
		return ""
	}
	return *s.Note
}

// Task is a unit of background work persisted in the tasks table.
type Task struct {
	ID          int64           `json:"id"`
	Type        string          `json:"type"`
	Payload     json.RawMessage `json:"payload"`
	Status      string          `json:"status"`
	Attempts    int             `json:"attempts"`
	MaxAttempts int             `json:"max_attempts"`
	Priority    int             `json:"priority"`
	ScheduledAt time.Time       `json:"scheduled_at"`
	NextTryAt   *time.Time      `json:"next_try_at,omitempty"`
	LastError   string          `json:"last_error,omitempty"`
	Created     time.Time       `json:"created"`
	Updated     time.Time       `json:"updated"`
}
