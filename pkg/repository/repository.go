package repository

import (
	"context"
	"errors"

	"github.com/garnizeh/timesheet/internal/models"
)

// Repository interfaces for domain entities. These are the public contracts
// consumers should depend on; concrete implementations live under internal/.
//
// Every method that touches jobs, shifts or profiles takes the owning user id
// and only ever sees that user's rows. Lookups of missing rows return nil, nil.

type UserRepo interface {
	CreateUser(ctx context.Context, u *models.User) (int64, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}

type ProfileRepo interface {
	GetProfile(ctx context.Context, userID int64) (*models.Profile, error)
	UpsertProfile(ctx context.Context, p *models.Profile) error
}

// JobOrder selects the ordering of ListJobs.
type JobOrder int

const (
	JobsByName JobOrder = iota
	JobsNewestFirst
)

type JobRepo interface {
	CreateJob(ctx context.Context, j *models.Job) (int64, error)
	GetJob(ctx context.Context, userID, id int64) (*models.Job, error)
	ListJobs(ctx context.Context, userID int64, order JobOrder) ([]models.Job, error)
	// RenameJob and DeleteJob report whether a row owned by userID was affected.
	RenameJob(ctx context.Context, userID, id int64, name string) (bool, error)
	// DeleteJob removes the job together with all of its shifts.
	DeleteJob(ctx context.Context, userID, id int64) (bool, error)
}

type ShiftRepo interface {
	CreateShift(ctx context.Context, s *models.Shift) (int64, error)
	GetShift(ctx context.Context, userID, id int64) (*models.Shift, error)
	// ListShifts returns shifts dated within [from, to], ascending by date then
	// id. A nil jobID lists every job of the user.
	ListShifts(ctx context.Context, userID int64, from, to models.Date, jobID *int64) ([]models.Shift, error)
	UpdateShift(ctx context.Context, s *models.Shift) (bool, error)
	DeleteShift(ctx context.Context, userID, id int64) (bool, error)
}

// Store groups every repository the service needs.
type Store interface {
	UserRepo
	ProfileRepo
	JobRepo
	ShiftRepo
}

// ErrDuplicate is returned when a write would violate a uniqueness rule,
// e.g. registering an email twice.
var ErrDuplicate = errors.New("duplicate record")
