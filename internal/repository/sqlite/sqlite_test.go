package sqlite_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	dbfs "github.com/garnizeh/timesheet/db"
	dbpkg "github.com/garnizeh/timesheet/internal/db"
	"github.com/garnizeh/timesheet/internal/hours"
	"github.com/garnizeh/timesheet/internal/models"
	sqlite "github.com/garnizeh/timesheet/internal/repository/sqlite"
	"github.com/garnizeh/timesheet/pkg/repository"
)

func setupRepo(t *testing.T) (*sqlite.SQLiteRepo, func()) {
	t.Helper()
	ctx := context.Background()
	d, err := dbpkg.New(ctx, filepath.Join(t.TempDir(), "test.db"), nil)
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}

	if err := dbpkg.Migrate(ctx, d, dbfs.Migrations); err != nil {
		d.Close()
		t.Fatalf("failed to migrate: %v", err)
	}

	repo := sqlite.New(d, nil)
	return repo, func() { d.Close() }
}

func mustUser(t *testing.T, repo *sqlite.SQLiteRepo, email string) int64 {
	t.Helper()
	id, err := repo.CreateUser(context.Background(), &models.User{Email: email, PasswordHash: "hash"})
	if err != nil {
		t.Fatalf("CreateUser error: %v", err)
	}
	return id
}

func mustJob(t *testing.T, repo *sqlite.SQLiteRepo, userID int64, name string) int64 {
	t.Helper()
	id, err := repo.CreateJob(context.Background(), &models.Job{UserID: userID, Name: name})
	if err != nil {
		t.Fatalf("CreateJob error: %v", err)
	}
	return id
}

func newShift(userID, jobID int64, date, start, end string) *models.Shift {
	d, err := models.ParseDate(date)
	if err != nil {
		panic(err)
	}
	return &models.Shift{UserID: userID, JobID: jobID, Date: d, Start: start, End: end, Hours: hours.Compute(start, end)}
}

func TestUserCRUD(t *testing.T) {
	repo, cleanup := setupRepo(t)
	defer cleanup()
	ctx := context.Background()

	if _, err := repo.CreateUser(ctx, nil); err == nil {
		t.Fatalf("expected error when creating nil user")
	}

	// Non-existing rows should return nil, nil
	got, err := repo.GetUserByID(ctx, 9999)
	if err != nil || got != nil {
		t.Fatalf("expected nil, nil for missing id, got %#v, %v", got, err)
	}
	got, err = repo.GetUserByEmail(ctx, "a@a.com")
	if err != nil || got != nil {
		t.Fatalf("expected nil, nil for missing email, got %#v, %v", got, err)
	}

	id, err := repo.CreateUser(ctx, &models.User{Email: " Alice@Example.com ", PasswordHash: "hash"})
	if err != nil {
		t.Fatalf("CreateUser error: %v", err)
	}
	if id == 0 {
		t.Fatalf("expected non-zero id")
	}

	got, err = repo.GetUserByID(ctx, id)
	if err != nil {
		t.Fatalf("GetUserByID error: %v", err)
	}
	if got == nil || got.Email != "alice@example.com" || got.PasswordHash != "hash" {
		t.Fatalf("GetUserByID wrong result: %#v", got)
	}

	byEmail, err := repo.GetUserByEmail(ctx, "ALICE@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail error: %v", err)
	}
	if byEmail == nil || byEmail.ID != id {
		t.Fatalf("GetUserByEmail wrong result: %#v", byEmail)
	}

	_, err = repo.CreateUser(ctx, &models.User{Email: "alice@example.com", PasswordHash: "x"})
	if !errors.Is(err, repository.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func TestProfileUpsert(t *testing.T) {
	repo, cleanup := setupRepo(t)
	defer cleanup()
	ctx := context.Background()

	uid := mustUser(t, repo, "bob@example.com")

	if err := repo.UpsertProfile(ctx, nil); err == nil {
		t.Fatalf("expected error when upserting nil profile")
	}

	got, err := repo.GetProfile(ctx, uid)
	if err != nil || got != nil {
		t.Fatalf("expected no profile yet, got %#v, %v", got, err)
	}

	if err := repo.UpsertProfile(ctx, &models.Profile{UserID: uid, GivenName: "Bob", FamilyName: "Rossi"}); err != nil {
		t.Fatalf("UpsertProfile insert error: %v", err)
	}
	if err := repo.UpsertProfile(ctx, &models.Profile{UserID: uid, GivenName: "Roberto", FamilyName: "Rossi"}); err != nil {
		t.Fatalf("UpsertProfile update error: %v", err)
	}

	got, err = repo.GetProfile(ctx, uid)
	if err != nil {
		t.Fatalf("GetProfile error: %v", err)
	}
	if got == nil || got.GivenName != "Roberto" || got.FamilyName != "Rossi" || got.Updated == 0 {
		t.Fatalf("GetProfile wrong: %#v", got)
	}
}

func TestJobs_OrderingAndOwnership(t *testing.T) {
	repo, cleanup := setupRepo(t)
	defer cleanup()
	ctx := context.Background()

	alice := mustUser(t, repo, "alice@example.com")
	bob := mustUser(t, repo, "bob@example.com")

	zeta := mustJob(t, repo, alice, "zeta")
	time.Sleep(2 * time.Millisecond)
	alpha := mustJob(t, repo, alice, "Alpha")
	bobJob := mustJob(t, repo, bob, "bob's job")

	byName, err := repo.ListJobs(ctx, alice, repository.JobsByName)
	if err != nil {
		t.Fatalf("ListJobs error: %v", err)
	}
	if len(byName) != 2 || byName[0].ID != alpha || byName[1].ID != zeta {
		t.Fatalf("unexpected name order: %#v", byName)
	}

	newest, err := repo.ListJobs(ctx, alice, repository.JobsNewestFirst)
	if err != nil {
		t.Fatalf("ListJobs error: %v", err)
	}
	if len(newest) != 2 || newest[0].ID != alpha {
		t.Fatalf("unexpected created order: %#v", newest)
	}

	if j, err := repo.GetJob(ctx, alice, bobJob); err != nil || j != nil {
		t.Fatalf("expected other user's job to be invisible, got %#v, %v", j, err)
	}

	ok, err := repo.RenameJob(ctx, alice, bobJob, "stolen")
	if err != nil || ok {
		t.Fatalf("expected rename of other user's job to affect nothing, got %v, %v", ok, err)
	}
	ok, err = repo.RenameJob(ctx, alice, zeta, "Omega")
	if err != nil || !ok {
		t.Fatalf("RenameJob: %v, %v", ok, err)
	}
	j, err := repo.GetJob(ctx, alice, zeta)
	if err != nil || j == nil || j.Name != "Omega" {
		t.Fatalf("GetJob after rename: %#v, %v", j, err)
	}

	empty, err := repo.ListJobs(ctx, 4242, repository.JobsByName)
	if err != nil || empty == nil || len(empty) != 0 {
		t.Fatalf("expected empty non-nil list, got %#v, %v", empty, err)
	}
}

func TestDeleteJob_CascadesToShifts(t *testing.T) {
	repo, cleanup := setupRepo(t)
	defer cleanup()
	ctx := context.Background()

	uid := mustUser(t, repo, "carol@example.com")
	keep := mustJob(t, repo, uid, "keep")
	drop := mustJob(t, repo, uid, "drop")

	for _, s := range []*models.Shift{
		newShift(uid, drop, "2024-03-01", "09:00", "17:00"),
		newShift(uid, drop, "2024-03-02", "09:00", "17:00"),
		newShift(uid, keep, "2024-03-02", "09:00", "12:00"),
	} {
		if _, err := repo.CreateShift(ctx, s); err != nil {
			t.Fatalf("CreateShift error: %v", err)
		}
	}

	other := mustUser(t, repo, "dave@example.com")
	if ok, err := repo.DeleteJob(ctx, other, drop); err != nil || ok {
		t.Fatalf("expected delete by other user to be a no-op, got %v, %v", ok, err)
	}

	ok, err := repo.DeleteJob(ctx, uid, drop)
	if err != nil || !ok {
		t.Fatalf("DeleteJob: %v, %v", ok, err)
	}

	from, _ := models.ParseDate("2024-03-01")
	to, _ := models.ParseDate("2024-03-31")
	left, err := repo.ListShifts(ctx, uid, from, to, nil)
	if err != nil {
		t.Fatalf("ListShifts error: %v", err)
	}
	if len(left) != 1 || left[0].JobID != keep {
		t.Fatalf("expected only the kept job's shift, got %#v", left)
	}
}

func TestShiftCRUD(t *testing.T) {
	repo, cleanup := setupRepo(t)
	defer cleanup()
	ctx := context.Background()

	uid := mustUser(t, repo, "erin@example.com")
	job := mustJob(t, repo, uid, "bar")

	if _, err := repo.CreateShift(ctx, nil); err == nil {
		t.Fatalf("expected error when creating nil shift")
	}

	note := "chiusura"
	s := newShift(uid, job, "2024-03-15", "13:00", "16:30")
	s.Note = &note
	id, err := repo.CreateShift(ctx, s)
	if err != nil {
		t.Fatalf("CreateShift error: %v", err)
	}

	got, err := repo.GetShift(ctx, uid, id)
	if err != nil {
		t.Fatalf("GetShift error: %v", err)
	}
	if got == nil || got.Hours.String() != "3.50" || got.NoteText() != "chiusura" || got.Date.String() != "2024-03-15" {
		t.Fatalf("GetShift wrong: %#v", got)
	}

	if other, err := repo.GetShift(ctx, uid+1, id); err != nil || other != nil {
		t.Fatalf("expected shift to be invisible to other users, got %#v, %v", other, err)
	}

	got.End = "18:00"
	got.Hours = hours.Compute(got.Start, got.End)
	got.Note = nil
	ok, err := repo.UpdateShift(ctx, got)
	if err != nil || !ok {
		t.Fatalf("UpdateShift: %v, %v", ok, err)
	}
	updated, err := repo.GetShift(ctx, uid, id)
	if err != nil {
		t.Fatalf("GetShift error: %v", err)
	}
	if updated.Hours.String() != "5.00" || updated.Note != nil {
		t.Fatalf("update not persisted: %#v", updated)
	}

	ok, err = repo.DeleteShift(ctx, uid, id)
	if err != nil || !ok {
		t.Fatalf("DeleteShift: %v, %v", ok, err)
	}
	ok, err = repo.DeleteShift(ctx, uid, id)
	if err != nil || ok {
		t.Fatalf("second delete should affect nothing, got %v, %v", ok, err)
	}
}

func TestListShifts_RangeAndJob(t *testing.T) {
	repo, cleanup := setupRepo(t)
	defer cleanup()
	ctx := context.Background()

	uid := mustUser(t, repo, "frank@example.com")
	a := mustJob(t, repo, uid, "a")
	b := mustJob(t, repo, uid, "b")

	for _, s := range []*models.Shift{
		newShift(uid, a, "2024-04-01", "09:00", "12:00"),
		newShift(uid, a, "2024-03-15", "13:00", "16:30"),
		newShift(uid, b, "2024-03-10", "08:00", "10:00"),
		newShift(uid, a, "2024-03-01", "09:00", "17:00"),
		newShift(uid, a, "2024-02-29", "09:00", "17:00"),
	} {
		if _, err := repo.CreateShift(ctx, s); err != nil {
			t.Fatalf("CreateShift error: %v", err)
		}
	}

	from, _ := models.ParseDate("2024-03-01")
	to, _ := models.ParseDate("2024-03-31")

	all, err := repo.ListShifts(ctx, uid, from, to, nil)
	if err != nil {
		t.Fatalf("ListShifts error: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 March shifts, got %d", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i].Date.Before(all[i-1].Date) {
			t.Fatalf("shifts not ascending by date: %v before %v", all[i-1].Date, all[i].Date)
		}
	}

	onlyA, err := repo.ListShifts(ctx, uid, from, to, &a)
	if err != nil {
		t.Fatalf("ListShifts error: %v", err)
	}
	var total hours.Hours
	for _, s := range onlyA {
		total += s.Hours
	}
	if len(onlyA) != 2 || total.String() != "11.50" {
		t.Fatalf("expected 2 shifts totalling 11.50, got %d / %s", len(onlyA), total)
	}
}
