package mock

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/garnizeh/timesheet/internal/models"
	"github.com/garnizeh/timesheet/pkg/repository"
)

// Store is an in-memory repository.Store for tests. Set Err to make every
// call fail with it.
type Store struct {
	mu       sync.Mutex
	nextID   int64
	Users    map[int64]*models.User
	Profiles map[int64]*models.Profile
	Jobs     map[int64]*models.Job
	Shifts   map[int64]*models.Shift
	Err      error
}

var _ repository.Store = (*Store)(nil)

func NewStore() *Store {
	return &Store{
		Users:    map[int64]*models.User{},
		Profiles: map[int64]*models.Profile{},
		Jobs:     map[int64]*models.Job{},
		Shifts:   map[int64]*models.Shift{},
	}
}

func (m *Store) id() int64 {
	m.nextID++
	return m.nextID
}

func stamp() int64 { return time.Now().UTC().UnixMilli() }

func (m *Store) CreateUser(ctx context.Context, u *models.User) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return 0, m.Err
	}
	email := strings.ToLower(strings.TrimSpace(u.Email))
	for _, existing := range m.Users {
		if existing.Email == email {
			return 0, repository.ErrDuplicate
		}
	}
	id := m.id()
	m.Users[id] = &models.User{ID: id, Email: email, PasswordHash: u.PasswordHash, Updated: stamp()}
	return id, nil
}

func (m *Store) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	if u, ok := m.Users[id]; ok {
		c := *u
		return &c, nil
	}
	return nil, nil
}

func (m *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range m.Users {
		if u.Email == email {
			c := *u
			return &c, nil
		}
	}
	return nil, nil
}

func (m *Store) GetProfile(ctx context.Context, userID int64) (*models.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	if p, ok := m.Profiles[userID]; ok {
		c := *p
		return &c, nil
	}
	return nil, nil
}

func (m *Store) UpsertProfile(ctx context.Context, p *models.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	p.Updated = stamp()
	c := *p
	m.Profiles[p.UserID] = &c
	return nil
}

func (m *Store) CreateJob(ctx context.Context, j *models.Job) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return 0, m.Err
	}
	id := m.id()
	j.Created = stamp()
	c := *j
	c.ID = id
	m.Jobs[id] = &c
	return id, nil
}

func (m *Store) GetJob(ctx context.Context, userID, id int64) (*models.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	if j, ok := m.Jobs[id]; ok && j.UserID == userID {
		c := *j
		return &c, nil
	}
	return nil, nil
}

func (m *Store) ListJobs(ctx context.Context, userID int64, order repository.JobOrder) ([]models.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	out := []models.Job{}
	for _, j := range m.Jobs {
		if j.UserID == userID {
			out = append(out, *j)
		}
	}
	sort.Slice(out, func(a, b int) bool {
		if order == repository.JobsNewestFirst {
			if out[a].Created != out[b].Created {
				return out[a].Created > out[b].Created
			}
			return out[a].ID > out[b].ID
		}
		na, nb := strings.ToLower(out[a].Name), strings.ToLower(out[b].Name)
		if na != nb {
			return na < nb
		}
		return out[a].ID < out[b].ID
	})
	return out, nil
}

func (m *Store) RenameJob(ctx context.Context, userID, id int64, name string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return false, m.Err
	}
	j, ok := m.Jobs[id]
	if !ok || j.UserID != userID {
		return false, nil
	}
	j.Name = name
	return true, nil
}

func (m *Store) DeleteJob(ctx context.Context, userID, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return false, m.Err
	}
	j, ok := m.Jobs[id]
	if !ok || j.UserID != userID {
		return false, nil
	}
	delete(m.Jobs, id)
	for sid, s := range m.Shifts {
		if s.JobID == id {
			delete(m.Shifts, sid)
		}
	}
	return true, nil
}

func (m *Store) CreateShift(ctx context.Context, s *models.Shift) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return 0, m.Err
	}
	id := m.id()
	s.Created = stamp()
	c := cloneShift(*s)
	c.ID = id
	m.Shifts[id] = &c
	return id, nil
}

func (m *Store) GetShift(ctx context.Context, userID, id int64) (*models.Shift, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	if s, ok := m.Shifts[id]; ok && s.UserID == userID {
		c := cloneShift(*s)
		return &c, nil
	}
	return nil, nil
}

func (m *Store) ListShifts(ctx context.Context, userID int64, from, to models.Date, jobID *int64) ([]models.Shift, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	out := []models.Shift{}
	for _, s := range m.Shifts {
		if s.UserID != userID || s.Date.Before(from) || s.Date.After(to) {
			continue
		}
		if jobID != nil && s.JobID != *jobID {
			continue
		}
		out = append(out, cloneShift(*s))
	}
	sort.Slice(out, func(a, b int) bool {
		if !out[a].Date.Equal(out[b].Date) {
			return out[a].Date.Before(out[b].Date)
		}
		return out[a].ID < out[b].ID
	})
	return out, nil
}

func (m *Store) UpdateShift(ctx context.Context, s *models.Shift) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return false, m.Err
	}
	existing, ok := m.Shifts[s.ID]
	if !ok || existing.UserID != s.UserID {
		return false, nil
	}
	c := cloneShift(*s)
	c.Created = existing.Created
	m.Shifts[s.ID] = &c
	return true, nil
}

func (m *Store) DeleteShift(ctx context.Context, userID, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return false, m.Err
	}
	s, ok := m.Shifts[id]
	if !ok || s.UserID != userID {
		return false, nil
	}
	delete(m.Shifts, id)
	return true, nil
}

func cloneShift(s models.Shift) models.Shift {
	if s.Note != nil {
		n := *s.Note
		s.Note = &n
	}
	return s
}
