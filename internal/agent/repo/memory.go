package repo

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/doctor-appointment-agent/server/internal/agent/model"
	errx "github.com/doctor-appointment-agent/server/internal/core/error"
)

// MemoryStore is a process-local Store with the same constraints as the
// relational one: unique username and email, doctor references restricted,
// user deletion cascading to appointments.
type MemoryStore struct {
	mu           sync.RWMutex
	now          func() time.Time
	users        map[uint]model.User
	doctors      map[uint]model.Doctor
	appointments map[uint]model.Appointment
	nextUser     uint
	nextDoctor   uint
	nextAppt     uint
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		now:          time.Now,
		users:        map[uint]model.User{},
		doctors:      map[uint]model.Doctor{},
		appointments: map[uint]model.Appointment{},
	}
}

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) CreateUser(_ context.Context, in model.NewUser) (*model.User, error) {
	username, role, email, err := in.Normalize()
	if err != nil {
		return nil, err
	}
	hash, err := hashPassword(in.Password)
	if err != nil {
		return nil, errx.Internal(err, errx.SystemErrorMessage)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == username {
			return nil, errx.Validation("username %q is already taken", username)
		}
		if u.Email == email {
			return nil, errx.Validation("email %q is already registered", email)
		}
	}
	s.nextUser++
	u := model.User{
		ID:           s.nextUser,
		Username:     username,
		PasswordHash: hash,
		Role:         role,
		Email:        email,
		CreatedAt:    s.now(),
	}
	s.users[u.ID] = u
	return &u, nil
}

func (s *MemoryStore) GetUser(_ context.Context, id uint) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, errx.NotFound("user", id)
	}
	return &u, nil
}

func (s *MemoryStore) GetUserByUsername(_ context.Context, username string) (*model.User, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, errx.NotFound("user", username)
}

func (s *MemoryStore) ListUsers(_ context.Context) ([]model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) DeleteUser(_ context.Context, id uint) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return false, nil
	}
	delete(s.users, id)
	for aid, a := range s.appointments {
		if a.UserID == id {
			delete(s.appointments, aid)
		}
	}
	return true, nil
}

func (s *MemoryStore) Authenticate(ctx context.Context, username, password string) (*model.User, bool, error) {
	u, err := s.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, false, nil
	}
	ok, err := passwordMatches(u.PasswordHash, password)
	if err != nil {
		return nil, false, errx.Internal(err, errx.SystemErrorMessage)
	}
	if !ok {
		return nil, false, nil
	}
	return u, true, nil
}

func (s *MemoryStore) CreateDoctor(_ context.Context, in model.NewDoctor) (*model.Doctor, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextDoctor++
	now := s.now()
	d := model.Doctor{
		ID:        s.nextDoctor,
		Name:      strings.TrimSpace(in.Name),
		Specialty: strings.TrimSpace(in.Specialty),
		Available: in.Available,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.doctors[d.ID] = d
	return &d, nil
}

func (s *MemoryStore) GetDoctor(_ context.Context, id uint) (*model.Doctor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.doctors[id]
	if !ok {
		return nil, errx.NotFound("doctor", id)
	}
	return &d, nil
}

func (s *MemoryStore) ListDoctors(_ context.Context) ([]model.Doctor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Doctor, 0, len(s.doctors))
	for _, d := range s.doctors {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) UpdateDoctor(_ context.Context, id uint, patch model.DoctorPatch) (*model.Doctor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.doctors[id]
	if !ok {
		return nil, errx.NotFound("doctor", id)
	}
	if !patch.Empty() {
		patch.Apply(&d)
		d.UpdatedAt = s.now()
		s.doctors[id] = d
	}
	return &d, nil
}

func (s *MemoryStore) DeleteDoctor(_ context.Context, id uint) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.doctors[id]; !ok {
		return false, nil
	}
	for _, a := range s.appointments {
		if a.DoctorID == id {
			return false, errx.Conflict("doctor %d still has appointments", id)
		}
	}
	delete(s.doctors, id)
	return true, nil
}

func (s *MemoryStore) CreateAppointment(_ context.Context, in model.NewAppointment) (*model.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.doctors[in.DoctorID]; !ok {
		return nil, errx.NotFound("doctor", in.DoctorID)
	}
	if _, ok := s.users[in.UserID]; !ok {
		return nil, errx.NotFound("user", in.UserID)
	}
	s.nextAppt++
	now := s.now()
	a := model.Appointment{
		ID:           s.nextAppt,
		DoctorID:     in.DoctorID,
		UserID:       in.UserID,
		PatientName:  in.PatientName,
		PatientEmail: in.PatientEmail,
		ScheduledAt:  in.ScheduledAt,
		Status:       model.StatusBooked,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.appointments[a.ID] = a
	return &a, nil
}

func (s *MemoryStore) GetAppointment(_ context.Context, id uint) (*model.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.appointments[id]
	if !ok {
		return nil, errx.NotFound("appointment", id)
	}
	return &a, nil
}

func (s *MemoryStore) ListAppointments(_ context.Context, f model.AppointmentFilter) ([]model.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Appointment, 0)
	for _, a := range s.appointments {
		if f.Match(&a) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ScheduledAt.Equal(out[j].ScheduledAt) {
			return out[i].ScheduledAt.Before(out[j].ScheduledAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *MemoryStore) UpdateAppointment(_ context.Context, id uint, patch model.AppointmentPatch) (*model.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.appointments[id]
	if !ok {
		return nil, errx.NotFound("appointment", id)
	}
	if !patch.Empty() {
		patch.Apply(&a)
		a.UpdatedAt = s.now()
		s.appointments[id] = a
	}
	return &a, nil
}

func (s *MemoryStore) DeleteAppointment(_ context.Context, id uint) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.appointments[id]; !ok {
		return false, nil
	}
	delete(s.appointments, id)
	return true, nil
}

var _ model.Store = (*MemoryStore)(nil)
