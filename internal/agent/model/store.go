package model

import "context"

// UserRepository persists accounts. Lookups of missing rows return an
// errx not-found error.
type UserRepository interface {
	CreateUser(ctx context.Context, in NewUser) (*User, error)
	GetUser(ctx context.Context, id uint) (*User, error)
	GetUserByUsername(ctx context.Context, username string) (*User, error)
	ListUsers(ctx context.Context) ([]User, error)
	// DeleteUser reports false when no row matched.
	DeleteUser(ctx context.Context, id uint) (bool, error)
	// Authenticate returns ok=false on an unknown username or a wrong password.
	Authenticate(ctx context.Context, username, password string) (*User, bool, error)
}

type DoctorRepository interface {
	CreateDoctor(ctx context.Context, in NewDoctor) (*Doctor, error)
	GetDoctor(ctx context.Context, id uint) (*Doctor, error)
	ListDoctors(ctx context.Context) ([]Doctor, error)
	UpdateDoctor(ctx context.Context, id uint, patch DoctorPatch) (*Doctor, error)
	DeleteDoctor(ctx context.Context, id uint) (bool, error)
}

type AppointmentRepository interface {
	CreateAppointment(ctx context.Context, in NewAppointment) (*Appointment, error)
	GetAppointment(ctx context.Context, id uint) (*Appointment, error)
	ListAppointments(ctx context.Context, filter AppointmentFilter) ([]Appointment, error)
	UpdateAppointment(ctx context.Context, id uint, patch AppointmentPatch) (*Appointment, error)
	DeleteAppointment(ctx context.Context, id uint) (bool, error)
}

// Store is the durable record owner. Every mutation commits before returning.
type Store interface {
	UserRepository
	DoctorRepository
	AppointmentRepository
	Close() error
}
