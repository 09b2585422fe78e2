package model

import (
	"strings"
	"time"

	errx "github.com/doctor-appointment-agent/server/internal/core/error"
)

// Role is the caller's capability class.
type Role string

const (
	RoleGuest Role = "guest"
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

func (r Role) String() string { return string(r) }

// ParseRole accepts the two persisted roles, ignoring case and surrounding space.
func ParseRole(v string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(v))) {
	case RoleUser:
		return RoleUser, nil
	case RoleAdmin:
		return RoleAdmin, nil
	}
	return "", errx.Validation("role must be %q or %q, got %q", RoleAdmin, RoleUser, v)
}

type AppointmentStatus string

const (
	StatusBooked    AppointmentStatus = "Booked"
	StatusCompleted AppointmentStatus = "Completed"
	StatusCancelled AppointmentStatus = "Cancelled"
)

// ParseAppointmentStatus matches one of the known statuses case-insensitively.
func ParseAppointmentStatus(v string) (AppointmentStatus, error) {
	for _, s := range []AppointmentStatus{StatusBooked, StatusCompleted, StatusCancelled} {
		if strings.EqualFold(strings.TrimSpace(v), string(s)) {
			return s, nil
		}
	}
	return "", errx.Validation("status must be one of Booked, Completed, Cancelled, got %q", v)
}

// User is an account that can sign in. Username is stored lower-cased.
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"size:64;not null;uniqueIndex" json:"username"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	Role         Role      `gorm:"size:16;not null" json:"role"`
	Email        string    `gorm:"size:255;not null;uniqueIndex" json:"email"`
	CreatedAt    time.Time `json:"created_at"`
}

type Doctor struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:128;not null" json:"name"`
	Specialty string    `gorm:"size:128;not null" json:"specialty"`
	Available bool      `gorm:"not null" json:"available"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Appointment links a patient (User) to a Doctor at ScheduledAt.
// SendNotification is the patient's consent; NotificationDelivered records
// whether the relay accepted the message.
type Appointment struct {
	ID                      uint              `gorm:"primaryKey" json:"id"`
	DoctorID                uint              `gorm:"not null;index" json:"doctor_id"`
	Doctor                  *Doctor           `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"-"`
	UserID                  uint              `gorm:"not null;index" json:"user_id"`
	User                    *User             `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	PatientName             string            `gorm:"size:64;not null" json:"patient_name"`
	PatientEmail            string            `gorm:"size:255;not null" json:"patient_email"`
	ScheduledAt             time.Time         `gorm:"not null;index" json:"scheduled_at"`
	Status                  AppointmentStatus `gorm:"size:16;not null;index" json:"status"`
	SendNotification        bool              `gorm:"not null" json:"send_notification"`
	NotificationDelivered   bool              `gorm:"not null" json:"notification_delivered"`
	NotificationAttemptedAt *time.Time        `json:"notification_attempted_at,omitempty"`
	CreatedAt               time.Time         `json:"created_at"`
	UpdatedAt               time.Time         `json:"updated_at"`
}

const (
	DateLayout     = "2006-01-02"
	TimeLayout     = "15:04"
	DateTimeLayout = DateLayout + " " + TimeLayout
)

// Date renders the appointment day as YYYY-MM-DD.
func (a *Appointment) Date() string { return a.ScheduledAt.Format(DateLayout) }

// Time renders the appointment clock time as HH:MM.
func (a *Appointment) Time() string { return a.ScheduledAt.Format(TimeLayout) }

// NewUser carries sign-up input. Password is plaintext and never persisted.
type NewUser struct {
	Username string
	Password string
	Role     string
	Email    string
}

// Normalize validates the input and returns the canonical username, role and email.
func (n NewUser) Normalize() (username string, role Role, email string, err error) {
	username = strings.ToLower(strings.TrimSpace(n.Username))
	if username == "" {
		return "", "", "", errx.Validation("username is required")
	}
	if n.Password == "" {
		return "", "", "", errx.Validation("password is required")
	}
	role, err = ParseRole(n.Role)
	if err != nil {
		return "", "", "", err
	}
	email = strings.ToLower(strings.TrimSpace(n.Email))
	if !strings.Contains(email, "@") {
		return "", "", "", errx.Validation("email %q is not a valid address", n.Email)
	}
	return username, role, email, nil
}

type NewDoctor struct {
	Name      string
	Specialty string
	Available bool
}

func (n NewDoctor) Validate() error {
	if strings.TrimSpace(n.Name) == "" {
		return errx.Validation("doctor name is required")
	}
	if strings.TrimSpace(n.Specialty) == "" {
		return errx.Validation("doctor specialty is required")
	}
	return nil
}

// DoctorPatch holds the fields of an update; nil fields are left untouched.
type DoctorPatch struct {
	Name      *string
	Specialty *string
	Available *bool
}

func (p DoctorPatch) Empty() bool {
	return p.Name == nil && p.Specialty == nil && p.Available == nil
}

// Columns returns the supplied fields keyed by column name.
func (p DoctorPatch) Columns() map[string]any {
	cols := map[string]any{}
	if p.Name != nil {
		cols["name"] = *p.Name
	}
	if p.Specialty != nil {
		cols["specialty"] = *p.Specialty
	}
	if p.Available != nil {
		cols["available"] = *p.Available
	}
	return cols
}

func (p DoctorPatch) Apply(d *Doctor) {
	if p.Name != nil {
		d.Name = *p.Name
	}
	if p.Specialty != nil {
		d.Specialty = *p.Specialty
	}
	if p.Available != nil {
		d.Available = *p.Available
	}
}

// NewAppointment is the persisted form of a booking request.
type NewAppointment struct {
	DoctorID     uint
	UserID       uint
	PatientName  string
	PatientEmail string
	ScheduledAt  time.Time
}

// AppointmentPatch holds the fields of an update; nil fields are left untouched.
type AppointmentPatch struct {
	Status                  *AppointmentStatus
	ScheduledAt             *time.Time
	SendNotification        *bool
	NotificationDelivered   *bool
	NotificationAttemptedAt *time.Time
}

func (p AppointmentPatch) Empty() bool {
	return p.Status == nil && p.ScheduledAt == nil && p.SendNotification == nil &&
		p.NotificationDelivered == nil && p.NotificationAttemptedAt == nil
}

func (p AppointmentPatch) Columns() map[string]any {
	cols := map[string]any{}
	if p.Status != nil {
		cols["status"] = *p.Status
	}
	if p.ScheduledAt != nil {
		cols["scheduled_at"] = *p.ScheduledAt
	}
	if p.SendNotification != nil {
		cols["send_notification"] = *p.SendNotification
	}
	if p.NotificationDelivered != nil {
		cols["notification_delivered"] = *p.NotificationDelivered
	}
	if p.NotificationAttemptedAt != nil {
		cols["notification_attempted_at"] = *p.NotificationAttemptedAt
	}
	return cols
}

func (p AppointmentPatch) Apply(a *Appointment) {
	if p.Status != nil {
		a.Status = *p.Status
	}
	if p.ScheduledAt != nil {
		a.ScheduledAt = *p.ScheduledAt
	}
	if p.SendNotification != nil {
		a.SendNotification = *p.SendNotification
	}
	if p.NotificationDelivered != nil {
		a.NotificationDelivered = *p.NotificationDelivered
	}
	if p.NotificationAttemptedAt != nil {
		t := *p.NotificationAttemptedAt
		a.NotificationAttemptedAt = &t
	}
}

// AppointmentFilter narrows ListAppointments. Zero fields match everything.
type AppointmentFilter struct {
	UserID   uint
	DoctorID uint
	Status   AppointmentStatus
	// Unconfirmed keeps Booked appointments whose notification was never approved.
	Unconfirmed bool
}

// Match reports whether a satisfies the filter.
func (f AppointmentFilter) Match(a *Appointment) bool {
	if f.UserID != 0 && a.UserID != f.UserID {
		return false
	}
	if f.DoctorID != 0 && a.DoctorID != f.DoctorID {
		return false
	}
	if f.Status != "" && a.Status != f.Status {
		return false
	}
	if f.Unconfirmed && (a.Status != StatusBooked || a.SendNotification) {
		return false
	}
	return true
}
