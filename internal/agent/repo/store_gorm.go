package repo

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/doctor-appointment-agent/server/internal/agent/model"
	errx "github.com/doctor-appointment-agent/server/internal/core/error"
	"github.com/doctor-appointment-agent/server/pkg/database"
	logx "github.com/doctor-appointment-agent/server/pkg/logger"
)

// GormStore is the relational Store. Each mutation runs in its own short
// transaction and returns the row as committed.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Close() error {
	return database.Close(s.db)
}

// ================ Users ================

func (s *GormStore) CreateUser(ctx context.Context, in model.NewUser) (*model.User, error) {
	username, role, email, err := in.Normalize()
	if err != nil {
		return nil, err
	}
	hash, err := hashPassword(in.Password)
	if err != nil {
		return nil, errx.Internal(err, errx.SystemErrorMessage)
	}

	u := &model.User{Username: username, PasswordHash: hash, Role: role, Email: email}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&model.User{}).Where("username = ?", username).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return errx.Validation("username %q is already taken", username)
		}
		if err := tx.Model(&model.User{}).Where("email = ?", email).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return errx.Validation("email %q is already registered", email)
		}
		return tx.Create(u).Error
	})
	if err != nil {
		return nil, errx.WrapGorm(err, "user", username)
	}

	logx.Info().Uint("user_id", u.ID).Str("role", string(u.Role)).Msg("user created")
	return u, nil
}

func (s *GormStore) GetUser(ctx context.Context, id uint) (*model.User, error) {
	var u model.User
	if err := s.db.WithContext(ctx).First(&u, id).Error; err != nil {
		return nil, errx.WrapGorm(err, "user", id)
	}
	return &u, nil
}

func (s *GormStore) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	var u model.User
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&u).Error; err != nil {
		return nil, errx.WrapGorm(err, "user", username)
	}
	return &u, nil
}

func (s *GormStore) ListUsers(ctx context.Context) ([]model.User, error) {
	var users []model.User
	if err := s.db.WithContext(ctx).Order("id").Find(&users).Error; err != nil {
		return nil, errx.WrapGorm(err, "user", "*")
	}
	return users, nil
}

func (s *GormStore) DeleteUser(ctx context.Context, id uint) (bool, error) {
	res := s.db.WithContext(ctx).Delete(&model.User{}, id)
	if res.Error != nil {
		return false, errx.WrapGorm(res.Error, "user", id)
	}
	return res.RowsAffected > 0, nil
}

func (s *GormStore) Authenticate(ctx context.Context, username, password string) (*model.User, bool, error) {
	u, err := s.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, errx.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, err
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

// ================ Doctors ================

func (s *GormStore) CreateDoctor(ctx context.Context, in model.NewDoctor) (*model.Doctor, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	d := &model.Doctor{
		Name:      strings.TrimSpace(in.Name),
		Specialty: strings.TrimSpace(in.Specialty),
		Available: in.Available,
	}
	if err := s.db.WithContext(ctx).Create(d).Error; err != nil {
		return nil, errx.WrapGorm(err, "doctor", d.Name)
	}
	return d, nil
}

func (s *GormStore) GetDoctor(ctx context.Context, id uint) (*model.Doctor, error) {
	var d model.Doctor
	if err := s.db.WithContext(ctx).First(&d, id).Error; err != nil {
		return nil, errx.WrapGorm(err, "doctor", id)
	}
	return &d, nil
}

func (s *GormStore) ListDoctors(ctx context.Context) ([]model.Doctor, error) {
	var doctors []model.Doctor
	if err := s.db.WithContext(ctx).Order("id").Find(&doctors).Error; err != nil {
		return nil, errx.WrapGorm(err, "doctor", "*")
	}
	return doctors, nil
}

func (s *GormStore) UpdateDoctor(ctx context.Context, id uint, patch model.DoctorPatch) (*model.Doctor, error) {
	var d model.Doctor
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&d, id).Error; err != nil {
			return err
		}
		if patch.Empty() {
			return nil
		}
		if err := tx.Model(&d).Updates(patch.Columns()).Error; err != nil {
			return err
		}
		return tx.First(&d, id).Error
	})
	if err != nil {
		return nil, errx.WrapGorm(err, "doctor", id)
	}
	return &d, nil
}

// DeleteDoctor fails with a conflict while appointments still reference the doctor.
func (s *GormStore) DeleteDoctor(ctx context.Context, id uint) (bool, error) {
	res := s.db.WithContext(ctx).Delete(&model.Doctor{}, id)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrForeignKeyViolated) {
			return false, errx.Conflict("doctor %d still has appointments", id)
		}
		return false, errx.WrapGorm(res.Error, "doctor", id)
	}
	return res.RowsAffected > 0, nil
}

// ================ Appointments ================

func (s *GormStore) CreateAppointment(ctx context.Context, in model.NewAppointment) (*model.Appointment, error) {
	a := &model.Appointment{
		DoctorID:     in.DoctorID,
		UserID:       in.UserID,
		PatientName:  in.PatientName,
		PatientEmail: in.PatientEmail,
		ScheduledAt:  in.ScheduledAt,
		Status:       model.StatusBooked,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Select("id").First(&model.Doctor{}, in.DoctorID).Error; err != nil {
			return errx.WrapGorm(err, "doctor", in.DoctorID)
		}
		if err := tx.Select("id").First(&model.User{}, in.UserID).Error; err != nil {
			return errx.WrapGorm(err, "user", in.UserID)
		}
		return tx.Omit(clause.Associations).Create(a).Error
	})
	if err != nil {
		return nil, errx.WrapGorm(err, "appointment", "new")
	}
	return a, nil
}

func (s *GormStore) GetAppointment(ctx context.Context, id uint) (*model.Appointment, error) {
	var a model.Appointment
	if err := s.db.WithContext(ctx).First(&a, id).Error; err != nil {
		return nil, errx.WrapGorm(err, "appointment", id)
	}
	return &a, nil
}

func (s *GormStore) ListAppointments(ctx context.Context, f model.AppointmentFilter) ([]model.Appointment, error) {
	q := s.db.WithContext(ctx).Model(&model.Appointment{})
	if f.UserID != 0 {
		q = q.Where("user_id = ?", f.UserID)
	}
	if f.DoctorID != 0 {
		q = q.Where("doctor_id = ?", f.DoctorID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Unconfirmed {
		q = q.Where("status = ? AND send_notification = ?", model.StatusBooked, false)
	}

	var out []model.Appointment
	if err := q.Order("scheduled_at, id").Find(&out).Error; err != nil {
		return nil, errx.WrapGorm(err, "appointment", "*")
	}
	return out, nil
}

func (s *GormStore) UpdateAppointment(ctx context.Context, id uint, patch model.AppointmentPatch) (*model.Appointment, error) {
	var a model.Appointment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&a, id).Error; err != nil {
			return err
		}
		if patch.Empty() {
			return nil
		}
		if err := tx.Model(&a).Omit(clause.Associations).Updates(patch.Columns()).Error; err != nil {
			return err
		}
		return tx.First(&a, id).Error
	})
	if err != nil {
		return nil, errx.WrapGorm(err, "appointment", id)
	}
	return &a, nil
}

func (s *GormStore) DeleteAppointment(ctx context.Context, id uint) (bool, error) {
	res := s.db.WithContext(ctx).Delete(&model.Appointment{}, id)
	if res.Error != nil {
		return false, errx.WrapGorm(res.Error, "appointment", id)
	}
	return res.RowsAffected > 0, nil
}

var _ model.Store = (*GormStore)(nil)
