package repo

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/doctor-appointment-agent/server/internal/agent/model"
	errx "github.com/doctor-appointment-agent/server/internal/core/error"
	"github.com/doctor-appointment-agent/server/pkg/database"
)

func newMockStore(t *testing.T) (*GormStore, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		TranslateError:         true,
		SkipDefaultTransaction: true,
		Logger:                 database.NewLogger("silent"),
	})
	require.NoError(t, err)
	return NewGormStore(db), mock
}

func TestGormStoreGetDoctorNotFound(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(`SELECT \* FROM "doctors"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "specialty", "available"}))

	_, err := s.GetDoctor(context.Background(), 7)
	assert.ErrorIs(t, err, errx.ErrNotFound)
	assert.Equal(t, "doctor 7 not found", errx.PublicMessage(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStoreDeleteDoctorStillReferenced(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec(`DELETE FROM "doctors"`).
		WillReturnError(&pgconn.PgError{Code: "23503", Message: "violates foreign key constraint"})

	ok, err := s.DeleteDoctor(context.Background(), 7)
	assert.False(t, ok)
	assert.ErrorIs(t, err, errx.ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStoreCreateAppointmentMissingDoctor(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT "id" FROM "doctors"`).WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	_, err := s.CreateAppointment(context.Background(), model.NewAppointment{DoctorID: 9, UserID: 1})
	assert.ErrorIs(t, err, errx.ErrNotFound)
	assert.NotErrorIs(t, err, errx.ErrConflict)
	assert.Equal(t, "doctor 9 not found", errx.PublicMessage(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStoreDeleteDoctorMissing(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec(`DELETE FROM "doctors"`).WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := s.DeleteDoctor(context.Background(), 7)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStoreCreateUserUniqueViolation(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT count\(\*\) FROM "users"`).WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(`SELECT count\(\*\) FROM "users"`).WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(`INSERT INTO "users"`).WillReturnError(&pgconn.PgError{Code: "23505"})
	mock.ExpectRollback()

	_, err := s.CreateUser(context.Background(), model.NewUser{Username: "alice", Password: "pw1", Role: "user", Email: "a@x.com"})
	assert.ErrorIs(t, err, errx.ErrValidation)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStoreCreateUserTakenUsername(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT count\(\*\) FROM "users"`).WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectRollback()

	_, err := s.CreateUser(context.Background(), model.NewUser{Username: "Alice", Password: "pw2", Role: "user", Email: "b@y.com"})
	assert.ErrorIs(t, err, errx.ErrValidation)
	assert.Contains(t, errx.PublicMessage(err), `"alice" is already taken`)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStoreListFailureIsInternal(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(`SELECT \* FROM "doctors"`).WillReturnError(errors.New("connection reset by peer"))

	_, err := s.ListDoctors(context.Background())
	require.Error(t, err)
	assert.Equal(t, errx.KindInternal, errx.KindOf(err))
	assert.Equal(t, errx.SystemErrorMessage, errx.PublicMessage(err))
}
