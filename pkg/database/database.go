package database

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/doctor-appointment-agent/server/internal/agent/model"
	logx "github.com/doctor-appointment-agent/server/pkg/logger"
)

// Config binds DATABASE_* variables.
type Config struct {
	URL             string        `split_words:"true"`
	MaxOpenConns    int           `split_words:"true" default:"10"`
	MaxIdleConns    int           `split_words:"true" default:"5"`
	ConnMaxLifetime time.Duration `split_words:"true" default:"30m"`
	ConnMaxIdleTime time.Duration `split_words:"true" default:"10m"`
	LogLevel        string        `split_words:"true" default:"warn"`
}

// New opens the Postgres connection pool. Constraint violations are
// translated to gorm.ErrDuplicatedKey / gorm.ErrForeignKeyViolated.
func (c *Config) New() (*gorm.DB, error) {
	if strings.TrimSpace(c.URL) == "" {
		return nil, errors.New("DATABASE_URL is required for the postgres store")
	}
	db, err := gorm.Open(postgres.Open(c.URL), &gorm.Config{
		PrepareStmt:    true,
		TranslateError: true,
		Logger:         NewLogger(c.LogLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(c.MaxOpenConns)
	sqlDB.SetMaxIdleConns(c.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(c.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(c.ConnMaxIdleTime)

	return db, nil
}

// Migrate creates or updates the users, doctors and appointments tables.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.User{},
		&model.Doctor{},
		&model.Appointment{},
	); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// Close releases the underlying pool.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// NewLogger routes gorm's SQL logging through zerolog.
func NewLogger(level string) logger.Interface {
	return logger.New(zerologWriter{}, logger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  parseLogLevel(level),
		IgnoreRecordNotFoundError: true,
	})
}

type zerologWriter struct{}

func (zerologWriter) Printf(format string, args ...any) {
	logx.WithLevel(gormLineLevel(format, args)).Str("component", "gorm").Msgf(format, args...)
}

// gormLineLevel recovers the severity of a gorm log line. Failed and slow
// statement traces share one format and differ by their second argument.
func gormLineLevel(format string, args []any) zerolog.Level {
	switch {
	case strings.Contains(format, "[error]"):
		return zerolog.ErrorLevel
	case strings.Contains(format, "[warn]"):
		return zerolog.WarnLevel
	case strings.Contains(format, "[info]"):
		return zerolog.InfoLevel
	}
	if len(args) > 1 {
		switch v := args[1].(type) {
		case error:
			return zerolog.ErrorLevel
		case string:
			if strings.HasPrefix(v, "SLOW SQL") {
				return zerolog.WarnLevel
			}
		}
	}
	return zerolog.DebugLevel
}

func parseLogLevel(v string) logger.LogLevel {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	default:
		return logger.Warn
	}
}
