package logx

import (
	"io"
	"os"
	"strings"

	"github.com/doctor-appointment-agent/server/internal/core"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var DefaultLoggerOpts = &LoggerOpts{
	Environment: core.Development,
}

type LoggerOpts struct {
	Environment core.Environment
	// Level is a zerolog level name; empty means debug outside production and info in production.
	Level string
	// Output overrides stdout/stderr, mostly for tests.
	Output io.Writer
}

func safe(otps ...LoggerOpts) *LoggerOpts {
	if len(otps) == 0 {
		return DefaultLoggerOpts
	}
	return &otps[0]
}

func Init(otps ...LoggerOpts) {
	o := safe(otps...)
	out := o.Output
	if o.Environment.IsProduction() {
		if out == nil {
			out = os.Stdout
		}
		log.Logger = zerolog.New(out).With().Timestamp().Str("service", "doctor-appointment-agent").Logger()
		log.Logger = log.Logger.Level(parseLevel(o.Level, zerolog.InfoLevel))
		return
	}
	if out == nil {
		out = os.Stderr
	}
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: out}).With().Timestamp().Caller().Logger()
	log.Logger = log.Logger.Level(parseLevel(o.Level, zerolog.DebugLevel))
}

func parseLevel(v string, fallback zerolog.Level) zerolog.Level {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(v)))
	if err != nil {
		return fallback
	}
	return lvl
}

func Debug() *zerolog.Event {
	return log.Debug()
}

func Info() *zerolog.Event {
	return log.Info()
}

func Warn() *zerolog.Event {
	return log.Warn()
}

func Error() *zerolog.Event {
	return log.Error()
}

// WithLevel starts an event at a level chosen at runtime.
func WithLevel(level zerolog.Level) *zerolog.Event {
	return log.WithLevel(level)
}

func Panic() *zerolog.Event {
	return log.Panic()
}

func Fatal() *zerolog.Event {
	return log.Fatal()
}
