package database

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm/logger"

	"github.com/doctor-appointment-agent/server/internal/core"
	logx "github.com/doctor-appointment-agent/server/pkg/logger"
)

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, logger.Silent, parseLogLevel("silent"))
	assert.Equal(t, logger.Error, parseLogLevel(" ERROR "))
	assert.Equal(t, logger.Info, parseLogLevel("info"))
	assert.Equal(t, logger.Warn, parseLogLevel(""))
	assert.Equal(t, logger.Warn, parseLogLevel("chatty"))
}

func TestGormLinesKeepTheirSeverity(t *testing.T) {
	var buf bytes.Buffer
	logx.Init(logx.LoggerOpts{Environment: core.Production, Output: &buf})
	t.Cleanup(func() { logx.Init() })

	const trace = "%s %s\n[%.3fms] [rows:%v] %s"
	w := zerologWriter{}

	w.Printf(trace, "store_gorm.go:40", errors.New("duplicate key value"), 1.5, 0, "INSERT INTO users")
	assert.Contains(t, buf.String(), `"level":"error"`)
	buf.Reset()

	w.Printf(trace, "store_gorm.go:140", "SLOW SQL >= 200ms", 250.0, 3, "SELECT * FROM doctors")
	assert.Contains(t, buf.String(), `"level":"warn"`)
	buf.Reset()

	w.Printf("%s\n[warn] "+"record not migrated", "database.go:50")
	assert.Contains(t, buf.String(), `"level":"warn"`)
	buf.Reset()

	w.Printf("%s\n[%.3fms] [rows:%v] %s", "store_gorm.go:140", 0.4, 1, "SELECT 1")
	assert.Empty(t, buf.String(), "statement traces stay at debug")
}
