// Package logging builds the zerolog loggers used across the service.
//
// Console output keeps a short timestamp for humans; the json format is
// meant for log shippers. Components derive a child logger with
// a "component" field via Component.
package logging

import (
	"io"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	gormlogger "gorm.io/gorm/logger"
)

const consoleTimeFormat = "2006-01-02T15:04:05.000Z07:00"

type Config struct {
	Level  string
	Format string
}

var setGlobals sync.Once

// NewWithWriter creates the root logger. The zerolog field settings are
// process-wide and applied on the first call only.
func NewWithWriter(cfg Config, out io.Writer) zerolog.Logger {
	setGlobals.Do(func() {
		zerolog.TimeFieldFormat = time.RFC3339Nano
		zerolog.ErrorFieldName = "err"
	})

	var w io.Writer = out
	if !strings.EqualFold(strings.TrimSpace(cfg.Format), "json") {
		w = zerolog.ConsoleWriter{Out: out, TimeFormat: consoleTimeFormat}
	}
	return zerolog.New(w).Level(ParseLevel(cfg.Level)).With().Timestamp().Logger()
}

// Component returns a child logger tagged with the component name.
func Component(l zerolog.Logger, name string) zerolog.Logger {
	return l.With().Str("component", name).Logger()
}

// ParseLevel maps a level name to zerolog, defaulting to info.
func ParseLevel(raw string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(raw)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

// GormLogger adapts a zerolog logger for gorm, keeping gorm's own
// slow-query threshold and record-not-found suppression.
func GormLogger(l zerolog.Logger) gormlogger.Interface {
	writer := log.New(Component(l, "gorm"), "", 0)
	return gormlogger.New(writer, gormlogger.Config{
		SlowThreshold:             time.Second,
		LogLevel:                  gormlogger.Warn,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}
