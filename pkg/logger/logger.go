// Package logger configures the process-wide zerolog logger.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

// New builds a logger writing to w at the given level. Unknown levels fall
// back to info.
func New(w io.Writer, level, format, service string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}

	if strings.EqualFold(format, FormatConsole) {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}

	return zerolog.New(w).
		Level(lvl).
		With().
		Timestamp().
		Str("service", service).
		Logger()
}

// Setup installs the logger as the zerolog global and returns it.
func Setup(level, format, service string) zerolog.Logger {
	l := New(os.Stderr, level, format, service)
	zerolog.TimeFieldFormat = time.RFC3339Nano
	log.Logger = l
	return l
}
