// Package logging constructs the gateway's zerolog logger. There is no
// package-level global: every component that logs receives a
// zerolog.Logger through its constructor.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// New builds a zerolog.Logger writing to out at the given level.
// An unrecognized level falls back to info.
func New(out io.Writer, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(out).Level(lvl).With().Timestamp().Logger()
}

// NewDefault builds a logger writing to stderr at info level, for
// callers that haven't loaded config yet (e.g. startup failures).
func NewDefault() zerolog.Logger {
	return New(os.Stderr, "info")
}
