// Package logging builds the process logger.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New returns a human-readable console logger in development and a JSON
// logger otherwise.
func New(development bool) zerolog.Logger {
	return newWithWriter(os.Stdout, development, !isTerminal(os.Stdout))
}

func newWithWriter(w io.Writer, development, noColor bool) zerolog.Logger {
	if development {
		return zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339, NoColor: noColor}).
			With().
			Timestamp().
			Logger()
	}
	return zerolog.New(w).
		With().
		Timestamp().
		Logger()
}

// isTerminal reports whether f is a character device.
func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
