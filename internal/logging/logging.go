// Package logging builds the diagnostic logger used outside timed regions.
package logging

import (
	"io"
	"log"

	"gopkg.in/natefinch/lumberjack.v2"
)

// New returns a logger writing to a size-rotated file at path. When path is
// empty the logger discards everything, so callers can log unconditionally.
func New(path string) *log.Logger {
	if path == "" {
		return log.New(io.Discard, "", 0)
	}

	return log.New(&lumberjack.Logger{
		Filename:   path,
		MaxSize:    5, // megabytes
		MaxBackups: 3,
	}, "gobench ", log.LstdFlags|log.Lmsgprefix)
}
