// Package j2klog provides the structured logging wrapper used by
// cmd/j2kcodec and, optionally, library callers that want encode/decode
// diagnostics: truncated codestreams, unknown markers, rate-control
// degradation.
//
// The library itself never logs to a process-global sink: every
// encoder/decoder call accepts a *Logger (nil is a valid no-op), so
// using the package as a library never forces file I/O or output
// ordering on an embedding application. Only cmd/j2kcodec wires a
// lumberjack-backed rotating file sink; a CLI owns its logging
// configuration, not the library packages it wraps.
package j2klog

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/google/uuid"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger wraps a standard *log.Logger with a correlation ID so every
// line from one encode/decode invocation can be joined back together
// in aggregated log output.
type Logger struct {
	std   *log.Logger
	runID string
}

// New wraps an arbitrary io.Writer (e.g. os.Stderr, or a discard
// writer for tests) as a Logger with a fresh correlation ID.
func New(w io.Writer) *Logger {
	if w == nil {
		w = io.Discard
	}
	return &Logger{
		std:   log.New(w, "", log.LstdFlags|log.Lmicroseconds),
		runID: uuid.NewString(),
	}
}

// Discard is a Logger that drops everything, used as the default when
// a caller passes nil.
func Discard() *Logger {
	return New(io.Discard)
}

// NewRotatingFile builds a Logger backed by a size- and age-rotated log
// file, the pattern cmd/j2kcodec's --log-file flag uses.
func NewRotatingFile(path string, maxSizeMB, maxBackups, maxAgeDays int) *Logger {
	return New(&lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
		MaxAge:     maxAgeDays,
		Compress:   true,
	})
}

// RunID returns this logger's correlation ID, suitable for attaching to
// a Metadata/warning record returned alongside it so a caller can join
// the two.
func (l *Logger) RunID() string {
	if l == nil {
		return ""
	}
	return l.runID
}

func (l *Logger) logf(level, format string, args ...any) {
	if l == nil || l.std == nil {
		return
	}
	l.std.Printf("%s run=%s %s", level, l.runID, fmt.Sprintf(format, args...))
}

// Info logs a normal operational event.
func (l *Logger) Info(format string, args ...any) { l.logf("INFO", format, args...) }

// Warn logs a recoverable condition — truncated codestream tolerated,
// an unknown marker skipped, a rate-control target that had to degrade.
func (l *Logger) Warn(format string, args ...any) { l.logf("WARN", format, args...) }

// Error logs a condition the caller is about to return as a hard error.
func (l *Logger) Error(format string, args ...any) { l.logf("ERROR", format, args...) }

// Default returns a Logger writing to os.Stderr, used by cmd/j2kcodec
// when no --log-file is given.
func Default() *Logger {
	return New(os.Stderr)
}
