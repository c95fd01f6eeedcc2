package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
)

// Logger writes timestamped, component-tagged lines to a run-scoped log
// file. When echo is enabled, warnings and errors are mirrored to stderr so
// interactive runs surface problems without the user tailing the file.
//
// All log methods write unconditionally; there is no level filtering. A run
// produces one file, shared by every component logger derived from the root.
type Logger struct {
	component string
	out       *log.Logger
	file      *os.File
	echo      bool
	closeOnce *sync.Once
}

// New creates the root logger for a run, writing to name inside dir.
func New(dir, name string, echo bool) (*Logger, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	path := filepath.Join(dir, name)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return &Logger{
		component: "run",
		out:       log.New(f, "", log.LstdFlags|log.Lmicroseconds),
		file:      f,
		echo:      echo,
		closeOnce: &sync.Once{},
	}, nil
}

// Nop returns a logger that discards everything. Useful as a default so
// callers never nil-check.
func Nop() *Logger {
	return &Logger{
		component: "nop",
		out:       log.New(io.Discard, "", 0),
		closeOnce: &sync.Once{},
	}
}

// Component derives a logger tagged with name, sharing the parent's file.
func (l *Logger) Component(name string) *Logger {
	child := *l
	child.component = name
	return &child
}

// Path returns the log file location, or "" for a nop logger.
func (l *Logger) Path() string {
	if l.file == nil {
		return ""
	}
	return l.file.Name()
}

func (l *Logger) write(level, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	l.out.Printf("%-5s [%s] %s", level, l.component, msg)
	if l.echo && (level == "WARN" || level == "ERROR") {
		fmt.Fprintf(os.Stderr, "%s: %s\n", level, msg)
	}
}

// Debugf logs fine-grained progress detail.
func (l *Logger) Debugf(format string, args ...any) { l.write("DEBUG", format, args...) }

// Infof logs run milestones.
func (l *Logger) Infof(format string, args ...any) { l.write("INFO", format, args...) }

// Warnf logs recoverable problems.
func (l *Logger) Warnf(format string, args ...any) { l.write("WARN", format, args...) }

// Errorf logs failures.
func (l *Logger) Errorf(format string, args ...any) { l.write("ERROR", format, args...) }

// Close flushes and closes the underlying file. Safe to call more than once
// and safe on component loggers (the file is closed once).
func (l *Logger) Close() error {
	var err error
	l.closeOnce.Do(func() {
		if l.file != nil {
			err = l.file.Close()
		}
	})
	return err
}
