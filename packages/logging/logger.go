// Package logging provides the level-gated sink used across the request
// pipeline. Output goes to the console and, optionally, to an append-only
// log file where each entry is a labeled pretty-printed JSON block.
package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/fatih/color"
)

// Level controls how much the logger emits.
type Level int

const (
	// LevelNone silences everything except error-severity writes.
	LevelNone Level = iota
	// LevelInfo emits request/response summaries and assertion confirmations.
	LevelInfo
	// LevelDebug additionally emits bodies, timeouts and header detail.
	LevelDebug
)

func (l Level) String() string {
	switch l {
	case LevelInfo:
		return "info"
	case LevelDebug:
		return "debug"
	default:
		return "none"
	}
}

// ParseLevel maps a config string to a Level. Unknown values fall back to
// LevelInfo rather than failing, matching lenient config parsing elsewhere.
func ParseLevel(s string) Level {
	switch s {
	case "none":
		return LevelNone
	case "debug":
		return LevelDebug
	default:
		return LevelInfo
	}
}

// Logger writes labeled entries to the console and an optional file sink.
//
// Error always writes regardless of level: a failed exchange or a broken
// expectation is actionable even when the suite runs silent. File writes are
// serialized under a mutex so concurrent pipelines interleave at block
// granularity at worst; atomicity across multiple blocks is not guaranteed.
type Logger struct {
	level   Level
	console io.Writer

	mu   sync.Mutex
	file *os.File
}

// Option is a functional option for New.
type Option func(*Logger)

// WithConsole redirects console output, mainly for tests.
func WithConsole(w io.Writer) Option {
	return func(l *Logger) {
		l.console = w
	}
}

// WithFile opens path for appending and mirrors every emitted entry to it.
// A path that cannot be opened is ignored: logging must never break a test run.
func WithFile(path string) Option {
	return func(l *Logger) {
		if path == "" {
			return
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return
		}
		l.file = f
	}
}

// New creates a logger at the given level.
func New(level Level, opts ...Option) *Logger {
	l := &Logger{
		level:   level,
		console: os.Stdout,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Discard returns a silent logger, used as the default when callers do not
// supply one.
func Discard() *Logger {
	return &Logger{level: LevelNone, console: io.Discard}
}

// Level returns the configured level.
func (l *Logger) Level() Level { return l.level }

// Info emits a labeled payload at info verbosity.
func (l *Logger) Info(label string, payload any) {
	if l.level < LevelInfo {
		return
	}
	l.emit(color.New(color.FgCyan).SprintFunc(), label, payload)
}

// Debug emits a labeled payload at debug verbosity.
func (l *Logger) Debug(label string, payload any) {
	if l.level < LevelDebug {
		return
	}
	l.emit(color.New(color.FgHiBlack).SprintFunc(), label, payload)
}

// Error emits a labeled payload unconditionally, bypassing the level gate.
func (l *Logger) Error(label string, payload any) {
	l.emit(color.New(color.FgRed).SprintFunc(), label, payload)
}

func (l *Logger) emit(paint func(...any) string, label string, payload any) {
	body := render(payload)
	fmt.Fprintf(l.console, "%s %s\n", paint(label), body)

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		fmt.Fprintf(l.file, "\n--- %s ---\n%s\n", label, body)
	}
}

// render pretty-prints structured payloads and passes strings through.
func render(payload any) string {
	switch v := payload.(type) {
	case nil:
		return ""
	case string:
		return v
	case error:
		return v.Error()
	default:
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(data)
	}
}

// Close closes the file sink if one is open. The console is left alone.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}
