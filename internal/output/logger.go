/*
PURPOSE:
  Provides a structured logger for MedVision Runner.
  Wraps slog for consistent output, plus an append-only event log
  that mirrors failure lines into a per-provider text file.

REQUIREMENTS:
  User-specified:
  - "Sane" CLI output. Not spammy.
  - Failed cases must be recorded in a log file that survives restarts.

  Implementation-discovered:
  - Needs to support Debug/Info/Warn/Error levels.
  - Event log must append, never truncate (runs are resumed).

ARCHITECTURE INTEGRATION:
  - Used everywhere.

ERROR HANDLING:
  - OpenEventLog returns the file error; writes after that are best-effort.

IMPLEMENTATION RULES:
  - Use `log/slog` (Go 1.21+).

USAGE:
  output.Logger.Info("message", "key", "value")
  ev, _ := output.OpenEventLog("process_log_gpt4o.txt")
  ev.Record("No results found", "case", 3)

SELF-HEALING INSTRUCTIONS:
  - Ensure Go 1.21+ is used.

RELATED FILES:
  - All.

MAINTENANCE:
  - JSON handler for non-interactive runs?
*/

package output

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

var Logger *slog.Logger

func init() {
	Logger = slog.New(slog.NewTextHandler(os.Stdout, nil))
}

// SetLogger allows overriding the default logger (e.g. for testing or config changes)
func SetLogger(l *slog.Logger) {
	Logger = l
}

// ParseLevel maps a config string to a slog level. Unknown values mean info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// SetLevel replaces the default logger with one at the given level.
func SetLevel(level slog.Level) {
	SetLogger(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))
}

// EventLog writes lines both to the console logger and an append-only file.
type EventLog struct {
	mu     sync.Mutex
	file   io.WriteCloser
	logger *slog.Logger
}

// OpenEventLog opens (or creates) path in append mode.
func OpenEventLog(path string) (*EventLog, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open event log %s: %w", path, err)
	}
	return NewEventLog(f), nil
}

// NewEventLog wraps an already opened writer.
func NewEventLog(w io.WriteCloser) *EventLog {
	return &EventLog{
		file:   w,
		logger: slog.New(slog.NewTextHandler(w, nil)),
	}
}

// Record logs msg at warn level to the console and the file.
func (e *EventLog) Record(msg string, args ...any) {
	Logger.Warn(msg, args...)
	if e == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.logger.Warn(msg, args...)
}

// Close closes the underlying file.
func (e *EventLog) Close() error {
	if e == nil {
		return nil
	}
	return e.file.Close()
}
