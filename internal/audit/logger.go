//
//
package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/developerersmarty/driverless-surveillance-robot/internal/adapter"
	"github.com/developerersmarty/driverless-surveillance-robot/internal/message"
)

// FileName is the audit file created inside the configured directory.
const FileName = "audit.jsonl"

// Entry represents a single audit log entry.
type Entry struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"ts"`
	Component string    `json:"component"`
	Subject   string    `json:"subject"`
	Action    string    `json:"action"`
	Value     float64   `json:"value"`
	Outcome   string    `json:"outcome"`
	Code      string    `json:"code"`
	LatencyMs float64   `json:"latencyMs"`
}

// Config controls file placement and rotation.
type Config struct {
	Dir        string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// Logger appends audit entries as JSON lines.
type Logger struct {
	mu       sync.Mutex
	filePath string
	rotator  *lumberjack.Logger
	w        io.Writer
}

// NewLogger creates an audit logger writing to Dir/audit.jsonl.
func NewLogger(cfg Config) (*Logger, error) {
	if cfg.Dir == "" {
		return nil, errors.New("audit directory not set")
	}

	if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create audit directory: %w", err)
	}

	filePath := filepath.Join(cfg.Dir, FileName)
	rotator := &lumberjack.Logger{
		Filename:   filePath,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	}

	return &Logger{
		filePath: filePath,
		rotator:  rotator,
		w:        rotator,
	}, nil
}

// NewWriterLogger creates an audit logger writing to w. It cannot rotate.
func NewWriterLogger(w io.Writer) *Logger {
	return &Logger{w: w}
}

type subjectKey struct{}

// WithSubject attaches the authenticated subject to ctx.
func WithSubject(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, subjectKey{}, subject)
}

// SubjectFrom returns the subject attached to ctx, or "anonymous".
func SubjectFrom(ctx context.Context) string {
	if s, ok := ctx.Value(subjectKey{}).(string); ok && s != "" {
		return s
	}
	return "anonymous"
}

// LogCommand records one command. err may be nil.
func (l *Logger) LogCommand(ctx context.Context, component string, cmd message.ControlCommand, outcome string, err error, latency time.Duration) {
	action := cmd.Name
	if action == "" {
		action = cmd.Action.String()
	}

	l.writeEntry(Entry{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Component: component,
		Subject:   SubjectFrom(ctx),
		Action:    action,
		Value:     cmd.Value,
		Outcome:   outcome,
		Code:      CodeFromError(err),
		LatencyMs: float64(latency.Microseconds()) / 1000,
	})
}

// writeEntry writes an audit entry to the log file.
func (l *Logger) writeEntry(entry Entry) {
	jsonData, err := json.Marshal(entry)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to marshal audit entry: %v\n", err)
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.w == nil {
		return
	}
	if _, err := l.w.Write(append(jsonData, '\n')); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write audit entry: %v\n", err)
	}
}

// CodeFromError maps an error to its audit code.
func CodeFromError(err error) string {
	switch {
	case err == nil:
		return "SUCCESS"
	case errors.Is(err, adapter.ErrInvalidRange):
		return "INVALID_RANGE"
	case errors.Is(err, adapter.ErrBusy):
		return "BUSY"
	case errors.Is(err, adapter.ErrUnavailable):
		return "UNAVAILABLE"
	case errors.Is(err, message.ErrMissingAction), errors.Is(err, message.ErrMalformed):
		return "BAD_REQUEST"
	default:
		return "ERROR"
	}
}

// Close closes the audit file. Later entries are discarded.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.w = nil
	if l.rotator != nil {
		return l.rotator.Close()
	}
	return nil
}

// FilePath returns the path of the active audit file, empty for writer loggers.
func (l *Logger) FilePath() string {
	return l.filePath
}

// Rotate starts a new audit file, keeping the old one as a timestamped backup.
func (l *Logger) Rotate() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.rotator == nil {
		return errors.New("audit logger has no file to rotate")
	}
	return l.rotator.Rotate()
}
