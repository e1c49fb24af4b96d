package config

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pion/logging"
	"gopkg.in/natefinch/lumberjack.v2"
)

// ParseLevel maps a level name to a pion log level.
func ParseLevel(level string) (logging.LogLevel, error) {
	switch strings.ToLower(level) {
	case "", "info":
		return logging.LogLevelInfo, nil
	case "error":
		return logging.LogLevelError, nil
	case "warn", "warning":
		return logging.LogLevelWarn, nil
	case "debug":
		return logging.LogLevelDebug, nil
	case "trace":
		return logging.LogLevelTrace, nil
	case "disabled", "off":
		return logging.LogLevelDisabled, nil
	default:
		return logging.LogLevelInfo, fmt.Errorf("unknown log level %q", level)
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// NewLoggerFactory builds the logger factory for a binary. Output goes to
// stdout and, when File is set, to a rotated file as well. The returned closer
// releases the file.
func NewLoggerFactory(cfg LogConfig) (logging.LoggerFactory, io.Closer, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, err
	}

	factory := logging.NewDefaultLoggerFactory()
	factory.DefaultLogLevel = level

	var closer io.Closer = nopCloser{}
	writer := io.Writer(os.Stdout)
	if cfg.File != "" {
		file := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
		}
		writer = io.MultiWriter(os.Stdout, file)
		closer = file
	}
	factory.Writer = writer

	return factory, closer, nil
}
