package log

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

const (
	ErrAttrKey        = "error"
	StacktraceAttrKey = "stacktrace"
)

// LogFileLayout names run log files after their start time, MM_DD_YYYY_HH_MM_SS.
const LogFileLayout = "01_02_2006_15_04_05"

// Options configures Setup.
type Options struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`
	// Dir receives one timestamped log file per run. Empty disables file output.
	Dir string `yaml:"dir"`
	// Console writes human-readable records to stderr in addition to the file.
	Console bool `yaml:"console"`
}

// Setup builds the run's logger provider. The returned close function flushes
// and closes the log file and must be called once the run finishes.
func Setup(opts Options) (*ZerologProvider, func() error, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, nil, err
	}

	var writers []io.Writer
	closeFn := func() error { return nil }

	if opts.Dir != "" {
		if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
			return nil, nil, errors.Wrapf(err, "create log directory %s", opts.Dir)
		}
		name := filepath.Join(opts.Dir, time.Now().Format(LogFileLayout)+".log")
		f, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "open log file %s", name)
		}
		writers = append(writers, f)
		closeFn = f.Close
	}
	if opts.Console || len(writers) == 0 {
		writers = append(writers, zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	return NewZerologProvider(level, writers...), closeFn, nil
}

// ParseLevel converts a level name into a Level.
func ParseLevel(level string) (Level, error) {
	switch strings.ToLower(level) {
	case "", "info":
		return LevelInfo, nil
	case "debug":
		return LevelDebug, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, errors.Newf("invalid log level: %s", level)
	}
}

// Nop returns a logger that discards everything.
func Nop() Logger {
	return NewZerologLogger(zerolog.Nop())
}
