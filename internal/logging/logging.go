package logging

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options controls where and how verbosely the process-wide logger writes.
type Options struct {
	// Level is one of debug, info, warn, error. Empty means info.
	Level string
	// File is an optional log file that receives a copy of every line.
	File string
}

var (
	mu     sync.Mutex
	logger *zap.SugaredLogger
	file   *os.File
)

// Init initialises the global logger. It is safe to call multiple times; the
// first successful call wins.
//
// Lines are plain text in the format:
//
//	[utc-timestamp] - [LEVEL] - Message key=value ...
func Init(opts Options) error {
	mu.Lock()
	defer mu.Unlock()

	if logger != nil {
		return nil
	}

	sinks := []zapcore.WriteSyncer{zapcore.Lock(os.Stderr)}
	if path := strings.TrimSpace(opts.File); path != "" {
		f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
		if err != nil {
			// We can't rely on the logger yet, so emit a best-effort warning
			// directly to stderr and continue with stderr-only logging.
			ts := time.Now().UTC().Format(time.RFC3339)
			fmt.Fprintf(os.Stderr, "[%s] - [WARN] - failed to open log file %s: %v\n", ts, path, err)
		} else {
			file = f
			sinks = append(sinks, zapcore.AddSync(f))
		}
	}

	core := zapcore.NewCore(newEncoder(), zapcore.NewMultiWriteSyncer(sinks...), parseLevel(opts.Level))
	logger = zap.New(core).Sugar()
	return nil
}

func newEncoder() zapcore.Encoder {
	cfg := zapcore.EncoderConfig{
		TimeKey:          "ts",
		LevelKey:         "level",
		MessageKey:       "msg",
		LineEnding:       zapcore.DefaultLineEnding,
		ConsoleSeparator: " - ",
		EncodeTime: func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
			enc.AppendString("[" + t.UTC().Format(time.RFC3339) + "]")
		},
		EncodeLevel: func(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
			enc.AppendString("[" + l.CapitalString() + "]")
		},
		EncodeDuration: zapcore.StringDurationEncoder,
	}
	return zapcore.NewConsoleEncoder(cfg)
}

func parseLevel(s string) zapcore.Level {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// L returns the process-wide logger, initialising it on first use if needed.
func L() *zap.SugaredLogger {
	mu.Lock()
	l := logger
	mu.Unlock()
	if l != nil {
		return l
	}
	_ = Init(Options{Level: os.Getenv("OSDCTL_LOGGING_LEVEL")})
	mu.Lock()
	defer mu.Unlock()
	return logger
}

// Replace swaps the global logger and returns a function restoring the
// previous one. Intended for tests observing log output.
func Replace(l *zap.SugaredLogger) func() {
	mu.Lock()
	prev := logger
	logger = l
	mu.Unlock()
	return func() {
		mu.Lock()
		logger = prev
		mu.Unlock()
	}
}

// Sync flushes the logger and closes the log file if one is open.
func Sync() {
	mu.Lock()
	defer mu.Unlock()

	if logger != nil {
		_ = logger.Sync()
	}
	if file != nil {
		_ = file.Close()
		file = nil
	}
}

// FormatNodeMessage formats a log message with a host identifier.
// Format: "prefix [hostname - role] message"
// If role is blank: "prefix [hostname] message"
// If prefix is blank: "[hostname] message"
// Example: FormatNodeMessage("→", "osd-node1", "systemd", "activating /dev/sdb1")
//
//	-> "→ [osd-node1 - systemd] activating /dev/sdb1"
func FormatNodeMessage(prefix, hostname, role, message string) string {
	parts := []string{hostname}

	if role != "" {
		parts = append(parts, role)
	}

	identifier := strings.Join(parts, " - ")
	if prefix == "" {
		return fmt.Sprintf("[%s] %s", identifier, message)
	}
	return fmt.Sprintf("%s [%s] %s", prefix, identifier, message)
}
