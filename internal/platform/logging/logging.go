package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/consultorio/clinicdb/internal/config"
)

// New builds the process logger. Console output goes to stderr so that
// commands can keep stdout for their own results; LOG_FILE adds a rotating
// JSON file next to it.
func New(cfg *config.Config) zerolog.Logger {
	return newWithWriter(cfg, os.Stderr)
}

func newWithWriter(cfg *config.Config, out io.Writer) zerolog.Logger {
	var console io.Writer = out
	if cfg.LogFormat != "json" {
		console = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"}
	}

	writers := []io.Writer{console}
	if cfg.LogFile != "" {
		writers = append(writers, &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    cfg.LogMaxSizeMB,
			MaxBackups: cfg.LogMaxBackups,
			MaxAge:     cfg.LogMaxAgeDays,
			Compress:   true,
		})
	}

	var w io.Writer = console
	if len(writers) > 1 {
		w = zerolog.MultiLevelWriter(writers...)
	}

	return zerolog.New(w).
		Level(ParseLevel(cfg.LogLevel)).
		With().
		Timestamp().
		Str("env", cfg.Env).
		Logger()
}

func ParseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
