// Package logging builds the slog logger of the command line tools. Records
// are written by zap; library packages only ever see *slog.Logger.
package logging

import (
	"fmt"
	"log/slog"

	slogzap "github.com/samber/slog-zap/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Formats accepted by New.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// ParseLevel maps a level name to a slog level. Unknown names are an error.
func ParseLevel(level string) (slog.Level, error) {
	switch level {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("unknown log level %q", level)
}

func zapLevel(l slog.Level) zapcore.Level {
	switch {
	case l <= slog.LevelDebug:
		return zapcore.DebugLevel
	case l <= slog.LevelInfo:
		return zapcore.InfoLevel
	case l <= slog.LevelWarn:
		return zapcore.WarnLevel
	}
	return zapcore.ErrorLevel
}

// New returns a logger writing to stderr at level in format, and a function
// flushing it.
func New(level, format string) (*slog.Logger, func(), error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, nil, err
	}

	var cfg zap.Config
	switch format {
	case "", FormatConsole:
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		cfg.DisableStacktrace = true
	case FormatJSON:
		cfg = zap.NewProductionConfig()
	default:
		return nil, nil, fmt.Errorf("unknown log format %q", format)
	}
	cfg.Level = zap.NewAtomicLevelAt(zapLevel(lvl))
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}

	z, err := cfg.Build()
	if err != nil {
		return nil, nil, fmt.Errorf("build logger: %w", err)
	}
	return Wrap(z, lvl), func() { _ = z.Sync() }, nil
}

// Wrap returns a slog logger writing to z. Records below level are dropped.
func Wrap(z *zap.Logger, level slog.Level) *slog.Logger {
	return slog.New(slogzap.Option{Level: level, Logger: z}.NewZapHandler())
}
