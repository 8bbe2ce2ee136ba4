// Package logger configures the daemon's own structured logging: colored
// text on the console plus an optional lumberjack-rotated file. Server
// console output is never routed here; it flows through the event bus only.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	lj "gopkg.in/natefinch/lumberjack.v2"
)

// Default rotation parameters (lumberjack semantics).
const (
	DefaultMaxSizeMB  = 10
	DefaultMaxBackups = 3
	DefaultMaxAgeDays = 7
)

// Config describes the daemon log destination.
type Config struct {
	Level      string `mapstructure:"level"`       // debug|info|warn|error
	File       string `mapstructure:"file"`        // optional log file path
	MaxSizeMB  int    `mapstructure:"max_size_mb"` // megabytes before rotation
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
	NoColor    bool   `mapstructure:"no_color"`
}

// New builds a slog.Logger from the config and returns it with a close
// function for the file writer, if any.
func New(c Config) (*slog.Logger, func() error) {
	level := parseLevel(c.Level)
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	closeFn := func() error { return nil }

	if c.File != "" {
		fileW := &lj.Logger{
			Filename:   c.File,
			MaxSize:    valOr(c.MaxSizeMB, DefaultMaxSizeMB),
			MaxBackups: valOr(c.MaxBackups, DefaultMaxBackups),
			MaxAge:     valOr(c.MaxAgeDays, DefaultMaxAgeDays),
			Compress:   c.Compress,
		}
		closeFn = fileW.Close
		handler = slog.NewTextHandler(io.MultiWriter(os.Stderr, fileW), opts)
	} else if c.NoColor {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = NewColorTextHandler(os.Stderr, opts)
	}
	return slog.New(handler), closeFn
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func valOr(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
