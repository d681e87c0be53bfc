// Package logging builds the process slog.Logger from the log config section.
// The level lives in a slog.LevelVar so a config reload can change it without
// rebuilding handlers.
package logging

import (
	"io"
	"log/slog"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/obsidianstack/regionstat/server/internal/config"
)

// Logger is a slog.Logger with an adjustable level and an optional rotated
// log file.
type Logger struct {
	*slog.Logger
	level *slog.LevelVar
	file  io.Closer
}

// New returns a Logger writing to out, or to cfg.File when set.
func New(cfg config.LogConfig, out io.Writer) *Logger {
	l := &Logger{level: new(slog.LevelVar)}
	l.level.Set(cfg.SlogLevel())

	if cfg.File != "" {
		rotated := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
		}
		l.file = rotated
		out = rotated
	}

	opts := &slog.HandlerOptions{Level: l.level}
	var h slog.Handler
	if cfg.Format == "text" {
		h = slog.NewTextHandler(out, opts)
	} else {
		h = slog.NewJSONHandler(out, opts)
	}
	l.Logger = slog.New(h)
	return l
}

// Level returns the current minimum level.
func (l *Logger) Level() slog.Level { return l.level.Level() }

// SetLevel changes the minimum level for all records logged from now on.
func (l *Logger) SetLevel(level slog.Level) { l.level.Set(level) }

// Close closes the log file, if any.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}
