// internal/logging/logger.go
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
)

// LevelCritical sits above slog.LevelError. It is used immediately
// before a fatal exit.
const LevelCritical = slog.LevelError + 4

// New builds the process logger. Development builds (version "dev") get
// colored tint output; release builds get JSON.
func New(level slog.Level, version, appName string) *slog.Logger {
	return newLogger(os.Stdout, level, version, appName)
}

func newLogger(w io.Writer, level slog.Level, version, appName string) *slog.Logger {
	if version == "dev" {
		h := tint.NewHandler(w, &tint.Options{
			Level:       level,
			AddSource:   true,
			TimeFormat:  time.Kitchen,
			ReplaceAttr: renameCritical,
		})
		return slog.New(h).With("app", appName)
	}

	h := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: renameCritical,
	})
	return slog.New(h).With(
		"app", appName,
		"version", version,
	)
}

// Critical logs msg at LevelCritical.
func Critical(l *slog.Logger, msg string, args ...any) {
	l.Log(context.Background(), LevelCritical, msg, args...)
}

func renameCritical(groups []string, a slog.Attr) slog.Attr {
	if a.Key != slog.LevelKey || len(groups) != 0 {
		return a
	}
	if lvl, ok := a.Value.Any().(slog.Level); ok && lvl >= LevelCritical {
		a.Value = slog.StringValue("CRITICAL")
	}
	return a
}
