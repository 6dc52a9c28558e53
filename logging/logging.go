// Package logging sets up structured logging with Go's slog package.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"
)

// Format represents a log output format.
type Format string

const (
	// FormatText outputs logs in human-readable key=value form.
	FormatText Format = "text"
	// FormatJSON outputs one JSON object per line.
	FormatJSON Format = "json"
)

// ParseLevel converts a level name to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

// ParseFormat converts a format name to a Format.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatText, FormatJSON:
		return f, nil
	case "":
		return FormatText, nil
	default:
		return FormatText, fmt.Errorf("unknown log format %q", s)
	}
}

// New creates a logger writing to w.
func New(level slog.Level, format Format, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				return slog.String(slog.TimeKey, a.Value.Time().Format(time.RFC3339))
			}
			return a
		},
	}

	var handler slog.Handler
	if format == FormatJSON {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// Setup parses level and format names, builds the logger and installs it as
// the slog default.
func Setup(level, format string, w io.Writer) (*slog.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	f, err := ParseFormat(format)
	if err != nil {
		return nil, err
	}

	logger := New(lvl, f, w)
	slog.SetDefault(logger)
	return logger, nil
}
