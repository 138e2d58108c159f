// Package logger configures structured logging for the trainee events hub.
// Everything logs through log/slog; this package builds the handler and
// provides the field helpers used across the codebase.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

// Format selects the log output format.
type Format string

const (
	// FormatJSON emits one JSON object per line, for log collectors.
	FormatJSON Format = "json"

	// FormatText emits human-readable key=value lines, for development.
	FormatText Format = "text"
)

// Config configures the logger.
type Config struct {
	// Level is the minimum level to emit: debug, info, warn, error.
	Level string

	// Format is json or text.
	Format Format

	// AddSource includes the file:line of the log call.
	AddSource bool

	// Output defaults to os.Stdout.
	Output io.Writer
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		Level:  "info",
		Format: FormatJSON,
	}
}

// ParseLevel parses a level string, defaulting to info.
func ParseLevel(s string) slog.Level {
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

// New builds a logger from the config without touching the default.
func New(config Config) *slog.Logger {
	output := config.Output
	if output == nil {
		output = os.Stdout
	}

	opts := &slog.HandlerOptions{
		Level:     ParseLevel(config.Level),
		AddSource: config.AddSource,
	}

	var handler slog.Handler
	if config.Format == FormatText {
		handler = slog.NewTextHandler(output, opts)
	} else {
		handler = slog.NewJSONHandler(output, opts)
	}

	return slog.New(handler)
}

// Setup builds a logger from the config and installs it as the process-wide
// default, so packages that fall back to slog.Default() use it too.
func Setup(config Config) *slog.Logger {
	l := New(config)
	slog.SetDefault(l)
	return l
}

// Field helpers for the hub's common log dimensions.

func EventID(id string) slog.Attr     { return slog.String("event_id", id) }
func CandidateID(id string) slog.Attr { return slog.String("candidate_id", id) }
func ContentUID(uid string) slog.Attr { return slog.String("content_uid", uid) }
func Source(name string) slog.Attr    { return slog.String("source", name) }
func Points(p int) slog.Attr          { return slog.Int("points", p) }
func Component(name string) slog.Attr { return slog.String("component", name) }
func Operation(name string) slog.Attr { return slog.String("operation", name) }

// Latency records a duration as a string for readability.
func Latency(d time.Duration) slog.Attr { return slog.String("latency", d.String()) }

// Err records an error message, tolerating nil.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Any("error", nil)
	}
	return slog.String("error", err.Error())
}
