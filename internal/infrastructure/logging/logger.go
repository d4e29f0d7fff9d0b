package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/nerrad567/mission-core/internal/infrastructure/config"
)

// Logger wraps slog.Logger with the robot's default fields.
//
// All methods are safe for concurrent use; parallel steps log from their
// own goroutines.
type Logger struct {
	*slog.Logger
}

// New creates a Logger writing to the configured output.
func New(cfg config.LoggingConfig, robotID, version string) *Logger {
	var output io.Writer
	switch strings.ToLower(cfg.Output) {
	case "stdout":
		output = os.Stdout
	default:
		output = os.Stderr
	}
	return NewWithWriter(output, cfg, robotID, version)
}

// NewWithWriter creates a Logger writing to w. The Output setting is ignored.
func NewWithWriter(w io.Writer, cfg config.LoggingConfig, robotID, version string) *Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}

	var handler slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	default:
		handler = slog.NewTextHandler(w, opts)
	}

	handler = handler.WithAttrs([]slog.Attr{
		slog.String("service", "missioncore"),
		slog.String("robot", robotID),
		slog.String("version", version),
	})

	return &Logger{Logger: slog.New(handler)}
}

// parseLevel converts a string log level to slog.Level.
// Defaults to info if unrecognised.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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

// With returns a new Logger with additional default attributes.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...)}
}

// Component returns a Logger tagged with component=name.
//
//	stepLog := logger.Component("step")
//	stepLog.Warn("step timed out") // includes component=step
func (l *Logger) Component(name string) *Logger {
	return l.With("component", name)
}

// Default creates a text logger on stderr for use before configuration is loaded.
func Default() *Logger {
	return New(config.LoggingConfig{Level: "info", Format: "text", Output: "stderr"}, "unknown", "dev")
}
