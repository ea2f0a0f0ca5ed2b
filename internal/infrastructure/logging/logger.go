package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/nerrad567/dingz-bridge/internal/infrastructure/config"
)

// ServiceName is attached to every log record.
const ServiceName = "dingz-bridge"

// Logger is a slog.Logger carrying the service and version attributes.
//
// Its Debug/Info/Warn/Error methods satisfy the Logger interfaces of the
// dingz, notify, bridge, coordinator, shared, history and mqtt packages, so
// one value (or a ForDevice/ForComponent child) is handed to all of them.
//
// Thread Safety: All methods are safe for concurrent use.
type Logger struct {
	*slog.Logger
}

// New builds a Logger from cfg.
//
// Parameters:
//   - cfg: Level (debug, info, warn, error), format (json, text) and
//     output (stdout, stderr)
//   - version: Build version, logged on every record
//
// Returns:
//   - *Logger: Ready to use; unknown values fall back to info, json and stdout
func New(cfg config.LoggingConfig, version string) *Logger {
	var output io.Writer = os.Stdout
	if strings.EqualFold(cfg.Output, "stderr") {
		output = os.Stderr
	}
	return newWithWriter(output, cfg, version)
}

func newWithWriter(output io.Writer, cfg config.LoggingConfig, version string) *Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}

	var handler slog.Handler = slog.NewJSONHandler(output, opts)
	if strings.EqualFold(cfg.Format, "text") {
		handler = slog.NewTextHandler(output, opts)
	}

	return &Logger{Logger: slog.New(handler.WithAttrs([]slog.Attr{
		slog.String("service", ServiceName),
		slog.String("version", version),
	}))}
}

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

// With returns a child Logger that adds args to every record.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...)}
}

// ForComponent tags records with component=name (api, history, mqtt...).
func (l *Logger) ForComponent(name string) *Logger {
	return l.With("component", name)
}

// ForDevice tags records with device=name, the configured device name.
func (l *Logger) ForDevice(name string) *Logger {
	return l.With("device", name)
}

// Default is the JSON info logger used before the config is loaded.
func Default() *Logger {
	return New(config.LoggingConfig{Level: "info", Format: "json", Output: "stdout"}, "dev")
}
