package telemetry

import (
	"io"
	"log/slog"
	"strings"
)

// SetupLogging installs the default slog logger. level is debug|info|warn|error and
// format is text|json; unknown values fall back to info and text.
func SetupLogging(w io.Writer, level, format string) *slog.Logger {
	lvl := slog.LevelInfo
	unknown := false
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	case "info", "":
	default:
		unknown = true
	}
	opts := &slog.HandlerOptions{Level: lvl}
	var h slog.Handler
	fmtName := "text"
	if strings.ToLower(format) == "json" {
		h = slog.NewJSONHandler(w, opts)
		fmtName = "json"
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	logger := slog.New(h)
	slog.SetDefault(logger)
	if unknown {
		logger.Warn("unknown LOG_LEVEL, using info", slog.String("value", level))
	}
	logger.Debug("logger initialized", slog.String("level", lvl.String()), slog.String("format", fmtName))
	return logger
}
