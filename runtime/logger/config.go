package logger

import (
	"log/slog"
	"sync"
)

// Log format constants.
const (
	FormatJSON = "json"
	FormatText = "text"
)

// LoggingConfigSpec defines the logging configuration for the Configure function.
// It mirrors config.LoggingConfig to avoid an import cycle.
type LoggingConfigSpec struct {
	Level        string
	Format       string // "json" or "text"
	CommonFields map[string]string
}

var (
	stateMu      sync.RWMutex
	activeLevel  = slog.LevelInfo
	activeFormat = FormatText
	activeFields []slog.Attr
)

// Configure applies a LoggingConfigSpec to the global logger.
func Configure(cfg *LoggingConfigSpec) error {
	if cfg == nil {
		return nil
	}

	level := slog.LevelInfo
	if cfg.Level != "" {
		level = ParseLevel(cfg.Level)
	}

	format := FormatText
	if cfg.Format == FormatJSON {
		format = FormatJSON
	}

	fields := make([]slog.Attr, 0, len(cfg.CommonFields))
	for k, v := range cfg.CommonFields {
		fields = append(fields, slog.String(k, v))
	}

	initLogger(level, format, fields)
	return nil
}

// initLogger rebuilds DefaultLogger from the given settings and remembers
// them so that SetLevel and SetOutput can rebuild it later.
func initLogger(level slog.Level, format string, fields []slog.Attr) {
	outputMu.Lock()
	out := logOutput
	outputMu.Unlock()

	opts := &slog.HandlerOptions{Level: level}

	var base slog.Handler
	if format == FormatJSON {
		base = slog.NewJSONHandler(out, opts)
	} else {
		base = slog.NewTextHandler(out, opts)
	}

	stateMu.Lock()
	activeLevel = level
	activeFormat = format
	activeFields = fields
	stateMu.Unlock()

	DefaultLogger = slog.New(NewContextHandler(base, fields...))
}

func currentLevel() slog.Level {
	stateMu.RLock()
	defer stateMu.RUnlock()
	return activeLevel
}

func currentFormat() string {
	stateMu.RLock()
	defer stateMu.RUnlock()
	return activeFormat
}

func currentFields() []slog.Attr {
	stateMu.RLock()
	defer stateMu.RUnlock()
	return activeFields
}
