package config

import (
	"github.com/AltairaLabs/VoiceDesk/runtime/logger"
)

// LogLevel constants for programmatic use.
const (
	LogLevelTrace = "trace"
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

// LogFormat constants for programmatic use.
const (
	LogFormatJSON = logger.FormatJSON
	LogFormatText = logger.FormatText
)

// LoggingConfig configures the global logger.
type LoggingConfig struct {
	// Level is one of trace, debug, info, warn, error.
	Level string `mapstructure:"level" yaml:"level" validate:"omitempty,oneof=trace debug info warn error" jsonschema:"enum=trace,enum=debug,enum=info,enum=warn,enum=error"`

	// Format is "text" for humans or "json" for log shippers.
	Format string `mapstructure:"format" yaml:"format" validate:"omitempty,oneof=json text" jsonschema:"enum=json,enum=text"`

	// CommonFields are added to every log entry.
	CommonFields map[string]string `mapstructure:"common_fields" yaml:"common_fields,omitempty"`
}

// DefaultLoggingConfig returns info-level text logging.
func DefaultLoggingConfig() LoggingConfig {
	return LoggingConfig{
		Level:  LogLevelInfo,
		Format: LogFormatText,
	}
}

// Spec converts the configuration into the logger's own type.
func (c LoggingConfig) Spec() *logger.LoggingConfigSpec {
	return &logger.LoggingConfigSpec{
		Level:        c.Level,
		Format:       c.Format,
		CommonFields: c.CommonFields,
	}
}

// Apply configures the global logger. verbose forces debug level.
func (c LoggingConfig) Apply(verbose bool) error {
	spec := c.Spec()
	if verbose {
		spec.Level = LogLevelDebug
	}
	return logger.Configure(spec)
}
