// Package config loads VoiceDesk settings from a YAML file, a .env file,
// VOICEDESK_* environment variables and command-line flags, in increasing
// order of precedence.
package config

import (
	"time"

	"github.com/AltairaLabs/VoiceDesk/pkg/httputil"
	"github.com/AltairaLabs/VoiceDesk/runtime/capture"
	"github.com/AltairaLabs/VoiceDesk/runtime/session"
	"github.com/AltairaLabs/VoiceDesk/runtime/statestore"
)

// Capture backends.
const (
	CaptureFFmpeg    = "ffmpeg"
	CapturePortAudio = "portaudio"
)

// History backends.
const (
	HistoryMemory = "memory"
	HistoryRedis  = "redis"
)

// Default values.
const (
	DefaultBaseURL     = "http://localhost:8000/api/v1"
	DefaultLocale      = "pt-BR"
	DefaultServiceName = "voicedesk"
)

// Config is the effective VoiceDesk configuration.
type Config struct {
	API       APIConfig       `mapstructure:"api" yaml:"api"`
	Auth      AuthConfig      `mapstructure:"auth" yaml:"auth"`
	Capture   CaptureConfig   `mapstructure:"capture" yaml:"capture"`
	History   HistoryConfig   `mapstructure:"history" yaml:"history"`
	Metrics   MetricsConfig   `mapstructure:"metrics" yaml:"metrics"`
	Telemetry TelemetryConfig `mapstructure:"telemetry" yaml:"telemetry"`
	Logging   LoggingConfig   `mapstructure:"logging" yaml:"logging"`
	UI        UIConfig        `mapstructure:"ui" yaml:"ui"`
}

// APIConfig locates the backend.
type APIConfig struct {
	BaseURL       string        `mapstructure:"base_url" yaml:"base_url" validate:"required,url" jsonschema:"format=uri"`
	Timeout       time.Duration `mapstructure:"timeout" yaml:"timeout" validate:"gt=0"`
	UploadTimeout time.Duration `mapstructure:"upload_timeout" yaml:"upload_timeout" validate:"gt=0"`
}

// AuthConfig configures where the bearer token comes from.
type AuthConfig struct {
	// Token overrides the stored token. It is never printed.
	Token     string `mapstructure:"token" yaml:"token,omitempty"`
	TokenFile string `mapstructure:"token_file" yaml:"token_file"`
}

// CaptureConfig selects and tunes the microphone backend.
type CaptureConfig struct {
	Backend         string        `mapstructure:"backend" yaml:"backend" validate:"oneof=ffmpeg portaudio" jsonschema:"enum=ffmpeg,enum=portaudio"`
	FFmpegPath      string        `mapstructure:"ffmpeg_path" yaml:"ffmpeg_path"`
	FFmpegFormat    string        `mapstructure:"ffmpeg_format" yaml:"ffmpeg_format"`
	FFmpegInput     string        `mapstructure:"ffmpeg_input" yaml:"ffmpeg_input"`
	SampleRate      int           `mapstructure:"sample_rate" yaml:"sample_rate" validate:"gte=8000,lte=192000"`
	SegmentInterval time.Duration `mapstructure:"segment_interval" yaml:"segment_interval" validate:"gt=0"`
	// MaxDuration stops a recording automatically. Zero means no limit.
	MaxDuration time.Duration `mapstructure:"max_duration" yaml:"max_duration" validate:"gte=0"`
}

// HistoryConfig selects where finished sessions are kept.
type HistoryConfig struct {
	Backend   string        `mapstructure:"backend" yaml:"backend" validate:"oneof=memory redis" jsonschema:"enum=memory,enum=redis"`
	RedisAddr string        `mapstructure:"redis_addr" yaml:"redis_addr" validate:"required_if=Backend redis"`
	TTL       time.Duration `mapstructure:"ttl" yaml:"ttl" validate:"gte=0"`
	Prefix    string        `mapstructure:"prefix" yaml:"prefix" validate:"required"`
}

// MetricsConfig enables the Prometheus endpoint. An empty Addr disables it.
type MetricsConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr" validate:"omitempty,hostname_port"`
}

// TelemetryConfig enables OTLP trace export. An empty Endpoint disables it.
type TelemetryConfig struct {
	Endpoint    string `mapstructure:"endpoint" yaml:"endpoint" validate:"omitempty,url"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name" validate:"required"`
}

// UIConfig holds presentation settings.
type UIConfig struct {
	Locale string `mapstructure:"locale" yaml:"locale" validate:"oneof=pt-BR en" jsonschema:"enum=pt-BR,enum=en"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		API: APIConfig{
			BaseURL:       DefaultBaseURL,
			Timeout:       httputil.DefaultRequestTimeout,
			UploadTimeout: httputil.DefaultUploadTimeout,
		},
		Capture: CaptureConfig{
			Backend:         CaptureFFmpeg,
			FFmpegPath:      capture.DefaultFFmpegPath,
			SampleRate:      capture.DefaultSampleRate,
			SegmentInterval: session.DefaultSegmentInterval,
		},
		History: HistoryConfig{
			Backend: HistoryMemory,
			TTL:     statestore.DefaultRedisTTL,
			Prefix:  statestore.DefaultRedisPrefix,
		},
		Telemetry: TelemetryConfig{ServiceName: DefaultServiceName},
		Logging:   DefaultLoggingConfig(),
		UI:        UIConfig{Locale: DefaultLocale},
	}
}

// Redacted returns a copy safe to print.
func (c Config) Redacted() Config {
	if c.Auth.Token != "" {
		c.Auth.Token = "[REDACTED]"
	}
	return c
}
