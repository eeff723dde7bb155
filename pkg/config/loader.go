package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/AltairaLabs/VoiceDesk/runtime/credentials"
	"github.com/AltairaLabs/VoiceDesk/runtime/logger"
)

// EnvPrefix prefixes every environment override: api.base_url is read from
// VOICEDESK_API_BASE_URL.
const EnvPrefix = "VOICEDESK"

const (
	configName     = "config"
	configType     = "yaml"
	defaultEnvFile = ".env"
	appDir         = "voicedesk"
	configFileMode = 0o600
	configDirMode  = 0o700
)

// LoadOptions controls where configuration is read from.
type LoadOptions struct {
	// ConfigFile is an explicit YAML file that must exist. Empty searches
	// DefaultConfigFile.
	ConfigFile string

	// EnvFile is a dotenv file loaded into the environment before reading.
	// Empty tries ".env" in the working directory.
	EnvFile string

	// Overrides are applied last, typically from changed command-line flags.
	Overrides map[string]any
}

// DefaultConfigFile returns $XDG_CONFIG_HOME/voicedesk/config.yaml or the
// platform equivalent.
func DefaultConfigFile() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, appDir, configName+"."+configType), nil
}

// Load reads, merges and validates the configuration. Precedence, lowest
// first: defaults, YAML file, dotenv and environment, overrides.
func Load(opts LoadOptions) (*Config, error) {
	if err := loadEnvFile(opts.EnvFile); err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v, Default())
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	source, err := readConfigFile(v, opts.ConfigFile)
	if err != nil {
		return nil, err
	}
	for key, value := range opts.Overrides {
		v.Set(key, value)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode configuration: %w", err)
	}
	if cfg.Auth.TokenFile == "" {
		if path, err := credentials.DefaultTokenFile(); err == nil {
			cfg.Auth.TokenFile = path
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if source != "" {
		logger.Debug("Configuration loaded", "file", source)
	}
	return &cfg, nil
}

func loadEnvFile(path string) error {
	explicit := path != ""
	if !explicit {
		path = defaultEnvFile
	}
	err := godotenv.Load(path)
	if err == nil {
		logger.Debug("Environment file loaded", "file", path)
		return nil
	}
	if !explicit && errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("load env file %s: %w", path, err)
}

func readConfigFile(v *viper.Viper, explicit string) (string, error) {
	if explicit != "" {
		v.SetConfigFile(explicit)
		if err := v.ReadInConfig(); err != nil {
			return "", fmt.Errorf("read config %s: %w", explicit, err)
		}
		return v.ConfigFileUsed(), nil
	}

	path, err := DefaultConfigFile()
	if err != nil {
		return "", nil //nolint:nilerr // no config dir means defaults only
	}
	v.SetConfigFile(path)
	v.SetConfigType(configType)
	if err := v.ReadInConfig(); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("read config %s: %w", path, err)
	}
	return v.ConfigFileUsed(), nil
}

// setDefaults registers every key so environment variables can override
// keys absent from the file.
func setDefaults(v *viper.Viper, cfg Config) {
	for key, value := range flatten(cfg) {
		v.SetDefault(key, value)
	}
	v.SetDefault("auth.token", "")
	v.SetDefault("auth.token_file", "")
	v.SetDefault("metrics.addr", "")
	v.SetDefault("telemetry.endpoint", "")
}

// flatten maps each leaf of cfg to its dotted mapstructure key.
func flatten(cfg Config) map[string]any {
	out := make(map[string]any)
	walk(reflect.ValueOf(cfg), "", func(key string, value reflect.Value) {
		out[key] = value.Interface()
	})
	return out
}

// Marshal renders cfg as YAML with durations in their string form.
func Marshal(cfg Config) ([]byte, error) {
	doc := make(map[string]any)
	walk(reflect.ValueOf(cfg), "", func(key string, value reflect.Value) {
		var leaf any = value.Interface()
		if d, ok := leaf.(time.Duration); ok {
			leaf = d.String()
		}
		if m, ok := leaf.(map[string]string); ok && len(m) == 0 {
			return
		}
		if s, ok := leaf.(string); ok && s == "" {
			return
		}
		section, name, _ := strings.Cut(key, ".")
		sub, _ := doc[section].(map[string]any)
		if sub == nil {
			sub = make(map[string]any)
			doc[section] = sub
		}
		sub[name] = leaf
	})
	return yaml.Marshal(doc)
}

// WriteFile saves cfg as YAML at path, creating the directory.
func WriteFile(path string, cfg Config) error {
	data, err := Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), configDirMode); err != nil {
		return err
	}
	return os.WriteFile(path, data, configFileMode)
}

func walk(v reflect.Value, prefix string, leaf func(key string, value reflect.Value)) {
	t := v.Type()
	for i := range t.NumField() {
		field := t.Field(i)
		name, _, _ := strings.Cut(field.Tag.Get("mapstructure"), ",")
		if name == "" || name == "-" {
			continue
		}
		key := name
		if prefix != "" {
			key = prefix + "." + name
		}
		fv := v.Field(i)
		if fv.Kind() == reflect.Struct {
			walk(fv, key, leaf)
			continue
		}
		leaf(key, fv)
	}
}
