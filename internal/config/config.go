package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is read when --config is not given and the file exists
const DefaultPath = "scangallery.yaml"

// Config holds the service settings
type Config struct {
	Port              string        `yaml:"port"`
	BridgeURL         string        `yaml:"bridge_url"`
	ServiceURL        string        `yaml:"service_url"`
	ServiceOrigin     string        `yaml:"service_origin"`
	ReconnectInterval time.Duration `yaml:"reconnect_interval"`
	MaxUploadBytes    int64         `yaml:"max_upload_bytes"`
	NativeDialogs     bool          `yaml:"native_dialogs"`
	LogLevel          string        `yaml:"log_level"`
}

// Default returns the settings used when nothing else is configured
func Default() Config {
	return Config{
		Port:              "8888",
		BridgeURL:         "http://localhost:9713",
		ServiceURL:        "ws://localhost:25443/scan",
		ServiceOrigin:     "http://localhost:8888",
		ReconnectInterval: 5 * time.Second,
		MaxUploadBytes:    10 * 1024 * 1024,
		NativeDialogs:     true,
		LogLevel:          "info",
	}
}

// Load reads the YAML file at path on top of the defaults, then applies
// environment overrides. A missing file at the default path is not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
		slog.Debug("Loaded config file", "path", path)
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("SCANGALLERY_PORT"); v != "" {
		c.Port = v
	}
	if v := os.Getenv("SCANNER_BRIDGE_URL"); v != "" {
		c.BridgeURL = v
	}
	if v := os.Getenv("JSPM_URL"); v != "" {
		c.ServiceURL = v
	}
	if v := os.Getenv("JSPM_ORIGIN"); v != "" {
		c.ServiceOrigin = v
	}
	if v := os.Getenv("JSPM_RECONNECT_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid JSPM_RECONNECT_INTERVAL: %w", err)
		}
		c.ReconnectInterval = d
	}
	if v := os.Getenv("SCANGALLERY_MAX_UPLOAD_BYTES"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid SCANGALLERY_MAX_UPLOAD_BYTES: %w", err)
		}
		c.MaxUploadBytes = n
	}
	if v := os.Getenv("SCANGALLERY_NATIVE_DIALOGS"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid SCANGALLERY_NATIVE_DIALOGS: %w", err)
		}
		c.NativeDialogs = b
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	return nil
}

// SlogLevel maps LogLevel to a slog level, defaulting to info
func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
