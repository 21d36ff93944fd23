package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaultsWithoutFile(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg != Default() {
		t.Errorf("Expected defaults, got %+v", cfg)
	}
}

func TestLoadExplicitMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Expected error for missing explicit config file")
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scangallery.yaml")
	content := `port: "3000"
bridge_url: http://scanner.local:9713
service_url: ws://scanner.local:25443/scan
reconnect_interval: 2s
native_dialogs: false
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	t.Setenv("JSPM_URL", "ws://override:25443/scan")
	t.Setenv("SCANGALLERY_MAX_UPLOAD_BYTES", "2048")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	tests := []struct {
		name     string
		got      any
		expected any
	}{
		{"port from file", cfg.Port, "3000"},
		{"bridge from file", cfg.BridgeURL, "http://scanner.local:9713"},
		{"service url from env", cfg.ServiceURL, "ws://override:25443/scan"},
		{"reconnect from file", cfg.ReconnectInterval, 2 * time.Second},
		{"dialogs from file", cfg.NativeDialogs, false},
		{"upload limit from env", cfg.MaxUploadBytes, int64(2048)},
		{"origin default", cfg.ServiceOrigin, "http://localhost:8888"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.expected {
				t.Errorf("Expected %v, got %v", tt.expected, tt.got)
			}
		})
	}
}

func TestLoadInvalidEnv(t *testing.T) {
	t.Chdir(t.TempDir())

	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"bad duration", "JSPM_RECONNECT_INTERVAL", "soon"},
		{"bad size", "SCANGALLERY_MAX_UPLOAD_BYTES", "big"},
		{"bad bool", "SCANGALLERY_NATIVE_DIALOGS", "maybe"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			if _, err := Load(""); err == nil {
				t.Errorf("Expected error for %s=%s", tt.key, tt.val)
			}
		})
	}
}

func TestSlogLevel(t *testing.T) {
	tests := []struct {
		level    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"WARN", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			cfg := Config{LogLevel: tt.level}
			if got := cfg.SlogLevel(); got != tt.expected {
				t.Errorf("Expected %v, got %v", tt.expected, got)
			}
		})
	}
}
