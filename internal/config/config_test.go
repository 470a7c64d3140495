package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
)

func TestLoadDefaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != 8080 {
		t.Fatalf("default port = %d, want 8080", cfg.Port)
	}
	if cfg.FrameRate != 25 {
		t.Fatalf("default frame rate = %d, want 25", cfg.FrameRate)
	}
	if cfg.LogLevel != "info" {
		t.Fatalf("default log level = %q, want info", cfg.LogLevel)
	}
}

func TestLoadFromFile(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "display: \":1\"\nport: 9090\nframe_rate: 60\nlog_level: debug\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Display != ":1" {
		t.Fatalf("display = %q, want :1", cfg.Display)
	}
	if cfg.Port != 9090 {
		t.Fatalf("port = %d, want 9090", cfg.Port)
	}
	if cfg.FrameRate != 60 {
		t.Fatalf("frame rate = %d, want 60", cfg.FrameRate)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("log level = %q, want debug", cfg.LogLevel)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := Default()
	cfg.Display = ":2"
	cfg.Port = 7070
	if err := cfg.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Display != ":2" || loaded.Port != 7070 {
		t.Fatalf("round trip lost fields: %+v", loaded)
	}
}
