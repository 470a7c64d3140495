package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config holds the runtime settings for the capture service.
type Config struct {
	// Display is the X display to connect to; empty means $DISPLAY.
	Display string `mapstructure:"display" yaml:"display"`

	// Port is the HTTP port for the API and preview stream.
	Port int `mapstructure:"port" yaml:"port"`

	// FrameRate is the frame rate offered when fixating unconstrained
	// caps, in frames per second.
	FrameRate int `mapstructure:"frame_rate" yaml:"frame_rate"`

	// JPEGQuality sets the preview stream's JPEG encoder quality (1-100).
	JPEGQuality int `mapstructure:"jpeg_quality" yaml:"jpeg_quality"`

	// MaxPreviewWidth downscales preview frames wider than this; zero
	// disables scaling.
	MaxPreviewWidth int `mapstructure:"max_preview_width" yaml:"max_preview_width"`

	// ShowCursor enables the engine's pointer-position check.
	ShowCursor bool `mapstructure:"show_cursor" yaml:"show_cursor"`

	LogLevel  string `mapstructure:"log_level" yaml:"log_level"`
	LogPretty bool   `mapstructure:"log_pretty" yaml:"log_pretty"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Port:            8080,
		FrameRate:       25,
		JPEGQuality:     90,
		MaxPreviewWidth: 1920,
		LogLevel:        "info",
		LogPretty:       true,
	}
}

// Load reads configuration from the given file (optional), environment
// variables prefixed XWINCAST_, and any flags already bound to viper.
func Load(path string) (*Config, error) {
	v := viper.GetViper()

	def := Default()
	v.SetDefault("display", def.Display)
	v.SetDefault("port", def.Port)
	v.SetDefault("frame_rate", def.FrameRate)
	v.SetDefault("jpeg_quality", def.JPEGQuality)
	v.SetDefault("max_preview_width", def.MaxPreviewWidth)
	v.SetDefault("show_cursor", def.ShowCursor)
	v.SetDefault("log_level", def.LogLevel)
	v.SetDefault("log_pretty", def.LogPretty)

	v.SetEnvPrefix("XWINCAST")
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "xwincast"))
		}
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Flags bound to viper shadow the defaults with their zero values
	// when left unset; restore the defaults for those fields.
	if cfg.Port == 0 {
		cfg.Port = def.Port
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = def.LogLevel
	}
	if cfg.FrameRate == 0 {
		cfg.FrameRate = def.FrameRate
	}
	return cfg, nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
