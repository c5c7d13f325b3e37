package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// ErrInvalid is returned by Validate for unusable settings.
var ErrInvalid = errors.New("config: invalid value")

// Load loads configuration with priority: defaults < file < flags.
func Load() (*Config, error) {
	cfg := Default()

	configPath := ConfigPath()
	if configPath == "" {
		configPath = findConfigFile()
	}

	if configPath != "" {
		if err := loadFromFile(cfg, configPath); err != nil {
			return nil, fmt.Errorf("loading config from %s: %w", configPath, err)
		}
	}

	applyFlags(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings the tile updater cannot run without.
func (c *Config) Validate() error {
	vt := c.VirtualTexture
	if vt.ColorResolution <= 0 || vt.HeightResolution <= 0 {
		return fmt.Errorf("%w: resolutions must be positive (color %d, height %d)",
			ErrInvalid, vt.ColorResolution, vt.HeightResolution)
	}
	if c.Decal.QueueMin > c.Decal.QueueMax {
		return fmt.Errorf("%w: queue range [%d, %d]", ErrInvalid, c.Decal.QueueMin, c.Decal.QueueMax)
	}
	switch c.Decal.HeightClear {
	case "zero", "preserve":
	default:
		return fmt.Errorf("%w: height_clear %q", ErrInvalid, c.Decal.HeightClear)
	}
	switch c.Run.Backend {
	case "soft", "gl":
	default:
		return fmt.Errorf("%w: backend %q", ErrInvalid, c.Run.Backend)
	}
	return nil
}

// findConfigFile looks for config in standard locations.
func findConfigFile() string {
	candidates := []string{
		"./config.yaml",
		filepath.Join(ConfigDir(), "config.yaml"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// ConfigDir returns the OS-appropriate config directory.
func ConfigDir() string {
	switch runtime.GOOS {
	case "darwin":
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "Library", "Application Support", "MidgardVT")
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "MidgardVT")
	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "midgard-vt")
		}
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "midgard-vt")
	}
}

// loadFromFile loads config from a YAML file, merging with existing values.
func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}
