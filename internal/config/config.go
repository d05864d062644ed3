// Package config loads the optional patchview YAML configuration file.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config mirrors the on-disk config.yaml schema. Zero values mean
// "not set"; Load fills defaults afterwards.
type Config struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	ViewMode string `yaml:"viewMode"`
	DBPath   string `yaml:"dbPath"`
	LogLevel string `yaml:"logLevel"`
	LogJSON  bool   `yaml:"logJson"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Host:     "localhost",
		Port:     0, // auto-select
		ViewMode: "split",
		LogLevel: "info",
	}
}

// DefaultPath returns the conventional config file location under the
// user config directory.
func DefaultPath() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve config directory: %w", err)
	}
	return filepath.Join(base, "patchview", "config.yaml"), nil
}

// DefaultDBPath returns the conventional database location under the
// user config directory.
func DefaultDBPath() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve config directory: %w", err)
	}
	return filepath.Join(base, "patchview", "patches.db"), nil
}

// Load reads the config file at path, applying defaults for unset keys.
// A missing file is not an error; the defaults are returned.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var file Config
	if err := yaml.Unmarshal(data, &file); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if file.Host != "" {
		cfg.Host = file.Host
	}
	if file.Port != 0 {
		cfg.Port = file.Port
	}
	if file.ViewMode != "" {
		cfg.ViewMode = file.ViewMode
	}
	if file.DBPath != "" {
		cfg.DBPath = os.ExpandEnv(file.DBPath)
	}
	if file.LogLevel != "" {
		cfg.LogLevel = file.LogLevel
	}
	cfg.LogJSON = file.LogJSON

	if cfg.ViewMode != "split" && cfg.ViewMode != "unified" {
		return Config{}, fmt.Errorf("invalid view mode %q: must be split or unified", cfg.ViewMode)
	}

	return cfg, nil
}
