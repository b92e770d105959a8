package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config represents the eventring runtime configuration shared by the CLI
// commands.
type Config struct {
	// DataDir holds live channel files.
	DataDir string `yaml:"data_dir"`
	// ArchiveDir holds sealed segments and the segment index.
	ArchiveDir string  `yaml:"archive_dir"`
	Channel    Channel `yaml:"channel"`
	Metrics    Metrics `yaml:"metrics"`
	Logging    Logging `yaml:"logging"`
}

// Channel contains defaults applied when creating channels.
type Channel struct {
	CapacityWords  uint32  `yaml:"capacity_words"`
	Wrap           bool    `yaml:"wrap"`
	TimeoutSeconds float64 `yaml:"timeout_seconds"`
	// LockSpinLimit bounds guard acquisition attempts before the holder is
	// assumed dead and the guard is forcibly cleared.
	LockSpinLimit uint64 `yaml:"lock_spin_limit"`
}

// Metrics contains the stats/metrics server configuration.
type Metrics struct {
	Bind string `yaml:"bind"`
	Port int    `yaml:"port"`
}

// Logging contains logging configuration.
type Logging struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns a default configuration.
func DefaultConfig() *Config {
	return &Config{
		DataDir:    "./data",
		ArchiveDir: "./archive",
		Channel: Channel{
			CapacityWords:  1 << 16,
			Wrap:           false,
			TimeoutSeconds: 5,
			LockSpinLimit:  1_000_000,
		},
		Metrics: Metrics{
			Bind: "127.0.0.1",
			Port: 9300,
		},
		Logging: Logging{
			Level: "info",
		},
	}
}

// LoadConfig loads configuration from the specified path. Values missing
// from the file keep their defaults.
func LoadConfig(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", configPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return config, nil
}

// SaveConfig saves the configuration to the specified path.
func SaveConfig(config *Config, configPath string) error {
	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// GetDefaultConfigPath returns the default configuration path for the
// current platform.
func GetDefaultConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "./eventring.yaml"
	}
	return filepath.Join(homeDir, ".config", "eventring", "config.yaml")
}

// ConfigExists checks if a configuration file exists.
func ConfigExists(configPath string) bool {
	_, err := os.Stat(configPath)
	return !os.IsNotExist(err)
}
