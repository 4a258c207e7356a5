// Package config loads the optional backend configuration from
// .pixi-build/config.json next to the project manifest. Everything has a
// default; a missing file is not an error.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// CurrentVersion is the config schema version this build understands.
const CurrentVersion = 1

// configDirName is the directory holding the config file, relative to
// the project root.
const configDirName = ".pixi-build"

// Config represents the complete backend configuration.
type Config struct {
	Version int `json:"version" mapstructure:"version"`

	Logging  LoggingConfig  `json:"logging" mapstructure:"logging"`
	Channels ChannelsConfig `json:"channels" mapstructure:"channels"`
	Engine   EngineConfig   `json:"engine" mapstructure:"engine"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	// Level is the minimum level written (debug, info, warn, error).
	// CLI verbosity flags override it.
	Level string `json:"level" mapstructure:"level"`

	// File receives a copy of the log stream when set; stderr always
	// gets one (stdout carries the protocol)
	File string `json:"file" mapstructure:"file"`
}

// ChannelsConfig contains channel resolution configuration
type ChannelsConfig struct {
	// Alias is the base URL bare channel names resolve against
	Alias string `json:"alias" mapstructure:"alias"`

	// RegistryFile maps channel names and URLs to local mirror
	// directories (channels.toml)
	RegistryFile string `json:"registryFile" mapstructure:"registryFile"`
}

// EngineConfig contains the local engine configuration
type EngineConfig struct {
	// CacheDir holds the package index; empty means the user cache dir
	CacheDir string `json:"cacheDir" mapstructure:"cacheDir"`

	// KeepBuild preserves intermediate build directories for debugging
	KeepBuild bool `json:"keepBuild" mapstructure:"keepBuild"`

	// CompressionLevel is the zstd level for package archives (1-22)
	CompressionLevel int `json:"compressionLevel" mapstructure:"compressionLevel"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version: CurrentVersion,
		Logging: LoggingConfig{
			Level: "info",
		},
		Channels: ChannelsConfig{
			Alias: "https://conda.anaconda.org",
		},
		Engine: EngineConfig{
			CompressionLevel: 3,
		},
	}
}

// LoadConfig loads configuration from <root>/.pixi-build/config.json.
// A missing file yields the defaults.
func LoadConfig(root string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("version", CurrentVersion)
	v.SetDefault("logging.level", "info")
	v.SetDefault("channels.alias", "https://conda.anaconda.org")
	v.SetDefault("engine.compressionLevel", 3)

	// Configure viper
	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(filepath.Join(root, configDirName))

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		// If config doesn't exist, return default config
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return DefaultConfig(), nil
		}
		return nil, err
	}

	// Unmarshal into config struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes the configuration to <root>/.pixi-build/config.json
func (c *Config) Save(root string) error {
	dir := filepath.Join(root, configDirName)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(dir, "config.json"), data, 0644)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Version != CurrentVersion {
		return &ConfigError{Field: "version", Message: "unsupported config version"}
	}

	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return &ConfigError{Field: "logging.level",
			Message: fmt.Sprintf("unknown level %q", c.Logging.Level)}
	}

	if c.Engine.CompressionLevel < 0 || c.Engine.CompressionLevel > 22 {
		return &ConfigError{Field: "engine.compressionLevel",
			Message: "zstd compression level must be between 1 and 22"}
	}

	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
