package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete silo host configuration.
//
// This structure captures all configurable aspects of a silo host:
//   - Logging configuration
//   - Server-wide settings (silo identity, shutdown behavior)
//   - Grain subsystem wiring (clustering, grain storage, reminders)
//   - The named connection-string registry the grain sections reference
//
// Configuration sources (in order of precedence):
//  1. Environment variables (SILOHOST_*)
//  2. Configuration file (YAML)
//  3. Default values (lowest priority)
//
// Backend selection pattern:
// Each grain concern carries a ConnectionConfig naming a backend type and a
// connection-string key. The resolver in this package turns those
// descriptors into registered providers; see BuildRegistry.
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging"`

	// Server contains server-wide settings
	Server ServerConfig `mapstructure:"server"`

	// Grains wires the clustering, grain-storage and reminder subsystems
	Grains GrainsConfig `mapstructure:"grains"`

	// ConnectionStrings is the named connection registry referenced by
	// ConnectionConfig.ConnectionName values
	ConnectionStrings map[string]string `mapstructure:"connection_strings"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive)
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" validate:"required"`
}

// ServerConfig contains server-wide settings.
type ServerConfig struct {
	// SiloName identifies this silo in the membership table
	SiloName string `mapstructure:"silo_name"`

	// ShutdownTimeout is the maximum time to wait for graceful shutdown
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0"`
}

// GrainsConfig wires the three grain subsystems. Each section is optional;
// an absent section simply leaves that concern unconfigured.
type GrainsConfig struct {
	// ClusterID scopes membership rows; silos only see peers with the same id
	ClusterID string `mapstructure:"cluster_id"`

	// ServiceID identifies the logical service across deployments
	ServiceID string `mapstructure:"service_id"`

	// Clustering selects the membership backend
	Clustering *ConnectionConfig `mapstructure:"clustering"`

	// GrainStorage maps logical storage names to backend descriptors.
	// Names must be unique; the map binding enforces that.
	GrainStorage map[string]ConnectionConfig `mapstructure:"grain_storage"`

	// Reminders selects the reminder table backend
	Reminders *ConnectionConfig `mapstructure:"reminders"`
}

// ConnectionConfig describes one backend binding: which kind of backend, and
// which named connection string it reads. Both fields are required whenever
// the descriptor is present.
type ConnectionConfig struct {
	// ConnectionType is one of the ConnectionType constants (case-insensitive)
	ConnectionType string `mapstructure:"connection_type"`

	// ConnectionName is a key into Config.ConnectionStrings
	ConnectionName string `mapstructure:"connection_name"`
}

// Load loads configuration from file, environment, and defaults.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (SILOHOST_*)
//  2. Configuration file
//  3. Default values
//
// Parameters:
//   - configPath: Path to config file (empty string uses default location)
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: Configuration loading or validation error
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setupViper(v, configPath)

	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// setupViper configures viper with environment variables and config file settings.
func setupViper(v *viper.Viper, configPath string) {
	// Environment variables use the SILOHOST_ prefix and underscores
	// Example: SILOHOST_LOGGING_LEVEL=DEBUG
	v.SetEnvPrefix("SILOHOST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Default location: $XDG_CONFIG_HOME/silohost/config.yaml
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if it exists.
func readConfigFile(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// No config file is acceptable - defaults apply
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	return nil
}

// getConfigDir returns the configuration directory path.
//
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config, or falls back to the
// current directory if the home directory cannot be determined.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "silohost")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "silohost")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}
