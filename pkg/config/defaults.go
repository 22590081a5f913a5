package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// This function is called after loading configuration from file and
// environment variables to fill in any missing values with sensible
// defaults. Zero values are replaced; explicit values are preserved.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyServerDefaults(&cfg.Server)
	applyGrainsDefaults(&cfg.Grains)

	if cfg.ConnectionStrings == nil {
		cfg.ConnectionStrings = make(map[string]string)
	}
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	// Normalize to uppercase for consistent internal representation
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

// applyServerDefaults sets server defaults.
func applyServerDefaults(cfg *ServerConfig) {
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
	if cfg.SiloName == "" {
		if host, err := os.Hostname(); err == nil {
			cfg.SiloName = fmt.Sprintf("silo-%s", host)
		} else {
			cfg.SiloName = "silo-local"
		}
	}
}

// applyGrainsDefaults sets grain subsystem defaults.
func applyGrainsDefaults(cfg *GrainsConfig) {
	if cfg.ClusterID == "" {
		cfg.ClusterID = "dev"
	}
	if cfg.ServiceID == "" {
		cfg.ServiceID = "dev"
	}
	if cfg.GrainStorage == nil {
		cfg.GrainStorage = make(map[string]ConnectionConfig)
	}
}
