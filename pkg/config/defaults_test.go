package config

import (
	"strings"
	"testing"
	"time"
)

func TestApplyDefaults_EmptyConfig(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Logging.Level != "INFO" {
		t.Errorf("Expected default level INFO, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Output != "stdout" {
		t.Errorf("Expected default output stdout, got %q", cfg.Logging.Output)
	}
	if cfg.Server.ShutdownTimeout != 30*time.Second {
		t.Errorf("Expected default shutdown timeout 30s, got %v", cfg.Server.ShutdownTimeout)
	}
	if cfg.Server.SiloName == "" {
		t.Error("Expected a generated silo name")
	}
	if !strings.HasPrefix(cfg.Server.SiloName, "silo-") {
		t.Errorf("Expected silo name with silo- prefix, got %q", cfg.Server.SiloName)
	}
	if cfg.Grains.ClusterID != "dev" {
		t.Errorf("Expected default cluster id dev, got %q", cfg.Grains.ClusterID)
	}
	if cfg.Grains.ServiceID != "dev" {
		t.Errorf("Expected default service id dev, got %q", cfg.Grains.ServiceID)
	}
	if cfg.Grains.GrainStorage == nil {
		t.Error("Expected grain storage map to be initialized")
	}
	if cfg.ConnectionStrings == nil {
		t.Error("Expected connection strings map to be initialized")
	}
}

func TestApplyDefaults_PreservesExplicitValues(t *testing.T) {
	cfg := &Config{}
	cfg.Logging.Level = "error"
	cfg.Logging.Output = "stderr"
	cfg.Server.SiloName = "silo-custom"
	cfg.Server.ShutdownTimeout = 5 * time.Second
	cfg.Grains.ClusterID = "prod"

	ApplyDefaults(cfg)

	// Levels are normalized to uppercase
	if cfg.Logging.Level != "ERROR" {
		t.Errorf("Expected level normalized to ERROR, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Output != "stderr" {
		t.Errorf("Expected output stderr preserved, got %q", cfg.Logging.Output)
	}
	if cfg.Server.SiloName != "silo-custom" {
		t.Errorf("Expected silo name preserved, got %q", cfg.Server.SiloName)
	}
	if cfg.Server.ShutdownTimeout != 5*time.Second {
		t.Errorf("Expected shutdown timeout preserved, got %v", cfg.Server.ShutdownTimeout)
	}
	if cfg.Grains.ClusterID != "prod" {
		t.Errorf("Expected cluster id preserved, got %q", cfg.Grains.ClusterID)
	}
}
