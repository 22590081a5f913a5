package config

import (
	"strings"
	"testing"
)

func validConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

func TestValidate_ValidConfig(t *testing.T) {
	cfg := validConfig()

	if err := Validate(cfg); err != nil {
		t.Errorf("Expected valid config to pass validation, got error: %v", err)
	}
}

func TestValidate_InvalidLogLevel(t *testing.T) {
	cfg := validConfig()
	cfg.Logging.Level = "INVALID"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for invalid log level")
	}
	if !strings.Contains(err.Error(), "oneof") {
		t.Errorf("Expected 'oneof' validation error, got: %v", err)
	}
}

func TestValidate_MissingLogOutput(t *testing.T) {
	cfg := validConfig()
	cfg.Logging.Output = ""

	if err := Validate(cfg); err == nil {
		t.Fatal("Expected validation error for missing log output")
	}
}

func TestValidate_ZeroShutdownTimeout(t *testing.T) {
	cfg := validConfig()
	cfg.Server.ShutdownTimeout = 0

	if err := Validate(cfg); err == nil {
		t.Fatal("Expected validation error for zero shutdown timeout")
	}
}

func TestValidate_BlankStorageName(t *testing.T) {
	cfg := validConfig()
	cfg.Grains.GrainStorage[" "] = ConnectionConfig{
		ConnectionType: "Internal",
		ConnectionName: "local",
	}

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for blank storage name")
	}
	if !strings.Contains(err.Error(), "storage name") {
		t.Errorf("Expected 'storage name' error, got: %v", err)
	}
}

func TestValidate_BlankConnectionString(t *testing.T) {
	cfg := validConfig()
	cfg.ConnectionStrings["empty"] = "  "

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for blank connection string")
	}
	if !strings.Contains(err.Error(), "empty") {
		t.Errorf("Expected error to name the connection, got: %v", err)
	}
}

func TestValidate_DescriptorFieldsLeftToResolver(t *testing.T) {
	// Incomplete descriptors pass static validation; the resolver reports
	// them with typed errors instead.
	cfg := validConfig()
	cfg.Grains.Clustering = &ConnectionConfig{}

	if err := Validate(cfg); err != nil {
		t.Errorf("Expected incomplete descriptor to pass static validation, got: %v", err)
	}
}
