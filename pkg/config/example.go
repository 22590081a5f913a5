package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// exampleConfig is the document written by WriteExample. It is kept as a
// plain structure (not Config) so the YAML field names and ordering stay
// readable regardless of mapstructure tags.
type exampleConfig struct {
	Logging struct {
		Level  string `yaml:"level"`
		Output string `yaml:"output"`
	} `yaml:"logging"`
	Server struct {
		SiloName        string `yaml:"silo_name"`
		ShutdownTimeout string `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Grains struct {
		ClusterID  string `yaml:"cluster_id"`
		ServiceID  string `yaml:"service_id"`
		Clustering struct {
			ConnectionType string `yaml:"connection_type"`
			ConnectionName string `yaml:"connection_name"`
		} `yaml:"clustering"`
		GrainStorage map[string]struct {
			ConnectionType string `yaml:"connection_type"`
			ConnectionName string `yaml:"connection_name"`
		} `yaml:"grain_storage"`
		Reminders struct {
			ConnectionType string `yaml:"connection_type"`
			ConnectionName string `yaml:"connection_name"`
		} `yaml:"reminders"`
	} `yaml:"grains"`
	ConnectionStrings map[string]string `yaml:"connection_strings"`
}

// WriteExample writes a commented starter configuration to path, creating
// parent directories as needed. It refuses to overwrite an existing file.
func WriteExample(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	var ex exampleConfig
	ex.Logging.Level = "INFO"
	ex.Logging.Output = "stdout"
	ex.Server.SiloName = "silo-1"
	ex.Server.ShutdownTimeout = "30s"
	ex.Grains.ClusterID = "dev"
	ex.Grains.ServiceID = "dev"
	ex.Grains.Clustering.ConnectionType = string(ConnectionInternal)
	ex.Grains.Clustering.ConnectionName = "local"
	ex.Grains.GrainStorage = map[string]struct {
		ConnectionType string `yaml:"connection_type"`
		ConnectionName string `yaml:"connection_name"`
	}{
		"default": {
			ConnectionType: string(ConnectionInternal),
			ConnectionName: "local",
		},
	}
	ex.Grains.Reminders.ConnectionType = string(ConnectionInternal)
	ex.Grains.Reminders.ConnectionName = "local"
	ex.ConnectionStrings = map[string]string{
		"local": "127.0.0.1:11111",
	}

	encoded, err := yaml.Marshal(&ex)
	if err != nil {
		return fmt.Errorf("failed to marshal example config: %w", err)
	}

	header := []byte("# silohost configuration\n# Backend types: Internal, AzureTables, AzureBlobs, Badger, S3\n\n")

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, append(header, encoded...), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
