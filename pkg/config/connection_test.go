package config

import (
	"errors"
	"testing"
)

func TestParseConnectionType_ExactMatch(t *testing.T) {
	ct, err := parseConnectionType("grains.clustering", "Internal",
		ConnectionInternal, ConnectionAzureTables)
	if err != nil {
		t.Fatalf("Expected Internal to parse, got error: %v", err)
	}
	if ct != ConnectionInternal {
		t.Errorf("Expected ConnectionInternal, got %q", ct)
	}
}

func TestParseConnectionType_CaseInsensitive(t *testing.T) {
	for _, raw := range []string{"internal", "INTERNAL", "azuretables", "AZURETABLES"} {
		if _, err := parseConnectionType("grains.clustering", raw,
			ConnectionInternal, ConnectionAzureTables); err != nil {
			t.Errorf("Expected %q to parse case-insensitively, got error: %v", raw, err)
		}
	}
}

func TestParseConnectionType_OutsideAllowedSet(t *testing.T) {
	// AzureBlobs is a real backend, but not every section supports it.
	_, err := parseConnectionType("grains.clustering", "AzureBlobs",
		ConnectionInternal, ConnectionAzureTables)
	if err == nil {
		t.Fatal("Expected error for type outside the allowed set")
	}

	var backendErr *UnsupportedBackendError
	if !errors.As(err, &backendErr) {
		t.Fatalf("Expected UnsupportedBackendError, got %T: %v", err, err)
	}
	if backendErr.Section != "grains.clustering" {
		t.Errorf("Expected section grains.clustering, got %q", backendErr.Section)
	}
	if backendErr.ConnectionType != "AzureBlobs" {
		t.Errorf("Expected offending type AzureBlobs, got %q", backendErr.ConnectionType)
	}
}

func TestParseConnectionType_UnknownValue(t *testing.T) {
	_, err := parseConnectionType("grains.grain_storage.default", "Redis",
		ConnectionInternal, ConnectionAzureTables, ConnectionAzureBlobs,
		ConnectionBadger, ConnectionS3)
	if err == nil {
		t.Fatal("Expected error for unknown connection type")
	}
}
