package config

import "fmt"

// The resolver fails fast on misconfiguration with one of three typed
// errors. They abort host startup; nothing here is retried.

// ConfigurationError reports a required field that is missing or blank,
// naming the offending section and field.
type ConfigurationError struct {
	Section string
	Field   string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s: %s is required", e.Section, e.Field)
}

// UnsupportedBackendError reports a connection type value that no backend
// implements.
type UnsupportedBackendError struct {
	Section        string
	ConnectionType string
}

func (e *UnsupportedBackendError) Error() string {
	return fmt.Sprintf("%s: unsupported connection type %q", e.Section, e.ConnectionType)
}

// InvalidConnectionError reports a named connection string that is present
// but cannot be parsed in the format the selected backend expects.
type InvalidConnectionError struct {
	Section        string
	ConnectionName string
	Err            error
}

func (e *InvalidConnectionError) Error() string {
	return fmt.Sprintf("%s: connection %q is invalid: %v", e.Section, e.ConnectionName, e.Err)
}

func (e *InvalidConnectionError) Unwrap() error {
	return e.Err
}
