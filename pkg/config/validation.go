package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// validate is the singleton validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Validate validates the configuration using struct tags and custom rules.
//
// This function uses go-playground/validator for declarative validation via
// struct tags, with additional custom validation for rules that cannot be
// expressed in tags. Descriptor-level checks (required fields, supported
// backend types, parseable connection strings) are deliberately left to the
// resolver, which reports them with the typed errors in errors.go.
//
// Returns an error describing validation failures.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}

	if err := validateCustomRules(cfg); err != nil {
		return err
	}

	return nil
}

// validateCustomRules performs custom validation beyond struct tags.
func validateCustomRules(cfg *Config) error {
	// Grain storage names are map keys, so duplicates cannot survive the
	// binding; blank names can, and are rejected here.
	for name := range cfg.Grains.GrainStorage {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("grains.grain_storage: storage name cannot be blank")
		}
	}

	for name, value := range cfg.ConnectionStrings {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("connection_strings: connection name cannot be blank")
		}
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("connection_strings: connection %q cannot be blank", name)
		}
	}

	return nil
}

// formatValidationError converts validator errors into user-friendly messages.
func formatValidationError(err error) error {
	if validationErrs, ok := err.(validator.ValidationErrors); ok {
		// Return the first validation error with context
		if len(validationErrs) > 0 {
			e := validationErrs[0]
			return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)",
				e.Namespace(), e.Tag(), e.Value())
		}
	}
	return err
}
