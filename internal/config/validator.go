package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validate validates the Config using struct tags plus cross-field
// rules. A broken policy configuration is fatal: running with a policy
// the operator did not intend is worse than not starting.
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())

	if err := v.Struct(c); err != nil {
		return formatValidationErrors(err)
	}

	return c.validateGuardNamesUnique()
}

// validateGuardNamesUnique ensures denial messages are unambiguous.
func (c *Config) validateGuardNamesUnique() error {
	seen := make(map[string]struct{}, len(c.Guards))
	for i, g := range c.Guards {
		if _, dup := seen[g.Name]; dup {
			return fmt.Errorf("guards[%d]: duplicate guard name %q", i, g.Name)
		}
		seen[g.Name] = struct{}{}
	}
	return nil
}

// formatValidationErrors converts validator.ValidationErrors to
// user-friendly messages.
func formatValidationErrors(err error) error {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		var messages []string
		for _, e := range validationErrors {
			messages = append(messages, formatSingleValidationError(e))
		}
		return errors.New(strings.Join(messages, "; "))
	}
	return err
}

func formatSingleValidationError(e validator.FieldError) string {
	field := e.Namespace()
	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "required_if":
		return fmt.Sprintf("%s is required (%s)", field, e.Param())
	case "min":
		return fmt.Sprintf("%s must have at least %s items", field, e.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, e.Param())
	case "hostname_port":
		return fmt.Sprintf("%s must be a valid host:port", field)
	default:
		return fmt.Sprintf("%s failed validation: %s", field, e.Tag())
	}
}
