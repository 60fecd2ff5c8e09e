package timing

import "fmt"

// ConfigurationError reports a rejected configuration value. The clock's
// state is unchanged when one is returned.
type ConfigurationError struct {
	Field  string
	Value  any
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("timing: invalid %s %v: %s", e.Field, e.Value, e.Reason)
}

func errConfig(field string, value any, reason string) error {
	return &ConfigurationError{Field: field, Value: value, Reason: reason}
}
