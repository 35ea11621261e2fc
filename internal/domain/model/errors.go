package model

import (
	"errors"
	"fmt"
)

// Sentinel error kinds. Typed errors below match them with errors.Is.
var (
	ErrSchema        = errors.New("schema error")
	ErrConfiguration = errors.New("configuration error")
)

// SchemaError reports a structurally required column missing from every record.
type SchemaError struct {
	Column string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema error: required column %q is absent", e.Column)
}

// Is matches ErrSchema.
func (e *SchemaError) Is(target error) bool { return target == ErrSchema }

// ConfigurationError reports an invalid pipeline parameter.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Reason)
}

// Is matches ErrConfiguration.
func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }
