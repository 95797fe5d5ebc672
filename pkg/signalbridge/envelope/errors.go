package envelope

import "fmt"

// ValidationError indicates a payload that does not conform to its schema.
type ValidationError struct {
	Field   string // dotted path of the offending field, when known
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation error on %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

// UnsupportedKindError indicates an envelope kind with no registered validator.
type UnsupportedKindError struct {
	Kind Kind
}

// Error implements the error interface.
func (e *UnsupportedKindError) Error() string {
	return fmt.Sprintf("unsupported envelope kind: %s", e.Kind)
}
