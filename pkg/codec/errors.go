package codec

import "fmt"

// FormatError reports malformed binary or text input
type FormatError struct {
	Record   string
	Field    string
	Offset   int
	Expected string
	Actual   string
}

func (e *FormatError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid %s at offset %d: expected %s, got %s", e.Record, e.Offset, e.Expected, e.Actual)
	}
	return fmt.Sprintf("invalid %s: field %s at offset %d: expected %s, got %s",
		e.Record, e.Field, e.Offset, e.Expected, e.Actual)
}

// ValidationError reports a field value outside its closed domain
type ValidationError struct {
	Field  string
	Value  string
	Domain string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s (allowed: %s)", e.Field, e.Value, e.Domain)
}

// Invalid builds a ValidationError
func Invalid(field string, value any, domain string) *ValidationError {
	return &ValidationError{Field: field, Value: fmt.Sprint(value), Domain: domain}
}
