// Package validation defines the typed error for rejected client input.
// Validation failures are resolved at the façade and never reach the store.
package validation

import "fmt"

// Error describes a bad or missing request field. Handlers map it to a
// 400-class response; it is never logged as a server fault.
type Error struct {
	Field  string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Errorf builds an Error for field with a formatted reason.
func Errorf(field, format string, args ...any) *Error {
	return &Error{Field: field, Reason: fmt.Sprintf(format, args...)}
}
