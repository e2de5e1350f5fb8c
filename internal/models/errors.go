package models

import "fmt"

// ValidationError names the first form field that failed validation.
// It is reported to the user verbatim, never silently corrected.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}
