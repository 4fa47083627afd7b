// ABOUTME: Validation errors for malformed source records
// ABOUTME: These are skip-and-log only; a bad record never aborts a batch
package core

import "fmt"

// ValidationError describes a source record missing a required field.
// The chunk builder logs it and moves on.
type ValidationError struct {
	RecordID string
	Field    string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("record %q missing required field %s", e.RecordID, e.Field)
}
