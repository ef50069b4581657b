package device

import (
	"errors"
	"fmt"
)

// ErrDeviceNotFound indicates missing device by id.
var ErrDeviceNotFound = errors.New("device not found")

// ValidationError describes a malformed device field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "device validation error"
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
