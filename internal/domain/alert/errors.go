package alert

import "errors"

var (
	// ErrAlertNotFound indicates missing alert by id.
	ErrAlertNotFound = errors.New("alert not found")
	// ErrInvalidAlert indicates an alert draft with unknown type or severity.
	ErrInvalidAlert = errors.New("invalid alert")
)
