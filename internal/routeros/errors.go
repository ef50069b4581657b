package routeros

import (
	"errors"
	"fmt"
	"io"
	"net"
	"strings"

	goros "github.com/go-routeros/routeros/v3"
)

// ValidationError describes an invalid connection parameter.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "validation error"
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ConnectionError means a session to the device could not be established or
// was lost while a command was running.
type ConnectionError struct {
	DeviceID int64
	Address  string
	Err      error
}

func (e *ConnectionError) Error() string {
	if e == nil {
		return "routeros connection error"
	}
	if e.Address == "" {
		return fmt.Sprintf("routeros device %d unreachable: %v", e.DeviceID, e.Err)
	}
	return fmt.Sprintf("routeros device %d at %s unreachable: %v", e.DeviceID, e.Address, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// CommandError means a command failed on a live session.
type CommandError struct {
	Command string
	Err     error
}

func (e *CommandError) Error() string {
	if e == nil {
		return "routeros command failed"
	}
	return fmt.Sprintf("routeros command %s failed: %v", e.Command, e.Err)
}

func (e *CommandError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// IsConnectionError reports whether err carries a ConnectionError.
func IsConnectionError(err error) bool {
	var connErr *ConnectionError
	return errors.As(err, &connErr)
}

func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
		return true
	}

	var deviceErr *goros.DeviceError
	if errors.As(err, &deviceErr) {
		return false
	}

	var nerr net.Error
	if errors.As(err, &nerr) {
		return true
	}

	message := strings.ToLower(err.Error())
	for _, marker := range []string{
		"broken pipe",
		"connection reset",
		"use of closed network connection",
		"connection refused",
		"timeout",
	} {
		if strings.Contains(message, marker) {
			return true
		}
	}
	return false
}

// IsMissingCommand reports whether the device rejected a command path it does not know.
func IsMissingCommand(err error) bool {
	if err == nil {
		return false
	}
	text := strings.ToLower(err.Error())
	return strings.Contains(text, "no such command") ||
		strings.Contains(text, "bad command name") ||
		strings.Contains(text, "input does not match")
}
