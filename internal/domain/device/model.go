package device

import (
	"strings"

	"github.com/micro-ha/mikrotik-monitor/internal/model"
)

// Device is a registered router with its connection parameters.
type Device = model.Device

// Input is the API payload for registering a device.
type Input = model.DeviceInput

// Patch is the API payload for a partial device update.
type Patch = model.DevicePatch

// Validate checks a device record before it is persisted.
func Validate(d Device) error {
	if strings.TrimSpace(d.Name) == "" {
		return &ValidationError{Field: "name", Reason: "is required"}
	}
	if strings.TrimSpace(d.Host) == "" {
		return &ValidationError{Field: "ipAddress", Reason: "is required"}
	}
	if strings.TrimSpace(d.Username) == "" {
		return &ValidationError{Field: "username", Reason: "is required"}
	}
	if d.Port < 1 || d.Port > 65535 {
		return &ValidationError{Field: "port", Reason: "must be between 1 and 65535"}
	}
	return nil
}
