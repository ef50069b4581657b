package alert

import (
	"fmt"
	"strings"

	"github.com/micro-ha/mikrotik-monitor/internal/model"
)

type (
	Alert    = model.Alert
	Draft    = model.AlertDraft
	Type     = model.AlertType
	Severity = model.Severity
)

// Validate rejects drafts the store must not accept.
func Validate(d Draft) error {
	if d.DeviceID <= 0 {
		return fmt.Errorf("%w: device id is required", ErrInvalidAlert)
	}
	switch d.Type {
	case model.AlertTypeConnection, model.AlertTypeTemperature, model.AlertTypeMemory,
		model.AlertTypeTraffic, model.AlertTypeCustom:
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidAlert, d.Type)
	}
	if !d.Severity.Valid() {
		return fmt.Errorf("%w: unknown severity %q", ErrInvalidAlert, d.Severity)
	}
	if strings.TrimSpace(d.Message) == "" {
		return fmt.Errorf("%w: message is required", ErrInvalidAlert)
	}
	return nil
}
