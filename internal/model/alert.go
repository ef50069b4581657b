package model

import "time"

type AlertType string

const (
	AlertTypeConnection  AlertType = "connection"
	AlertTypeTemperature AlertType = "temperature"
	AlertTypeMemory      AlertType = "memory"
	AlertTypeTraffic     AlertType = "traffic"
	AlertTypeCustom      AlertType = "custom"
)

type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

// Valid reports whether s is one of the known severities.
func (s Severity) Valid() bool {
	switch s {
	case SeverityInfo, SeverityWarning, SeverityError, SeverityCritical:
		return true
	default:
		return false
	}
}

// AlertDraft is an alert that has not been persisted yet.
type AlertDraft struct {
	DeviceID    int64          `json:"deviceId"`
	Type        AlertType      `json:"type"`
	Severity    Severity       `json:"severity"`
	Message     string         `json:"message"`
	Description string         `json:"description,omitempty"`
	Data        map[string]any `json:"data,omitempty"`
}

// Alert is a persisted anomaly or state change. Only Read is mutable.
type Alert struct {
	ID          int64          `json:"id"`
	DeviceID    int64          `json:"deviceId"`
	Type        AlertType      `json:"type"`
	Severity    Severity       `json:"severity"`
	Message     string         `json:"message"`
	Description string         `json:"description,omitempty"`
	Data        map[string]any `json:"data,omitempty"`
	CreatedAt   time.Time      `json:"timestamp"`
	Read        bool           `json:"read"`
}
