// Package evaluator derives alert drafts from snapshots using fixed
// thresholds. It keeps no state between calls, so a sustained condition
// yields a draft on every evaluation.
package evaluator

import (
	"fmt"
	"math"
	"sort"

	"github.com/micro-ha/mikrotik-monitor/internal/model"
)

// Evaluator compares snapshots against a fixed set of thresholds.
type Evaluator struct {
	thresholds model.Thresholds
}

// New normalizes thresholds, filling unset values with defaults.
func New(thresholds model.Thresholds) *Evaluator {
	return &Evaluator{thresholds: thresholds.Normalize()}
}

// Thresholds returns the effective thresholds after defaults were applied.
func (e *Evaluator) Thresholds() model.Thresholds {
	return e.thresholds
}

// Evaluate returns temperature and memory drafts first, then one traffic
// draft per offending interface in name order.
func (e *Evaluator) Evaluate(deviceID int64, traffic map[string]model.InterfaceTraffic, system model.SystemSnapshot) []model.AlertDraft {
	drafts := make([]model.AlertDraft, 0)

	if system.Temperature > e.thresholds.TemperatureCelsius {
		drafts = append(drafts, model.AlertDraft{
			DeviceID: deviceID,
			Type:     model.AlertTypeTemperature,
			Severity: model.SeverityWarning,
			Message:  "CPU Temperature Warning",
			Description: fmt.Sprintf(
				"CPU temperature has exceeded the warning threshold (%s°C). Please check ventilation.",
				formatNumber(system.Temperature),
			),
			Data: map[string]any{"temperature": system.Temperature},
		})
	}

	if system.MemoryUsedPercent > e.thresholds.MemoryUsedPercent {
		drafts = append(drafts, model.AlertDraft{
			DeviceID: deviceID,
			Type:     model.AlertTypeMemory,
			Severity: model.SeverityWarning,
			Message:  "High Memory Usage",
			Description: fmt.Sprintf(
				"Memory usage is high (%d%%). Consider restarting the device if performance is affected.",
				system.MemoryUsedPercent,
			),
			Data: map[string]any{"memoryUsed": system.MemoryUsedPercent},
		})
	}

	names := make([]string, 0, len(traffic))
	for name := range traffic {
		names = append(names, name)
	}
	sort.Strings(names)

	limit := e.thresholds.TrafficBitsPerSecond
	for _, name := range names {
		item := traffic[name]
		if item.RxBitsPerSecond <= limit && item.TxBitsPerSecond <= limit {
			continue
		}
		rxMbps := item.RxBitsPerSecond / 1e6
		txMbps := item.TxBitsPerSecond / 1e6
		drafts = append(drafts, model.AlertDraft{
			DeviceID: deviceID,
			Type:     model.AlertTypeTraffic,
			Severity: model.SeverityInfo,
			Message:  "High Bandwidth Usage",
			Description: fmt.Sprintf(
				"Interface %s is experiencing high traffic (RX: %.2f Mbps, TX: %.2f Mbps).",
				name, rxMbps, txMbps,
			),
			Data: map[string]any{
				"interface": name,
				"rxMbps":    math.Round(rxMbps*100) / 100,
				"txMbps":    math.Round(txMbps*100) / 100,
			},
		})
	}
	return drafts
}

// ConnectionLost builds the critical draft raised when a device cannot be reached.
func ConnectionLost(deviceID int64, cause error) model.AlertDraft {
	description := "Failed to connect to device"
	if cause != nil {
		description = fmt.Sprintf("Failed to connect to device: %v", cause)
	}
	return model.AlertDraft{
		DeviceID:    deviceID,
		Type:        model.AlertTypeConnection,
		Severity:    model.SeverityCritical,
		Message:     "Connection Lost",
		Description: description,
	}
}

func formatNumber(v float64) string {
	if v == math.Trunc(v) {
		return fmt.Sprintf("%.0f", v)
	}
	return fmt.Sprintf("%.1f", v)
}
