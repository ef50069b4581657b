// Package collector turns raw RouterOS rows into typed snapshots. Every
// function is pure: no I/O, and missing or malformed fields become zero.
package collector

import (
	"math"
	"strconv"
	"strings"
)

func parseInt64(value string) int64 {
	clean := strings.TrimSpace(value)
	if clean == "" {
		return 0
	}
	if parsed, err := strconv.ParseInt(clean, 10, 64); err == nil {
		return parsed
	}
	if parsed, err := strconv.ParseFloat(clean, 64); err == nil && !math.IsNaN(parsed) && !math.IsInf(parsed, 0) {
		return int64(parsed)
	}
	return 0
}

func parseInt(value string) int {
	return int(parseInt64(value))
}

func parseFloat64(value string) float64 {
	clean := strings.TrimSpace(value)
	if clean == "" {
		return 0
	}
	parsed, err := strconv.ParseFloat(clean, 64)
	if err != nil || math.IsNaN(parsed) || math.IsInf(parsed, 0) {
		return 0
	}
	return parsed
}

func boolFromWord(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "yes", "on", "enabled":
		return true
	default:
		return false
	}
}

func canonicalMAC(value string) string {
	clean := strings.TrimSpace(strings.ToUpper(value))
	return strings.ReplaceAll(clean, "-", ":")
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func percent(part, total int64) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(part) / float64(total) * 100))
}

// parseRate reads RouterOS rate strings such as "87Mbps", "1.3Gbps-80MHz/2S"
// or a bare bit count.
func parseRate(value string) float64 {
	clean := strings.ToLower(strings.TrimSpace(value))
	if clean == "" {
		return 0
	}
	end := 0
	for end < len(clean) && (clean[end] >= '0' && clean[end] <= '9' || clean[end] == '.') {
		end++
	}
	number := parseFloat64(clean[:end])
	unit := clean[end:]
	switch {
	case strings.HasPrefix(unit, "gbps"):
		return number * 1e9
	case strings.HasPrefix(unit, "mbps"):
		return number * 1e6
	case strings.HasPrefix(unit, "kbps"):
		return number * 1e3
	default:
		return number
	}
}

// FormatBitRate renders bits per second the way the dashboard shows rates.
func FormatBitRate(bps float64) string {
	switch {
	case bps >= 1e9:
		return strconv.FormatFloat(bps/1e9, 'f', 1, 64) + " Gbps"
	case bps >= 1e6:
		return strconv.FormatFloat(bps/1e6, 'f', 0, 64) + " Mbps"
	case bps >= 1e3:
		return strconv.FormatFloat(bps/1e3, 'f', 1, 64) + " Kbps"
	default:
		return strconv.FormatFloat(bps, 'f', 0, 64) + " bps"
	}
}
