package collector

import (
	"math"
	"strings"
	"time"

	"github.com/micro-ha/mikrotik-monitor/internal/model"
)

const (
	noiseFloorDBm   = -95
	missingSignal   = -100
	band5GHz        = "5GHz"
	band24GHz       = "2.4GHz"
	fastLinkRateBps = 150_000_000
)

var ouiDeviceTypes = map[string]string{
	"00:0C:E7": "tablet",
	"AC:CF:85": "phone",
	"34:02:86": "phone",
	"F4:8C:50": "laptop",
	"00:25:90": "tv",
	"94:E6:F7": "tv",
	"78:E8:81": "phone",
}

// WiFiClients maps wireless registration-table rows.
func WiFiClients(rows []map[string]string, now time.Time) []model.WiFiClient {
	items := make([]model.WiFiClient, 0, len(rows))
	for _, row := range rows {
		mac := canonicalMAC(row["mac-address"])
		signal := missingSignal
		if raw := firstNonEmpty(row["signal-strength"], row["signal"]); raw != "" {
			signal = parseSignal(raw)
		}
		txRate := parseRate(row["tx-rate"])
		comment := strings.TrimSpace(row["comment"])
		deviceType := DeviceType(mac, comment)
		iface := strings.TrimSpace(row["interface"])

		items = append(items, model.WiFiClient{
			ID:             firstNonEmpty(row[".id"], "client-"+mac),
			Interface:      iface,
			MACAddress:     mac,
			IPAddress:      strings.TrimSpace(row["last-ip"]),
			Name:           firstNonEmpty(comment, deviceType),
			SignalStrength: signal,
			SNR:            SNR(signal, row["signal-to-noise"]),
			SignalQuality:  SignalQuality(signal),
			TxRate:         FormatBitRate(txRate),
			RxRate:         FormatBitRate(parseRate(row["rx-rate"])),
			Band:           Band(iface, txRate),
			Uptime:         ParseUptime(row["uptime"]),
			DeviceType:     deviceType,
			CapturedAt:     now,
		})
	}
	return items
}

// parseSignal reads "-65" or "-65@5.8Gbps"-style values.
func parseSignal(value string) int {
	head, _, _ := strings.Cut(value, "@")
	return parseInt(strings.TrimSuffix(strings.TrimSpace(head), "dBm"))
}

// SNR prefers the reported signal-to-noise and otherwise estimates it against
// a -95 dBm noise floor.
func SNR(signal int, reported string) int {
	if strings.TrimSpace(reported) != "" {
		return parseInt(reported)
	}
	if estimate := signal - noiseFloorDBm; estimate > 0 {
		return estimate
	}
	return 0
}

// SignalQuality maps dBm to 0..100: -50 and above is 100, -90 and below is 0.
func SignalQuality(signal int) int {
	switch {
	case signal >= -50:
		return 100
	case signal <= -90:
		return 0
	default:
		return int(math.Round(float64(signal+90) / 40 * 100))
	}
}

// Band guesses the radio band from the interface name, then the link rate.
func Band(iface string, txRateBps float64) string {
	name := strings.ToLower(iface)
	switch {
	case strings.Contains(name, "2.4") || strings.Contains(name, "2g"):
		return band24GHz
	case strings.Contains(name, "5g") || strings.Contains(name, "5"):
		return band5GHz
	case txRateBps > fastLinkRateBps:
		return band5GHz
	default:
		return band24GHz
	}
}

// DeviceType guesses a client category from its comment, then its OUI.
func DeviceType(mac, comment string) string {
	if mac == "" {
		return ""
	}
	lower := strings.ToLower(comment)
	switch {
	case strings.Contains(lower, "phone"), strings.Contains(lower, "android"):
		return "phone"
	case strings.Contains(lower, "laptop"), strings.Contains(lower, "macbook"):
		return "laptop"
	case strings.Contains(lower, "tablet"), strings.Contains(lower, "ipad"):
		return "tablet"
	case strings.Contains(lower, "tv"), strings.Contains(lower, "television"):
		return "tv"
	}
	if len(mac) >= 8 {
		return ouiDeviceTypes[strings.ToUpper(mac[:8])]
	}
	return ""
}
