package collector

import (
	"sort"
	"strings"
	"time"

	"github.com/micro-ha/mikrotik-monitor/internal/model"
)

const unknown = "Unknown"

// System builds a SystemSnapshot from /system/resource/print, optional
// /system/health/print and /system/resource/cpu/print rows.
func System(resource []map[string]string, health []map[string]string, cpu []map[string]string, now time.Time) model.SystemSnapshot {
	row := firstRow(resource)

	total := parseInt64(row["total-memory"])
	free := parseInt64(row["free-memory"])
	used := total - free
	if used < 0 {
		used = 0
	}

	uptime := ParseUptime(row["uptime"])
	boardName := firstNonEmpty(row["board-name"], unknown)
	return model.SystemSnapshot{
		Uptime:            uptime,
		UptimeText:        FormatUptime(uptime),
		LastReboot:        RebootTime(now, uptime),
		Version:           strings.TrimSpace(row["version"]),
		Model:             boardName,
		SerialNumber:      firstNonEmpty(row["serial-number"], unknown),
		CPULoad:           parseInt(row["cpu-load"]),
		CPUCores:          parseInt(row["cpu-count"]),
		CPUFrequencyMHz:   parseInt(row["cpu-frequency"]),
		Temperature:       Temperature(health),
		TotalMemory:       total,
		UsedMemory:        used,
		FreeMemory:        free,
		MemoryUsedPercent: percent(used, total),
		TotalDisk:         parseInt64(row["total-hdd-space"]),
		FreeDisk:          parseInt64(row["free-hdd-space"]),
		Architecture:      firstNonEmpty(row["architecture-name"], row["architecture"], unknown),
		BoardName:         boardName,
		FirmwareType:      firstNonEmpty(row["firmware-type"], unknown),
		FactorySoftware:   firstNonEmpty(row["factory-software"], unknown),
		ProcessCount:      len(cpu),
		CapturedAt:        now,
	}
}

// Temperature reads the CPU or board temperature from health rows. RouterOS 6
// reports a single row with named columns; RouterOS 7 reports name/value rows.
func Temperature(health []map[string]string) float64 {
	for _, row := range health {
		for _, key := range []string{"cpu-temperature", "temperature", "board-temperature1"} {
			if value, ok := row[key]; ok {
				return parseFloat64(value)
			}
		}
	}
	for _, key := range []string{"cpu-temperature", "temperature", "board-temperature1"} {
		for _, row := range health {
			if row["name"] == key {
				return parseFloat64(row["value"])
			}
		}
	}
	return 0
}

// Storage maps USB storage rows, falling back to the built-in flash reported
// by /system/resource/print when no USB device is present.
func Storage(usb []map[string]string, resource []map[string]string, now time.Time) []model.StorageDevice {
	if len(usb) > 0 {
		items := make([]model.StorageDevice, 0, len(usb))
		for _, row := range usb {
			total := parseInt64(row["size"])
			free := parseInt64(row["free-space"])
			items = append(items, storageDevice(firstNonEmpty(row["name"], "USB Storage"), "usb", total, free, now))
		}
		return items
	}
	if len(resource) == 0 {
		return []model.StorageDevice{}
	}
	row := resource[0]
	return []model.StorageDevice{
		storageDevice("Flash Storage", "flash", parseInt64(row["total-hdd-space"]), parseInt64(row["free-hdd-space"]), now),
	}
}

func storageDevice(name, kind string, total, free int64, now time.Time) model.StorageDevice {
	used := total - free
	if used < 0 {
		used = 0
	}
	return model.StorageDevice{
		Name:        name,
		Type:        kind,
		Total:       total,
		Used:        used,
		Free:        free,
		UsedPercent: percent(used, total),
		CapturedAt:  now,
	}
}

// Files returns the limit largest files, biggest first.
func Files(rows []map[string]string, limit int) []model.FileInfo {
	items := make([]model.FileInfo, 0, len(rows))
	for _, row := range rows {
		items = append(items, model.FileInfo{
			Name:         firstNonEmpty(row["name"], "Unknown file"),
			Size:         parseInt64(row["size"]),
			CreationTime: firstNonEmpty(row["creation-time"], unknown),
		})
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].Size > items[j].Size })
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}

// Identity returns the router's configured system identity.
func Identity(rows []map[string]string) string {
	return strings.TrimSpace(firstRow(rows)["name"])
}

func firstRow(rows []map[string]string) map[string]string {
	if len(rows) == 0 || rows[0] == nil {
		return map[string]string{}
	}
	return rows[0]
}
