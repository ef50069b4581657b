package collector

import (
	"sort"
	"strings"
	"time"

	"github.com/micro-ha/mikrotik-monitor/internal/model"
)

// Interfaces maps /interface/print rows. Rows without a name are dropped.
func Interfaces(rows []map[string]string) []model.InterfaceInfo {
	items := make([]model.InterfaceInfo, 0, len(rows))
	for _, row := range rows {
		name := strings.TrimSpace(row["name"])
		if name == "" {
			continue
		}
		items = append(items, model.InterfaceInfo{
			Name:       name,
			Type:       strings.TrimSpace(row["type"]),
			Comment:    strings.TrimSpace(row["comment"]),
			Running:    boolFromWord(row["running"]),
			Disabled:   boolFromWord(row["disabled"]),
			MACAddress: canonicalMAC(row["mac-address"]),
		})
	}
	return items
}

// Monitorable lists names of interfaces that are running and not disabled,
// sorted for a stable polling order.
func Monitorable(items []model.InterfaceInfo) []string {
	names := make([]string, 0, len(items))
	for _, item := range items {
		if item.Running && !item.Disabled {
			names = append(names, item.Name)
		}
	}
	sort.Strings(names)
	return names
}

// FilterInterfaces keeps interfaces of the given type; an empty type keeps all.
func FilterInterfaces(items []model.InterfaceInfo, kind string) []model.InterfaceInfo {
	kind = strings.TrimSpace(kind)
	if kind == "" {
		return items
	}
	out := make([]model.InterfaceInfo, 0, len(items))
	for _, item := range items {
		if strings.EqualFold(item.Type, kind) {
			out = append(out, item)
		}
	}
	return out
}

// Traffic maps one /interface/monitor-traffic once reply.
func Traffic(name string, rows []map[string]string, now time.Time) model.InterfaceTraffic {
	row := firstRow(rows)
	return model.InterfaceTraffic{
		Name:               firstNonEmpty(name, row["name"]),
		RxBitsPerSecond:    parseFloat64(row["rx-bits-per-second"]),
		TxBitsPerSecond:    parseFloat64(row["tx-bits-per-second"]),
		RxPacketsPerSecond: parseFloat64(row["rx-packets-per-second"]),
		TxPacketsPerSecond: parseFloat64(row["tx-packets-per-second"]),
		RxDrops:            parseInt64(firstNonEmpty(row["rx-drops-per-second"], row["rx-drops"])),
		TxDrops:            parseInt64(firstNonEmpty(row["tx-drops-per-second"], row["tx-drops"])),
		RxErrors:           parseInt64(firstNonEmpty(row["rx-errors-per-second"], row["rx-errors"])),
		TxErrors:           parseInt64(firstNonEmpty(row["tx-errors-per-second"], row["tx-errors"])),
		CapturedAt:         now,
	}
}

// SummarizeTraffic sums rx as download and tx as upload over every entry.
// Callers pass only running interfaces.
func SummarizeTraffic(traffic map[string]model.InterfaceTraffic, now time.Time) model.TrafficSummary {
	var summary model.TrafficSummary
	for _, item := range traffic {
		summary.Download += item.RxBitsPerSecond
		summary.Upload += item.TxBitsPerSecond
	}
	summary.Total = summary.Download + summary.Upload
	summary.CapturedAt = now
	return summary
}
