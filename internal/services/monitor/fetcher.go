package monitor

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/micro-ha/mikrotik-monitor/internal/collector"
	"github.com/micro-ha/mikrotik-monitor/internal/model"
	"github.com/micro-ha/mikrotik-monitor/internal/routeros"
)

const (
	cmdIdentity       = "/system/identity/print"
	cmdResource       = "/system/resource/print"
	cmdHealth         = "/system/health/print"
	cmdCPU            = "/system/resource/cpu/print"
	cmdUSB            = "/system/resource/usb/print"
	cmdFiles          = "/file/print"
	cmdInterfaces     = "/interface/print"
	cmdMonitorTraffic = "/interface/monitor-traffic"
	cmdWireless       = "/interface/wireless/registration-table/print"
	cmdWiFi           = "/interface/wifi/registration-table/print"
	cmdLog            = "/log/print"

	fileListLimit = 10
)

// Sessions is the part of routeros.Manager the monitor needs.
type Sessions interface {
	Acquire(ctx context.Context, deviceID int64) (*routeros.Handle, error)
	Execute(ctx context.Context, h *routeros.Handle, command string, params map[string]string) ([]map[string]string, error)
}

// TrafficReport is the per-interface traffic of a device plus its totals.
type TrafficReport struct {
	Interfaces map[string]model.InterfaceTraffic `json:"interfaces"`
	Summary    model.TrafficSummary              `json:"summary"`
}

// SystemReport groups the slower system snapshot with storage.
type SystemReport struct {
	System  model.SystemSnapshot  `json:"systemInfo"`
	Storage []model.StorageDevice  `json:"storageInfo"`
}

// VendorLookup resolves a MAC address to its manufacturer.
type VendorLookup interface {
	Lookup(mac string) string
}

// Fetcher issues RouterOS commands on an acquired handle and maps the rows
// into snapshots. ConnectionError always propagates; optional sub-queries
// that fail with CommandError degrade to defaults.
type Fetcher struct {
	sessions Sessions
	vendors  VendorLookup
	logger   zerolog.Logger
	now      func() time.Time
}

// NewFetcher builds a Fetcher. vendors may be nil.
func NewFetcher(sessions Sessions, vendors VendorLookup, logger zerolog.Logger) *Fetcher {
	return &Fetcher{
		sessions: sessions,
		vendors:  vendors,
		logger:   logger.With().Str("component", "monitor").Logger(),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (f *Fetcher) Identity(ctx context.Context, h *routeros.Handle) (string, error) {
	rows, err := f.sessions.Execute(ctx, h, cmdIdentity, nil)
	if err != nil {
		return "", err
	}
	return collector.Identity(rows), nil
}

func (f *Fetcher) Interfaces(ctx context.Context, h *routeros.Handle, kind string) ([]model.InterfaceInfo, error) {
	rows, err := f.sessions.Execute(ctx, h, cmdInterfaces, nil)
	if err != nil {
		return nil, err
	}
	return collector.FilterInterfaces(collector.Interfaces(rows), kind), nil
}

// InterfaceTraffic samples one interface once.
func (f *Fetcher) InterfaceTraffic(ctx context.Context, h *routeros.Handle, name string) (model.InterfaceTraffic, error) {
	rows, err := f.sessions.Execute(ctx, h, cmdMonitorTraffic, map[string]string{
		"interface": name,
		"once":      "",
	})
	if err != nil {
		return model.InterfaceTraffic{}, err
	}
	return collector.Traffic(name, rows, f.now()), nil
}

// Traffic samples every running, enabled interface. An interface whose
// sample fails with a CommandError is left out of the report.
func (f *Fetcher) Traffic(ctx context.Context, h *routeros.Handle) (TrafficReport, error) {
	items, err := f.Interfaces(ctx, h, "")
	if err != nil {
		return TrafficReport{}, err
	}
	traffic := make(map[string]model.InterfaceTraffic)
	for _, name := range collector.Monitorable(items) {
		sample, err := f.InterfaceTraffic(ctx, h, name)
		if err != nil {
			if routeros.IsConnectionError(err) || ctx.Err() != nil {
				return TrafficReport{}, err
			}
			f.logger.Warn().Err(err).Int64("device_id", h.DeviceID).Str("interface", name).Msg("interface traffic skipped")
			continue
		}
		traffic[name] = sample
	}
	return TrafficReport{
		Interfaces: traffic,
		Summary:    collector.SummarizeTraffic(traffic, f.now()),
	}, nil
}

// System builds the system snapshot. Health and CPU are optional.
func (f *Fetcher) System(ctx context.Context, h *routeros.Handle) (model.SystemSnapshot, error) {
	resource, err := f.sessions.Execute(ctx, h, cmdResource, nil)
	if err != nil {
		return model.SystemSnapshot{}, err
	}
	return f.system(ctx, h, resource)
}

// Storage lists USB disks and falls back to the built-in flash.
func (f *Fetcher) Storage(ctx context.Context, h *routeros.Handle) ([]model.StorageDevice, error) {
	resource, err := f.sessions.Execute(ctx, h, cmdResource, nil)
	if err != nil {
		return nil, err
	}
	return f.storage(ctx, h, resource)
}

// SystemReport fetches the system snapshot and storage, reading the resource
// table once for both.
func (f *Fetcher) SystemReport(ctx context.Context, h *routeros.Handle) (SystemReport, error) {
	resource, err := f.sessions.Execute(ctx, h, cmdResource, nil)
	if err != nil {
		return SystemReport{}, err
	}
	system, err := f.system(ctx, h, resource)
	if err != nil {
		return SystemReport{}, err
	}
	storage, err := f.storage(ctx, h, resource)
	if err != nil {
		return SystemReport{}, err
	}
	return SystemReport{System: system, Storage: storage}, nil
}

func (f *Fetcher) system(ctx context.Context, h *routeros.Handle, resource []map[string]string) (model.SystemSnapshot, error) {
	health, err := f.optional(ctx, h, cmdHealth)
	if err != nil {
		return model.SystemSnapshot{}, err
	}
	cpu, err := f.optional(ctx, h, cmdCPU)
	if err != nil {
		return model.SystemSnapshot{}, err
	}
	return collector.System(resource, health, cpu, f.now()), nil
}

func (f *Fetcher) storage(ctx context.Context, h *routeros.Handle, resource []map[string]string) ([]model.StorageDevice, error) {
	usb, err := f.optional(ctx, h, cmdUSB)
	if err != nil {
		return nil, err
	}
	return collector.Storage(usb, resource, f.now()), nil
}

// Files returns the largest files on the device.
func (f *Fetcher) Files(ctx context.Context, h *routeros.Handle) ([]model.FileInfo, error) {
	rows, err := f.sessions.Execute(ctx, h, cmdFiles, nil)
	if err != nil {
		return nil, err
	}
	return collector.Files(rows, fileListLimit), nil
}

// WiFiClients reads the legacy wireless table and falls back to the wifi
// package table on RouterOS 7. Devices without either report no clients.
func (f *Fetcher) WiFiClients(ctx context.Context, h *routeros.Handle) ([]model.WiFiClient, error) {
	for _, cmd := range []string{cmdWireless, cmdWiFi} {
		rows, err := f.sessions.Execute(ctx, h, cmd, nil)
		if err == nil {
			return f.withVendors(collector.WiFiClients(rows, f.now())), nil
		}
		if !routeros.IsMissingCommand(err) {
			return nil, err
		}
	}
	return []model.WiFiClient{}, nil
}

// Logs returns at most limit of the newest log entries matching any topic.
func (f *Fetcher) Logs(ctx context.Context, h *routeros.Handle, topics []string, limit int) ([]model.LogEntry, error) {
	rows, err := f.sessions.Execute(ctx, h, cmdLog, nil)
	if err != nil {
		return nil, err
	}
	return collector.Logs(rows, topics, limit), nil
}

func (f *Fetcher) optional(ctx context.Context, h *routeros.Handle, command string) ([]map[string]string, error) {
	rows, err := f.sessions.Execute(ctx, h, command, nil)
	if err == nil {
		return rows, nil
	}
	var cmdErr *routeros.CommandError
	if errors.As(err, &cmdErr) {
		f.logger.Debug().Err(err).Int64("device_id", h.DeviceID).Str("command", command).Msg("optional query failed")
		return nil, nil
	}
	return nil, err
}

func (f *Fetcher) withVendors(clients []model.WiFiClient) []model.WiFiClient {
	if f.vendors == nil {
		return clients
	}
	for i := range clients {
		clients[i].Vendor = f.vendors.Lookup(clients[i].MACAddress)
	}
	return clients
}
