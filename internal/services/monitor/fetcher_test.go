package monitor

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	goros "github.com/go-routeros/routeros/v3"
	"github.com/go-routeros/routeros/v3/proto"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/micro-ha/mikrotik-monitor/internal/model"
	"github.com/micro-ha/mikrotik-monitor/internal/oui"
	"github.com/micro-ha/mikrotik-monitor/internal/routeros"
	"github.com/micro-ha/mikrotik-monitor/internal/routeros/mock"
)

type oneDevice struct{}

func (oneDevice) Get(_ context.Context, id int64) (model.Device, error) {
	if id != 1 {
		return model.Device{}, errors.New("device not found")
	}
	return model.Device{ID: 1, Name: "core", Host: "10.0.0.1", Username: "admin"}, nil
}

func deviceError(message string) error {
	return &goros.DeviceError{Sentence: &proto.Sentence{Word: "!trap", Map: map[string]string{"message": message}}}
}

func newReader(t *testing.T, replies map[string]func(args ...string) (*goros.Reply, error)) (*Reader, *mock.Client) {
	t.Helper()
	session := &mock.Client{RunFunc: mock.Commands(replies)}
	dial := func(context.Context, routeros.Config) (routeros.Session, error) { return session, nil }
	manager := routeros.NewManager(oneDevice{}, dial, time.Second, zerolog.Nop())
	t.Cleanup(func() { _ = manager.CloseAll() })
	return NewReader(manager, NewFetcher(manager, oui.Default(), zerolog.Nop()), 50), session
}

func interfacesReply(...string) (*goros.Reply, error) {
	return mock.Reply(
		map[string]string{"name": "ether2", "type": "ether", "running": "true", "disabled": "false"},
		map[string]string{"name": "ether1", "type": "ether", "running": "true", "disabled": "false"},
		map[string]string{"name": "ether3", "type": "ether", "running": "false", "disabled": "false"},
		map[string]string{"name": "wlan1", "type": "wlan", "running": "true", "disabled": "true"},
	), nil
}

func TestTrafficSamplesRunningInterfaces(t *testing.T) {
	reader, session := newReader(t, map[string]func(args ...string) (*goros.Reply, error){
		"/interface/print": interfacesReply,
		"/interface/monitor-traffic": func(args ...string) (*goros.Reply, error) {
			if args[0] == "=interface=ether2" {
				return nil, deviceError("no such item")
			}
			return mock.Reply(map[string]string{"rx-bits-per-second": "1000", "tx-bits-per-second": "500"}), nil
		},
	})

	report, err := reader.Traffic(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, report.Interfaces, 1)
	assert.Equal(t, float64(1000), report.Interfaces["ether1"].RxBitsPerSecond)
	assert.Equal(t, float64(1000), report.Summary.Download)
	assert.Equal(t, float64(1500), report.Summary.Total)

	var sampled []string
	for _, call := range session.CallsSnapshot() {
		if call.Cmd == "/interface/monitor-traffic" {
			sampled = append(sampled, call.Args[0])
			assert.Contains(t, call.Args, "=once=")
		}
	}
	assert.Equal(t, []string{"=interface=ether1", "=interface=ether2"}, sampled)
}

func TestTrafficConnectionLossPropagates(t *testing.T) {
	reader, _ := newReader(t, map[string]func(args ...string) (*goros.Reply, error){
		"/interface/print":           interfacesReply,
		"/interface/monitor-traffic": func(...string) (*goros.Reply, error) { return nil, io.EOF },
	})

	_, err := reader.Traffic(context.Background(), 1)
	assert.True(t, routeros.IsConnectionError(err))
}

func TestSystemToleratesMissingHealth(t *testing.T) {
	reader, _ := newReader(t, map[string]func(args ...string) (*goros.Reply, error){
		"/system/resource/print": func(...string) (*goros.Reply, error) {
			return mock.Reply(map[string]string{
				"uptime":       "1d2h",
				"total-memory": "1000",
				"free-memory":  "100",
				"board-name":   "hAP ac2",
				"cpu-load":     "12",
			}), nil
		},
		"/system/health/print": func(...string) (*goros.Reply, error) { return nil, deviceError("no such command prefix") },
		"/system/resource/cpu/print": func(...string) (*goros.Reply, error) {
			return mock.Reply(map[string]string{"cpu": "cpu0"}, map[string]string{"cpu": "cpu1"}), nil
		},
	})

	snapshot, err := reader.System(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 90, snapshot.MemoryUsedPercent)
	assert.Equal(t, float64(0), snapshot.Temperature)
	assert.Equal(t, 2, snapshot.ProcessCount)
	assert.Equal(t, "hAP ac2", snapshot.Model)
	assert.Equal(t, 1, snapshot.Uptime.Days)
}

func TestSystemRequiresResource(t *testing.T) {
	reader, _ := newReader(t, map[string]func(args ...string) (*goros.Reply, error){
		"/system/resource/print": func(...string) (*goros.Reply, error) { return nil, deviceError("not permitted") },
	})

	_, err := reader.System(context.Background(), 1)
	var cmdErr *routeros.CommandError
	require.ErrorAs(t, err, &cmdErr)
	assert.Equal(t, "/system/resource/print", cmdErr.Command)
}

func TestStorageFallsBackToFlash(t *testing.T) {
	reader, _ := newReader(t, map[string]func(args ...string) (*goros.Reply, error){
		"/system/resource/usb/print": func(...string) (*goros.Reply, error) { return nil, deviceError("no such command prefix") },
		"/system/resource/print": func(...string) (*goros.Reply, error) {
			return mock.Reply(map[string]string{"total-hdd-space": "16777216", "free-hdd-space": "8388608"}), nil
		},
	})

	items, err := reader.Storage(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "flash", items[0].Type)
	assert.Equal(t, int64(16777216), items[0].Total)
}

func TestSystemReportReadsResourceOnce(t *testing.T) {
	reader, session := newReader(t, map[string]func(args ...string) (*goros.Reply, error){
		"/system/resource/print": func(...string) (*goros.Reply, error) {
			return mock.Reply(map[string]string{
				"total-memory":    "1000",
				"free-memory":     "500",
				"total-hdd-space": "16777216",
				"free-hdd-space":  "8388608",
			}), nil
		},
	})
	fetcher := reader.fetcher
	h, err := reader.sessions.Acquire(context.Background(), 1)
	require.NoError(t, err)

	report, err := fetcher.SystemReport(context.Background(), h)
	require.NoError(t, err)
	assert.Equal(t, 50, report.System.MemoryUsedPercent)
	require.Len(t, report.Storage, 1)
	assert.Equal(t, "flash", report.Storage[0].Type)

	resourceCalls := 0
	for _, call := range session.CallsSnapshot() {
		if call.Cmd == "/system/resource/print" {
			resourceCalls++
		}
	}
	assert.Equal(t, 1, resourceCalls)
}

func TestWiFiClientsFallsBackToWifiPackage(t *testing.T) {
	reader, _ := newReader(t, map[string]func(args ...string) (*goros.Reply, error){
		"/interface/wireless/registration-table/print": func(...string) (*goros.Reply, error) {
			return nil, deviceError("no such command prefix")
		},
		"/interface/wifi/registration-table/print": func(...string) (*goros.Reply, error) {
			return mock.Reply(map[string]string{"interface": "wifi1", "mac-address": "b8:27:eb:dd:ee:ff", "signal": "-60"}), nil
		},
	})

	clients, err := reader.WiFiClients(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, clients, 1)
	assert.Equal(t, "B8:27:EB:DD:EE:FF", clients[0].MACAddress)
	assert.Equal(t, "Raspberry Pi", clients[0].Vendor)
	assert.Equal(t, -60, clients[0].SignalStrength)
}

func TestLogsUsesDefaultLimit(t *testing.T) {
	rows := make([]map[string]string, 0, 80)
	for i := 0; i < 80; i++ {
		rows = append(rows, map[string]string{"topics": "system,info", "message": "tick"})
	}
	reader, _ := newReader(t, map[string]func(args ...string) (*goros.Reply, error){
		"/log/print": func(...string) (*goros.Reply, error) { return mock.Reply(rows...), nil },
	})

	entries, err := reader.Logs(context.Background(), 1, nil, 0)
	require.NoError(t, err)
	assert.Len(t, entries, 50)

	entries, err = reader.Logs(context.Background(), 1, []string{"firewall"}, 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestUnknownDeviceIsConnectionError(t *testing.T) {
	reader, _ := newReader(t, nil)
	_, err := reader.Files(context.Background(), 7)
	assert.True(t, routeros.IsConnectionError(err))
}
