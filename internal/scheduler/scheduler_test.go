package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	devicedomain "github.com/micro-ha/mikrotik-monitor/internal/domain/device"
	"github.com/micro-ha/mikrotik-monitor/internal/evaluator"
	"github.com/micro-ha/mikrotik-monitor/internal/model"
	"github.com/micro-ha/mikrotik-monitor/internal/routeros"
	"github.com/micro-ha/mikrotik-monitor/internal/services/monitor"
)

type fakeRegistry struct {
	mu        sync.Mutex
	devices   map[int64]model.Device
	connected map[int64]int
}

func newFakeRegistry(devices ...model.Device) *fakeRegistry {
	r := &fakeRegistry{devices: map[int64]model.Device{}, connected: map[int64]int{}}
	for _, d := range devices {
		r.devices[d.ID] = d
	}
	return r
}

func (r *fakeRegistry) Get(_ context.Context, id int64) (model.Device, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.devices[id]
	if !ok {
		return model.Device{}, fmt.Errorf("device %d: %w", id, devicedomain.ErrDeviceNotFound)
	}
	return d, nil
}

func (r *fakeRegistry) MarkConnected(_ context.Context, id int64, _ time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.connected[id]++
	return nil
}

type fakeConnections struct {
	mu         sync.Mutex
	acquireErr error
	acquires   int
	releases   []int64
	closeAlls  int
}

func (c *fakeConnections) Acquire(_ context.Context, deviceID int64) (*routeros.Handle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.acquires++
	if c.acquireErr != nil {
		return nil, c.acquireErr
	}
	return &routeros.Handle{DeviceID: deviceID}, nil
}

func (c *fakeConnections) Release(deviceID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.releases = append(c.releases, deviceID)
	return nil
}

func (c *fakeConnections) CloseAll() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeAlls++
	return nil
}

func (c *fakeConnections) snapshot() (acquires int, releases []int64, closeAlls int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.acquires, append([]int64(nil), c.releases...), c.closeAlls
}

type fakeFetcher struct {
	mu          sync.Mutex
	traffic     func(ctx context.Context) (monitor.TrafficReport, error)
	system      monitor.SystemReport
	systemErr   error
	systemCalls int
}

func (f *fakeFetcher) Traffic(ctx context.Context, _ *routeros.Handle) (monitor.TrafficReport, error) {
	if f.traffic == nil {
		return monitor.TrafficReport{Interfaces: map[string]model.InterfaceTraffic{}}, nil
	}
	return f.traffic(ctx)
}

func (f *fakeFetcher) SystemReport(context.Context, *routeros.Handle) (monitor.SystemReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.systemCalls++
	return f.system, f.systemErr
}

func (f *fakeFetcher) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.systemCalls
}

type fakeAlerts struct {
	mu     sync.Mutex
	nextID int64
	stored []model.Alert
}

func (a *fakeAlerts) Create(_ context.Context, draft model.AlertDraft) (model.Alert, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.nextID++
	alert := model.Alert{ID: a.nextID, DeviceID: draft.DeviceID, Type: draft.Type, Severity: draft.Severity, Message: draft.Message}
	a.stored = append(a.stored, alert)
	return alert, nil
}

func (a *fakeAlerts) all() []model.Alert {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]model.Alert(nil), a.stored...)
}

type recordedEvent struct {
	Type     string
	DeviceID int64
	Payload  any
}

type fakeBroadcaster struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (b *fakeBroadcaster) Broadcast(eventType string, deviceID int64, payload any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, recordedEvent{Type: eventType, DeviceID: deviceID, Payload: payload})
}

func (b *fakeBroadcaster) types() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, 0, len(b.events))
	for _, e := range b.events {
		out = append(out, e.Type)
	}
	return out
}

type harness struct {
	registry *fakeRegistry
	conns    *fakeConnections
	fetcher  *fakeFetcher
	alerts   *fakeAlerts
	hub      *fakeBroadcaster
	sched    *Scheduler
}

func newHarness(t *testing.T, opts Options) *harness {
	t.Helper()
	h := &harness{
		registry: newFakeRegistry(model.Device{ID: 1, Name: "core"}),
		conns:    &fakeConnections{},
		fetcher:  &fakeFetcher{},
		alerts:   &fakeAlerts{},
		hub:      &fakeBroadcaster{},
	}
	h.sched = New(Deps{
		Registry:    h.registry,
		Connections: h.conns,
		Fetcher:     h.fetcher,
		Alerts:      h.alerts,
		Broadcaster: h.hub,
		Evaluator:   evaluator.New(model.DefaultThresholds()),
	}, opts, zerolog.Nop())
	t.Cleanup(func() { _ = h.sched.StopAll() })
	return h
}

func TestConnectionFailureRaisesOneAlertPerTick(t *testing.T) {
	h := newHarness(t, Options{PollInterval: time.Hour})
	h.conns.acquireErr = &routeros.ConnectionError{DeviceID: 1, Address: "10.0.0.1:8728", Err: errors.New("connection refused")}

	h.sched.Start(model.Device{ID: 1, Name: "core"})
	require.Eventually(t, func() bool { return len(h.alerts.all()) == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, h.sched.Stop(1))

	alerts := h.alerts.all()
	require.Len(t, alerts, 1)
	assert.Equal(t, model.AlertTypeConnection, alerts[0].Type)
	assert.Equal(t, model.SeverityCritical, alerts[0].Severity)
	assert.Equal(t, "Connection Lost", alerts[0].Message)
	assert.Equal(t, []string{model.EventNewAlert}, h.hub.types())
	assert.Zero(t, h.registry.connected[1])
}

func TestTickBroadcastOrder(t *testing.T) {
	h := newHarness(t, Options{PollInterval: time.Hour})
	h.fetcher.traffic = func(context.Context) (monitor.TrafficReport, error) {
		return monitor.TrafficReport{Interfaces: map[string]model.InterfaceTraffic{
			"eth0": {Name: "eth0", RxBitsPerSecond: 95_000_000, TxBitsPerSecond: 10},
		}}, nil
	}
	h.fetcher.system = monitor.SystemReport{System: model.SystemSnapshot{Temperature: 70, MemoryUsedPercent: 50}}

	h.sched.Start(model.Device{ID: 1})
	require.Eventually(t, func() bool { return len(h.hub.types()) == 6 }, time.Second, 5*time.Millisecond)
	require.NoError(t, h.sched.Stop(1))

	assert.Equal(t, []string{
		model.EventInterfaceTraffic,
		model.EventTrafficSummary,
		model.EventSystemInfo,
		model.EventStorageInfo,
		model.EventNewAlert,
		model.EventNewAlert,
	}, h.hub.types())

	alerts := h.alerts.all()
	require.Len(t, alerts, 2)
	assert.Equal(t, model.AlertTypeTemperature, alerts[0].Type)
	assert.Equal(t, model.AlertTypeTraffic, alerts[1].Type)
	assert.Equal(t, 1, h.registry.connected[1])
}

func TestSystemFetchHonoursInterval(t *testing.T) {
	h := newHarness(t, Options{PollInterval: 5 * time.Millisecond, SystemInterval: time.Hour})
	var mu sync.Mutex
	ticks := 0
	h.fetcher.traffic = func(context.Context) (monitor.TrafficReport, error) {
		mu.Lock()
		ticks++
		mu.Unlock()
		return monitor.TrafficReport{}, nil
	}

	h.sched.Start(model.Device{ID: 1})
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return ticks >= 3
	}, time.Second, 5*time.Millisecond)
	require.NoError(t, h.sched.Stop(1))

	assert.Equal(t, 1, h.fetcher.calls())
}

func TestTrafficConnectionLossSkipsSystem(t *testing.T) {
	h := newHarness(t, Options{PollInterval: time.Hour})
	h.fetcher.traffic = func(context.Context) (monitor.TrafficReport, error) {
		return monitor.TrafficReport{}, &routeros.ConnectionError{DeviceID: 1, Err: errors.New("broken pipe")}
	}

	h.sched.Start(model.Device{ID: 1})
	require.Eventually(t, func() bool { return len(h.alerts.all()) == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, h.sched.Stop(1))

	assert.Zero(t, h.fetcher.calls())
	assert.Equal(t, []string{model.EventNewAlert}, h.hub.types())
}

func TestCommandErrorKeepsTicking(t *testing.T) {
	h := newHarness(t, Options{PollInterval: time.Hour})
	h.fetcher.traffic = func(context.Context) (monitor.TrafficReport, error) {
		return monitor.TrafficReport{}, &routeros.CommandError{Command: "/interface/print", Err: errors.New("not permitted")}
	}

	h.sched.Start(model.Device{ID: 1})
	require.Eventually(t, func() bool { return h.fetcher.calls() == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, h.sched.Stop(1))

	assert.Empty(t, h.alerts.all())
	assert.Equal(t, []string{model.EventSystemInfo, model.EventStorageInfo}, h.hub.types())
}

func TestPanicTakesConnectionLostPath(t *testing.T) {
	h := newHarness(t, Options{PollInterval: time.Hour})
	h.fetcher.traffic = func(context.Context) (monitor.TrafficReport, error) {
		panic("decoder exploded")
	}

	h.sched.Start(model.Device{ID: 1})
	require.Eventually(t, func() bool { return len(h.alerts.all()) == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, h.sched.Stop(1))

	assert.Equal(t, model.AlertTypeConnection, h.alerts.all()[0].Type)
}

func TestStopWithoutLoopReleasesSession(t *testing.T) {
	h := newHarness(t, Options{PollInterval: time.Hour})
	require.NoError(t, h.sched.Stop(7))

	_, releases, _ := h.conns.snapshot()
	assert.Equal(t, []int64{7}, releases)
	assert.False(t, h.sched.Running(7))
}

func TestDeletedDeviceIsSkipped(t *testing.T) {
	h := newHarness(t, Options{PollInterval: 5 * time.Millisecond})
	h.sched.Start(model.Device{ID: 42})
	time.Sleep(30 * time.Millisecond)
	require.NoError(t, h.sched.Stop(42))

	acquires, _, _ := h.conns.snapshot()
	assert.Zero(t, acquires)
	assert.Empty(t, h.alerts.all())
}

func TestStopWaitsForInFlightTick(t *testing.T) {
	h := newHarness(t, Options{PollInterval: time.Hour})
	entered := make(chan struct{})
	release := make(chan struct{})
	h.fetcher.traffic = func(context.Context) (monitor.TrafficReport, error) {
		close(entered)
		<-release
		return monitor.TrafficReport{}, nil
	}

	h.sched.Start(model.Device{ID: 1})
	<-entered

	stopped := make(chan error, 1)
	go func() { stopped <- h.sched.Stop(1) }()

	select {
	case <-stopped:
		t.Fatal("stop returned while a tick was running")
	case <-time.After(50 * time.Millisecond):
	}
	_, releases, _ := h.conns.snapshot()
	assert.Empty(t, releases)

	close(release)
	require.NoError(t, <-stopped)
	_, releases, _ = h.conns.snapshot()
	assert.Equal(t, []int64{1}, releases)
	assert.False(t, h.sched.Running(1))
}

func TestStartReplacesExistingLoop(t *testing.T) {
	h := newHarness(t, Options{PollInterval: time.Hour})
	h.sched.Start(model.Device{ID: 1})
	h.sched.Start(model.Device{ID: 1})
	assert.Equal(t, 1, h.sched.Count())

	require.Eventually(t, func() bool {
		_, releases, _ := h.conns.snapshot()
		return len(releases) == 1
	}, time.Second, 5*time.Millisecond)
	require.NoError(t, h.sched.Stop(1))
	assert.Zero(t, h.sched.Count())
}

func TestStopAllClosesConnections(t *testing.T) {
	h := newHarness(t, Options{PollInterval: time.Hour})
	h.registry.devices[2] = model.Device{ID: 2}
	h.sched.Start(model.Device{ID: 1})
	h.sched.Start(model.Device{ID: 2})

	require.NoError(t, h.sched.StopAll())
	_, releases, closeAlls := h.conns.snapshot()
	assert.ElementsMatch(t, []int64{1, 2}, releases)
	assert.Equal(t, 1, closeAlls)
	assert.Zero(t, h.sched.Count())
	assert.NoError(t, h.sched.Stop(1))
}
