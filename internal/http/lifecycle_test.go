package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/micro-ha/mikrotik-monitor/internal/evaluator"
	"github.com/micro-ha/mikrotik-monitor/internal/http/handlers"
	"github.com/micro-ha/mikrotik-monitor/internal/hub"
	"github.com/micro-ha/mikrotik-monitor/internal/model"
	"github.com/micro-ha/mikrotik-monitor/internal/routeros"
	"github.com/micro-ha/mikrotik-monitor/internal/routeros/simulated"
	"github.com/micro-ha/mikrotik-monitor/internal/scheduler"
	alertsvc "github.com/micro-ha/mikrotik-monitor/internal/services/alert"
	devicesvc "github.com/micro-ha/mikrotik-monitor/internal/services/device"
	"github.com/micro-ha/mikrotik-monitor/internal/services/monitor"
	"github.com/micro-ha/mikrotik-monitor/internal/storage/memory"
)

type liveServer struct {
	srv     *httptest.Server
	manager *routeros.Manager
	sched   *scheduler.Scheduler
	reader  *monitor.Reader
}

func newLiveServer(t *testing.T) *liveServer {
	t.Helper()
	logger := zerolog.Nop()
	store := memory.New()
	devices := devicesvc.New(store, logger)
	alerts := alertsvc.New(store, logger)
	manager := routeros.NewManager(devices, simulated.Dial, time.Second, logger)
	fetcher := monitor.NewFetcher(manager, nil, logger)
	reader := monitor.NewReader(manager, fetcher, 100)
	events := hub.New(reader, 16, logger)
	sched := scheduler.New(scheduler.Deps{
		Registry:    devices,
		Connections: manager,
		Fetcher:     fetcher,
		Alerts:      alerts,
		Broadcaster: events,
		Evaluator:   evaluator.New(model.Thresholds{}),
	}, scheduler.Options{
		PollInterval:   10 * time.Millisecond,
		SystemInterval: 10 * time.Millisecond,
		TickTimeout:    time.Second,
	}, logger)

	api := handlers.New(devices, alerts, reader, sched, events, logger, "", "test")
	srv := httptest.NewServer(NewRouter(api))
	t.Cleanup(func() {
		srv.Close()
		_ = sched.StopAll()
		events.Close()
	})
	return &liveServer{srv: srv, manager: manager, sched: sched, reader: reader}
}

func (s *liveServer) createDevice(t *testing.T) int64 {
	t.Helper()
	resp, body := doJSON(t, http.MethodPost, s.srv.URL+"/api/devices", map[string]any{
		"name": "sim", "ipAddress": "10.0.0.1", "username": "admin",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var created model.Device
	require.NoError(t, json.Unmarshal(body, &created))
	return created.ID
}

func (s *liveServer) deviceURL(id int64, suffix string) string {
	return fmt.Sprintf("%s/api/devices/%d%s", s.srv.URL, id, suffix)
}

func TestDeleteDeviceDropsPollingAndSession(t *testing.T) {
	s := newLiveServer(t)
	id := s.createDevice(t)

	assert.True(t, s.sched.Running(id))
	require.Eventually(t, func() bool { return s.manager.Connected(id) }, 2*time.Second, 10*time.Millisecond)

	resp, body := doJSON(t, http.MethodGet, s.deviceURL(id, "/logs"), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	resp, _ = doJSON(t, http.MethodDelete, s.deviceURL(id, ""), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, s.sched.Running(id))
	assert.False(t, s.manager.Connected(id))

	resp, _ = doJSON(t, http.MethodGet, s.deviceURL(id, "/logs"), nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.False(t, s.manager.Connected(id))
}

func TestDeleteDeviceReleasesSessionOpenedOutsideLoop(t *testing.T) {
	s := newLiveServer(t)
	id := s.createDevice(t)

	require.NoError(t, s.sched.Stop(id))
	_, err := s.reader.Logs(context.Background(), id, nil, 0)
	require.NoError(t, err)
	require.True(t, s.manager.Connected(id))

	resp, _ := doJSON(t, http.MethodDelete, s.deviceURL(id, ""), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, s.manager.Connected(id))

	_, err = s.reader.Logs(context.Background(), id, nil, 0)
	assert.Error(t, err)
	assert.False(t, s.manager.Connected(id))
}
