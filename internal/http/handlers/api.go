package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	alertdomain "github.com/micro-ha/mikrotik-monitor/internal/domain/alert"
	devicedomain "github.com/micro-ha/mikrotik-monitor/internal/domain/device"
	"github.com/micro-ha/mikrotik-monitor/internal/model"
	"github.com/micro-ha/mikrotik-monitor/internal/routeros"
	"github.com/micro-ha/mikrotik-monitor/internal/services/monitor"
)

// Scheduler starts and stops per-device poll loops.
type Scheduler interface {
	Start(device model.Device)
	Stop(deviceID int64) error
}

// Hub is the real-time side of the API.
type Hub interface {
	Broadcast(eventType string, deviceID int64, payload any)
	Count() int
	ServeWS(w http.ResponseWriter, r *http.Request)
}

// Monitor answers on-demand device queries.
type Monitor interface {
	Interfaces(ctx context.Context, deviceID int64, kind string) ([]model.InterfaceInfo, error)
	Traffic(ctx context.Context, deviceID int64) (monitor.TrafficReport, error)
	InterfaceTraffic(ctx context.Context, deviceID int64, name string) (model.InterfaceTraffic, error)
	WiFiClients(ctx context.Context, deviceID int64) ([]model.WiFiClient, error)
	System(ctx context.Context, deviceID int64) (model.SystemSnapshot, error)
	Storage(ctx context.Context, deviceID int64) ([]model.StorageDevice, error)
	Files(ctx context.Context, deviceID int64) ([]model.FileInfo, error)
	Logs(ctx context.Context, deviceID int64, topics []string, limit int) ([]model.LogEntry, error)
}

// API groups HTTP handlers and dependencies.
type API struct {
	devices   devicedomain.Service
	alerts    alertdomain.Service
	monitor   Monitor
	scheduler Scheduler
	hub       Hub
	logger    zerolog.Logger
	staticDir string
	version   string
}

// New creates HTTP handlers with explicit dependencies.
func New(
	devices devicedomain.Service,
	alerts alertdomain.Service,
	monitor Monitor,
	scheduler Scheduler,
	hub Hub,
	logger zerolog.Logger,
	staticDir string,
	version string,
) *API {
	return &API{
		devices:   devices,
		alerts:    alerts,
		monitor:   monitor,
		scheduler: scheduler,
		hub:       hub,
		logger:    logger.With().Str("component", "http").Logger(),
		staticDir: staticDir,
		version:   version,
	}
}

// Logger returns request logger used by HTTP middleware.
func (a *API) Logger() zerolog.Logger {
	return a.logger
}

// Health reports service liveness.
func (a *API) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

// WebSocket hands the connection over to the hub.
func (a *API) WebSocket(w http.ResponseWriter, r *http.Request) {
	a.hub.ServeWS(w, r)
}

// Static serves frontend assets and SPA fallback.
func (a *API) Static(w http.ResponseWriter, r *http.Request) {
	if a.staticDir == "" {
		writeError(w, http.StatusNotFound, "frontend_missing", "Frontend dist not found")
		return
	}
	path := strings.TrimPrefix(r.URL.Path, "/")
	if path == "" {
		path = "index.html"
	}
	cleanPath := strings.TrimPrefix(filepath.Clean("/"+path), "/")
	fullPath := filepath.Join(a.staticDir, cleanPath)
	if info, err := os.Stat(fullPath); err == nil && !info.IsDir() {
		http.ServeFile(w, r, fullPath)
		return
	}
	http.ServeFile(w, r, filepath.Join(a.staticDir, "index.html"))
}

func deviceID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// requireDevice parses the id path parameter and loads the device, writing
// the error response itself when either step fails.
func (a *API) requireDevice(w http.ResponseWriter, r *http.Request) (model.Device, bool) {
	id, ok := deviceID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_id", "Invalid device id")
		return model.Device{}, false
	}
	device, err := a.devices.Get(r.Context(), id)
	if errors.Is(err, devicedomain.ErrDeviceNotFound) {
		writeError(w, http.StatusNotFound, "not_found", "Device not found")
		return model.Device{}, false
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "get_failed", err.Error())
		return model.Device{}, false
	}
	return device, true
}

// writeDeviceQueryError maps RouterOS failures of on-demand queries.
func (a *API) writeDeviceQueryError(w http.ResponseWriter, deviceID int64, code string, err error) {
	a.logger.Warn().Err(err).Int64("device_id", deviceID).Str("code", code).Msg("device query failed")
	var cmdErr *routeros.CommandError
	switch {
	case errors.Is(err, devicedomain.ErrDeviceNotFound):
		writeError(w, http.StatusNotFound, "not_found", "Device not found")
	case routeros.IsConnectionError(err):
		writeError(w, http.StatusBadGateway, "device_unreachable", err.Error())
	case errors.As(err, &cmdErr):
		writeError(w, http.StatusBadGateway, code, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, code, err.Error())
	}
}

func decodeJSON(r *http.Request, dst any) error {
	return json.NewDecoder(r.Body).Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{
			"code":    code,
			"message": message,
		},
	})
}
