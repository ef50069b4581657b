package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/micro-ha/mikrotik-monitor/internal/collector"
)

// ListInterfaces returns the device's interfaces, optionally filtered by ?type=.
func (a *API) ListInterfaces(w http.ResponseWriter, r *http.Request) {
	device, ok := a.requireDevice(w, r)
	if !ok {
		return
	}
	items, err := a.monitor.Interfaces(r.Context(), device.ID, strings.TrimSpace(r.URL.Query().Get("type")))
	if err != nil {
		a.writeDeviceQueryError(w, device.ID, "interfaces_failed", err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// Traffic returns a fresh sample of every running interface plus totals.
func (a *API) Traffic(w http.ResponseWriter, r *http.Request) {
	device, ok := a.requireDevice(w, r)
	if !ok {
		return
	}
	report, err := a.monitor.Traffic(r.Context(), device.ID)
	if err != nil {
		a.writeDeviceQueryError(w, device.ID, "traffic_failed", err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// InterfaceTraffic samples a single interface.
func (a *API) InterfaceTraffic(w http.ResponseWriter, r *http.Request) {
	device, ok := a.requireDevice(w, r)
	if !ok {
		return
	}
	name := chi.URLParam(r, "iface")
	if strings.TrimSpace(name) == "" {
		writeError(w, http.StatusBadRequest, "invalid_interface", "Interface name is required")
		return
	}
	sample, err := a.monitor.InterfaceTraffic(r.Context(), device.ID, name)
	if err != nil {
		a.writeDeviceQueryError(w, device.ID, "traffic_failed", err)
		return
	}
	writeJSON(w, http.StatusOK, sample)
}

// WiFiClients lists associated wireless clients.
func (a *API) WiFiClients(w http.ResponseWriter, r *http.Request) {
	device, ok := a.requireDevice(w, r)
	if !ok {
		return
	}
	clients, err := a.monitor.WiFiClients(r.Context(), device.ID)
	if err != nil {
		a.writeDeviceQueryError(w, device.ID, "wifi_failed", err)
		return
	}
	writeJSON(w, http.StatusOK, clients)
}

func (a *API) System(w http.ResponseWriter, r *http.Request) {
	device, ok := a.requireDevice(w, r)
	if !ok {
		return
	}
	snapshot, err := a.monitor.System(r.Context(), device.ID)
	if err != nil {
		a.writeDeviceQueryError(w, device.ID, "system_failed", err)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

func (a *API) Storage(w http.ResponseWriter, r *http.Request) {
	device, ok := a.requireDevice(w, r)
	if !ok {
		return
	}
	items, err := a.monitor.Storage(r.Context(), device.ID)
	if err != nil {
		a.writeDeviceQueryError(w, device.ID, "storage_failed", err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (a *API) Files(w http.ResponseWriter, r *http.Request) {
	device, ok := a.requireDevice(w, r)
	if !ok {
		return
	}
	files, err := a.monitor.Files(r.Context(), device.ID)
	if err != nil {
		a.writeDeviceQueryError(w, device.ID, "files_failed", err)
		return
	}
	writeJSON(w, http.StatusOK, files)
}

// Logs returns recent log entries. ?topics= is a comma separated list,
// ?limit= caps the result.
func (a *API) Logs(w http.ResponseWriter, r *http.Request) {
	device, ok := a.requireDevice(w, r)
	if !ok {
		return
	}
	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value <= 0 {
			writeError(w, http.StatusBadRequest, "invalid_limit", "limit must be a positive integer")
			return
		}
		limit = value
	}
	topics := collector.ParseTopics(r.URL.Query().Get("topics"))
	entries, err := a.monitor.Logs(r.Context(), device.ID, topics, limit)
	if err != nil {
		a.writeDeviceQueryError(w, device.ID, "logs_failed", err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}
