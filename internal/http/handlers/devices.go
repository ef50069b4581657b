package handlers

import (
	"errors"
	"net/http"

	devicedomain "github.com/micro-ha/mikrotik-monitor/internal/domain/device"
)

// ListDevices returns every registered device.
func (a *API) ListDevices(w http.ResponseWriter, r *http.Request) {
	items, err := a.devices.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// GetDevice returns one device by id.
func (a *API) GetDevice(w http.ResponseWriter, r *http.Request) {
	device, ok := a.requireDevice(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, device)
}

// CreateDevice registers a device and starts polling it.
func (a *API) CreateDevice(w http.ResponseWriter, r *http.Request) {
	var payload devicedomain.Input
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_payload", "Invalid JSON payload")
		return
	}
	device, err := a.devices.Create(r.Context(), payload)
	if err != nil {
		writeDeviceWriteError(w, err, "create_failed")
		return
	}
	a.scheduler.Start(device)
	writeJSON(w, http.StatusCreated, device)
}

// UpdateDevice merges the payload into the device and restarts its loop.
func (a *API) UpdateDevice(w http.ResponseWriter, r *http.Request) {
	id, ok := deviceID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_id", "Invalid device id")
		return
	}
	var patch devicedomain.Patch
	if err := decodeJSON(r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_payload", "Invalid JSON payload")
		return
	}
	device, err := a.devices.Update(r.Context(), id, patch)
	if err != nil {
		writeDeviceWriteError(w, err, "update_failed")
		return
	}
	a.scheduler.Start(device)
	writeJSON(w, http.StatusOK, device)
}

// DeleteDevice removes the device, then stops polling and drops its session.
// Removing first makes any concurrent Acquire fail on the registry lookup.
func (a *API) DeleteDevice(w http.ResponseWriter, r *http.Request) {
	id, ok := deviceID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_id", "Invalid device id")
		return
	}
	deleted, err := a.devices.Delete(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "delete_failed", err.Error())
		return
	}
	if err := a.scheduler.Stop(id); err != nil {
		a.logger.Warn().Err(err).Int64("device_id", id).Msg("stop polling failed")
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "not_found", "Device not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func writeDeviceWriteError(w http.ResponseWriter, err error, code string) {
	var validationErr *devicedomain.ValidationError
	switch {
	case errors.As(err, &validationErr):
		writeError(w, http.StatusBadRequest, "invalid_device", validationErr.Error())
	case errors.Is(err, devicedomain.ErrDeviceNotFound):
		writeError(w, http.StatusNotFound, "not_found", "Device not found")
	default:
		writeError(w, http.StatusInternalServerError, code, err.Error())
	}
}
