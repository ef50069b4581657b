package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	alertdomain "github.com/micro-ha/mikrotik-monitor/internal/domain/alert"
	"github.com/micro-ha/mikrotik-monitor/internal/model"
)

type alertPayload struct {
	Type        model.AlertType `json:"type"`
	Severity    model.Severity  `json:"severity"`
	Message     string          `json:"message"`
	Description string          `json:"description"`
	Data        map[string]any  `json:"data"`
}

type readPayload struct {
	Read *bool `json:"read"`
}

// ListAlerts returns alerts of every device, newest first.
func (a *API) ListAlerts(w http.ResponseWriter, r *http.Request) {
	items, err := a.alerts.List(r.Context(), nil)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// ListDeviceAlerts returns one device's alerts, newest first.
func (a *API) ListDeviceAlerts(w http.ResponseWriter, r *http.Request) {
	device, ok := a.requireDevice(w, r)
	if !ok {
		return
	}
	items, err := a.alerts.List(r.Context(), &device.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// CreateDeviceAlert stores a manual alert and pushes it to subscribers.
func (a *API) CreateDeviceAlert(w http.ResponseWriter, r *http.Request) {
	device, ok := a.requireDevice(w, r)
	if !ok {
		return
	}
	var payload alertPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_payload", "Invalid JSON payload")
		return
	}
	created, err := a.alerts.Create(r.Context(), alertdomain.Draft{
		DeviceID:    device.ID,
		Type:        payload.Type,
		Severity:    payload.Severity,
		Message:     payload.Message,
		Description: payload.Description,
		Data:        payload.Data,
	})
	if errors.Is(err, alertdomain.ErrInvalidAlert) {
		writeError(w, http.StatusBadRequest, "invalid_alert", err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "create_failed", err.Error())
		return
	}
	a.hub.Broadcast(model.EventNewAlert, device.ID, created)
	writeJSON(w, http.StatusCreated, created)
}

// MarkAllRead flags every alert of the device as read.
func (a *API) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	device, ok := a.requireDevice(w, r)
	if !ok {
		return
	}
	if err := a.alerts.MarkAllRead(r.Context(), device.ID); err != nil {
		writeError(w, http.StatusInternalServerError, "update_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// PatchAlert sets the read flag of one alert.
func (a *API) PatchAlert(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid_id", "Invalid alert id")
		return
	}
	var payload readPayload
	if err := decodeJSON(r, &payload); err != nil || payload.Read == nil {
		writeError(w, http.StatusBadRequest, "invalid_payload", "read flag is required")
		return
	}
	updated, err := a.alerts.UpdateReadFlag(r.Context(), id, *payload.Read)
	if errors.Is(err, alertdomain.ErrAlertNotFound) {
		writeError(w, http.StatusNotFound, "not_found", "Alert not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "update_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, updated)
}
