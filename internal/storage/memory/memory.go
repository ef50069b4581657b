// Package memory keeps devices and alerts in process memory. Data is lost on
// restart; it backs tests and the "memory" db driver.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	alertdomain "github.com/micro-ha/mikrotik-monitor/internal/domain/alert"
	devicedomain "github.com/micro-ha/mikrotik-monitor/internal/domain/device"
	"github.com/micro-ha/mikrotik-monitor/internal/model"
)

type Store struct {
	mu         sync.RWMutex
	devices    map[int64]model.Device
	alerts     map[int64]model.Alert
	nextDevice int64
	nextAlert  int64
}

func New() *Store {
	return &Store{
		devices: map[int64]model.Device{},
		alerts:  map[int64]model.Alert{},
	}
}

func (s *Store) Close() error { return nil }

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) ListDevices(_ context.Context) ([]model.Device, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]model.Device, 0, len(s.devices))
	for _, d := range s.devices {
		items = append(items, cloneDevice(d))
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items, nil
}

func (s *Store) GetDevice(_ context.Context, id int64) (model.Device, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.devices[id]
	if !ok {
		return model.Device{}, fmt.Errorf("%w: %d", devicedomain.ErrDeviceNotFound, id)
	}
	return cloneDevice(d), nil
}

func (s *Store) InsertDevice(_ context.Context, d model.Device) (model.Device, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextDevice++
	d.ID = s.nextDevice
	s.devices[d.ID] = cloneDevice(d)
	return cloneDevice(d), nil
}

func (s *Store) UpdateDevice(_ context.Context, d model.Device) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.devices[d.ID]; !ok {
		return fmt.Errorf("%w: %d", devicedomain.ErrDeviceNotFound, d.ID)
	}
	s.devices[d.ID] = cloneDevice(d)
	return nil
}

func (s *Store) DeleteDevice(_ context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.devices[id]; !ok {
		return false, nil
	}
	delete(s.devices, id)
	return true, nil
}

func (s *Store) TouchDevice(_ context.Context, id int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.devices[id]
	if !ok {
		return fmt.Errorf("%w: %d", devicedomain.ErrDeviceNotFound, id)
	}
	at = at.UTC()
	d.LastConnected = &at
	s.devices[id] = d
	return nil
}

func (s *Store) ListAlerts(_ context.Context, deviceID *int64) ([]model.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]model.Alert, 0, len(s.alerts))
	for _, a := range s.alerts {
		if deviceID != nil && a.DeviceID != *deviceID {
			continue
		}
		items = append(items, cloneAlert(a))
	}
	sort.Slice(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.After(items[j].CreatedAt)
		}
		return items[i].ID > items[j].ID
	})
	return items, nil
}

func (s *Store) InsertAlert(_ context.Context, a model.Alert) (model.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextAlert++
	a.ID = s.nextAlert
	s.alerts[a.ID] = cloneAlert(a)
	return cloneAlert(a), nil
}

func (s *Store) SetAlertRead(_ context.Context, id int64, read bool) (model.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.alerts[id]
	if !ok {
		return model.Alert{}, fmt.Errorf("%w: %d", alertdomain.ErrAlertNotFound, id)
	}
	a.Read = read
	s.alerts[id] = a
	return cloneAlert(a), nil
}

func (s *Store) MarkDeviceAlertsRead(_ context.Context, deviceID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, a := range s.alerts {
		if a.DeviceID == deviceID && !a.Read {
			a.Read = true
			s.alerts[id] = a
		}
	}
	return nil
}

func cloneDevice(d model.Device) model.Device {
	if d.Model != nil {
		v := *d.Model
		d.Model = &v
	}
	if d.Version != nil {
		v := *d.Version
		d.Version = &v
	}
	if d.LastConnected != nil {
		v := *d.LastConnected
		d.LastConnected = &v
	}
	return d
}

func cloneAlert(a model.Alert) model.Alert {
	if a.Data != nil {
		data := make(map[string]any, len(a.Data))
		for k, v := range a.Data {
			data[k] = v
		}
		a.Data = data
	}
	return a
}
