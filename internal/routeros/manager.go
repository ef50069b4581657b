package routeros

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/micro-ha/mikrotik-monitor/internal/model"
)

const livenessCommand = "/system/identity/print"

// DeviceSource resolves the current connection parameters of a device.
type DeviceSource interface {
	Get(ctx context.Context, id int64) (model.Device, error)
}

// Handle is a cached session owned by the Manager.
type Handle struct {
	DeviceID  int64
	Address   string
	CreatedAt time.Time

	key     string
	session Session
}

// Manager caches at most one session per device. Acquire and Release for the
// same device are serialized; different devices never block each other.
type Manager struct {
	devices DeviceSource
	dial    DialFunc
	timeout time.Duration
	logger  zerolog.Logger
	now     func() time.Time

	mu      sync.Mutex
	locks   map[int64]*sync.Mutex
	handles map[int64]*Handle
}

// NewManager creates a connection cache that dials with dial.
func NewManager(devices DeviceSource, dial DialFunc, dialTimeout time.Duration, logger zerolog.Logger) *Manager {
	if dialTimeout <= 0 {
		dialTimeout = defaultDialTimeout
	}
	return &Manager{
		devices: devices,
		dial:    dial,
		timeout: dialTimeout,
		logger:  logger.With().Str("component", "routeros").Logger(),
		now:     func() time.Time { return time.Now().UTC() },
		locks:   map[int64]*sync.Mutex{},
		handles: map[int64]*Handle{},
	}
}

// Acquire returns a live session for the device, reusing the cached one when
// it still answers the liveness check.
func (m *Manager) Acquire(ctx context.Context, deviceID int64) (*Handle, error) {
	lock := m.lockFor(deviceID)
	lock.Lock()
	defer lock.Unlock()

	device, err := m.devices.Get(ctx, deviceID)
	if err != nil {
		return nil, &ConnectionError{DeviceID: deviceID, Err: err}
	}
	cfg, err := normalizeConfig(ConfigFromDevice(device, m.timeout))
	if err != nil {
		return nil, &ConnectionError{DeviceID: deviceID, Address: device.Host, Err: err}
	}
	key := configKey(cfg)

	if cached := m.cached(deviceID); cached != nil {
		if cached.key == key {
			_, err := cached.session.Run(ctx, livenessCommand)
			if err == nil {
				return cached, nil
			}
			m.logger.Warn().Err(err).Int64("device_id", deviceID).Msg("cached session failed liveness check")
		}
		m.evict(cached)
	}

	session, err := m.dial(ctx, cfg)
	if err != nil {
		return nil, &ConnectionError{DeviceID: deviceID, Address: cfg.Address, Err: err}
	}
	handle := &Handle{
		DeviceID:  deviceID,
		Address:   cfg.Address,
		CreatedAt: m.now(),
		key:       key,
		session:   session,
	}
	m.mu.Lock()
	m.handles[deviceID] = handle
	m.mu.Unlock()
	m.logger.Info().Int64("device_id", deviceID).Str("address", cfg.Address).Msg("device connected")
	return handle, nil
}

// Execute runs one command on the handle's session. Transport failures and
// commands cut short by ctx evict the handle and surface as ConnectionError;
// anything else is a CommandError.
func (m *Manager) Execute(ctx context.Context, h *Handle, command string, params map[string]string) ([]map[string]string, error) {
	if h == nil || h.session == nil {
		return nil, &ConnectionError{Err: errClientClosed}
	}
	reply, err := h.session.Run(ctx, command, commandArgs(params)...)
	if err != nil {
		if isRetryableError(err) || errors.Is(err, errClientClosed) || errors.Is(err, errInterrupted) {
			m.discard(h)
			return nil, &ConnectionError{DeviceID: h.DeviceID, Address: h.Address, Err: err}
		}
		return nil, &CommandError{Command: command, Err: err}
	}
	return replyRows(reply), nil
}

// Release closes and forgets the device's session. Releasing an unknown id is a no-op.
func (m *Manager) Release(deviceID int64) error {
	lock := m.lockFor(deviceID)
	lock.Lock()
	defer lock.Unlock()

	m.mu.Lock()
	handle := m.handles[deviceID]
	delete(m.handles, deviceID)
	m.mu.Unlock()
	if handle == nil {
		return nil
	}
	return handle.session.Close()
}

// CloseAll releases every cached session.
func (m *Manager) CloseAll() error {
	m.mu.Lock()
	ids := make([]int64, 0, len(m.handles))
	for id := range m.handles {
		ids = append(ids, id)
	}
	m.mu.Unlock()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var g errgroup.Group
	for _, id := range ids {
		id := id
		g.Go(func() error {
			return m.Release(id)
		})
	}
	return g.Wait()
}

// Connected reports whether a session is cached for the device.
func (m *Manager) Connected(deviceID int64) bool {
	return m.cached(deviceID) != nil
}

func (m *Manager) lockFor(deviceID int64) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	lock, ok := m.locks[deviceID]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[deviceID] = lock
	}
	return lock
}

func (m *Manager) cached(deviceID int64) *Handle {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.handles[deviceID]
}

// evict must be called with the device lock held.
func (m *Manager) evict(h *Handle) {
	m.mu.Lock()
	if m.handles[h.DeviceID] == h {
		delete(m.handles, h.DeviceID)
	}
	m.mu.Unlock()
	if err := h.session.Close(); err != nil {
		m.logger.Debug().Err(err).Int64("device_id", h.DeviceID).Msg("close evicted session")
	}
}

func (m *Manager) discard(h *Handle) {
	lock := m.lockFor(h.DeviceID)
	lock.Lock()
	defer lock.Unlock()
	m.evict(h)
}
