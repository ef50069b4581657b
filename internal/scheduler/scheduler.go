package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	devicedomain "github.com/micro-ha/mikrotik-monitor/internal/domain/device"
	"github.com/micro-ha/mikrotik-monitor/internal/evaluator"
	"github.com/micro-ha/mikrotik-monitor/internal/model"
	"github.com/micro-ha/mikrotik-monitor/internal/routeros"
	"github.com/micro-ha/mikrotik-monitor/internal/services/monitor"
)

const (
	DefaultPollInterval   = 5 * time.Second
	DefaultSystemInterval = 15 * time.Second
	DefaultTickTimeout    = 20 * time.Second
)

// Registry is the subset of the device registry a poll loop consults.
type Registry interface {
	Get(ctx context.Context, id int64) (model.Device, error)
	MarkConnected(ctx context.Context, id int64, at time.Time) error
}

// Connections owns the per-device RouterOS sessions.
type Connections interface {
	Acquire(ctx context.Context, deviceID int64) (*routeros.Handle, error)
	Release(deviceID int64) error
	CloseAll() error
}

// Fetcher turns an acquired handle into snapshots.
type Fetcher interface {
	Traffic(ctx context.Context, h *routeros.Handle) (monitor.TrafficReport, error)
	SystemReport(ctx context.Context, h *routeros.Handle) (monitor.SystemReport, error)
}

// AlertStore persists alert drafts.
type AlertStore interface {
	Create(ctx context.Context, draft model.AlertDraft) (model.Alert, error)
}

// Broadcaster fans events out to live subscribers.
type Broadcaster interface {
	Broadcast(eventType string, deviceID int64, payload any)
}

// Options sets the loop cadence. Zero values fall back to the defaults.
type Options struct {
	PollInterval   time.Duration
	SystemInterval time.Duration
	TickTimeout    time.Duration
}

func (o Options) normalize() Options {
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}
	if o.SystemInterval <= 0 {
		o.SystemInterval = DefaultSystemInterval
	}
	if o.TickTimeout <= 0 {
		o.TickTimeout = DefaultTickTimeout
	}
	return o
}

// Deps are the collaborators every poll loop shares.
type Deps struct {
	Registry    Registry
	Connections Connections
	Fetcher     Fetcher
	Alerts      AlertStore
	Broadcaster Broadcaster
	Evaluator   *evaluator.Evaluator
}

// Scheduler runs one poll loop per monitored device.
type Scheduler struct {
	deps   Deps
	opts   Options
	logger zerolog.Logger
	now    func() time.Time

	mu    sync.Mutex
	loops map[int64]*loop
}

type loop struct {
	deviceID   int64
	ctx        context.Context
	cancel     context.CancelFunc
	done       chan struct{}
	lastSystem time.Time
}

// New creates an idle scheduler; loops begin with Start.
func New(deps Deps, opts Options, logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		deps:   deps,
		opts:   opts.normalize(),
		logger: logger.With().Str("component", "scheduler").Logger(),
		now:    func() time.Time { return time.Now().UTC() },
		loops:  map[int64]*loop{},
	}
}

// Start begins polling the device, replacing any loop already running for
// it. The previous loop is drained and its session released before the new
// loop ticks.
func (s *Scheduler) Start(device model.Device) {
	ctx, cancel := context.WithCancel(context.Background())
	next := &loop{deviceID: device.ID, ctx: ctx, cancel: cancel, done: make(chan struct{})}

	s.mu.Lock()
	prev := s.loops[device.ID]
	s.loops[device.ID] = next
	s.mu.Unlock()

	go s.run(next, prev)
	s.logger.Info().Int64("device_id", device.ID).Str("name", device.Name).Msg("polling started")
}

// Stop cancels the device's loop, waits for an in-flight tick and releases
// the cached session. A session opened outside the loop, by an on-demand
// read, is released even when no loop is running.
func (s *Scheduler) Stop(deviceID int64) error {
	s.mu.Lock()
	l := s.loops[deviceID]
	delete(s.loops, deviceID)
	s.mu.Unlock()

	if l == nil {
		if err := s.deps.Connections.Release(deviceID); err != nil {
			return fmt.Errorf("release device %d: %w", deviceID, err)
		}
		return nil
	}
	if err := s.drain(l); err != nil {
		return err
	}
	s.logger.Info().Int64("device_id", deviceID).Msg("polling stopped")
	return nil
}

// StopAll stops every loop and closes all cached sessions.
func (s *Scheduler) StopAll() error {
	s.mu.Lock()
	loops := make([]*loop, 0, len(s.loops))
	for id, l := range s.loops {
		loops = append(loops, l)
		delete(s.loops, id)
	}
	s.mu.Unlock()

	var g errgroup.Group
	for _, l := range loops {
		l := l
		g.Go(func() error { return s.drain(l) })
	}
	err := g.Wait()
	return errors.Join(err, s.deps.Connections.CloseAll())
}

// Running reports whether a loop exists for the device.
func (s *Scheduler) Running(deviceID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.loops[deviceID]
	return ok
}

// Count is the number of running loops.
func (s *Scheduler) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.loops)
}

func (s *Scheduler) drain(l *loop) error {
	l.cancel()
	<-l.done
	if err := s.deps.Connections.Release(l.deviceID); err != nil {
		return fmt.Errorf("release device %d: %w", l.deviceID, err)
	}
	return nil
}

func (s *Scheduler) run(l *loop, prev *loop) {
	defer close(l.done)
	if prev != nil {
		if err := s.drain(prev); err != nil {
			s.logger.Warn().Err(err).Int64("device_id", l.deviceID).Msg("previous loop teardown failed")
		}
	}

	ticker := time.NewTicker(s.opts.PollInterval)
	defer ticker.Stop()
	for {
		if l.ctx.Err() != nil {
			return
		}
		s.tick(l)
		select {
		case <-l.ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// tick runs one poll cycle. It uses its own deadline so that Stop waits for
// a started tick instead of cutting it short.
func (s *Scheduler) tick(l *loop) {
	ctx, cancel := context.WithTimeout(context.Background(), s.opts.TickTimeout)
	defer cancel()

	id := l.deviceID
	logger := s.logger.With().Int64("device_id", id).Logger()
	defer func() {
		if r := recover(); r != nil {
			logger.Error().Interface("panic", r).Msg("poll tick panicked")
			s.connectionLost(ctx, id, fmt.Errorf("poll tick panic: %v", r))
		}
	}()

	if _, err := s.deps.Registry.Get(ctx, id); err != nil {
		if errors.Is(err, devicedomain.ErrDeviceNotFound) {
			logger.Debug().Msg("device gone, tick skipped")
			return
		}
		logger.Warn().Err(err).Msg("device lookup failed")
		return
	}

	h, err := s.deps.Connections.Acquire(ctx, id)
	if err != nil {
		s.connectionLost(ctx, id, err)
		return
	}

	report, err := s.deps.Fetcher.Traffic(ctx, h)
	if err != nil {
		if s.failed(ctx, logger, id, "traffic", err) {
			return
		}
	} else {
		s.deps.Broadcaster.Broadcast(model.EventInterfaceTraffic, id, report.Interfaces)
		s.deps.Broadcaster.Broadcast(model.EventTrafficSummary, id, report.Summary)
		if err := s.deps.Registry.MarkConnected(ctx, id, s.now()); err != nil {
			logger.Warn().Err(err).Msg("mark connected failed")
		}
	}

	now := s.now()
	if !l.lastSystem.IsZero() && now.Sub(l.lastSystem) < s.opts.SystemInterval {
		return
	}
	l.lastSystem = now

	system, err := s.deps.Fetcher.SystemReport(ctx, h)
	if err != nil {
		s.failed(ctx, logger, id, "system", err)
		return
	}
	s.deps.Broadcaster.Broadcast(model.EventSystemInfo, id, system.System)
	s.deps.Broadcaster.Broadcast(model.EventStorageInfo, id, system.Storage)

	for _, draft := range s.deps.Evaluator.Evaluate(id, report.Interfaces, system.System) {
		s.raise(ctx, logger, draft)
	}
}

// failed routes a step error. It reports true when the connection is gone
// and the rest of the tick must be skipped.
func (s *Scheduler) failed(ctx context.Context, logger zerolog.Logger, id int64, step string, err error) bool {
	if routeros.IsConnectionError(err) {
		s.connectionLost(ctx, id, err)
		return true
	}
	logger.Warn().Err(err).Str("step", step).Msg("poll step failed")
	return false
}

func (s *Scheduler) connectionLost(ctx context.Context, id int64, cause error) {
	logger := s.logger.With().Int64("device_id", id).Logger()
	logger.Warn().Err(cause).Msg("device unreachable")
	s.raise(ctx, logger, evaluator.ConnectionLost(id, cause))
}

func (s *Scheduler) raise(ctx context.Context, logger zerolog.Logger, draft model.AlertDraft) {
	created, err := s.deps.Alerts.Create(ctx, draft)
	if err != nil {
		logger.Error().Err(err).Str("type", string(draft.Type)).Msg("store alert failed")
		return
	}
	s.deps.Broadcaster.Broadcast(model.EventNewAlert, created.DeviceID, created)
}
