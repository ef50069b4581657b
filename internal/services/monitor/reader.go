package monitor

import (
	"context"

	"github.com/micro-ha/mikrotik-monitor/internal/model"
	"github.com/micro-ha/mikrotik-monitor/internal/routeros"
)

// Reader answers on-demand queries by device id, sharing the scheduler's
// cached sessions.
type Reader struct {
	sessions Sessions
	fetcher  *Fetcher
	logLimit int
}

func NewReader(sessions Sessions, fetcher *Fetcher, logLimit int) *Reader {
	if logLimit <= 0 {
		logLimit = 100
	}
	return &Reader{sessions: sessions, fetcher: fetcher, logLimit: logLimit}
}

// LogLimit is the default number of log entries returned.
func (r *Reader) LogLimit() int {
	return r.logLimit
}

func (r *Reader) Interfaces(ctx context.Context, deviceID int64, kind string) ([]model.InterfaceInfo, error) {
	h, err := r.sessions.Acquire(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	return r.fetcher.Interfaces(ctx, h, kind)
}

func (r *Reader) Traffic(ctx context.Context, deviceID int64) (TrafficReport, error) {
	h, err := r.sessions.Acquire(ctx, deviceID)
	if err != nil {
		return TrafficReport{}, err
	}
	return r.fetcher.Traffic(ctx, h)
}

func (r *Reader) InterfaceTraffic(ctx context.Context, deviceID int64, name string) (model.InterfaceTraffic, error) {
	h, err := r.sessions.Acquire(ctx, deviceID)
	if err != nil {
		return model.InterfaceTraffic{}, err
	}
	return r.fetcher.InterfaceTraffic(ctx, h, name)
}

func (r *Reader) WiFiClients(ctx context.Context, deviceID int64) ([]model.WiFiClient, error) {
	h, err := r.sessions.Acquire(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	return r.fetcher.WiFiClients(ctx, h)
}

func (r *Reader) System(ctx context.Context, deviceID int64) (model.SystemSnapshot, error) {
	h, err := r.sessions.Acquire(ctx, deviceID)
	if err != nil {
		return model.SystemSnapshot{}, err
	}
	return r.fetcher.System(ctx, h)
}

func (r *Reader) Storage(ctx context.Context, deviceID int64) ([]model.StorageDevice, error) {
	h, err := r.sessions.Acquire(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	return r.fetcher.Storage(ctx, h)
}

func (r *Reader) Files(ctx context.Context, deviceID int64) ([]model.FileInfo, error) {
	h, err := r.sessions.Acquire(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	return r.fetcher.Files(ctx, h)
}

// Logs uses the configured default when limit is not positive.
func (r *Reader) Logs(ctx context.Context, deviceID int64, topics []string, limit int) ([]model.LogEntry, error) {
	if limit <= 0 {
		limit = r.logLimit
	}
	h, err := r.sessions.Acquire(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	return r.fetcher.Logs(ctx, h, topics, limit)
}

var _ Sessions = (*routeros.Manager)(nil)
