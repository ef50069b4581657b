package device

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	devicedomain "github.com/micro-ha/mikrotik-monitor/internal/domain/device"
	"github.com/micro-ha/mikrotik-monitor/internal/model"
)

// Service implements device.Service: the registry of monitored routers.
type Service struct {
	repo   devicedomain.Repository
	logger zerolog.Logger
	now    func() time.Time
}

var _ devicedomain.Service = (*Service)(nil)

func New(repo devicedomain.Repository, logger zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger.With().Str("component", "devices").Logger(),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) List(ctx context.Context) ([]devicedomain.Device, error) {
	return s.repo.ListDevices(ctx)
}

func (s *Service) Get(ctx context.Context, id int64) (devicedomain.Device, error) {
	return s.repo.GetDevice(ctx, id)
}

// Create validates input, assigns a new id and stamps the creation time as
// the initial last-connected time.
func (s *Service) Create(ctx context.Context, in devicedomain.Input) (devicedomain.Device, error) {
	now := s.now()
	d := devicedomain.Device{
		Name:          strings.TrimSpace(in.Name),
		Host:          strings.TrimSpace(in.Host),
		Username:      strings.TrimSpace(in.Username),
		Password:      in.Password,
		Port:          in.Port,
		UseTLS:        in.UseTLS,
		Model:         in.Model,
		Version:       in.Version,
		LastConnected: &now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if d.Port == 0 {
		d.Port = defaultPort(d.UseTLS)
	}
	if err := devicedomain.Validate(d); err != nil {
		return devicedomain.Device{}, err
	}
	created, err := s.repo.InsertDevice(ctx, d)
	if err != nil {
		return devicedomain.Device{}, fmt.Errorf("insert device: %w", err)
	}
	s.logger.Info().Int64("device_id", created.ID).Str("host", created.Host).Msg("device registered")
	return created, nil
}

// Update merges the non-nil patch fields into the stored device.
func (s *Service) Update(ctx context.Context, id int64, patch devicedomain.Patch) (devicedomain.Device, error) {
	current, err := s.repo.GetDevice(ctx, id)
	if err != nil {
		return devicedomain.Device{}, err
	}
	if patch.Name != nil {
		trimmed := strings.TrimSpace(*patch.Name)
		patch.Name = &trimmed
	}
	if patch.Host != nil {
		trimmed := strings.TrimSpace(*patch.Host)
		patch.Host = &trimmed
	}
	if patch.Username != nil {
		trimmed := strings.TrimSpace(*patch.Username)
		patch.Username = &trimmed
	}
	next := patch.Apply(current)
	next.ID = id
	next.UpdatedAt = s.now()
	if err := devicedomain.Validate(next); err != nil {
		return devicedomain.Device{}, err
	}
	if err := s.repo.UpdateDevice(ctx, next); err != nil {
		return devicedomain.Device{}, err
	}
	return next, nil
}

// Delete removes the device. It reports false when no such device existed.
func (s *Service) Delete(ctx context.Context, id int64) (bool, error) {
	deleted, err := s.repo.DeleteDevice(ctx, id)
	if err != nil {
		return false, fmt.Errorf("delete device %d: %w", id, err)
	}
	if deleted {
		s.logger.Info().Int64("device_id", id).Msg("device removed")
	}
	return deleted, nil
}

func (s *Service) MarkConnected(ctx context.Context, id int64, at time.Time) error {
	return s.repo.TouchDevice(ctx, id, at.UTC())
}

// Seed registers inputs when the registry is empty and returns how many were added.
func (s *Service) Seed(ctx context.Context, inputs []devicedomain.Input) (int, error) {
	if len(inputs) == 0 {
		return 0, nil
	}
	existing, err := s.repo.ListDevices(ctx)
	if err != nil {
		return 0, err
	}
	if len(existing) > 0 {
		return 0, nil
	}
	for i, in := range inputs {
		if _, err := s.Create(ctx, in); err != nil {
			return i, fmt.Errorf("seed device %q: %w", in.Name, err)
		}
	}
	return len(inputs), nil
}

func defaultPort(useTLS bool) int {
	if useTLS {
		return model.DefaultAPITLSPort
	}
	return model.DefaultAPIPort
}
