package alert

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	alertdomain "github.com/micro-ha/mikrotik-monitor/internal/domain/alert"
)

// Service implements alert.Service on top of a repository.
type Service struct {
	repo   alertdomain.Repository
	logger zerolog.Logger
	now    func() time.Time
}

var _ alertdomain.Service = (*Service)(nil)

func New(repo alertdomain.Repository, logger zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger.With().Str("component", "alerts").Logger(),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// List returns alerts newest first; deviceID nil lists all devices.
func (s *Service) List(ctx context.Context, deviceID *int64) ([]alertdomain.Alert, error) {
	return s.repo.ListAlerts(ctx, deviceID)
}

// Create persists a draft as an unread alert stamped with the current time.
func (s *Service) Create(ctx context.Context, draft alertdomain.Draft) (alertdomain.Alert, error) {
	if err := alertdomain.Validate(draft); err != nil {
		return alertdomain.Alert{}, err
	}
	created, err := s.repo.InsertAlert(ctx, alertdomain.Alert{
		DeviceID:    draft.DeviceID,
		Type:        draft.Type,
		Severity:    draft.Severity,
		Message:     draft.Message,
		Description: draft.Description,
		Data:        draft.Data,
		CreatedAt:   s.now(),
	})
	if err != nil {
		return alertdomain.Alert{}, err
	}
	s.logger.Debug().
		Int64("alert_id", created.ID).
		Int64("device_id", created.DeviceID).
		Str("type", string(created.Type)).
		Str("severity", string(created.Severity)).
		Msg("alert stored")
	return created, nil
}

func (s *Service) UpdateReadFlag(ctx context.Context, id int64, read bool) (alertdomain.Alert, error) {
	return s.repo.SetAlertRead(ctx, id, read)
}

// MarkAllRead flags every alert of one device as read.
func (s *Service) MarkAllRead(ctx context.Context, deviceID int64) error {
	return s.repo.MarkDeviceAlertsRead(ctx, deviceID)
}
