package alert

import "context"

// Repository defines persistent storage operations for alerts.
type Repository interface {
	// ListAlerts returns alerts newest first; deviceID nil means all devices.
	ListAlerts(ctx context.Context, deviceID *int64) ([]Alert, error)
	InsertAlert(ctx context.Context, a Alert) (Alert, error)
	SetAlertRead(ctx context.Context, id int64, read bool) (Alert, error)
	MarkDeviceAlertsRead(ctx context.Context, deviceID int64) error
}
