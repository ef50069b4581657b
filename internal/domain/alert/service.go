package alert

import "context"

// Service exposes alert store use-cases.
type Service interface {
	List(ctx context.Context, deviceID *int64) ([]Alert, error)
	Create(ctx context.Context, draft Draft) (Alert, error)
	UpdateReadFlag(ctx context.Context, id int64, read bool) (Alert, error)
	MarkAllRead(ctx context.Context, deviceID int64) error
}
