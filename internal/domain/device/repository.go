package device

import (
	"context"
	"time"
)

// Repository defines persistent storage operations for registered devices.
type Repository interface {
	ListDevices(ctx context.Context) ([]Device, error)
	GetDevice(ctx context.Context, id int64) (Device, error)
	InsertDevice(ctx context.Context, d Device) (Device, error)
	UpdateDevice(ctx context.Context, d Device) error
	DeleteDevice(ctx context.Context, id int64) (bool, error)
	TouchDevice(ctx context.Context, id int64, at time.Time) error
}
