package device

import (
	"context"
	"time"
)

// Service exposes device registry use-cases used by HTTP and polling layers.
type Service interface {
	List(ctx context.Context) ([]Device, error)
	Get(ctx context.Context, id int64) (Device, error)
	Create(ctx context.Context, in Input) (Device, error)
	Update(ctx context.Context, id int64, patch Patch) (Device, error)
	Delete(ctx context.Context, id int64) (bool, error)
	MarkConnected(ctx context.Context, id int64, at time.Time) error
}
