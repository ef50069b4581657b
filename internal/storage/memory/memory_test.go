package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	alertdomain "github.com/micro-ha/mikrotik-monitor/internal/domain/alert"
	devicedomain "github.com/micro-ha/mikrotik-monitor/internal/domain/device"
	"github.com/micro-ha/mikrotik-monitor/internal/model"
)

func TestDevices(t *testing.T) {
	ctx := context.Background()
	store := New()

	a, err := store.InsertDevice(ctx, model.Device{Name: "a"})
	require.NoError(t, err)
	b, err := store.InsertDevice(ctx, model.Device{Name: "b"})
	require.NoError(t, err)
	assert.Less(t, a.ID, b.ID)

	at := time.Now()
	require.NoError(t, store.TouchDevice(ctx, a.ID, at))
	got, err := store.GetDevice(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, at.Equal(*got.LastConnected))

	ok, err := store.DeleteDevice(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = store.DeleteDevice(ctx, a.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = store.GetDevice(ctx, a.ID)
	assert.ErrorIs(t, err, devicedomain.ErrDeviceNotFound)
	assert.ErrorIs(t, store.TouchDevice(ctx, a.ID, at), devicedomain.ErrDeviceNotFound)
}

func TestAlertsOrderingAndCopies(t *testing.T) {
	ctx := context.Background()
	store := New()
	now := time.Now()

	first, _ := store.InsertAlert(ctx, model.Alert{DeviceID: 1, CreatedAt: now, Data: map[string]any{"k": 1}})
	second, _ := store.InsertAlert(ctx, model.Alert{DeviceID: 1, CreatedAt: now})
	third, _ := store.InsertAlert(ctx, model.Alert{DeviceID: 1, CreatedAt: now.Add(-time.Minute)})

	list, err := store.ListAlerts(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, []int64{second.ID, first.ID, third.ID}, []int64{list[0].ID, list[1].ID, list[2].ID})

	list[1].Data["k"] = 2
	again, _ := store.ListAlerts(ctx, nil)
	assert.Equal(t, 1, again[1].Data["k"])

	_, err = store.SetAlertRead(ctx, 42, true)
	assert.ErrorIs(t, err, alertdomain.ErrAlertNotFound)
}
