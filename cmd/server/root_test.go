package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/micro-ha/mikrotik-monitor/internal/config"
)

func TestOpenStoreDrivers(t *testing.T) {
	ctx := context.Background()

	cfg := config.Default()
	cfg.DBDriver = config.DriverMemory
	mem, err := openStore(ctx, cfg, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, mem.Close())

	cfg.DBDriver = config.DriverSQLite
	cfg.DBPath = filepath.Join(t.TempDir(), "nested", "monitor.db")
	sqlite, err := openStore(ctx, cfg, zerolog.Nop())
	require.NoError(t, err)
	devices, err := sqlite.ListDevices(ctx)
	require.NoError(t, err)
	assert.Empty(t, devices)
	require.NoError(t, sqlite.Close())
}

func TestRootCommandFlags(t *testing.T) {
	cmd := newRootCommand()
	require.NotNil(t, cmd.Flags().Lookup("config"))
	require.NotNil(t, cmd.Flags().Lookup("log-level"))
	assert.Equal(t, "mikrotik-monitor", cmd.Use)
}

func TestRootCommandRejectsBadConfig(t *testing.T) {
	cmd := newRootCommand()
	cmd.SetArgs([]string{"--config", filepath.Join(t.TempDir(), "missing.yaml")})
	cmd.SetErr(&discard{})
	assert.Error(t, cmd.Execute())
}

type discard struct{}

func (*discard) Write(p []byte) (int, error) { return len(p), nil }
