package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/micro-ha/mikrotik-monitor/internal/config"
	alertdomain "github.com/micro-ha/mikrotik-monitor/internal/domain/alert"
	devicedomain "github.com/micro-ha/mikrotik-monitor/internal/domain/device"
	"github.com/micro-ha/mikrotik-monitor/internal/evaluator"
	httpapi "github.com/micro-ha/mikrotik-monitor/internal/http"
	"github.com/micro-ha/mikrotik-monitor/internal/http/handlers"
	"github.com/micro-ha/mikrotik-monitor/internal/hub"
	"github.com/micro-ha/mikrotik-monitor/internal/logging"
	"github.com/micro-ha/mikrotik-monitor/internal/oui"
	"github.com/micro-ha/mikrotik-monitor/internal/routeros"
	"github.com/micro-ha/mikrotik-monitor/internal/routeros/simulated"
	"github.com/micro-ha/mikrotik-monitor/internal/scheduler"
	alertsvc "github.com/micro-ha/mikrotik-monitor/internal/services/alert"
	devicesvc "github.com/micro-ha/mikrotik-monitor/internal/services/device"
	"github.com/micro-ha/mikrotik-monitor/internal/services/monitor"
	"github.com/micro-ha/mikrotik-monitor/internal/storage"
	"github.com/micro-ha/mikrotik-monitor/internal/storage/memory"
	"github.com/micro-ha/mikrotik-monitor/internal/storage/postgres"
)

// store is what every persistence backend provides.
type store interface {
	devicedomain.Repository
	alertdomain.Repository
	Close() error
}

func newRootCommand() *cobra.Command {
	var (
		configPath string
		logLevel   string
	)
	cmd := &cobra.Command{
		Use:           "mikrotik-monitor",
		Short:         "Poll MikroTik routers and stream their state to web clients",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), err)
				return err
			}
			if cmd.Flags().Changed("log-level") {
				cfg.LogLevel = logLevel
			}
			logger := logging.New(cfg.LogLevel, os.Stdout)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			if err := run(ctx, cfg, logger); err != nil {
				logger.Error().Err(err).Msg("server terminated with error")
				return err
			}
			logger.Info().Msg("server stopped")
			return nil
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", os.Getenv("MONITOR_CONFIG"), "path to a YAML config file")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	return cmd
}

func run(ctx context.Context, cfg config.Config, logger zerolog.Logger) error {
	repo, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer repo.Close()

	devices := devicesvc.New(repo, logger)
	alerts := alertsvc.New(repo, logger)

	dial := routeros.DialRouterOS(logger)
	if cfg.ClientMode == config.ClientSimulated {
		dial = simulated.Dial
		logger.Warn().Msg("client_mode=simulated: devices answer with generated data")
	}
	connections := routeros.NewManager(devices, dial, cfg.DialTimeout, logger)
	vendors, err := oui.LoadFile(cfg.OUIFile)
	if err != nil {
		return err
	}
	fetcher := monitor.NewFetcher(connections, vendors, logger)
	reader := monitor.NewReader(connections, fetcher, cfg.LogLimit)
	events := hub.New(reader, cfg.HubQueueSize, logger)
	defer events.Close()

	sched := scheduler.New(scheduler.Deps{
		Registry:    devices,
		Connections: connections,
		Fetcher:     fetcher,
		Alerts:      alerts,
		Broadcaster: events,
		Evaluator:   evaluator.New(cfg.Thresholds),
	}, scheduler.Options{
		PollInterval:   cfg.PollInterval,
		SystemInterval: cfg.SystemInterval,
		TickTimeout:    cfg.TickTimeout,
	}, logger)
	defer func() {
		if err := sched.StopAll(); err != nil {
			logger.Warn().Err(err).Msg("scheduler teardown failed")
		}
	}()

	if seeded, err := devices.Seed(ctx, cfg.Devices); err != nil {
		logger.Warn().Err(err).Int("seeded", seeded).Msg("device seeding incomplete")
	} else if seeded > 0 {
		logger.Info().Int("seeded", seeded).Msg("devices seeded from config")
	}
	existing, err := devices.List(ctx)
	if err != nil {
		return fmt.Errorf("list devices: %w", err)
	}
	for _, device := range existing {
		sched.Start(device)
	}

	api := handlers.New(devices, alerts, reader, sched, events, logger, frontendDir(cfg.FrontendDist, logger), version)
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpapi.NewRouter(api),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      45 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	logger.Info().
		Str("addr", cfg.HTTPAddr).
		Str("db_driver", cfg.DBDriver).
		Str("client_mode", cfg.ClientMode).
		Int("devices", len(existing)).
		Msg("server starting")
	if err := httpapi.RunServer(ctx, httpServer, logger); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func openStore(ctx context.Context, cfg config.Config, logger zerolog.Logger) (store, error) {
	switch cfg.DBDriver {
	case config.DriverMemory:
		return memory.New(), nil
	case config.DriverPostgres:
		return postgres.New(ctx, cfg.DatabaseURL, postgres.Options{}, logger)
	default:
		if err := os.MkdirAll(cfg.DBDir(), 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
		return storage.New(ctx, cfg.DBPath, logger)
	}
}

func frontendDir(dir string, logger zerolog.Logger) string {
	if dir == "" {
		return ""
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		logger.Warn().Str("frontend_dist", dir).Msg("frontend dist not found, static files disabled")
		return ""
	}
	return dir
}
