package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/micro-ha/mikrotik-monitor/internal/http/handlers"
)

const requestTimeout = 30 * time.Second

// NewRouter builds full HTTP routing tree for backend API, WebSocket and static frontend.
func NewRouter(api *handlers.API) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RecoverJSON(api))
	r.Use(StripIngressPrefix)

	// The WebSocket stays outside the request timeout.
	r.Get("/ws", api.WebSocket)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(requestTimeout))
		r.Use(RequestLogger(api))

		r.Get("/healthz", api.Health)
		r.Route("/api", func(apiRouter chi.Router) {
			apiRouter.Get("/status", api.Status)

			apiRouter.Get("/devices", api.ListDevices)
			apiRouter.Post("/devices", api.CreateDevice)
			apiRouter.Route("/devices/{id}", func(device chi.Router) {
				device.Get("/", api.GetDevice)
				device.Put("/", api.UpdateDevice)
				device.Delete("/", api.DeleteDevice)

				device.Get("/interfaces", api.ListInterfaces)
				device.Get("/traffic", api.Traffic)
				device.Get("/traffic/{iface}", api.InterfaceTraffic)
				device.Get("/wifi/clients", api.WiFiClients)
				device.Get("/system", api.System)
				device.Get("/system/storage", api.Storage)
				device.Get("/system/files", api.Files)
				device.Get("/logs", api.Logs)

				device.Get("/alerts", api.ListDeviceAlerts)
				device.Post("/alerts", api.CreateDeviceAlert)
				device.Post("/alerts/mark-all-read", api.MarkAllRead)
			})

			apiRouter.Get("/alerts", api.ListAlerts)
			apiRouter.Patch("/alerts/{id}", api.PatchAlert)
		})

		r.Get("/*", api.Static)
		r.Get("/", api.Static)
	})
	return r
}

// RunServer starts and gracefully stops HTTP server with context cancellation.
func RunServer(ctx context.Context, server *http.Server, logger zerolog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("http server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err != nil {
			logger.Error().Err(err).Msg("http server failed")
		}
		return err
	}
}
