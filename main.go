package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"hr_records/internal/app"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const shutdownTimeout = 30 * time.Second

func main() {
	app.SetupEnvironment()
	log.Debug().Msg("Starting application")

	cfg, err := app.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	if app.GetEnvWithDefault("ENV", "") == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc := setupServices(ctx, cfg)

	sched := setupScheduler(ctx, cfg, svc)
	if sched != nil {
		sched.Start()
		if cfg.CheckOnStart {
			go sched.RunNow()
		}
		log.Info().
			Dur("interval", cfg.CheckInterval).
			Bool("check_on_start", cfg.CheckOnStart).
			Msg("New record detection scheduled")
	}

	server := setupHTTPServer(cfg, svc)
	serverErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("Shutdown signal received")
	case err := <-serverErr:
		log.Error().Err(err).Msg("HTTP server failed")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Failed to shut down HTTP server cleanly")
	}
	if sched != nil {
		if err := sched.Stop(shutdownTimeout); err != nil {
			log.Error().Err(err).Msg("Failed to stop scheduler cleanly")
		}
	}
	if err := svc.store.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close processed-record store")
	}
	log.Info().Msg("Shutdown complete")
}
