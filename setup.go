package main

import (
	"context"
	"net/http"
	"time"

	"hr_records/internal/app"
	"hr_records/internal/config"
	"hr_records/internal/drive"
	"hr_records/internal/httpapi"
	"hr_records/internal/notifications"
	"hr_records/internal/processing"
	"hr_records/internal/scheduler"
	"hr_records/internal/sheets"
	"hr_records/internal/store"

	"github.com/rs/zerolog/log"
)

// services holds every long-lived collaborator built at startup.
type services struct {
	sheets   *sheets.Reader
	drive    *drive.Client
	mailer   *notifications.Client
	store    *store.Store
	detector *processing.Detector
}

func setupServices(ctx context.Context, cfg app.Config) *services {
	sheetsClient, driveClient := app.InitializeClients(ctx, cfg)
	reader := sheets.NewReader(sheetsClient, cfg.SpreadsheetID)
	mailer := app.InitializeNotificationClient(cfg)
	recordStore := app.InitializeStore(cfg)

	return &services{
		sheets:   reader,
		drive:    driveClient,
		mailer:   mailer,
		store:    recordStore,
		detector: processing.NewDetector(reader, recordStore, mailer, config.DefaultTrackedSheets),
	}
}

// setupScheduler seeds the processed-record store and returns the scheduler
// for new record detection, or nil when notifications are disabled.
func setupScheduler(ctx context.Context, cfg app.Config, svc *services) *scheduler.Scheduler {
	if !cfg.NotifyEnabled {
		log.Info().Msg("New record detection not scheduled")
		return nil
	}

	// seeding must finish before the first pass or every historical row is announced
	if _, err := svc.detector.SeedIfEmpty(ctx); err != nil {
		log.Error().Err(err).Msg("Failed to seed processed-record store, new record detection not scheduled")
		return nil
	}

	return scheduler.New(cfg.CheckInterval, func() {
		passCtx, cancel := context.WithTimeout(ctx, cfg.CheckInterval)
		defer cancel()
		svc.detector.DetectAndNotify(passCtx)
	})
}

func setupHTTPServer(cfg app.Config, svc *services) *http.Server {
	api := httpapi.New(httpapi.Dependencies{
		Sheets:    svc.sheets,
		Files:     svc.drive,
		Mailer:    svc.mailer,
		Processed: svc.store,
	}, httpapi.Options{
		TrackedSheets:  config.DefaultTrackedSheets,
		AllowedOrigins: cfg.AllowedOrigins,
	})

	return &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
}
