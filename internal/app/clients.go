package app

import (
	"context"

	"hr_records/internal/config"
	"hr_records/internal/drive"
	"hr_records/internal/notifications"
	"hr_records/internal/sheets"
	"hr_records/internal/store"

	"github.com/rs/zerolog/log"
)

// InitializeClients creates the Google Sheets and Drive clients
func InitializeClients(ctx context.Context, cfg Config) (*sheets.Client, *drive.Client) {
	log.Debug().Msg("Initializing clients")

	creds, err := cfg.GoogleCredentials()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load Google credentials")
	}

	sheetsClient, err := sheets.NewClient(ctx, config.DefaultResilienceConfig, creds)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create sheets client")
	}
	driveClient, err := drive.NewClient(ctx, config.DefaultResilienceConfig, creds)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create drive client")
	}

	log.Debug().Msg("Clients initialized successfully")
	return sheetsClient, driveClient
}

// InitializeNotificationClient creates the email client shared by the send
// endpoint and new record notifications.
func InitializeNotificationClient(cfg Config) *notifications.Client {
	policy := config.DefaultResilienceConfig.EmailSend

	log.Debug().
		Str("base_url", cfg.ResendAPIURL).
		Str("from", cfg.ResendFrom).
		Int("recipients", len(cfg.NotifyRecipients)).
		Msg("Initializing notification client")

	client := notifications.NewClient(
		cfg.ResendAPIURL,
		cfg.ResendAPIKey,
		cfg.ResendFrom,
		cfg.NotifyRecipients,
		policy.MaxRetries,
		policy.BaseDelay,
		policy.MaxDelay,
	)

	if cfg.NotifyEnabled {
		log.Info().Strs("recipients", client.Recipients()).Msg("New record notifications enabled")
	} else {
		log.Info().Msg("New record notifications disabled")
	}
	return client
}

// InitializeStore opens the processed-record store
func InitializeStore(cfg Config) *store.Store {
	s, err := store.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open processed-record store")
	}
	return s
}
