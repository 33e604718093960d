package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInitializeNotificationClientRecipients(t *testing.T) {
	cfg := Config{
		ResendAPIURL:     "http://localhost:9",
		ResendAPIKey:     "re_test",
		ResendFrom:       "rrhh@example.com",
		NotifyRecipients: []string{"jefe@example.com", "rrhh@example.com"},
		NotifyEnabled:    true,
	}

	client := InitializeNotificationClient(cfg)
	assert.Equal(t, cfg.NotifyRecipients, client.Recipients())

	cfg.NotifyRecipients = nil
	cfg.NotifyEnabled = false
	assert.Empty(t, InitializeNotificationClient(cfg).Recipients())
}
