package config

import (
	"time"

	"hr_records/internal/retry"
)

type ResilienceConfig struct {
	SheetRead    retry.Config
	SheetWrite   retry.Config
	DriveRequest retry.Config
	EmailSend    retry.Config
}

var DefaultResilienceConfig = ResilienceConfig{
	SheetRead: retry.Config{
		MaxRetries: 3,
		BaseDelay:  2 * time.Second,
		MaxDelay:   30 * time.Second,
		Timeout:    15 * time.Second,
		Retryable:  retry.IsRetryableGoogleError,
	},
	// Cell writes happen inside an HTTP request, so they give up sooner.
	SheetWrite: retry.Config{
		MaxRetries: 2,
		BaseDelay:  500 * time.Millisecond,
		MaxDelay:   5 * time.Second,
		Timeout:    10 * time.Second,
		Retryable:  retry.IsRetryableGoogleError,
	},
	DriveRequest: retry.Config{
		MaxRetries: 3,
		BaseDelay:  1 * time.Second,
		MaxDelay:   15 * time.Second,
		Timeout:    30 * time.Second,
		Retryable:  retry.IsRetryableGoogleError,
	},
	EmailSend: retry.Config{
		MaxRetries: 3,
		BaseDelay:  1 * time.Second,
		MaxDelay:   30 * time.Second,
		Timeout:    15 * time.Second,
	},
}
