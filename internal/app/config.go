package app

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"hr_records/internal/config"
	"hr_records/internal/notifications"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/option"
)

const (
	DefaultPort            = "8000"
	DefaultCredentialsFile = "service_account.json"
	DefaultCheckInterval   = 5 * time.Minute
)

var DefaultAllowedOrigins = []string{
	"http://localhost",
	"http://localhost:3000",
	"https://frontend-hxrk.onrender.com",
	"https://recursos-humanos-traful-ultimo.onrender.com",
}

type Config struct {
	Port            string
	SpreadsheetID   string
	CredentialsFile string
	CredentialsJSON string
	DatabaseURL     string

	ResendAPIKey string
	ResendFrom   string
	ResendAPIURL string

	NotifyRecipients []string
	NotifyEnabled    bool
	CheckInterval    time.Duration
	CheckOnStart     bool

	AllowedOrigins []string
}

// SetupEnvironment loads .env file and configures zerolog output and log level.
func SetupEnvironment() {
	// Load .env file if it exists
	err := godotenv.Load()

	if os.Getenv("ENV") == "production" {
		zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
		log.Logger = log.Output(os.Stderr)
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	levelStr := strings.ToLower(os.Getenv("LOGLEVEL"))
	switch levelStr {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn", "warning":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	case "disabled":
		zerolog.SetGlobalLevel(zerolog.Disabled)
	case "":
		if os.Getenv("ENV") == "production" {
			zerolog.SetGlobalLevel(zerolog.WarnLevel)
		} else {
			zerolog.SetGlobalLevel(zerolog.InfoLevel)
		}
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
		log.Warn().Msgf("Unknown LOGLEVEL '%s', defaulting to info.", levelStr)
	}

	// wait until now to report on the .env file so we have the chance to set up logging first
	if err == nil {
		log.Debug().Msg("Loaded environment variables from .env file.")
	} else {
		log.Debug().Msg("No .env file found or error loading .env file; proceeding with existing environment variables.")
	}
}

// GetEnvWithDefault fetches an environment variable with a default fallback.
func GetEnvWithDefault(key, defaultValue string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	return value
}

// LoadConfig reads the service configuration from the environment.
func LoadConfig() (Config, error) {
	cfg := Config{
		Port:            GetEnvWithDefault("PORT", DefaultPort),
		SpreadsheetID:   GetEnvWithDefault("SPREADSHEET_ID", config.DefaultSpreadsheetID),
		CredentialsFile: GetEnvWithDefault("GOOGLE_CREDENTIALS_FILE", DefaultCredentialsFile),
		CredentialsJSON: os.Getenv("GOOGLE_CREDENTIALS_JSON"),
		DatabaseURL:     GetEnvWithDefault("DATABASE_URL", ""),
		ResendAPIKey:    GetEnvWithDefault("RESEND_API_KEY", ""),
		ResendFrom:      GetEnvWithDefault("RESEND_FROM_EMAIL", ""),
		ResendAPIURL:    GetEnvWithDefault("RESEND_API_URL", notifications.DefaultBaseURL),
		AllowedOrigins:  splitList(os.Getenv("ALLOWED_ORIGINS")),
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = DefaultAllowedOrigins
	}

	var missing []string
	for key, value := range map[string]string{
		"DATABASE_URL":      cfg.DatabaseURL,
		"RESEND_API_KEY":    cfg.ResendAPIKey,
		"RESEND_FROM_EMAIL": cfg.ResendFrom,
	} {
		if value == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return Config{}, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}

	cfg.NotifyRecipients = splitList(os.Getenv("NOTIFY_RECIPIENTS"))

	enabled, err := parseBool("NOTIFY_ENABLED", len(cfg.NotifyRecipients) > 0)
	if err != nil {
		return Config{}, err
	}
	if enabled && len(cfg.NotifyRecipients) == 0 {
		log.Warn().Msg("NOTIFY_ENABLED is set but NOTIFY_RECIPIENTS is empty, disabling new record notifications")
		enabled = false
	}
	cfg.NotifyEnabled = enabled

	cfg.CheckOnStart, err = parseBool("CHECK_ON_START", true)
	if err != nil {
		return Config{}, err
	}

	cfg.CheckInterval = DefaultCheckInterval
	if raw := GetEnvWithDefault("CHECK_INTERVAL", ""); raw != "" {
		interval, err := time.ParseDuration(raw)
		if err != nil {
			return Config{}, fmt.Errorf("invalid CHECK_INTERVAL %q: %w", raw, err)
		}
		if interval < time.Second {
			return Config{}, fmt.Errorf("CHECK_INTERVAL must be at least 1s, got %s", interval)
		}
		cfg.CheckInterval = interval
	}

	return cfg, nil
}

// GoogleCredentials returns the client option carrying the service account
// credentials. Inline JSON takes precedence over the credentials file.
func (c Config) GoogleCredentials() (option.ClientOption, error) {
	creds, err := c.credentialsJSON()
	if err != nil {
		return nil, err
	}
	return option.WithCredentialsJSON(creds), nil
}

func (c Config) credentialsJSON() ([]byte, error) {
	if strings.TrimSpace(c.CredentialsJSON) != "" {
		normalized, err := normalizePrivateKey([]byte(c.CredentialsJSON))
		if err != nil {
			return nil, fmt.Errorf("failed to parse GOOGLE_CREDENTIALS_JSON: %w", err)
		}
		log.Debug().Msg("Using inline Google credentials")
		return normalized, nil
	}

	raw, err := os.ReadFile(c.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials file %s: %w", c.CredentialsFile, err)
	}
	normalized, err := normalizePrivateKey(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse credentials file %s: %w", c.CredentialsFile, err)
	}
	log.Debug().Str("file", c.CredentialsFile).Msg("Using Google credentials file")
	return normalized, nil
}

// normalizePrivateKey turns literal "\n" sequences in private_key into real
// newlines, as left behind by env vars that cannot hold multi-line values.
func normalizePrivateKey(raw []byte) ([]byte, error) {
	var creds map[string]interface{}
	if err := json.Unmarshal(raw, &creds); err != nil {
		return nil, err
	}
	if key, ok := creds["private_key"].(string); ok {
		creds["private_key"] = strings.ReplaceAll(key, `\n`, "\n")
	}
	return json.Marshal(creds)
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseBool(key string, defaultValue bool) (bool, error) {
	raw := GetEnvWithDefault(key, "")
	if raw == "" {
		return defaultValue, nil
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return value, nil
}
