package notifications

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	DefaultBaseURL = "https://api.resend.com"

	circuitThreshold = 5
	circuitCooldown  = 30 * time.Second
)

var ErrNoRecipients = errors.New("no notification recipients configured")

type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	from       string
	recipients []string
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
	cooldown   time.Duration
	// Circuit breaker state
	failures    int
	lastFailure time.Time
	circuitOpen bool
	mutex       sync.Mutex
	// Metrics
	totalSent    int64
	totalFailed  int64
	totalRetries int64
}

// Attachment content is sent base64-encoded.
type Attachment struct {
	Filename string
	Content  []byte
}

type Email struct {
	To          []string
	Subject     string
	HTML        string
	Attachments []Attachment
}

type NotificationError struct {
	Type       string
	StatusCode int
	Attempt    int
	Underlying error
}

func (e *NotificationError) Error() string {
	return fmt.Sprintf("email send failed [%s] attempt %d: %v", e.Type, e.Attempt, e.Underlying)
}

func (e *NotificationError) Unwrap() error {
	return e.Underlying
}

func (e *NotificationError) IsRetryable() bool {
	switch e.Type {
	case "network", "server", "timeout", "rate_limit":
		return true
	case "auth", "client", "invalid_response":
		return false
	default:
		return e.StatusCode >= 500
	}
}

type sendRequest struct {
	From        string              `json:"from"`
	To          []string            `json:"to"`
	Subject     string              `json:"subject"`
	HTML        string              `json:"html"`
	Attachments []attachmentPayload `json:"attachments,omitempty"`
}

type attachmentPayload struct {
	Filename string `json:"filename"`
	Content  string `json:"content"`
}

type sendResponse struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

func NewClient(baseURL, apiKey, from string, recipients []string, maxRetries int, baseDelay, maxDelay time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		from:       from,
		recipients: recipients,
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
		maxDelay:   maxDelay,
		cooldown:   circuitCooldown,
	}
}

// Recipients is the fixed distribution list used for new-record notices.
func (c *Client) Recipients() []string {
	return c.recipients
}

// SendEmail delivers one message and returns the provider's message id. A
// nil error always comes with a non-empty id.
func (c *Client) SendEmail(ctx context.Context, email Email) (string, error) {
	if c.isCircuitOpen() {
		log.Warn().Msg("Circuit breaker open, skipping email")
		return "", &NotificationError{
			Type:       "circuit_open",
			Underlying: fmt.Errorf("circuit breaker is open"),
		}
	}

	payload, err := c.buildPayload(email)
	if err != nil {
		return "", &NotificationError{Type: "client", Attempt: 0, Underlying: err}
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := c.calculateBackoff(attempt)
			log.Debug().
				Int("attempt", attempt).
				Dur("delay", delay).
				Msg("Retrying email after delay")

			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return "", ctx.Err()
			}
			c.incrementRetries()
		}

		id, err := c.sendSingleEmail(ctx, payload, attempt+1)
		if err == nil {
			c.recordSuccess()
			return id, nil
		}

		lastErr = err

		var notifErr *NotificationError
		if errors.As(err, &notifErr) && !notifErr.IsRetryable() {
			log.Warn().
				Err(err).
				Int("attempt", attempt+1).
				Msg("Non-retryable error, giving up")
			c.recordFailure()
			return "", err
		}

		log.Warn().
			Err(err).
			Int("attempt", attempt+1).
			Int("max_retries", c.maxRetries).
			Msg("Email attempt failed")
	}

	c.recordFailure()
	return "", &NotificationError{
		Type:       "max_retries_exceeded",
		Attempt:    c.maxRetries + 1,
		Underlying: lastErr,
	}
}

func (c *Client) buildPayload(email Email) ([]byte, error) {
	if len(email.To) == 0 {
		return nil, fmt.Errorf("email has no recipients")
	}
	req := sendRequest{
		From:    c.from,
		To:      email.To,
		Subject: email.Subject,
		HTML:    email.HTML,
	}
	for _, a := range email.Attachments {
		req.Attachments = append(req.Attachments, attachmentPayload{
			Filename: a.Filename,
			Content:  base64.StdEncoding.EncodeToString(a.Content),
		})
	}
	return json.Marshal(req)
}

func (c *Client) sendSingleEmail(ctx context.Context, payload []byte, attempt int) (string, error) {
	url := c.baseURL + "/emails"

	log.Debug().
		Str("url", url).
		Int("attempt", attempt).
		Msg("Sending email")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", &NotificationError{Type: "client", Attempt: attempt, Underlying: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		errType := "network"
		if errors.Is(err, context.DeadlineExceeded) {
			errType = "timeout"
		}
		return "", &NotificationError{Type: errType, Attempt: attempt, Underlying: err}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	if resp.StatusCode >= 400 {
		var apiResp sendResponse
		detail := strings.TrimSpace(string(body))
		if json.Unmarshal(body, &apiResp) == nil && apiResp.Message != "" {
			detail = apiResp.Message
		}
		return "", &NotificationError{
			Type:       c.categorizeHTTPError(resp.StatusCode),
			StatusCode: resp.StatusCode,
			Attempt:    attempt,
			Underlying: fmt.Errorf("HTTP %d: %s", resp.StatusCode, detail),
		}
	}

	var apiResp sendResponse
	if err := json.Unmarshal(body, &apiResp); err != nil || apiResp.ID == "" {
		return "", &NotificationError{
			Type:       "invalid_response",
			StatusCode: resp.StatusCode,
			Attempt:    attempt,
			Underlying: fmt.Errorf("provider response has no message id: %s", strings.TrimSpace(string(body))),
		}
	}

	log.Debug().
		Int("status_code", resp.StatusCode).
		Int("attempt", attempt).
		Str("email_id", apiResp.ID).
		Msg("Email accepted by provider")

	return apiResp.ID, nil
}

// Circuit breaker and retry helper methods

func (c *Client) isCircuitOpen() bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if !c.circuitOpen {
		return false
	}

	// half-open: let the next attempt through after the cooldown
	if time.Since(c.lastFailure) > c.cooldown {
		c.circuitOpen = false
		c.failures = 0
		log.Info().Msg("Circuit breaker moving to half-open state")
	}

	return c.circuitOpen
}

func (c *Client) recordSuccess() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.totalSent++
	c.failures = 0
	if c.circuitOpen {
		c.circuitOpen = false
		log.Info().Msg("Circuit breaker closed after successful email")
	}
}

func (c *Client) recordFailure() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.totalFailed++
	c.failures++
	c.lastFailure = time.Now()

	if c.failures >= circuitThreshold && !c.circuitOpen {
		c.circuitOpen = true
		log.Warn().
			Int("failures", c.failures).
			Msg("Circuit breaker opened due to consecutive failures")
	}
}

func (c *Client) incrementRetries() {
	c.mutex.Lock()
	c.totalRetries++
	c.mutex.Unlock()
}

func (c *Client) calculateBackoff(attempt int) time.Duration {
	// Exponential backoff with jitter
	base := float64(c.baseDelay)
	backoff := base * math.Pow(2, float64(attempt-1))

	// Add jitter (+/-25%)
	jitter := rand.Float64()*0.5 - 0.25
	backoff = backoff * (1 + jitter)

	maxBackoff := float64(c.maxDelay)
	if backoff > maxBackoff {
		backoff = maxBackoff
	}

	return time.Duration(backoff)
}

func (c *Client) categorizeHTTPError(statusCode int) string {
	switch {
	case statusCode == 401 || statusCode == 403:
		return "auth"
	case statusCode == 429:
		return "rate_limit"
	case statusCode >= 400 && statusCode < 500:
		return "client"
	case statusCode >= 500:
		return "server"
	default:
		return "unknown"
	}
}

// GetMetrics returns current email metrics
func (c *Client) GetMetrics() (sent, failed, retries int64) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.totalSent, c.totalFailed, c.totalRetries
}
