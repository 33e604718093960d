package notifications

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(url string, recipients ...string) *Client {
	return NewClient(url, "re_test", "rrhh@example.com", recipients, 2, time.Millisecond, 5*time.Millisecond)
}

func TestSendEmailSuccess(t *testing.T) {
	var got sendRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/emails", r.URL.Path)
		assert.Equal(t, "Bearer re_test", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"email-123"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	id, err := client.SendEmail(context.Background(), Email{
		To:          []string{"empleado@example.com"},
		Subject:     "Documento adjunto",
		HTML:        TextToHTML("Hola\nAdjunto"),
		Attachments: []Attachment{{Filename: "doc.pdf", Content: []byte("%PDF-1.4")}},
	})

	require.NoError(t, err)
	assert.Equal(t, "email-123", id)
	assert.Equal(t, "rrhh@example.com", got.From)
	assert.Equal(t, []string{"empleado@example.com"}, got.To)
	assert.Equal(t, "<p>Hola<br>Adjunto</p>", got.HTML)
	require.Len(t, got.Attachments, 1)
	assert.Equal(t, "doc.pdf", got.Attachments[0].Filename)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("%PDF-1.4")), got.Attachments[0].Content)

	sent, failed, _ := client.GetMetrics()
	assert.Equal(t, int64(1), sent)
	assert.Equal(t, int64(0), failed)
}

func TestSendEmailRetriesServerErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"id":"email-456"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	id, err := client.SendEmail(context.Background(), Email{To: []string{"a@example.com"}, Subject: "s"})

	require.NoError(t, err)
	assert.Equal(t, "email-456", id)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))

	_, _, retries := client.GetMetrics()
	assert.Equal(t, int64(1), retries)
}

func TestSendEmailDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"statusCode":422,"message":"Invalid to field","name":"validation_error"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.SendEmail(context.Background(), Email{To: []string{"not-an-email"}, Subject: "s"})

	require.Error(t, err)
	var notifErr *NotificationError
	require.True(t, errors.As(err, &notifErr))
	assert.Equal(t, "client", notifErr.Type)
	assert.Equal(t, 422, notifErr.StatusCode)
	assert.Contains(t, err.Error(), "Invalid to field")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestSendEmailRequiresMessageID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	id, err := client.SendEmail(context.Background(), Email{To: []string{"a@example.com"}})

	require.Error(t, err)
	assert.Empty(t, id)
}

func TestCircuitBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	for i := 0; i < circuitThreshold; i++ {
		_, err := client.SendEmail(context.Background(), Email{To: []string{"a@example.com"}})
		require.Error(t, err)
	}
	require.Equal(t, int32(circuitThreshold), atomic.LoadInt32(&calls))

	_, err := client.SendEmail(context.Background(), Email{To: []string{"a@example.com"}})
	var notifErr *NotificationError
	require.True(t, errors.As(err, &notifErr))
	assert.Equal(t, "circuit_open", notifErr.Type)
	assert.Equal(t, int32(circuitThreshold), atomic.LoadInt32(&calls))

	// after the cooldown the breaker lets a request through again
	client.cooldown = 0
	time.Sleep(time.Millisecond)
	_, err = client.SendEmail(context.Background(), Email{To: []string{"a@example.com"}})
	require.Error(t, err)
	assert.Equal(t, int32(circuitThreshold+1), atomic.LoadInt32(&calls))
}

func TestNotifyNewRecord(t *testing.T) {
	var got sendRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"id":"email-789"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL, "jefe@example.com", "rrhh@example.com")
	id, err := client.NotifyNewRecord(context.Background(), RecordInfo{
		SheetName:   "licencia",
		RecordID:    "L2",
		DisplayName: "Ben Diaz",
	})

	require.NoError(t, err)
	assert.Equal(t, "email-789", id)
	assert.Equal(t, []string{"jefe@example.com", "rrhh@example.com"}, got.To)
	assert.Contains(t, got.Subject, "L2")
	assert.Contains(t, got.Subject, "Ben Diaz")
	assert.Contains(t, got.HTML, "<b>licencia</b>")
	assert.Empty(t, got.Attachments)
}

func TestNotifyNewRecordWithoutRecipients(t *testing.T) {
	client := newTestClient("http://127.0.0.1:0")
	_, err := client.NotifyNewRecord(context.Background(), RecordInfo{SheetName: "licencia", RecordID: "L1"})
	assert.ErrorIs(t, err, ErrNoRecipients)
}

func TestFormatNewRecordHTMLEscapes(t *testing.T) {
	out := FormatNewRecordHTML(RecordInfo{SheetName: "licencia", RecordID: "<L1>", DisplayName: "Ana & Co"})
	assert.Contains(t, out, "&lt;L1&gt;")
	assert.Contains(t, out, "Ana &amp; Co")
}
