package notifications

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/rs/zerolog/log"
)

// RecordInfo describes a newly detected sheet row.
type RecordInfo struct {
	SheetName   string
	RecordID    string
	DisplayName string
}

// NotifyNewRecord emails the distribution list about one new row and returns
// the provider message id.
func (c *Client) NotifyNewRecord(ctx context.Context, record RecordInfo) (string, error) {
	if len(c.recipients) == 0 {
		return "", ErrNoRecipients
	}

	log.Info().
		Str("sheet", record.SheetName).
		Str("record_id", record.RecordID).
		Int("recipients", len(c.recipients)).
		Msg("Sending new record notification")

	return c.SendEmail(ctx, Email{
		To:      c.recipients,
		Subject: FormatNewRecordSubject(record),
		HTML:    FormatNewRecordHTML(record),
	})
}

func FormatNewRecordSubject(record RecordInfo) string {
	return fmt.Sprintf("Nuevo registro en %s: %s (%s)", record.SheetName, record.DisplayName, record.RecordID)
}

func FormatNewRecordHTML(record RecordInfo) string {
	var sb strings.Builder
	sb.WriteString("<p>Se cargó un nuevo registro en la hoja <b>")
	sb.WriteString(html.EscapeString(record.SheetName))
	sb.WriteString("</b>.</p>\n<ul>\n")
	sb.WriteString(fmt.Sprintf("<li>ID: %s</li>\n", html.EscapeString(record.RecordID)))
	sb.WriteString(fmt.Sprintf("<li>Nombre: %s</li>\n", html.EscapeString(record.DisplayName)))
	sb.WriteString("</ul>")
	return sb.String()
}

// TextToHTML wraps a plain-text body in a paragraph, turning newlines into
// line breaks.
func TextToHTML(body string) string {
	return "<p>" + strings.ReplaceAll(body, "\n", "<br>") + "</p>"
}
