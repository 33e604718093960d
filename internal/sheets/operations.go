package sheets

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
)

// ReadValues reads a range and returns every cell as text. Rows keep the
// ragged shape returned by the API: trailing empty cells are not padded.
func (c *Client) ReadValues(ctx context.Context, spreadsheetID, readRange string) ([][]string, error) {
	log.Debug().Str("range", readRange).Msg("Reading sheet values")
	raw, err := c.ReadSheet(ctx, spreadsheetID, readRange)
	if err != nil {
		return nil, err
	}
	rows := StringifyRows(raw)
	log.Debug().Str("range", readRange).Int("rows", len(rows)).Msg("Retrieved sheet values")
	return rows, nil
}

// StringifyRows converts API cell values to strings.
func StringifyRows(raw [][]interface{}) [][]string {
	rows := make([][]string, 0, len(raw))
	for _, row := range raw {
		cells := make([]string, len(row))
		for i := range row {
			cells[i] = extractStringField(row, i)
		}
		rows = append(rows, cells)
	}
	return rows
}

// extractStringField safely extracts a string field from a row at the given index
func extractStringField(row []interface{}, index int) string {
	if len(row) > index && row[index] != nil {
		return fmt.Sprintf("%v", row[index])
	}
	return ""
}

// Reader binds a Client to one spreadsheet.
type Reader struct {
	client        *Client
	spreadsheetID string
}

func NewReader(client *Client, spreadsheetID string) *Reader {
	return &Reader{client: client, spreadsheetID: spreadsheetID}
}

func (r *Reader) SpreadsheetID() string {
	return r.spreadsheetID
}

func (r *Reader) Snapshot(ctx context.Context, readRange string) ([][]string, error) {
	return r.client.ReadValues(ctx, r.spreadsheetID, readRange)
}

func (r *Reader) ReadValues(ctx context.Context, spreadsheetID, readRange string) ([][]string, error) {
	return r.client.ReadValues(ctx, spreadsheetID, readRange)
}

func (r *Reader) MarkSent(ctx context.Context, sheetName, column string, rowIndex int) error {
	return r.client.MarkSent(ctx, r.spreadsheetID, sheetName, column, rowIndex)
}
