package sheets

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
)

// SentMarker is written into the status column once a document is emailed.
const SentMarker = "Enviado"

// CellRange builds an A1 reference for a single cell, e.g. "licencia!L7".
func CellRange(sheetName, column string, rowIndex int) string {
	return fmt.Sprintf("%s!%s%d", sheetName, strings.ToUpper(column), rowIndex)
}

// MarkSent writes SentMarker into one cell of the given sheet.
func (c *Client) MarkSent(ctx context.Context, spreadsheetID, sheetName, column string, rowIndex int) error {
	return c.updateSheetCell(ctx, spreadsheetID, sheetName, column, rowIndex, SentMarker, "status")
}

// updateSheetCell updates a single cell in the sheet
func (c *Client) updateSheetCell(ctx context.Context, spreadsheetID, sheetName, column string, rowIndex int, value interface{}, columnDescription string) error {
	values := [][]interface{}{
		{value},
	}
	cellRange := CellRange(sheetName, column, rowIndex)
	if err := c.UpdateRange(ctx, spreadsheetID, cellRange, values); err != nil {
		log.Error().Err(err).Int("row", rowIndex).Str("column", column).Msgf("Failed to update %s column", columnDescription)
		return err
	}

	log.Info().
		Str("sheet", sheetName).
		Str("cell", cellRange).
		Msgf("Updated %s column", columnDescription)
	return nil
}
