package processing

import (
	"context"
	"fmt"
	"time"

	"hr_records/internal/config"
	"hr_records/internal/notifications"
	"hr_records/internal/records"
	"hr_records/internal/resolution"
	"hr_records/internal/store"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// SheetReader returns the current contents of an A1 range as text rows.
type SheetReader interface {
	Snapshot(ctx context.Context, readRange string) ([][]string, error)
}

// RecordStore is the processed-record set the detector deduplicates against.
type RecordStore interface {
	IsProcessed(ctx context.Context, sheetName, recordID string) (bool, error)
	MarkProcessed(ctx context.Context, sheetName, recordID string, at time.Time) error
	BulkMarkProcessed(ctx context.Context, keys []store.Key, at time.Time) error
	Count(ctx context.Context) (int64, error)
}

// Notifier announces a new record and returns the provider message id.
type Notifier interface {
	NotifyNewRecord(ctx context.Context, record notifications.RecordInfo) (string, error)
}

// PassSummary counts what one detection pass did.
type PassSummary struct {
	Sheets   int
	Rows     int
	Notified int
	Skipped  int
	Failed   int
}

type Detector struct {
	reader   SheetReader
	store    RecordStore
	notifier Notifier
	tracked  []config.TrackedSheet
	now      func() time.Time
}

func NewDetector(reader SheetReader, recordStore RecordStore, notifier Notifier, tracked []config.TrackedSheet) *Detector {
	return &Detector{
		reader:   reader,
		store:    recordStore,
		notifier: notifier,
		tracked:  tracked,
		now:      time.Now,
	}
}

// DetectAndNotify checks every tracked sheet for rows whose id has not been
// processed, notifies about each one and records it once the notification is
// accepted. Failures are isolated per sheet and per row.
func (d *Detector) DetectAndNotify(ctx context.Context) PassSummary {
	passLog := log.With().Str("pass_id", uuid.NewString()).Logger()
	passLog.Info().Int("sheets", len(d.tracked)).Msg("Starting new record detection pass")
	start := time.Now()

	var total PassSummary
	for _, sheet := range d.tracked {
		summary, err := d.checkSheet(ctx, passLog, sheet)
		total.Rows += summary.Rows
		total.Notified += summary.Notified
		total.Skipped += summary.Skipped
		total.Failed += summary.Failed
		if err != nil {
			passLog.Error().Err(err).Str("sheet", sheet.Name).Msg("Failed to check sheet for new records")
			continue
		}
		total.Sheets++
	}

	passLog.Info().
		Int("sheets_checked", total.Sheets).
		Int("rows", total.Rows).
		Int("notified", total.Notified).
		Int("already_processed", total.Skipped).
		Int("failed", total.Failed).
		Dur("duration", time.Since(start)).
		Msg("Finished new record detection pass")
	return total
}

// checkSheet runs one sheet in its own failure scope.
func (d *Detector) checkSheet(ctx context.Context, passLog zerolog.Logger, sheet config.TrackedSheet) (summary PassSummary, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while checking sheet %s: %v", sheet.Name, r)
		}
	}()

	sheetLog := passLog.With().Str("sheet", sheet.Name).Logger()

	rows, err := d.reader.Snapshot(ctx, sheet.ScanRange())
	if err != nil {
		return summary, fmt.Errorf("failed to fetch snapshot: %w", err)
	}
	if len(rows) == 0 {
		sheetLog.Info().Msg("Sheet is empty, nothing to check")
		return summary, nil
	}

	headers := rows[0]
	idColumn := resolution.FindColumn(headers, idColumnName(sheet))
	if idColumn < 0 {
		sheetLog.Warn().Strs("headers", headers).Msg("No id column found, skipping sheet")
		return summary, nil
	}
	firstCol, lastCol := resolution.NameColumns(headers)

	for i, row := range rows[1:] {
		recordID := resolution.RecordID(row, idColumn)
		if recordID == "" {
			continue
		}
		summary.Rows++
		rowLog := sheetLog.With().Str("record_id", recordID).Int("row", i+2).Logger()

		processed, err := d.store.IsProcessed(ctx, sheet.Name, recordID)
		if err != nil {
			rowLog.Error().Err(err).Msg("Failed to check processed state, will retry next pass")
			summary.Failed++
			continue
		}
		if processed {
			summary.Skipped++
			continue
		}

		info := notifications.RecordInfo{
			SheetName:   sheet.Name,
			RecordID:    recordID,
			DisplayName: resolution.DisplayName(row, firstCol, lastCol),
		}
		emailID, err := d.notifier.NotifyNewRecord(ctx, info)
		if err != nil || emailID == "" {
			rowLog.Error().Err(err).Msg("Failed to send new record notification, will retry next pass")
			summary.Failed++
			continue
		}

		if err := d.store.MarkProcessed(ctx, sheet.Name, recordID, d.now()); err != nil {
			// the notification already went out; the next pass may repeat it
			rowLog.Error().Err(err).Str("email_id", emailID).Msg("Failed to mark record as processed")
			summary.Failed++
			continue
		}

		summary.Notified++
		rowLog.Info().
			Str("email_id", emailID).
			Str("name", info.DisplayName).
			Msg("Notified new record")
	}

	sheetLog.Debug().
		Int("rows", summary.Rows).
		Int("notified", summary.Notified).
		Int("already_processed", summary.Skipped).
		Msg("Checked sheet")
	return summary, nil
}

func idColumnName(sheet config.TrackedSheet) string {
	if sheet.IDColumn != "" {
		return sheet.IDColumn
	}
	return records.IDColumnName
}
