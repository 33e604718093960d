package processing

import (
	"context"
	"fmt"

	"hr_records/internal/resolution"
	"hr_records/internal/store"

	"github.com/rs/zerolog/log"
)

// SeedIfEmpty marks every existing record as processed, without notifying,
// when the store holds no records yet. It returns the number of records
// inserted. A store that already has records is left untouched. If any
// sheet cannot be read nothing is inserted, so the next start seeds again.
func (d *Detector) SeedIfEmpty(ctx context.Context) (int, error) {
	count, err := d.store.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count processed records: %w", err)
	}
	if count > 0 {
		log.Info().Int64("processed_records", count).Msg("Processed-record store already seeded")
		return 0, nil
	}

	log.Info().Msg("Processed-record store is empty, seeding from current sheet contents")

	var keys []store.Key
	for _, sheet := range d.tracked {
		rows, err := d.reader.Snapshot(ctx, sheet.ScanRange())
		if err != nil {
			return 0, fmt.Errorf("failed to fetch snapshot for %s: %w", sheet.Name, err)
		}
		sheetKeys := collectKeys(sheet.Name, idColumnName(sheet), rows)
		log.Debug().Str("sheet", sheet.Name).Int("records", len(sheetKeys)).Msg("Collected existing records")
		keys = append(keys, sheetKeys...)
	}

	if err := d.store.BulkMarkProcessed(ctx, keys, d.now()); err != nil {
		return 0, fmt.Errorf("failed to seed processed records: %w", err)
	}

	log.Info().Int("records", len(keys)).Msg("Seeded processed-record store")
	return len(keys), nil
}

// collectKeys returns one key per data row with a non-blank id. Repeated ids
// within a sheet are collected once.
func collectKeys(sheetName, idColumnName string, rows [][]string) []store.Key {
	if len(rows) == 0 {
		return nil
	}
	idColumn := resolution.FindColumn(rows[0], idColumnName)
	if idColumn < 0 {
		log.Warn().Str("sheet", sheetName).Msg("No id column found, skipping sheet")
		return nil
	}

	seen := make(map[string]bool)
	var keys []store.Key
	for _, row := range rows[1:] {
		recordID := resolution.RecordID(row, idColumn)
		if recordID == "" || seen[recordID] {
			continue
		}
		seen[recordID] = true
		keys = append(keys, store.Key{SheetName: sheetName, RecordID: recordID})
	}
	return keys
}
