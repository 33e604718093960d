// Package records turns raw spreadsheet rows into JSON-ready records linked
// to their PDF documents.
package records

import (
	"encoding/json"

	"hr_records/internal/resolution"

	"github.com/rs/zerolog/log"
)

const (
	FileReferenceKey   = "pdf_drive_id"
	SourceRowNumberKey = "sheet_row_number"
	IDColumnName       = "id"
	// headerRows is the number of rows above the first data row.
	headerRows = 1
)

// Record is one enriched data row. A nil entry in Fields means the row was
// shorter than the header row.
type Record struct {
	Fields          map[string]*string
	FileReference   *string
	SourceRowNumber *int
	// Linked is false on the fallback path where the sheet has no id
	// column; such records carry neither a file reference nor a row number.
	Linked bool
}

func (r Record) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(r.Fields)+2)
	for k, v := range r.Fields {
		out[k] = v
	}
	if r.Linked {
		out[FileReferenceKey] = r.FileReference
		out[SourceRowNumberKey] = r.SourceRowNumber
	}
	return json.Marshal(out)
}

// Enrich converts rows (row 0 is the header) into records. Rows whose id
// cell names a file in dir get that file's identifier attached.
func Enrich(rows [][]string, dir resolution.FileDirectory) ([]string, []Record) {
	if len(rows) == 0 {
		return []string{}, []Record{}
	}

	headers := rows[0]
	data := rows[headerRows:]
	records := make([]Record, 0, len(data))

	idColumn := resolution.IndexOfHeader(headers, IDColumnName)
	if idColumn < 0 {
		log.Warn().Int("rows", len(data)).Msg("No id column found, returning rows without file references")
		for _, row := range data {
			records = append(records, unlinkedRecord(headers, row))
		}
		return headers, records
	}

	linked := 0
	for i, row := range data {
		rowNumber := i + headerRows + 1
		record := Record{
			Fields:          make(map[string]*string, len(headers)),
			SourceRowNumber: &rowNumber,
			Linked:          true,
		}
		for j, header := range headers {
			if value, ok := resolution.CellAt(row, j); ok {
				record.Fields[header] = &value
			} else {
				record.Fields[header] = nil
			}
		}

		if rawID, ok := resolution.CellAt(row, idColumn); ok && rawID != "" {
			if fileID, found := resolution.ResolveFileReference(dir, rawID); found {
				record.FileReference = &fileID
				linked++
			}
		}
		records = append(records, record)
	}

	log.Debug().
		Int("rows", len(records)).
		Int("linked_files", linked).
		Msg("Enriched sheet rows")
	return headers, records
}

// unlinkedRecord pairs headers with the cells the row actually has.
func unlinkedRecord(headers, row []string) Record {
	record := Record{Fields: make(map[string]*string, len(headers))}
	for j, header := range headers {
		value, ok := resolution.CellAt(row, j)
		if !ok {
			break
		}
		record.Fields[header] = &value
	}
	return record
}
