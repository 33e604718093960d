package config

import "fmt"

// DefaultSpreadsheetID is the HR spreadsheet holding every tracked sheet.
const DefaultSpreadsheetID = "1VohQVfx1rmnV8nkT3cxQdx996bj0BkeLovAmqYZXuMA"

// ScanLastColumn bounds the columns read by the background pass. It is wider
// than any tracked sheet so the id column is always inside the range.
const ScanLastColumn = "Z"

// TrackedSheet describes one spreadsheet tab exposed over HTTP and watched
// for new rows.
type TrackedSheet struct {
	Name       string
	Route      string
	LastColumn string
	FolderID   string
	IDColumn   string
	// AllowQueryOverride lets callers pass spreadsheet_id and range_name
	// query parameters to the read endpoint.
	AllowQueryOverride bool
}

// ReadRange is the A1 range served by the sheet's read endpoint.
func (s TrackedSheet) ReadRange() string {
	return fmt.Sprintf("%s!A1:%s", s.Name, s.LastColumn)
}

// ScanRange is the A1 range read by the detector and the seeder.
func (s TrackedSheet) ScanRange() string {
	return fmt.Sprintf("%s!A1:%s", s.Name, ScanLastColumn)
}

// DefaultTrackedSheets is in detection order.
var DefaultTrackedSheets = []TrackedSheet{
	{
		Name:               "certificado_medico",
		Route:              "/sheets/data",
		LastColumn:         "J",
		FolderID:           "1-VzmLOGyhuWp9d26VcxOdI1JL8q7c5bG",
		IDColumn:           "id",
		AllowQueryOverride: true,
	},
	{
		Name:       "licencia",
		Route:      "/sheets/licencia-data",
		LastColumn: "L",
		FolderID:   "13QIHa4FES-bXp0rZsc6FNpi3xgfDB7hH",
		IDColumn:   "id",
	},
	{
		Name:       "81_inciso_D",
		Route:      "/sheets/formulario-81-d-data",
		LastColumn: "J",
		FolderID:   "1QAwBtekeHsHU-6bUjn7ug2QgSElHtC8o",
		IDColumn:   "id",
	},
	{
		Name:       "81_inciso_F",
		Route:      "/sheets/formulario-81-f-data",
		LastColumn: "J",
		FolderID:   "1mi00TEyRbjaOosGwyFjsSo-OrFRGcF9d",
		IDColumn:   "id",
	},
}
