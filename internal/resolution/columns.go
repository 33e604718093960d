package resolution

import "strings"

// FindColumn returns the index of the first header equal to any of names,
// ignoring case and surrounding spaces, or -1 when none matches.
func FindColumn(headers []string, names ...string) int {
	for _, name := range names {
		for i, header := range headers {
			if strings.EqualFold(strings.TrimSpace(header), name) {
				return i
			}
		}
	}
	return -1
}

// IndexOfHeader returns the index of the first header equal to name ignoring
// case only, or -1. Surrounding spaces make a header not match.
func IndexOfHeader(headers []string, name string) int {
	for i, header := range headers {
		if strings.EqualFold(header, name) {
			return i
		}
	}
	return -1
}

// CellAt returns the cell at index and whether the row is long enough to
// hold it. A short row yields ("", false); a present but blank cell yields
// ("", true).
func CellAt(row []string, index int) (string, bool) {
	if index < 0 || index >= len(row) {
		return "", false
	}
	return row[index], true
}

// RecordID extracts a trimmed identifier, or "" when the cell is absent or
// blank.
func RecordID(row []string, idColumn int) string {
	value, ok := CellAt(row, idColumn)
	if !ok {
		return ""
	}
	return strings.TrimSpace(value)
}
