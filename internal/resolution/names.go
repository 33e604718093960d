package resolution

import "strings"

// UnknownName is shown when a sheet has no usable name columns.
const UnknownName = "Sin nombre"

var (
	FirstNameHeaders = []string{"nombre", "nombres", "first name", "first_name", "firstname", "name"}
	LastNameHeaders  = []string{"apellido", "apellidos", "last name", "last_name", "lastname", "surname"}
)

// NameColumns locates the first-name and last-name columns, -1 when absent.
func NameColumns(headers []string) (first, last int) {
	return FindColumn(headers, FirstNameHeaders...), FindColumn(headers, LastNameHeaders...)
}

// DisplayName joins the non-blank first and last name cells of a row,
// falling back to UnknownName.
func DisplayName(row []string, firstCol, lastCol int) string {
	var parts []string
	for _, col := range []int{firstCol, lastCol} {
		if value, ok := CellAt(row, col); ok {
			if value = strings.TrimSpace(value); value != "" {
				parts = append(parts, value)
			}
		}
	}
	if len(parts) == 0 {
		return UnknownName
	}
	return strings.Join(parts, " ")
}
