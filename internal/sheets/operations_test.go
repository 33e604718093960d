package sheets

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStringifyRows(t *testing.T) {
	raw := [][]interface{}{
		{"id", "nombre", "dias"},
		{"L1", "Ana", float64(3)},
		{"L2", nil},
		{},
	}

	rows := StringifyRows(raw)

	assert.Equal(t, [][]string{
		{"id", "nombre", "dias"},
		{"L1", "Ana", "3"},
		{"L2", ""},
		{},
	}, rows)
}

func TestCellRange(t *testing.T) {
	assert.Equal(t, "licencia!L7", CellRange("licencia", "l", 7))
	assert.Equal(t, "81_inciso_D!J12", CellRange("81_inciso_D", "J", 12))
}
