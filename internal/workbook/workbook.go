package workbook

import (
	"fmt"
	"slices"

	"report2csv/internal/ingest"
)

// Grid is one sheet as rows of cell text. Rows and cells past the used range
// are absent rather than padded.
type Grid [][]string

// Cell returns the text at the 0-based row and column, or "" outside the grid.
func (g Grid) Cell(row, col int) string {
	if row < 0 || row >= len(g) || col < 0 || col >= len(g[row]) {
		return ""
	}
	return g[row][col]
}

// Rows reports the number of populated rows.
func (g Grid) Rows() int {
	return len(g)
}

// Workbook is an opened spreadsheet.
type Workbook interface {
	// SheetNames returns sheet names in workbook order.
	SheetNames() []string
	// Sheet loads the named sheet.
	Sheet(name string) (Grid, error)
	Close() error
}

func missingSheet(name string, names []string) error {
	return ingest.Wrap(ingest.ErrMissingSheet, "workbook", "sheet",
		fmt.Sprintf("sheet %q not found (have %v)", name, names), nil)
}

func hasSheet(names []string, name string) bool {
	return slices.Contains(names, name)
}
