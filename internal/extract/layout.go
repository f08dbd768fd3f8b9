package extract

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"report2csv/internal/ingest"
)

// CellRef addresses one cell by sheet and A1 reference.
type CellRef struct {
	Sheet string
	Cell  string
}

// ColumnRange addresses consecutive cells in one column; the first
// non-empty cell wins.
type ColumnRange struct {
	Sheet string
	From  string
	To    string
}

// TableWindow describes the measurement slice taken from every matching sheet.
type TableWindow struct {
	SheetPrefix string
	SheetSuffix string
	// Columns lists the nine source columns in canonical order.
	Columns  [canonicalColumns]string
	SkipRows int
	RowCount int
}

// Matches reports whether a sheet contributes to the measurement table.
func (w TableWindow) Matches(sheet string) bool {
	if w.SheetPrefix != "" && !strings.HasPrefix(sheet, w.SheetPrefix) {
		return false
	}
	if w.SheetSuffix != "" && !strings.HasSuffix(sheet, w.SheetSuffix) {
		return false
	}
	return w.SheetPrefix != "" || w.SheetSuffix != ""
}

// Layout is the fixed geometry of one card template.
type Layout struct {
	Kind           ingest.CardKind
	RequiredSheets []string
	PartNumber     ColumnRange
	// StripPartNumberSpace removes all whitespace from the part number.
	StripPartNumberSpace bool
	Title                CellRef
	ICMD                 CellRef
	ICMC                 CellRef
	Table                TableWindow
}

const canonicalColumns = 9

// Format constants for the 88 card: scalar cells live on 88-SYNTH and 88PRES,
// measurements on every RES-* sheet.
var eightyEightLayout = Layout{
	Kind:           ingest.EightyEight,
	RequiredSheets: []string{"88-SYNTH", "88PRES"},
	PartNumber:     ColumnRange{Sheet: "88-SYNTH", From: "F5", To: "F6"},
	Title:          CellRef{Sheet: "88PRES", Cell: "G9"},
	ICMD:           CellRef{Sheet: "88-SYNTH", Cell: "D28"},
	ICMC:           CellRef{Sheet: "88-SYNTH", Cell: "F28"},
	Table: TableWindow{
		SheetPrefix: "RES-",
		Columns:     [canonicalColumns]string{"P", "Q", "R", "V", "W", "X", "Y", "Z", "AA"},
		SkipRows:    9,
		RowCount:    46,
	},
}

// Format constants for the 32 card: scalar cells live on 1(32j),
// measurements on every *(32i) sheet.
var thirtyTwoLayout = Layout{
	Kind:                 ingest.ThirtyTwo,
	RequiredSheets:       []string{"1(32j)"},
	PartNumber:           ColumnRange{Sheet: "1(32j)", From: "D3", To: "D5"},
	StripPartNumberSpace: true,
	Title:                CellRef{Sheet: "1(32j)", Cell: "C1"},
	ICMD:                 CellRef{Sheet: "1(32j)", Cell: "I23"},
	ICMC:                 CellRef{Sheet: "1(32j)", Cell: "G23"},
	Table: TableWindow{
		SheetSuffix: "(32i)",
		Columns:     [canonicalColumns]string{"X", "AC", "AE", "AG", "AH", "AK", "AL", "AM", "AN"},
		SkipRows:    9,
		RowCount:    64,
	},
}

// EightyEightLayout returns the 88 card geometry.
func EightyEightLayout() Layout { return eightyEightLayout }

// ThirtyTwoLayout returns the 32 card geometry.
func ThirtyTwoLayout() Layout { return thirtyTwoLayout }

// position converts an A1 reference to 0-based row and column indices.
func position(cell string) (row, col int, err error) {
	c, r, err := excelize.CellNameToCoordinates(cell)
	if err != nil {
		return 0, 0, fmt.Errorf("cell %q: %w", cell, err)
	}
	return r - 1, c - 1, nil
}

// columnIndex converts a column letter to a 0-based index.
func columnIndex(name string) (int, error) {
	n, err := excelize.ColumnNameToNumber(name)
	if err != nil {
		return 0, fmt.Errorf("column %q: %w", name, err)
	}
	return n - 1, nil
}
