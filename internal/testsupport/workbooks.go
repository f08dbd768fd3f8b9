package testsupport

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
)

// FixtureRow holds the nine measurement cells in canonical order
// (type, code, point, upper, lower, part1..part4). nil leaves a cell empty.
type FixtureRow [9]any

// CardFixture is the logical content of a synthetic report.
type CardFixture struct {
	PartNumber string
	Title      string
	ICMD       any
	ICMC       any
	// Tables holds one entry per measurement sheet, in sheet order.
	Tables [][]FixtureRow
}

// NonEmptyCodeRows counts the rows an extractor is expected to keep.
func (f CardFixture) NonEmptyCodeRows() int {
	n := 0
	for _, table := range f.Tables {
		for _, row := range table {
			if code, ok := row[1].(string); ok && code != "" {
				n++
			} else if row[1] != nil && !ok {
				n++
			}
		}
	}
	return n
}

// StandardFixture returns a two-sheet fixture with one empty-code row.
func StandardFixture() CardFixture {
	return CardFixture{
		PartNumber: "5801-0042",
		Title:      "Bracket LH",
		ICMD:       0.873,
		ICMC:       0.912,
		Tables: [][]FixtureRow{
			{
				{"FLUSH", "A01", 1, 0.5, -0.5, "0.12", "0.08", " ", nil},
				{"GAP", "A02", 2, 0.7, -0.7, "0.31", nil, "0.29", "0.30"},
				{"GAP", nil, 3, 0.7, -0.7, "0.11", nil, nil, nil},
			},
			{
				{"HOLE", "B01", "P1", 0.2, -0.1, "OK", "OK", "NG", "OK"},
				{"SURF", "B02", "P2", nil, nil, "0.05", nil, nil, nil},
			},
		},
	}
}

// WorkbookOption customizes fixture generation.
type WorkbookOption func(*workbookBuilder)

type workbookBuilder struct {
	password string
	omit     map[string]bool
	overflow bool
	decoy    bool
	legacy   bool
}

// Encrypted saves the workbook encrypted with password: an encrypted OOXML
// package, or RC4 record encryption when combined with Legacy.
func Encrypted(password string) WorkbookOption {
	return func(b *workbookBuilder) { b.password = password }
}

// Legacy saves the workbook as a BIFF8 .xls file.
func Legacy() WorkbookOption {
	return func(b *workbookBuilder) { b.legacy = true }
}

// OmitSheet leaves the named anchor sheet out of the workbook.
func OmitSheet(name string) WorkbookOption {
	return func(b *workbookBuilder) { b.omit[name] = true }
}

// WithOverflowRows writes a header row above and a stray row below the
// measurement window on every table sheet.
func WithOverflowRows() WorkbookOption {
	return func(b *workbookBuilder) { b.overflow = true }
}

// WithDecoySheet adds a sheet between the table sheets that matches neither
// table marker.
func WithDecoySheet() WorkbookOption {
	return func(b *workbookBuilder) { b.decoy = true }
}

const (
	tableFirstRow = 10
	decoySheet    = "NOTES"
)

var (
	eightyEightColumns = [9]string{"P", "Q", "R", "V", "W", "X", "Y", "Z", "AA"}
	thirtyTwoColumns   = [9]string{"X", "AC", "AE", "AG", "AH", "AK", "AL", "AM", "AN"}
)

// WriteEightyEightWorkbook writes an 88 card report to path.
func WriteEightyEightWorkbook(t testing.TB, path string, fx CardFixture, opts ...WorkbookOption) {
	t.Helper()
	b := newWorkbookBuilder(opts)
	anchors := []anchorSheet{
		{name: "88-SYNTH", cells: map[string]any{"F6": fx.PartNumber, "D28": fx.ICMD, "F28": fx.ICMC}},
		{name: "88PRES", cells: map[string]any{"G9": fx.Title}},
	}
	tableNames := make([]string, len(fx.Tables))
	for i := range fx.Tables {
		tableNames[i] = fmt.Sprintf("RES-%d", i+1)
	}
	b.write(t, path, anchors, tableNames, eightyEightColumns, 46, fx.Tables)
}

// WriteThirtyTwoWorkbook writes a 32 card report to path. The part number
// is written with inner spaces so extraction must strip them.
func WriteThirtyTwoWorkbook(t testing.TB, path string, fx CardFixture, opts ...WorkbookOption) {
	t.Helper()
	b := newWorkbookBuilder(opts)
	anchors := []anchorSheet{
		{name: "1(32j)", cells: map[string]any{"C1": fx.Title, "D4": spaced(fx.PartNumber), "I23": fx.ICMD, "G23": fx.ICMC}},
	}
	tableNames := make([]string, len(fx.Tables))
	for i := range fx.Tables {
		tableNames[i] = fmt.Sprintf("%d(32i)", i+1)
	}
	b.write(t, path, anchors, tableNames, thirtyTwoColumns, 64, fx.Tables)
}

type anchorSheet struct {
	name  string
	cells map[string]any
}

func newWorkbookBuilder(opts []WorkbookOption) *workbookBuilder {
	b := &workbookBuilder{omit: map[string]bool{}}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *workbookBuilder) write(t testing.TB, path string, anchors []anchorSheet, tableNames []string, columns [9]string, window int, tables [][]FixtureRow) {
	t.Helper()

	var sheets []string
	for _, a := range anchors {
		if !b.omit[a.name] {
			sheets = append(sheets, a.name)
		}
	}
	for i, name := range tableNames {
		if b.decoy && i == 1 {
			sheets = append(sheets, decoySheet)
		}
		sheets = append(sheets, name)
	}
	if len(sheets) == 0 {
		t.Fatal("fixture has no sheets")
	}

	cells := map[string]map[string]any{}
	put := func(sheet, cell string, value any) {
		if value == nil {
			return
		}
		if cells[sheet] == nil {
			cells[sheet] = map[string]any{}
		}
		cells[sheet][cell] = value
	}
	for _, a := range anchors {
		if b.omit[a.name] {
			continue
		}
		for cell, value := range a.cells {
			put(a.name, cell, value)
		}
	}
	for i, name := range tableNames {
		if b.overflow {
			put(name, fmt.Sprintf("%s%d", columns[1], tableFirstRow-1), "HEADER")
			put(name, fmt.Sprintf("%s%d", columns[1], tableFirstRow+window), "OVERFLOW")
		}
		for r, row := range tables[i] {
			for c, value := range row {
				put(name, fmt.Sprintf("%s%d", columns[c], tableFirstRow+r), value)
			}
		}
	}
	if b.decoy {
		put(decoySheet, "Q10", "DECOY")
		put(decoySheet, "AC10", "DECOY")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if b.legacy {
		b.saveLegacy(t, path, sheets, cells)
		return
	}
	b.saveOOXML(t, path, sheets, cells)
}

func (b *workbookBuilder) saveOOXML(t testing.TB, path string, sheets []string, cells map[string]map[string]any) {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheets[0]); err != nil {
		t.Fatalf("rename first sheet: %v", err)
	}
	for _, name := range sheets[1:] {
		if _, err := f.NewSheet(name); err != nil {
			t.Fatalf("create sheet %s: %v", name, err)
		}
	}
	for sheet, values := range cells {
		for cell, value := range values {
			setCell(t, f, sheet, cell, value)
		}
	}

	var saveOpts []excelize.Options
	if b.password != "" {
		saveOpts = append(saveOpts, excelize.Options{Password: b.password})
	}
	if err := f.SaveAs(path, saveOpts...); err != nil {
		t.Fatalf("save fixture %s: %v", path, err)
	}
}

func setCell(t testing.TB, f *excelize.File, sheet, cell string, value any) {
	t.Helper()
	if value == nil {
		return
	}
	if err := f.SetCellValue(sheet, cell, value); err != nil {
		t.Fatalf("set %s!%s: %v", sheet, cell, err)
	}
}

func spaced(partNumber string) string {
	if len(partNumber) < 3 {
		return partNumber
	}
	return " " + partNumber[:2] + " " + partNumber[2:] + " "
}

// WriteBytes writes data to path, creating parent directories.
func WriteBytes(t testing.TB, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
