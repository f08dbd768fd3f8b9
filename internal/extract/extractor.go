package extract

import (
	"fmt"
	"slices"
	"strings"

	"report2csv/internal/ingest"
	"report2csv/internal/workbook"
)

// Sheets is the read-only view of a workbook an extractor needs.
type Sheets interface {
	SheetNames() []string
	Sheet(name string) (workbook.Grid, error)
}

// Extractor turns an opened workbook into an extraction result. The caller
// fills in the job prefix (sequence, stage, source, timestamp).
type Extractor interface {
	Kind() ingest.CardKind
	Extract(wb Sheets) (ingest.ExtractionResult, error)
}

// CardExtractor extracts one card template described by a Layout.
type CardExtractor struct {
	layout  Layout
	columns [canonicalColumns]int
}

// New builds an extractor for layout, resolving its column letters.
func New(layout Layout) (*CardExtractor, error) {
	e := &CardExtractor{layout: layout}
	for i, name := range layout.Table.Columns {
		idx, err := columnIndex(name)
		if err != nil {
			return nil, err
		}
		e.columns[i] = idx
	}
	return e, nil
}

// For returns the extractor registered for kind.
func For(kind ingest.CardKind) (*CardExtractor, error) {
	switch kind {
	case ingest.EightyEight:
		return New(eightyEightLayout)
	case ingest.ThirtyTwo:
		return New(thirtyTwoLayout)
	default:
		return nil, ingest.Wrap(ingest.ErrUnsupportedFormat, "extract", "select", fmt.Sprintf("no layout for card kind %s", kind), nil)
	}
}

func (e *CardExtractor) Kind() ingest.CardKind {
	return e.layout.Kind
}

// Extract reads the scalar cells and the measurement table. Any deviation from
// the layout is rejected with ErrMissingSheet or ErrMalformedLayout.
func (e *CardExtractor) Extract(wb Sheets) (ingest.ExtractionResult, error) {
	names := wb.SheetNames()
	for _, required := range e.layout.RequiredSheets {
		if !slices.Contains(names, required) {
			return ingest.ExtractionResult{}, ingest.Wrap(ingest.ErrMissingSheet, "extract", "anchor",
				fmt.Sprintf("%s card requires sheet %q", e.layout.Kind, required), nil)
		}
	}

	grids := map[string]workbook.Grid{}
	load := func(name string) (workbook.Grid, error) {
		if g, ok := grids[name]; ok {
			return g, nil
		}
		g, err := wb.Sheet(name)
		if err != nil {
			return nil, err
		}
		grids[name] = g
		return g, nil
	}

	partNumber, err := e.readPartNumber(load)
	if err != nil {
		return ingest.ExtractionResult{}, err
	}
	title, err := readText(load, e.layout.Title, "title")
	if err != nil {
		return ingest.ExtractionResult{}, err
	}
	icmd, err := readRatio(load, e.layout.ICMD, "icmd")
	if err != nil {
		return ingest.ExtractionResult{}, err
	}
	icmc, err := readRatio(load, e.layout.ICMC, "icmc")
	if err != nil {
		return ingest.ExtractionResult{}, err
	}

	rows, err := e.readTable(names, load)
	if err != nil {
		return ingest.ExtractionResult{}, err
	}

	return ingest.ExtractionResult{
		PartNumber: partNumber,
		PartTitle:  title,
		ICMD:       icmd,
		ICMC:       icmc,
		Category:   e.layout.Kind.Category(),
		Kind:       e.layout.Kind,
		Rows:       rows,
	}, nil
}

type sheetLoader func(name string) (workbook.Grid, error)

func (e *CardExtractor) readPartNumber(load sheetLoader) (string, error) {
	rng := e.layout.PartNumber
	grid, err := load(rng.Sheet)
	if err != nil {
		return "", err
	}
	fromRow, col, err := position(rng.From)
	if err != nil {
		return "", malformed("part number", err)
	}
	toRow, _, err := position(rng.To)
	if err != nil {
		return "", malformed("part number", err)
	}
	for row := fromRow; row <= toRow; row++ {
		value := strings.TrimSpace(grid.Cell(row, col))
		if value == "" {
			continue
		}
		if e.layout.StripPartNumberSpace {
			value = strings.Join(strings.Fields(value), "")
		}
		return value, nil
	}
	return "", malformed("part number", fmt.Errorf("%s!%s:%s is empty", rng.Sheet, rng.From, rng.To))
}

func (e *CardExtractor) readTable(names []string, load sheetLoader) ([]ingest.MeasurementRow, error) {
	window := e.layout.Table
	var rows []ingest.MeasurementRow
	matched := 0
	for _, name := range names {
		if !window.Matches(name) {
			continue
		}
		matched++
		grid, err := load(name)
		if err != nil {
			return nil, err
		}
		for r := window.SkipRows; r < window.SkipRows+window.RowCount; r++ {
			var cells [canonicalColumns]string
			for i, col := range e.columns {
				cells[i] = grid.Cell(r, col)
			}
			row := canonicalRow(cells)
			if row.Code == "" {
				continue
			}
			rows = append(rows, row)
		}
	}
	if matched == 0 {
		return nil, malformed("measurement table", fmt.Errorf("no sheet matches %s", window.describe()))
	}
	return rows, nil
}

// canonicalRow maps the nine source cells onto the canonical columns.
func canonicalRow(cells [canonicalColumns]string) ingest.MeasurementRow {
	row := ingest.MeasurementRow{
		Type:           strings.TrimSpace(cells[0]),
		Code:           strings.TrimSpace(cells[1]),
		Point:          strings.TrimSpace(cells[2]),
		UpperTolerance: ingest.Measure(strings.TrimSpace(cells[3])),
		LowerTolerance: ingest.Measure(strings.TrimSpace(cells[4])),
	}
	for i := range row.Parts {
		row.Parts[i] = ingest.NullableText(cells[5+i])
	}
	return row
}

func readText(load sheetLoader, ref CellRef, label string) (string, error) {
	raw, err := readCell(load, ref, label)
	if err != nil {
		return "", err
	}
	value := strings.TrimSpace(raw)
	if value == "" {
		return "", malformed(label, fmt.Errorf("%s!%s is empty", ref.Sheet, ref.Cell))
	}
	return value, nil
}

func readRatio(load sheetLoader, ref CellRef, label string) (float64, error) {
	raw, err := readCell(load, ref, label)
	if err != nil {
		return 0, err
	}
	value, err := ingest.ParseRatio(raw)
	if err != nil {
		return 0, malformed(label, fmt.Errorf("%s!%s: %w", ref.Sheet, ref.Cell, err))
	}
	return value, nil
}

func readCell(load sheetLoader, ref CellRef, label string) (string, error) {
	grid, err := load(ref.Sheet)
	if err != nil {
		return "", err
	}
	row, col, err := position(ref.Cell)
	if err != nil {
		return "", malformed(label, err)
	}
	return grid.Cell(row, col), nil
}

func malformed(what string, err error) error {
	return ingest.Wrap(ingest.ErrMalformedLayout, "extract", what, "", err)
}

func (w TableWindow) describe() string {
	switch {
	case w.SheetPrefix != "" && w.SheetSuffix != "":
		return fmt.Sprintf("%q...%q", w.SheetPrefix, w.SheetSuffix)
	case w.SheetPrefix != "":
		return fmt.Sprintf("prefix %q", w.SheetPrefix)
	default:
		return fmt.Sprintf("suffix %q", w.SheetSuffix)
	}
}
