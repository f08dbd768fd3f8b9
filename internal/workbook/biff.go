package workbook

import (
	"bytes"
	"fmt"

	"github.com/extrame/xls"

	"report2csv/internal/ingest"
)

type biffWorkbook struct {
	book  *xls.WorkBook
	names []string
	index map[string]int
}

func openBIFF(raw []byte) (wb *biffWorkbook, err error) {
	// The BIFF reader panics on some truncated record streams.
	defer func() {
		if r := recover(); r != nil {
			wb = nil
			err = fmt.Errorf("read legacy workbook: %v", r)
		}
	}()

	book, err := xls.OpenReader(bytes.NewReader(raw), "utf-8")
	if err != nil {
		return nil, err
	}
	wb = &biffWorkbook{book: book, index: map[string]int{}}
	for i := 0; i < book.NumSheets(); i++ {
		sheet := book.GetSheet(i)
		if sheet == nil {
			continue
		}
		wb.names = append(wb.names, sheet.Name)
		wb.index[sheet.Name] = i
	}
	return wb, nil
}

func (w *biffWorkbook) SheetNames() []string {
	return append([]string(nil), w.names...)
}

func (w *biffWorkbook) Sheet(name string) (grid Grid, err error) {
	idx, ok := w.index[name]
	if !ok {
		return nil, missingSheet(name, w.names)
	}
	defer func() {
		if r := recover(); r != nil {
			grid = nil
			err = ingest.Wrap(ingest.ErrCorruptWorkbook, "workbook", "read sheet", name, fmt.Errorf("%v", r))
		}
	}()

	sheet := w.book.GetSheet(idx)
	if sheet == nil {
		return nil, missingSheet(name, w.names)
	}
	grid = make(Grid, int(sheet.MaxRow)+1)
	for r := 0; r <= int(sheet.MaxRow); r++ {
		row := rowAt(sheet, r)
		if row == nil || row.LastCol() <= 0 {
			continue
		}
		cells := make([]string, row.LastCol())
		for c := range cells {
			cells[c] = row.Col(c)
		}
		grid[r] = cells
	}
	return grid, nil
}

// rowAt returns nil for rows the sheet never wrote; WorkSheet.Row
// dereferences the missing entry.
func rowAt(sheet *xls.WorkSheet, r int) (row *xls.Row) {
	defer func() {
		if recover() != nil {
			row = nil
		}
	}()
	return sheet.Row(r)
}

func (w *biffWorkbook) Close() error {
	return nil
}
