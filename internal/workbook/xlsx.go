package workbook

import (
	"github.com/xuri/excelize/v2"

	"report2csv/internal/ingest"
)

var rawValues = excelize.Options{RawCellValue: true}

type xlsxWorkbook struct {
	file  *excelize.File
	names []string
}

func newXLSXWorkbook(file *excelize.File) *xlsxWorkbook {
	return &xlsxWorkbook{file: file, names: file.GetSheetList()}
}

func (w *xlsxWorkbook) SheetNames() []string {
	return append([]string(nil), w.names...)
}

func (w *xlsxWorkbook) Sheet(name string) (Grid, error) {
	if !hasSheet(w.names, name) {
		return nil, missingSheet(name, w.names)
	}
	rows, err := w.file.GetRows(name, rawValues)
	if err != nil {
		return nil, ingest.Wrap(ingest.ErrCorruptWorkbook, "workbook", "read sheet", name, err)
	}
	return Grid(rows), nil
}

func (w *xlsxWorkbook) Close() error {
	return w.file.Close()
}
