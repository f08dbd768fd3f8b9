package testsupport

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"slices"
	"testing"
	"unicode/utf16"

	"github.com/xuri/excelize/v2"

	"report2csv/internal/biff"
)

const (
	recordCodepage = 0x0042
	recordRow      = 0x0208
	recordNumber   = 0x0203
	recordLabel    = 0x0204

	bofGlobals   = 0x0005
	bofWorksheet = 0x0010
	defaultXF    = 0x000F
)

type biffCell struct {
	row, col int
	value    any
}

func (b *workbookBuilder) saveLegacy(t testing.TB, path string, sheets []string, cells map[string]map[string]any) {
	t.Helper()

	stream, err := encodeBIFF8(sheets, cells)
	if err != nil {
		t.Fatalf("encode BIFF fixture %s: %v", path, err)
	}
	if b.password != "" {
		if stream, err = biff.Encrypt(stream, b.password); err != nil {
			t.Fatalf("encrypt BIFF fixture %s: %v", path, err)
		}
	}
	file, err := biff.Pack("Workbook", stream)
	if err != nil {
		t.Fatalf("pack BIFF fixture %s: %v", path, err)
	}
	if err := os.WriteFile(path, file, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// encodeBIFF8 lays out workbook globals followed by one substream per sheet,
// with ROW records ahead of the cells so every row carries its column span.
func encodeBIFF8(sheets []string, cells map[string]map[string]any) ([]byte, error) {
	globals := appendRecord(nil, biff.RecordBOF, bofBody(bofGlobals))
	globals = appendRecord(globals, recordCodepage, binary.LittleEndian.AppendUint16(nil, 1200))
	positions := make([]int, len(sheets))
	for i, name := range sheets {
		cch, text := biffString(name)
		body := make([]byte, 6, 8+len(text))
		body = append(body, byte(cch))
		body = append(body, text...)
		positions[i] = len(globals) + 4
		globals = appendRecord(globals, biff.RecordBoundSheet, body)
	}
	globals = appendRecord(globals, biff.RecordEOF, nil)

	stream := globals
	for i, name := range sheets {
		binary.LittleEndian.PutUint32(stream[positions[i]:], uint32(len(stream)))
		sheet, err := encodeSheet(cells[name])
		if err != nil {
			return nil, fmt.Errorf("sheet %s: %w", name, err)
		}
		stream = append(stream, sheet...)
	}
	return stream, nil
}

func encodeSheet(values map[string]any) ([]byte, error) {
	var cells []biffCell
	for ref, value := range values {
		col, row, err := excelize.CellNameToCoordinates(ref)
		if err != nil {
			return nil, err
		}
		cells = append(cells, biffCell{row: row - 1, col: col - 1, value: value})
	}
	slices.SortFunc(cells, func(a, b biffCell) int {
		if a.row != b.row {
			return a.row - b.row
		}
		return a.col - b.col
	})

	le := binary.LittleEndian
	out := appendRecord(nil, biff.RecordBOF, bofBody(bofWorksheet))
	for i := 0; i < len(cells); {
		j := i
		for j < len(cells) && cells[j].row == cells[i].row {
			j++
		}
		body := le.AppendUint16(nil, uint16(cells[i].row))
		body = le.AppendUint16(body, uint16(cells[i].col))
		body = le.AppendUint16(body, uint16(cells[j-1].col+1))
		body = le.AppendUint16(body, 0x00FF)
		body = append(body, 0, 0, 0, 0)
		body = le.AppendUint32(body, 0x00000100)
		out = appendRecord(out, recordRow, body)
		i = j
	}
	for _, c := range cells {
		body := le.AppendUint16(nil, uint16(c.row))
		body = le.AppendUint16(body, uint16(c.col))
		body = le.AppendUint16(body, defaultXF)
		switch v := c.value.(type) {
		case string:
			cch, text := biffString(v)
			body = le.AppendUint16(body, uint16(cch))
			out = appendRecord(out, recordLabel, append(body, text...))
		case int:
			out = appendRecord(out, recordNumber, le.AppendUint64(body, math.Float64bits(float64(v))))
		case float64:
			out = appendRecord(out, recordNumber, le.AppendUint64(body, math.Float64bits(v)))
		default:
			return nil, fmt.Errorf("cell %d,%d: unsupported value %T", c.row, c.col, c.value)
		}
	}
	return appendRecord(out, biff.RecordEOF, nil), nil
}

func appendRecord(out []byte, id uint16, body []byte) []byte {
	out = binary.LittleEndian.AppendUint16(out, id)
	out = binary.LittleEndian.AppendUint16(out, uint16(len(body)))
	return append(out, body...)
}

func bofBody(kind uint16) []byte {
	le := binary.LittleEndian
	body := le.AppendUint16(nil, 0x0600)
	body = le.AppendUint16(body, kind)
	body = le.AppendUint16(body, 0x0DBB)
	body = le.AppendUint16(body, 0x07CC)
	body = le.AppendUint32(body, 0x000100C1)
	return le.AppendUint32(body, 0x00000006)
}

// biffString returns the character count and the flagged string bytes:
// compressed 8-bit text when every rune fits, UTF-16 otherwise.
func biffString(s string) (int, []byte) {
	units := utf16.Encode([]rune(s))
	wide := slices.ContainsFunc(units, func(u uint16) bool { return u > 0xFF })
	if !wide {
		out := make([]byte, 1, 1+len(units))
		for _, u := range units {
			out = append(out, byte(u))
		}
		return len(units), out
	}
	out := []byte{0x01}
	for _, u := range units {
		out = binary.LittleEndian.AppendUint16(out, u)
	}
	return len(units), out
}
