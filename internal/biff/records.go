package biff

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Record identifiers the package inspects.
const (
	RecordBOF        uint16 = 0x0809
	RecordEOF        uint16 = 0x000A
	RecordFilePass   uint16 = 0x002F
	RecordBoundSheet uint16 = 0x0085
)

const headerSize = 4

// ErrTruncated reports a record header that claims more bytes than remain.
var ErrTruncated = errors.New("truncated BIFF record")

// Record locates one record inside a stream.
type Record struct {
	ID     uint16
	Offset int
	Size   int
}

// Start is the offset of the record body.
func (r Record) Start() int { return r.Offset + headerSize }

// End is the offset just past the record body.
func (r Record) End() int { return r.Offset + headerSize + r.Size }

// Body returns the record body within stream.
func (r Record) Body(stream []byte) []byte { return stream[r.Start():r.End()] }

// Records walks every record header in stream. Trailing bytes too short for
// a header are ignored; a body running past the end is an error.
func Records(stream []byte) ([]Record, error) {
	var out []Record
	for off := 0; off+headerSize <= len(stream); {
		rec := Record{
			ID:     binary.LittleEndian.Uint16(stream[off:]),
			Offset: off,
			Size:   int(binary.LittleEndian.Uint16(stream[off+2:])),
		}
		if rec.End() > len(stream) {
			return out, fmt.Errorf("record 0x%04X at %d: %w", rec.ID, off, ErrTruncated)
		}
		out = append(out, rec)
		off = rec.End()
	}
	return out, nil
}

// Encrypted reports whether the workbook globals carry a FILEPASS record.
func Encrypted(stream []byte) bool {
	_, ok := filePass(stream)
	return ok
}

// filePass finds the FILEPASS record before the first EOF.
func filePass(stream []byte) (Record, bool) {
	recs, _ := Records(stream)
	for _, rec := range recs {
		switch rec.ID {
		case RecordFilePass:
			return rec, true
		case RecordEOF:
			return Record{}, false
		}
	}
	return Record{}, false
}
