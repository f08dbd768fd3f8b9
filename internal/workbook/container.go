package workbook

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/richardlehane/mscfb"

	"report2csv/internal/biff"
)

var (
	cfbSignature = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
	zipSignature = []byte{'P', 'K', 0x03, 0x04}
)

// Stream names inside an OLE compound file.
const (
	streamEncryptionInfo   = "EncryptionInfo"
	streamEncryptedPackage = "EncryptedPackage"
	streamWorkbook         = "Workbook"
	streamBook             = "Book"
)

type signature int

const (
	signatureUnknown signature = iota
	signatureZip
	signatureCompound
)

func sniff(path string) (signature, error) {
	f, err := os.Open(path)
	if err != nil {
		return signatureUnknown, err
	}
	defer f.Close()

	head := make([]byte, len(cfbSignature))
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return signatureUnknown, err
	}
	head = head[:n]
	switch {
	case bytes.HasPrefix(head, cfbSignature):
		return signatureCompound, nil
	case bytes.HasPrefix(head, zipSignature):
		return signatureZip, nil
	default:
		return signatureUnknown, nil
	}
}

// container summarizes a compound file's top-level streams.
type container struct {
	streams map[string]bool
	biff    []byte
}

func inspectContainer(raw []byte) (container, error) {
	doc, err := mscfb.New(bytes.NewReader(raw))
	if err != nil {
		return container{}, fmt.Errorf("parse compound file: %w", err)
	}
	c := container{streams: map[string]bool{}}
	for entry, err := doc.Next(); err == nil; entry, err = doc.Next() {
		c.streams[entry.Name] = true
		if c.biff == nil && (entry.Name == streamWorkbook || entry.Name == streamBook) {
			buf, readErr := io.ReadAll(entry)
			if readErr != nil {
				return container{}, fmt.Errorf("read %s stream: %w", entry.Name, readErr)
			}
			c.biff = buf
		}
	}
	return c, nil
}

func (c container) encryptedPackage() bool {
	return c.streams[streamEncryptionInfo] && c.streams[streamEncryptedPackage]
}

func (c container) legacyWorkbook() bool {
	return c.biff != nil
}

// biffEncrypted reports a FILEPASS record in the workbook globals.
func (c container) biffEncrypted() bool {
	return biff.Encrypted(c.biff)
}
