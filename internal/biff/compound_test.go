package biff_test

import (
	"bytes"
	"io"
	"testing"

	"github.com/richardlehane/mscfb"

	"report2csv/internal/biff"
)

func readStream(t *testing.T, file []byte, name string) []byte {
	t.Helper()
	doc, err := mscfb.New(bytes.NewReader(file))
	if err != nil {
		t.Fatalf("mscfb.New failed: %v", err)
	}
	for entry, err := doc.Next(); err == nil; entry, err = doc.Next() {
		if entry.Name != name {
			continue
		}
		data, err := io.ReadAll(entry)
		if err != nil {
			t.Fatalf("read %s failed: %v", name, err)
		}
		return data
	}
	t.Fatalf("stream %q not found", name)
	return nil
}

func TestPackRoundTrip(t *testing.T) {
	large := bytes.Repeat([]byte("0123456789abcdef"), 40000)
	cases := []struct {
		name   string
		stream []byte
	}{
		{name: "below mini cutoff", stream: sampleStream()},
		{name: "many FAT sectors", stream: large},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			file, err := biff.Pack("Workbook", tc.stream)
			if err != nil {
				t.Fatalf("Pack failed: %v", err)
			}
			got := readStream(t, file, "Workbook")
			if len(got) < len(tc.stream) {
				t.Fatalf("stream length %d, want at least %d", len(got), len(tc.stream))
			}
			if !bytes.Equal(got[:len(tc.stream)], tc.stream) {
				t.Fatal("packed stream differs")
			}
			if tail := got[len(tc.stream):]; len(bytes.Trim(tail, "\x00")) != 0 {
				t.Fatal("padding is not zero")
			}
		})
	}
}

func TestPackRejectsBadName(t *testing.T) {
	if _, err := biff.Pack("", []byte{1}); err == nil {
		t.Fatal("expected error for empty name")
	}
	if _, err := biff.Pack("a-stream-name-well-past-the-limit", []byte{1}); err == nil {
		t.Fatal("expected error for long name")
	}
}
