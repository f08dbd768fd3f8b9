package export_test

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"report2csv/internal/config"
	"report2csv/internal/export"
	"report2csv/internal/ingest"
	"report2csv/internal/logging"
	"report2csv/internal/testsupport"
)

var bom = []byte{0xEF, 0xBB, 0xBF}

func sampleResult() ingest.ExtractionResult {
	part := "0.12"
	return ingest.ExtractionResult{
		SequenceNo: 3,
		PartNumber: "5801-0042",
		PartTitle:  "Bracket/LH",
		Stage:      "PT1",
		Rows: []ingest.MeasurementRow{
			{Type: "FLUSH", Code: "A01", Point: "1", UpperTolerance: "0.5", LowerTolerance: "-0.5", Parts: [4]*string{&part}},
			{Type: "GAP", Code: "A02", Point: "2"},
		},
	}
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read export failed: %v", err)
	}
	if !bytes.HasPrefix(data, bom) {
		t.Fatalf("export missing BOM: % x", data[:min(3, len(data))])
	}
	records, err := csv.NewReader(bytes.NewReader(data[len(bom):])).ReadAll()
	if err != nil {
		t.Fatalf("parse export failed: %v", err)
	}
	return records
}

func TestWriteCanonical(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	w := export.NewWriter(cfg, logging.NewNop())

	path, err := w.Write(context.Background(), sampleResult())
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if filepath.Base(path) != "Bracket-LH.csv" || filepath.Dir(path) != cfg.Paths.OutputDir {
		t.Fatalf("unexpected export path %s", path)
	}

	records := readCSV(t, path)
	if len(records) != 3 {
		t.Fatalf("records = %d, want 3", len(records))
	}
	if !reflect.DeepEqual(records[0], export.Header(config.HeadersCanonical, true)) {
		t.Fatalf("header = %v", records[0])
	}
	want := []string{"3", "5801-0042", "Bracket/LH", "PT1", "FLUSH", "A01", "1", "0.5", "-0.5", "0.12", "", "", ""}
	if !reflect.DeepEqual(records[1], want) {
		t.Fatalf("row = %v, want %v", records[1], want)
	}
}

func TestWriteLocalizedWithoutPrefix(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithExportHeaders(config.HeadersLocalized))
	cfg.Export.IncludePrefix = false
	w := export.NewWriter(cfg, logging.NewNop())

	path, err := w.Write(context.Background(), sampleResult())
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	records := readCSV(t, path)
	if records[0][0] != "类型" || len(records[0]) != 9 {
		t.Fatalf("header = %v", records[0])
	}
	if len(records[1]) != 9 || records[1][0] != "FLUSH" {
		t.Fatalf("row = %v", records[1])
	}
}

func TestWriteOverwritesSameTitle(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	w := export.NewWriter(cfg, logging.NewNop())

	first := sampleResult()
	if _, err := w.Write(context.Background(), first); err != nil {
		t.Fatalf("first Write failed: %v", err)
	}
	second := sampleResult()
	second.SequenceNo = 9
	second.Rows = second.Rows[:1]
	path, err := w.Write(context.Background(), second)
	if err != nil {
		t.Fatalf("second Write failed: %v", err)
	}

	records := readCSV(t, path)
	if len(records) != 2 || records[1][0] != "9" {
		t.Fatalf("export should hold the latest write only: %v", records)
	}
	entries, err := os.ReadDir(cfg.Paths.OutputDir)
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected one export file, found %d", len(entries))
	}
}

func TestWriteFailureIsPersistenceError(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Paths.OutputDir = filepath.Join(cfg.Paths.OutputDir, "missing")
	w := export.NewWriter(cfg, logging.NewNop())

	if _, err := w.Write(context.Background(), sampleResult()); !errors.Is(err, ingest.ErrPersistence) {
		t.Fatalf("expected ErrPersistence, got %v", err)
	}
}

func TestPathFallsBackToPartNumber(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	w := export.NewWriter(cfg, logging.NewNop())
	res := sampleResult()
	res.PartTitle = "  "
	if got := filepath.Base(w.Path(res)); got != "5801-0042.csv" {
		t.Fatalf("Path = %s", got)
	}
}
