package logging_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"report2csv/internal/config"
	"report2csv/internal/ingest"
	"report2csv/internal/logging"
)

func newFileLogger(t *testing.T, format, level string) (string, func() string) {
	t.Helper()
	logPath := filepath.Join(t.TempDir(), "test.log")
	logger, err := logging.New(logging.Options{Format: format, Level: level, OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	ctx := ingest.WithJob(context.Background(), ingest.Job{SequenceNo: 3, Stage: "MDL", File: "/r/a-88.xlsx"})
	logging.WithContext(ctx, logging.NewComponentLogger(logger, "dispatch")).Info("job completed", logging.Int("rows", 42))
	return logPath, func() string {
		data, err := os.ReadFile(logPath)
		if err != nil {
			t.Fatalf("read log file: %v", err)
		}
		return string(data)
	}
}

func TestConsoleLoggerRendersSubject(t *testing.T) {
	_, read := newFileLogger(t, "console", "info")
	content := read()
	if !strings.Contains(content, "INFO Job #3 (MDL) · dispatch: job completed") {
		t.Fatalf("missing subject prefix: %q", content)
	}
	if !strings.Contains(content, "rows=42") || !strings.Contains(content, "file=/r/a-88.xlsx") {
		t.Fatalf("missing attributes: %q", content)
	}
	if strings.Contains(content, "job_seq=") {
		t.Fatalf("job_seq should be folded into the subject: %q", content)
	}
}

func TestJSONLoggerKeepsFields(t *testing.T) {
	_, read := newFileLogger(t, "json", "info")
	var entry map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(read())), &entry); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if entry["msg"] != "job completed" || entry["level"] != "info" {
		t.Fatalf("unexpected entry: %v", entry)
	}
	if entry[logging.FieldJobSeq] != float64(3) || entry[logging.FieldStage] != "MDL" {
		t.Fatalf("context fields missing: %v", entry)
	}
	if _, ok := entry["ts"]; !ok {
		t.Fatalf("expected ts key: %v", entry)
	}
}

func TestLevelFiltering(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "warn.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "warn", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("hidden")
	logging.WarnWithContext(logger, "row skipped", "row_skipped", logging.Error(errors.New("bad value")))
	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	content := string(data)
	if strings.Contains(content, "hidden") {
		t.Fatalf("info line should be filtered: %q", content)
	}
	if !strings.Contains(content, "event_type=row_skipped") || !strings.Contains(content, "error_hint=") {
		t.Fatalf("warn line missing enforced fields: %q", content)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestNewCommandLoggerWritesLogFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = filepath.Join(t.TempDir(), "nested")
	logger, err := logging.NewCommandLogger(&cfg, false)
	if err != nil {
		t.Fatalf("NewCommandLogger returned error: %v", err)
	}
	logger.Info("hello from config")
	data, err := os.ReadFile(cfg.LogPath())
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "hello from config") {
		t.Fatalf("log file missing entry: %q", data)
	}
}

func TestClearTruncatesLog(t *testing.T) {
	logPath, read := newFileLogger(t, "console", "info")
	if read() == "" {
		t.Fatal("expected content before clear")
	}
	if err := logging.Clear(logPath); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if got := read(); got != "" {
		t.Fatalf("expected empty log, got %q", got)
	}
	missing := filepath.Join(t.TempDir(), "absent.log")
	if err := logging.Clear(missing); err != nil {
		t.Fatalf("Clear on missing file failed: %v", err)
	}
}

func TestFormatSubject(t *testing.T) {
	cases := map[[2]string]string{
		{"3", "MDL"}: "Job #3 (MDL)",
		{"3", ""}:    "Job #3",
		{"", "MDL"}:  "MDL",
		{"", ""}:     "",
	}
	for in, want := range cases {
		if got := logging.FormatSubject(in[0], in[1]); got != want {
			t.Fatalf("FormatSubject(%q, %q) = %q, want %q", in[0], in[1], got, want)
		}
	}
}

func TestWarnWithContextAddsEventFields(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "warn.log")
	logger, err := logging.New(logging.Options{Format: "json", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	cause := ingest.Wrap(ingest.ErrMissingSheet, "extract", "sheet", "88PRES", nil)
	logging.WarnWithContext(logger, "job failed", "job_failed", logging.Error(cause), logging.Failure(cause))
	logging.ErrorWithContext(logger, "custom", "job_failed", logging.String(logging.FieldErrorHint, "fix it"))

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %q", data)
	}
	var first, second map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if err := json.Unmarshal([]byte(lines[1]), &second); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if first["event_type"] != "job_failed" || first["failure_kind"] != "missing_sheet" || first["error_hint"] == "" {
		t.Fatalf("unexpected warn fields: %v", first)
	}
	if second["error_hint"] != "fix it" || second["level"] != "error" {
		t.Fatalf("caller hint should win: %v", second)
	}
}
