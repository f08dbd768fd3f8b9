package fileutil

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestWriteFileAtomicReplaces(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.csv")

	if err := WriteFileAtomic(path, []byte("first"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := WriteFileAtomic(path, []byte("second"), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "second" {
		t.Fatalf("content mismatch: got %q", got)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("temp files left behind: %v", entries)
	}
}

func TestWriteFileAtomicMissingDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "out.csv")
	if err := WriteFileAtomic(path, []byte("x"), 0o644); err == nil {
		t.Fatal("expected error for missing directory")
	}
}

func TestRemoveIfExists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db.sqlite")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	removed, err := RemoveIfExists(path)
	if err != nil || !removed {
		t.Fatalf("first remove: removed=%v err=%v", removed, err)
	}
	removed, err = RemoveIfExists(path)
	if err != nil || removed {
		t.Fatalf("second remove: removed=%v err=%v", removed, err)
	}
}

func TestFindReports(t *testing.T) {
	dir := t.TempDir()
	files := []string{
		"b/B-F32.xlsx",
		"a/A-88.xls",
		"a/nested/C-88.XLSM",
		"a/notes.txt",
		"a/~$A-88.xls",
	}
	for _, name := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	loose := filepath.Join(dir, "b", "B-F32.xlsx")

	got, err := FindReports([]string{loose, dir})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{
		loose,
		filepath.Join(dir, "a", "A-88.xls"),
		filepath.Join(dir, "a", "nested", "C-88.XLSM"),
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("FindReports = %v, want %v", got, want)
	}

	if _, err := FindReports([]string{filepath.Join(dir, "absent")}); err == nil {
		t.Fatal("expected error for missing input")
	}
}
