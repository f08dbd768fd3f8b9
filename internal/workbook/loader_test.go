package workbook_test

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"report2csv/internal/ingest"
	"report2csv/internal/logging"
	"report2csv/internal/testsupport"
	"report2csv/internal/workbook"
)

func openSheets(t *testing.T, path string) (names []string, grids map[string]workbook.Grid) {
	t.Helper()
	wb, err := workbook.NewLoader(logging.NewNop()).Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer wb.Close()

	names = wb.SheetNames()
	grids = map[string]workbook.Grid{}
	for _, name := range names {
		g, err := wb.Sheet(name)
		if err != nil {
			t.Fatalf("Sheet(%q) failed: %v", name, err)
		}
		grids[name] = g
	}
	return names, grids
}

func TestOpenPlainWorkbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "A-88-plain.xlsx")
	testsupport.WriteEightyEightWorkbook(t, path, testsupport.StandardFixture())

	names, grids := openSheets(t, path)
	if want := []string{"88-SYNTH", "88PRES", "RES-1", "RES-2"}; !reflect.DeepEqual(names, want) {
		t.Fatalf("sheet order = %v, want %v", names, want)
	}
	if got := grids["88-SYNTH"].Cell(27, 3); got != "0.873" {
		t.Fatalf("D28 = %q, want raw 0.873", got)
	}
	if got := grids["88PRES"].Cell(8, 6); got != "Bracket LH" {
		t.Fatalf("G9 = %q", got)
	}
	if got := grids["88PRES"].Cell(500, 500); got != "" {
		t.Fatalf("out of range cell = %q", got)
	}
}

func TestOpenEncryptedMatchesPlain(t *testing.T) {
	dir := t.TempDir()
	plain := filepath.Join(dir, "A-88-plain.xlsx")
	locked := filepath.Join(dir, "A-88-locked.xlsx")
	fx := testsupport.StandardFixture()
	testsupport.WriteEightyEightWorkbook(t, plain, fx)
	testsupport.WriteEightyEightWorkbook(t, locked, fx, testsupport.Encrypted(workbook.DefaultPassword))

	raw, err := os.ReadFile(locked)
	if err != nil {
		t.Fatalf("read encrypted fixture: %v", err)
	}
	if !bytes.HasPrefix(raw, []byte{0xD0, 0xCF, 0x11, 0xE0}) {
		t.Fatal("encrypted fixture is not a compound file")
	}

	plainNames, plainGrids := openSheets(t, plain)
	lockedNames, lockedGrids := openSheets(t, locked)
	if !reflect.DeepEqual(plainNames, lockedNames) {
		t.Fatalf("sheet names differ: %v vs %v", plainNames, lockedNames)
	}
	if !reflect.DeepEqual(plainGrids, lockedGrids) {
		t.Fatal("decrypted grids differ from plain grids")
	}
}

func TestOpenEncryptedWithOtherPasswordFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "A-88-secret.xlsx")
	testsupport.WriteEightyEightWorkbook(t, path, testsupport.StandardFixture(), testsupport.Encrypted("not-the-default"))

	_, err := workbook.NewLoader(logging.NewNop()).Open(path)
	if !errors.Is(err, ingest.ErrCorruptWorkbook) {
		t.Fatalf("expected ErrCorruptWorkbook, got %v", err)
	}
}

func TestOpenWithCustomPassword(t *testing.T) {
	path := filepath.Join(t.TempDir(), "A-88-secret.xlsx")
	testsupport.WriteEightyEightWorkbook(t, path, testsupport.StandardFixture(), testsupport.Encrypted("s3cret"))

	wb, err := workbook.NewLoader(logging.NewNop(), workbook.WithPassword("s3cret")).Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer wb.Close()
	if len(wb.SheetNames()) != 4 {
		t.Fatalf("unexpected sheets %v", wb.SheetNames())
	}
}

func TestOpenLegacyWorkbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "A-88-plain.xls")
	testsupport.WriteEightyEightWorkbook(t, path, testsupport.StandardFixture(), testsupport.Legacy())

	names, grids := openSheets(t, path)
	if want := []string{"88-SYNTH", "88PRES", "RES-1", "RES-2"}; !reflect.DeepEqual(names, want) {
		t.Fatalf("sheet order = %v, want %v", names, want)
	}
	cases := []struct {
		sheet    string
		row, col int
		want     string
	}{
		{sheet: "88-SYNTH", row: 5, col: 5, want: "5801-0042"},
		{sheet: "88-SYNTH", row: 27, col: 3, want: "0.873"},
		{sheet: "88PRES", row: 8, col: 6, want: "Bracket LH"},
		{sheet: "RES-1", row: 9, col: 16, want: "A01"},
		{sheet: "RES-1", row: 9, col: 17, want: "1"},
		{sheet: "RES-1", row: 9, col: 22, want: "-0.5"},
		{sheet: "RES-1", row: 9, col: 25, want: " "},
		{sheet: "RES-2", row: 10, col: 16, want: "B02"},
		{sheet: "88-SYNTH", row: 12, col: 0, want: ""},
	}
	for _, tc := range cases {
		if got := grids[tc.sheet].Cell(tc.row, tc.col); got != tc.want {
			t.Fatalf("%s(%d,%d) = %q, want %q", tc.sheet, tc.row, tc.col, got, tc.want)
		}
	}
}

func TestOpenLegacyEncryptedMatchesPlain(t *testing.T) {
	dir := t.TempDir()
	plain := filepath.Join(dir, "A-32-plain.xls")
	locked := filepath.Join(dir, "A-32-locked.xls")
	fx := testsupport.StandardFixture()
	testsupport.WriteThirtyTwoWorkbook(t, plain, fx, testsupport.Legacy())
	testsupport.WriteThirtyTwoWorkbook(t, locked, fx, testsupport.Legacy(), testsupport.Encrypted(workbook.DefaultPassword))

	raw, err := os.ReadFile(locked)
	if err != nil {
		t.Fatalf("read encrypted fixture: %v", err)
	}
	if bytes.Contains(raw, []byte("Bracket LH")) {
		t.Fatal("encrypted fixture carries the title in the clear")
	}

	plainNames, plainGrids := openSheets(t, plain)
	lockedNames, lockedGrids := openSheets(t, locked)
	if !reflect.DeepEqual(plainNames, lockedNames) {
		t.Fatalf("sheet names differ: %v vs %v", plainNames, lockedNames)
	}
	if !reflect.DeepEqual(plainGrids, lockedGrids) {
		t.Fatal("decrypted grids differ from plain grids")
	}
	if got := lockedGrids["1(32j)"].Cell(0, 2); got != "Bracket LH" {
		t.Fatalf("C1 = %q", got)
	}
}

func TestOpenLegacyEncryptedPasswords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "A-88-secret.xls")
	testsupport.WriteEightyEightWorkbook(t, path, testsupport.StandardFixture(), testsupport.Legacy(), testsupport.Encrypted("s3cret"))

	if _, err := workbook.NewLoader(logging.NewNop()).Open(path); !errors.Is(err, ingest.ErrCorruptWorkbook) {
		t.Fatalf("expected ErrCorruptWorkbook, got %v", err)
	}

	wb, err := workbook.NewLoader(logging.NewNop(), workbook.WithPassword("s3cret")).Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer wb.Close()
	if len(wb.SheetNames()) != 4 {
		t.Fatalf("unexpected sheets %v", wb.SheetNames())
	}
}

func TestOpenFailures(t *testing.T) {
	dir := t.TempDir()
	garbage := filepath.Join(dir, "garbage-88.xlsx")
	testsupport.WriteBytes(t, garbage, bytes.Repeat([]byte{0x42}, 512))

	// A compound header with nothing valid behind it.
	fakeCFB := filepath.Join(dir, "fake-88.xls")
	testsupport.WriteBytes(t, fakeCFB, append([]byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}, make([]byte, 64)...))

	cases := []struct {
		name string
		path string
		want error
	}{
		{name: "missing", path: filepath.Join(dir, "absent-88.xlsx"), want: ingest.ErrIO},
		{name: "garbage", path: garbage, want: ingest.ErrCorruptWorkbook},
		{name: "truncated compound", path: fakeCFB, want: ingest.ErrCorruptWorkbook},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			wb, err := workbook.NewLoader(logging.NewNop()).Open(tc.path)
			if err == nil {
				wb.Close()
				t.Fatal("expected error")
			}
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestSheetMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "A-88.xlsx")
	testsupport.WriteEightyEightWorkbook(t, path, testsupport.StandardFixture())
	wb, err := workbook.NewLoader(logging.NewNop()).Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer wb.Close()
	if _, err := wb.Sheet("nope"); !errors.Is(err, ingest.ErrMissingSheet) {
		t.Fatalf("expected ErrMissingSheet, got %v", err)
	}
}

func TestGridCell(t *testing.T) {
	g := workbook.Grid{{"a"}, nil, {"", "", "c"}}
	if g.Cell(0, 0) != "a" || g.Cell(1, 0) != "" || g.Cell(2, 2) != "c" || g.Cell(-1, 0) != "" {
		t.Fatalf("unexpected grid access")
	}
	if g.Rows() != 3 {
		t.Fatalf("Rows = %d", g.Rows())
	}
}
