package extract_test

import (
	"errors"
	"path/filepath"
	"testing"

	"report2csv/internal/extract"
	"report2csv/internal/ingest"
	"report2csv/internal/logging"
	"report2csv/internal/testsupport"
	"report2csv/internal/workbook"
)

type writer func(testing.TB, string, testsupport.CardFixture, ...testsupport.WorkbookOption)

func extractFixture(t *testing.T, kind ingest.CardKind, write writer, fx testsupport.CardFixture, opts ...testsupport.WorkbookOption) (ingest.ExtractionResult, error) {
	t.Helper()
	name := "report-88.xlsx"
	if kind == ingest.ThirtyTwo {
		name = "report-F32.xlsx"
	}
	return extractFile(t, kind, name, write, fx, opts...)
}

func extractFile(t *testing.T, kind ingest.CardKind, name string, write writer, fx testsupport.CardFixture, opts ...testsupport.WorkbookOption) (ingest.ExtractionResult, error) {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	write(t, path, fx, opts...)

	wb, err := workbook.NewLoader(logging.NewNop()).Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer wb.Close()

	ex, err := extract.For(kind)
	if err != nil {
		t.Fatalf("For failed: %v", err)
	}
	return ex.Extract(wb)
}

func TestExtractBothCards(t *testing.T) {
	legacy := []testsupport.WorkbookOption{testsupport.Legacy()}
	locked := []testsupport.WorkbookOption{testsupport.Legacy(), testsupport.Encrypted(workbook.DefaultPassword)}
	cases := []struct {
		name     string
		file     string
		kind     ingest.CardKind
		write    writer
		opts     []testsupport.WorkbookOption
		category string
	}{
		{name: "88", file: "report-88.xlsx", kind: ingest.EightyEight, write: testsupport.WriteEightyEightWorkbook, category: "88卡"},
		{name: "32", file: "report-F32.xlsx", kind: ingest.ThirtyTwo, write: testsupport.WriteThirtyTwoWorkbook, category: "32卡"},
		{name: "88 legacy", file: "report-88.xls", kind: ingest.EightyEight, write: testsupport.WriteEightyEightWorkbook, opts: legacy, category: "88卡"},
		{name: "32 legacy", file: "report-F32.xls", kind: ingest.ThirtyTwo, write: testsupport.WriteThirtyTwoWorkbook, opts: legacy, category: "32卡"},
		{name: "88 legacy encrypted", file: "report-88.xls", kind: ingest.EightyEight, write: testsupport.WriteEightyEightWorkbook, opts: locked, category: "88卡"},
		{name: "32 legacy encrypted", file: "report-F32.xls", kind: ingest.ThirtyTwo, write: testsupport.WriteThirtyTwoWorkbook, opts: locked, category: "32卡"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fx := testsupport.StandardFixture()
			res, err := extractFile(t, tc.kind, tc.file, tc.write, fx, tc.opts...)
			if err != nil {
				t.Fatalf("Extract failed: %v", err)
			}
			if res.PartNumber != "5801-0042" {
				t.Fatalf("part number = %q", res.PartNumber)
			}
			if res.PartTitle != "Bracket LH" {
				t.Fatalf("title = %q", res.PartTitle)
			}
			if res.ICMD != 0.873 || res.ICMC != 0.912 {
				t.Fatalf("metrics = %v/%v", res.ICMD, res.ICMC)
			}
			if res.Category != tc.category || res.Kind != tc.kind {
				t.Fatalf("category/kind = %q/%v", res.Category, res.Kind)
			}
			if len(res.Rows) != fx.NonEmptyCodeRows() {
				t.Fatalf("rows = %d, want %d", len(res.Rows), fx.NonEmptyCodeRows())
			}

			first := res.Rows[0]
			if first.Type != "FLUSH" || first.Code != "A01" || first.Point != "1" {
				t.Fatalf("first row identity = %+v", first)
			}
			if first.UpperTolerance != "0.5" || first.LowerTolerance != "-0.5" {
				t.Fatalf("first row tolerances = %q/%q", first.UpperTolerance, first.LowerTolerance)
			}
			if first.Parts[0] == nil || *first.Parts[0] != "0.12" {
				t.Fatalf("part1 = %v", first.Parts[0])
			}
			if first.Parts[2] != nil || first.Parts[3] != nil {
				t.Fatalf("blank parts should be nil: %v %v", first.Parts[2], first.Parts[3])
			}

			codes := make([]string, 0, len(res.Rows))
			for _, row := range res.Rows {
				codes = append(codes, row.Code)
			}
			want := []string{"A01", "A02", "B01", "B02"}
			for i := range want {
				if codes[i] != want[i] {
					t.Fatalf("codes = %v, want %v", codes, want)
				}
			}

			last := res.Rows[len(res.Rows)-1]
			if !last.UpperTolerance.IsNull() || !last.LowerTolerance.IsNull() {
				t.Fatalf("empty tolerances should be null: %+v", last)
			}
		})
	}
}

func TestExtractIgnoresCellsOutsideWindow(t *testing.T) {
	fx := testsupport.StandardFixture()
	for _, tc := range []struct {
		kind  ingest.CardKind
		write writer
	}{
		{ingest.EightyEight, testsupport.WriteEightyEightWorkbook},
		{ingest.ThirtyTwo, testsupport.WriteThirtyTwoWorkbook},
	} {
		res, err := extractFixture(t, tc.kind, tc.write, fx, testsupport.WithOverflowRows(), testsupport.WithDecoySheet())
		if err != nil {
			t.Fatalf("Extract %v failed: %v", tc.kind, err)
		}
		if len(res.Rows) != fx.NonEmptyCodeRows() {
			t.Fatalf("%v rows = %d, want %d", tc.kind, len(res.Rows), fx.NonEmptyCodeRows())
		}
		for _, row := range res.Rows {
			switch row.Code {
			case "HEADER", "OVERFLOW", "DECOY":
				t.Fatalf("%v picked up %q", tc.kind, row.Code)
			}
		}
	}
}

func TestExtractMissingAnchorSheet(t *testing.T) {
	fx := testsupport.StandardFixture()
	cases := []struct {
		name  string
		kind  ingest.CardKind
		write writer
		omit  string
	}{
		{"88 synth", ingest.EightyEight, testsupport.WriteEightyEightWorkbook, "88-SYNTH"},
		{"88 pres", ingest.EightyEight, testsupport.WriteEightyEightWorkbook, "88PRES"},
		{"32 summary", ingest.ThirtyTwo, testsupport.WriteThirtyTwoWorkbook, "1(32j)"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := extractFixture(t, tc.kind, tc.write, fx, testsupport.OmitSheet(tc.omit))
			if !errors.Is(err, ingest.ErrMissingSheet) {
				t.Fatalf("expected ErrMissingSheet, got %v", err)
			}
			if ingest.KindOf(err) != ingest.FailureMissingSheet {
				t.Fatalf("KindOf = %v", ingest.KindOf(err))
			}
		})
	}
}

func TestExtractMalformedLayout(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*testsupport.CardFixture)
	}{
		{"text metric", func(fx *testsupport.CardFixture) { fx.ICMD = "n/a" }},
		{"empty metric", func(fx *testsupport.CardFixture) { fx.ICMC = nil }},
		{"empty title", func(fx *testsupport.CardFixture) { fx.Title = "" }},
		{"empty part number", func(fx *testsupport.CardFixture) { fx.PartNumber = "" }},
		{"no table sheets", func(fx *testsupport.CardFixture) { fx.Tables = nil }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fx := testsupport.StandardFixture()
			tc.mutate(&fx)
			_, err := extractFixture(t, ingest.EightyEight, testsupport.WriteEightyEightWorkbook, fx)
			if !errors.Is(err, ingest.ErrMalformedLayout) {
				t.Fatalf("expected ErrMalformedLayout, got %v", err)
			}
		})
	}
}

func TestExtractPercentMetrics(t *testing.T) {
	fx := testsupport.StandardFixture()
	fx.ICMD = "87.3%"
	fx.ICMC = "91.2 %"
	res, err := extractFixture(t, ingest.ThirtyTwo, testsupport.WriteThirtyTwoWorkbook, fx)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if ingest.FormatPercent(res.ICMD) != "87.30%" || ingest.FormatPercent(res.ICMC) != "91.20%" {
		t.Fatalf("metrics = %v/%v", res.ICMD, res.ICMC)
	}
}

func TestExtractEmptyTablesYieldNoRows(t *testing.T) {
	fx := testsupport.StandardFixture()
	fx.Tables = [][]testsupport.FixtureRow{{}}
	res, err := extractFixture(t, ingest.EightyEight, testsupport.WriteEightyEightWorkbook, fx)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if len(res.Rows) != 0 {
		t.Fatalf("rows = %d", len(res.Rows))
	}
}

func TestForUnknownKind(t *testing.T) {
	if _, err := extract.For(ingest.KindUnknown); !errors.Is(err, ingest.ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestTableWindowMatches(t *testing.T) {
	w88 := extract.EightyEightLayout().Table
	w32 := extract.ThirtyTwoLayout().Table
	cases := []struct {
		window extract.TableWindow
		sheet  string
		want   bool
	}{
		{w88, "RES-1", true},
		{w88, "RES-", true},
		{w88, "res-1", false},
		{w88, "88PRES", false},
		{w32, "3(32i)", true},
		{w32, "1(32j)", false},
		{extract.TableWindow{}, "anything", false},
	}
	for _, tc := range cases {
		if got := tc.window.Matches(tc.sheet); got != tc.want {
			t.Errorf("Matches(%q) = %v, want %v", tc.sheet, got, tc.want)
		}
	}
}
