package ingest

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// CardKind identifies one of the fixed report templates.
type CardKind int

const (
	KindUnknown CardKind = iota
	EightyEight
	ThirtyTwo
)

func (k CardKind) String() string {
	switch k {
	case EightyEight:
		return "eighty_eight"
	case ThirtyTwo:
		return "thirty_two"
	default:
		return "unknown"
	}
}

// Category returns the human label recorded with results of this kind.
func (k CardKind) Category() string {
	switch k {
	case EightyEight:
		return "88卡"
	case ThirtyTwo:
		return "32卡"
	default:
		return ""
	}
}

// ReportFile is a path whose card kind has been determined.
type ReportFile struct {
	Path string
	Kind CardKind
}

// NewReportFile classifies path and returns the immutable pairing.
func NewReportFile(path string) (ReportFile, error) {
	kind, err := Classify(path)
	if err != nil {
		return ReportFile{}, err
	}
	return ReportFile{Path: path, Kind: kind}, nil
}

// Measure is a nullable numeric cell kept in its source text until it is
// bound to a typed column.
type Measure string

// IsNull reports whether the cell held no value.
func (m Measure) IsNull() bool {
	return strings.TrimSpace(string(m)) == ""
}

// Float parses the measure. ok is false for an empty cell.
func (m Measure) Float() (value float64, ok bool, err error) {
	text := strings.TrimSpace(string(m))
	if text == "" {
		return 0, false, nil
	}
	value, err = strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, false, fmt.Errorf("parse measure %q: %w", text, err)
	}
	return value, true, nil
}

// MeasurementRow is one physical measurement record in canonical column order.
type MeasurementRow struct {
	Type           string     `json:"type"`
	Code           string     `json:"code"`
	Point          string     `json:"point"`
	UpperTolerance Measure    `json:"upper_tolerance"`
	LowerTolerance Measure    `json:"lower_tolerance"`
	Parts          [4]*string `json:"parts"`
}

// ExtractionResult is the unit produced by one job.
type ExtractionResult struct {
	SequenceNo int              `json:"sequence_no"`
	SourceFile string           `json:"source_file"`
	PartNumber string           `json:"part_number"`
	PartTitle  string           `json:"part_title"`
	ICMD       float64          `json:"icmd"`
	ICMC       float64          `json:"icmc"`
	Category   string           `json:"category"`
	Kind       CardKind         `json:"-"`
	Stage      string           `json:"stage"`
	Timestamp  time.Time        `json:"timestamp"`
	Rows       []MeasurementRow `json:"rows"`
}

// Job is one file scheduled within a batch.
type Job struct {
	SequenceNo int
	File       string
	Stage      string
}

// ParseRatio reads a metric cell as a ratio. Percent strings are scaled, so
// "87.3%" and "0.873" both yield 0.873.
func ParseRatio(raw string) (float64, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return 0, fmt.Errorf("empty value")
	}
	percent := strings.HasSuffix(text, "%")
	if percent {
		text = strings.TrimSpace(strings.TrimSuffix(text, "%"))
	}
	value, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %q: %w", raw, err)
	}
	if percent {
		value /= 100
	}
	return value, nil
}

// FormatPercent renders a ratio with two decimals, e.g. 0.873 -> "87.30%".
func FormatPercent(ratio float64) string {
	return strconv.FormatFloat(ratio*100, 'f', 2, 64) + "%"
}

// NullableText trims value and maps an empty result to nil.
func NullableText(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
