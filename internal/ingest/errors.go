package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrCorruptWorkbook   = errors.New("corrupt or unsupported workbook")
	ErrMissingSheet      = errors.New("missing expected sheet")
	ErrMalformedLayout   = errors.New("malformed layout")
	ErrPersistence       = errors.New("persistence error")
	ErrIO                = errors.New("io error")
	// ErrJobTimeout marks a job abandoned after exceeding its time budget.
	ErrJobTimeout = errors.New("job timed out")
)

// FailureKind is the stable label reported for a failed job.
type FailureKind string

const (
	FailureUnsupportedFormat FailureKind = "unsupported_format"
	FailureCorruptWorkbook   FailureKind = "corrupt_workbook"
	FailureMissingSheet      FailureKind = "missing_sheet"
	FailureMalformedLayout   FailureKind = "malformed_layout"
	FailurePersistence       FailureKind = "persistence"
	FailureIO                FailureKind = "io"
	FailureTimeout           FailureKind = "timeout"
	FailureCanceled          FailureKind = "canceled"
	FailureUnknown           FailureKind = "unknown"
)

// Wrap builds an error message that names the component and operation while
// tagging it with marker for later classification. Both marker and err stay
// reachable through errors.Is.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrIO
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// KindOf maps err onto the failure taxonomy.
func KindOf(err error) FailureKind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrJobTimeout):
		return FailureTimeout
	case errors.Is(err, context.Canceled):
		return FailureCanceled
	case errors.Is(err, ErrUnsupportedFormat):
		return FailureUnsupportedFormat
	case errors.Is(err, ErrMissingSheet):
		return FailureMissingSheet
	case errors.Is(err, ErrMalformedLayout):
		return FailureMalformedLayout
	case errors.Is(err, ErrCorruptWorkbook):
		return FailureCorruptWorkbook
	case errors.Is(err, ErrPersistence):
		return FailurePersistence
	case errors.Is(err, ErrIO):
		return FailureIO
	default:
		return FailureUnknown
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "pipeline failure"
	}
	return strings.Join(parts, ": ")
}
