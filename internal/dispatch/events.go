package dispatch

import (
	"time"

	"report2csv/internal/ingest"
)

// EventKind distinguishes the job notifications.
type EventKind int

const (
	EventStarted EventKind = iota + 1
	EventCompleted
	EventFailed
)

func (k EventKind) String() string {
	switch k {
	case EventStarted:
		return "started"
	case EventCompleted:
		return "completed"
	case EventFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether the event ends its job.
func (k EventKind) Terminal() bool {
	return k == EventCompleted || k == EventFailed
}

// Event is one job notification.
type Event struct {
	Kind       EventKind
	SequenceNo int
	File       string
	Time       time.Time
	// Result is set on EventCompleted.
	Result *ingest.ExtractionResult
	// Err and Failure are set on EventFailed.
	Err     error
	Failure ingest.FailureKind
}
