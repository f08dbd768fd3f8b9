package logging

import (
	"context"
	"log/slog"

	"report2csv/internal/ingest"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldBatchID is the standardized structured logging key for the batch correlation id.
	FieldBatchID = "batch_id"
	// FieldJobSeq is the standardized structured logging key for the 1-based job sequence number.
	FieldJobSeq = "job_seq"
	// FieldStage is the standardized structured logging key for the batch stage label.
	FieldStage = "stage"
	// FieldFile is the standardized structured logging key for the source report path.
	FieldFile = "file"
	// FieldEventType classifies a log line for filtering (job_started, row_skipped, ...).
	FieldEventType = "event_type"
	// FieldErrorHint carries the suggested next step for warnings and errors.
	FieldErrorHint = "error_hint"
	// FieldFailureKind carries the ingest failure taxonomy label.
	FieldFailureKind = "failure_kind"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 4)
	if id, ok := ingest.BatchIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldBatchID, id))
	}
	if seq, ok := ingest.JobSeqFromContext(ctx); ok {
		fields = append(fields, slog.Int(FieldJobSeq, seq))
	}
	if stage, ok := ingest.StageFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldStage, stage))
	}
	if file, ok := ingest.SourceFileFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldFile, file))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(args(fields)...)
}
