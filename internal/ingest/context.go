package ingest

import "context"

type contextKey string

const (
	batchIDKey    contextKey = "batch_id"
	jobSeqKey     contextKey = "job_seq"
	stageKey      contextKey = "stage"
	sourceFileKey contextKey = "source_file"
)

// WithBatchID annotates context with the batch correlation identifier.
func WithBatchID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, batchIDKey, id)
}

// BatchIDFromContext returns the batch identifier if present.
func BatchIDFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(batchIDKey).(string)
	return v, ok && v != ""
}

// WithJob annotates context with the job's sequence number, stage, and file.
func WithJob(ctx context.Context, job Job) context.Context {
	ctx = context.WithValue(ctx, jobSeqKey, job.SequenceNo)
	if job.Stage != "" {
		ctx = context.WithValue(ctx, stageKey, job.Stage)
	}
	if job.File != "" {
		ctx = context.WithValue(ctx, sourceFileKey, job.File)
	}
	return ctx
}

// JobSeqFromContext returns the job sequence number if present.
func JobSeqFromContext(ctx context.Context) (int, bool) {
	v, ok := ctx.Value(jobSeqKey).(int)
	return v, ok
}

// StageFromContext returns the stage label if present.
func StageFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(stageKey).(string)
	return v, ok && v != ""
}

// SourceFileFromContext returns the job's source path if present.
func SourceFileFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(sourceFileKey).(string)
	return v, ok && v != ""
}
