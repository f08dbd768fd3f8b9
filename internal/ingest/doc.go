// Package ingest defines the data model shared by every stage of the report
// pipeline: the card kinds, classified report files, measurement rows, the
// per-job extraction result, and the job tuple handed to the dispatcher.
//
// It also owns the failure taxonomy. Stage code tags errors with one of the
// exported markers through Wrap so the dispatcher and CLI can classify a
// failed job without string matching, and it exposes Classify, the
// filename-based format detector that runs before any file I/O.
//
// Context helpers annotate a context with the batch id, job sequence, stage,
// and source file so loggers can attach them automatically.
package ingest
