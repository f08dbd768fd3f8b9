// Package logging assembles structured slog loggers and formatting helpers used
// across report2csv.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so pipeline code can tag log
// lines with the batch id, job sequence, stage, and source file. The console
// handler folds the job sequence and stage into a readable subject prefix.
//
// Clear truncates the log file for the administrative "clear log" operation.
package logging
