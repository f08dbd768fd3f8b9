package sink

import (
	"context"
	"errors"
	"log/slog"

	"report2csv/internal/ingest"
	"report2csv/internal/logging"
	"report2csv/internal/store"
)

// Exporter writes the flat export for a result.
type Exporter interface {
	Write(ctx context.Context, result ingest.ExtractionResult) (string, error)
}

// Appender appends a result to the relational tables.
type Appender interface {
	Append(ctx context.Context, result ingest.ExtractionResult) (store.AppendStats, error)
}

// Ack reports what a successful Persist wrote.
type Ack struct {
	ExportPath   string `json:"export_path"`
	StageTable   string `json:"stage_table"`
	RowsInserted int    `json:"rows_inserted"`
	RowsSkipped  int    `json:"rows_skipped"`
}

// Sink writes the export first, then the relational rows. Neither step is
// retried; a failed step is reported as ErrPersistence.
type Sink struct {
	exporter Exporter
	appender Appender
	logger   *slog.Logger
}

// New builds a sink over the given targets.
func New(exporter Exporter, appender Appender, logger *slog.Logger) *Sink {
	return &Sink{
		exporter: exporter,
		appender: appender,
		logger:   logging.NewComponentLogger(logger, "sink"),
	}
}

// Persist writes result to the export file and the database. A done ctx
// stops it before either target is touched, so an abandoned job cannot
// overwrite a newer export.
func (s *Sink) Persist(ctx context.Context, result ingest.ExtractionResult) (Ack, error) {
	if err := ctx.Err(); err != nil {
		return Ack{}, err
	}
	logger := logging.WithContext(ctx, s.logger)

	path, err := s.exporter.Write(ctx, result)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Ack{}, ctxErr
		}
		return Ack{}, persistenceError("export", err)
	}

	stats, err := s.appender.Append(ctx, result)
	if err != nil {
		// The export stays on disk; a resubmission overwrites it.
		logging.WarnWithContext(logger, "database append failed after export", "persist_partial",
			logging.String("export", path),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "resubmit the report once the database is reachable"),
		)
		return Ack{ExportPath: path}, persistenceError("append", err)
	}

	return Ack{
		ExportPath:   path,
		StageTable:   stats.StageTable,
		RowsInserted: stats.RowsInserted,
		RowsSkipped:  stats.RowsSkipped,
	}, nil
}

func persistenceError(operation string, err error) error {
	if errors.Is(err, ingest.ErrPersistence) {
		return err
	}
	return ingest.Wrap(ingest.ErrPersistence, "sink", operation, "", err)
}
