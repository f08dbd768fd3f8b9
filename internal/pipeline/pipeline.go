package pipeline

import (
	"context"
	"log/slog"
	"time"

	"report2csv/internal/extract"
	"report2csv/internal/ingest"
	"report2csv/internal/logging"
	"report2csv/internal/sink"
	"report2csv/internal/workbook"
)

// Opener opens a workbook by path.
type Opener interface {
	Open(path string) (workbook.Workbook, error)
}

// Persister stores a finished extraction.
type Persister interface {
	Persist(ctx context.Context, result ingest.ExtractionResult) (sink.Ack, error)
}

// Pipeline is the per-job processor handed to the dispatcher.
type Pipeline struct {
	opener    Opener
	persister Persister
	logger    *slog.Logger
	now       func() time.Time
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithClock overrides the extraction timestamp source.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		if now != nil {
			p.now = now
		}
	}
}

// New constructs a pipeline.
func New(opener Opener, persister Persister, logger *slog.Logger, opts ...Option) *Pipeline {
	p := &Pipeline{
		opener:    opener,
		persister: persister,
		logger:    logging.NewComponentLogger(logger, "pipeline"),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process runs job and returns the persisted result. The workbook is closed
// on every exit path.
func (p *Pipeline) Process(ctx context.Context, job ingest.Job) (ingest.ExtractionResult, error) {
	logger := logging.WithContext(ctx, p.logger)
	if err := ctx.Err(); err != nil {
		return ingest.ExtractionResult{}, err
	}

	report, err := ingest.NewReportFile(job.File)
	if err != nil {
		return ingest.ExtractionResult{}, err
	}
	extractor, err := extract.For(report.Kind)
	if err != nil {
		return ingest.ExtractionResult{}, err
	}

	result, err := p.extract(report, extractor)
	if err != nil {
		return ingest.ExtractionResult{}, err
	}
	result.SequenceNo = job.SequenceNo
	result.SourceFile = job.File
	result.Stage = job.Stage
	result.Timestamp = p.now()
	logger.Debug("workbook extracted",
		logging.String("card", report.Kind.String()),
		logging.Int("rows", len(result.Rows)),
	)

	// An abandoned job must not write after its deadline.
	if err := ctx.Err(); err != nil {
		return ingest.ExtractionResult{}, err
	}
	ack, err := p.persister.Persist(ctx, result)
	if err != nil {
		return ingest.ExtractionResult{}, err
	}
	logger.Debug("result persisted",
		logging.String("export", ack.ExportPath),
		logging.Int("rows_inserted", ack.RowsInserted),
		logging.Int("rows_skipped", ack.RowsSkipped),
	)
	return result, nil
}

func (p *Pipeline) extract(report ingest.ReportFile, extractor extract.Extractor) (ingest.ExtractionResult, error) {
	wb, err := p.opener.Open(report.Path)
	if err != nil {
		return ingest.ExtractionResult{}, err
	}
	defer wb.Close()
	return extractor.Extract(wb)
}
