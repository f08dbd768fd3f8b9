package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"report2csv/internal/ingest"
	"report2csv/internal/logging"
)

// ErrBatchRunning is returned when Run is called while a batch is in flight.
var ErrBatchRunning = errors.New("a batch is already running")

const defaultWorkers = 4

// Processor runs one job to completion.
type Processor interface {
	Process(ctx context.Context, job ingest.Job) (ingest.ExtractionResult, error)
}

// ProcessorFunc adapts a function to Processor.
type ProcessorFunc func(ctx context.Context, job ingest.Job) (ingest.ExtractionResult, error)

func (f ProcessorFunc) Process(ctx context.Context, job ingest.Job) (ingest.ExtractionResult, error) {
	return f(ctx, job)
}

// Dispatcher schedules batches of jobs.
type Dispatcher struct {
	processor Processor
	workers   int
	timeout   time.Duration
	section   *CriticalSection
	logger    *slog.Logger
	now       func() time.Time
	running   atomic.Bool
}

// Option customizes a Dispatcher.
type Option func(*Dispatcher)

// WithWorkers sets the pool size. Values below one select the default.
func WithWorkers(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.workers = n
		}
	}
}

// WithJobTimeout abandons jobs that run longer than timeout. Zero disables it.
func WithJobTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) { d.timeout = timeout }
}

// WithCriticalSection shares section with the caller.
func WithCriticalSection(section *CriticalSection) Option {
	return func(d *Dispatcher) {
		if section != nil {
			d.section = section
		}
	}
}

// New constructs a dispatcher around processor.
func New(processor Processor, logger *slog.Logger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		processor: processor,
		workers:   defaultWorkers,
		section:   NewCriticalSection(),
		logger:    logging.NewComponentLogger(logger, "dispatch"),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// NewJobs numbers files 1..N in order and applies stage to each.
func NewJobs(stage string, files []string) []ingest.Job {
	jobs := make([]ingest.Job, len(files))
	for i, file := range files {
		jobs[i] = ingest.Job{SequenceNo: i + 1, File: file, Stage: stage}
	}
	return jobs
}

// Section exposes the dispatcher's critical section.
func (d *Dispatcher) Section() *CriticalSection {
	return d.section
}

// Running reports whether a batch is in flight.
func (d *Dispatcher) Running() bool {
	return d.running.Load()
}

// Run starts jobs and returns immediately. Events are delivered on the
// batch's channel, which is closed once every job has reached a terminal
// state. Only one batch may run at a time.
func (d *Dispatcher) Run(ctx context.Context, jobs []ingest.Job) (*Batch, error) {
	if !d.running.CompareAndSwap(false, true) {
		return nil, ErrBatchRunning
	}
	if ctx == nil {
		ctx = context.Background()
	}

	batch := newBatch(uuid.NewString(), len(jobs))
	ctx = ingest.WithBatchID(ctx, batch.id)
	logging.WithContext(ctx, d.logger).Info("batch started",
		logging.String(logging.FieldEventType, "batch_started"),
		logging.Int("jobs", len(jobs)),
		logging.Int("workers", d.workers),
	)

	go func() {
		start := d.now()
		var g errgroup.Group
		g.SetLimit(d.workers)
		for _, job := range jobs {
			g.Go(func() error {
				d.runJob(ctx, batch, job)
				return nil
			})
		}
		_ = g.Wait()

		logging.WithContext(ctx, d.logger).Info("batch finished",
			logging.String(logging.FieldEventType, "batch_finished"),
			logging.Int("jobs", batch.total),
			logging.Int("failed", batch.Failed()),
			logging.Duration("elapsed", d.now().Sub(start)),
		)
		d.running.Store(false)
		batch.finish()
	}()
	return batch, nil
}

func (d *Dispatcher) runJob(ctx context.Context, batch *Batch, job ingest.Job) {
	ctx = ingest.WithJob(ctx, job)
	logger := logging.WithContext(ctx, d.logger)

	// Every job reports Started before its terminal event, including jobs
	// canceled while waiting for the section.
	if err := d.section.Enter(ctx); err != nil {
		d.start(logger, batch, job)
		d.fail(logger, batch, job, err)
		return
	}
	held := true
	defer func() {
		if held {
			d.section.Leave()
		}
	}()

	d.start(logger, batch, job)
	started := d.now()
	result, err := d.process(ctx, job)
	held = false
	d.section.Leave()

	if err != nil {
		d.fail(logger, batch, job, err)
		return
	}
	batch.completed.Add(1)
	batch.emit(Event{Kind: EventCompleted, SequenceNo: job.SequenceNo, File: job.File, Time: d.now(), Result: &result})
	logger.Info("job completed",
		logging.String(logging.FieldEventType, "job_completed"),
		logging.Int("rows", len(result.Rows)),
		logging.Duration("elapsed", d.now().Sub(started)),
	)
}

func (d *Dispatcher) start(logger *slog.Logger, batch *Batch, job ingest.Job) {
	batch.emit(Event{Kind: EventStarted, SequenceNo: job.SequenceNo, File: job.File, Time: d.now()})
	logger.Info("job started",
		logging.String(logging.FieldEventType, "job_started"),
		logging.String(logging.FieldStage, job.Stage),
	)
}

func (d *Dispatcher) fail(logger *slog.Logger, batch *Batch, job ingest.Job, err error) {
	kind := ingest.KindOf(err)
	batch.failed.Add(1)
	batch.completed.Add(1)
	batch.emit(Event{Kind: EventFailed, SequenceNo: job.SequenceNo, File: job.File, Time: d.now(), Err: err, Failure: kind})
	logging.ErrorWithContext(logger, "job failed", "job_failed",
		logging.Failure(err),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, hintFor(kind)),
	)
}

// process runs the processor, bounded by the job timeout when one is set.
// On expiry the processor goroutine is abandoned; its context is canceled so
// it stops before persisting.
func (d *Dispatcher) process(ctx context.Context, job ingest.Job) (ingest.ExtractionResult, error) {
	if d.timeout <= 0 {
		return d.processor.Process(ctx, job)
	}

	jobCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	type outcome struct {
		result ingest.ExtractionResult
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		result, err := d.processor.Process(jobCtx, job)
		done <- outcome{result: result, err: err}
	}()

	select {
	case out := <-done:
		if out.err != nil && errors.Is(out.err, context.DeadlineExceeded) && ctx.Err() == nil {
			return ingest.ExtractionResult{}, timeoutError(d.timeout, out.err)
		}
		return out.result, out.err
	case <-jobCtx.Done():
		if err := ctx.Err(); err != nil {
			return ingest.ExtractionResult{}, err
		}
		return ingest.ExtractionResult{}, timeoutError(d.timeout, jobCtx.Err())
	}
}

func timeoutError(timeout time.Duration, err error) error {
	return ingest.Wrap(ingest.ErrJobTimeout, "dispatch", "process", fmt.Sprintf("exceeded %s", timeout), err)
}

func hintFor(kind ingest.FailureKind) string {
	switch kind {
	case ingest.FailureUnsupportedFormat:
		return "file name must contain -88 or F32"
	case ingest.FailureCorruptWorkbook:
		return "re-save the workbook in Excel or check that it is not password protected"
	case ingest.FailureMissingSheet, ingest.FailureMalformedLayout:
		return "the workbook does not match the card template; check the source report"
	case ingest.FailurePersistence:
		return "check the output directory and database, then resubmit"
	case ingest.FailureIO:
		return "check that the file exists and is readable"
	case ingest.FailureTimeout:
		return "increase dispatch.job_timeout_seconds or inspect the workbook"
	case ingest.FailureCanceled:
		return "batch was canceled before the job finished"
	default:
		return "check logs for details"
	}
}
