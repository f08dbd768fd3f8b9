package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"report2csv/internal/dispatch"
	"report2csv/internal/export"
	"report2csv/internal/fileutil"
	"report2csv/internal/ingest"
	"report2csv/internal/pipeline"
	"report2csv/internal/sink"
	"report2csv/internal/store"
	"report2csv/internal/workbook"
)

type jobResult struct {
	SequenceNo int     `json:"sequence_no"`
	File       string  `json:"file"`
	PartNumber string  `json:"part_number"`
	PartTitle  string  `json:"part_title"`
	Stage      string  `json:"stage"`
	ICMD       float64 `json:"icmd"`
	ICMC       float64 `json:"icmc"`
	Category   string  `json:"category"`
	Rows       int     `json:"rows"`
	Time       string  `json:"time"`
}

type jobFailure struct {
	SequenceNo int    `json:"sequence_no"`
	File       string `json:"file"`
	Kind       string `json:"kind"`
	Error      string `json:"error"`
}

type runReport struct {
	BatchID   string       `json:"batch_id"`
	Stage     string       `json:"stage"`
	Total     int          `json:"total"`
	Completed int          `json:"completed"`
	Failed    int          `json:"failed"`
	Results   []jobResult  `json:"results"`
	Failures  []jobFailure `json:"failures"`
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	var stageFlag string
	var workers int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "run <file-or-folder>...",
		Short: "Convert reports to CSV and append them to the database",
		Long: `Convert each report to <part title>.csv in the output directory and append
its rows to the stage table plus one row to the summary table.

Folders are searched recursively for *.xls* files. Files run concurrently but
one at a time inside the extract-and-persist step.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			stage, err := cfg.ResolveStage(stageFlag)
			if err != nil {
				return err
			}
			files, err := fileutil.FindReports(args)
			if err != nil {
				return err
			}
			if len(files) == 0 {
				return errors.New("no report files found")
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			if workers <= 0 {
				workers = cfg.Dispatch.Workers
			}

			var report runReport
			err = ctx.withRunLock(func() error {
				return ctx.withStore(func(st *store.Store) error {
					persister := sink.New(export.NewWriter(cfg, logger), st, logger)
					proc := pipeline.New(workbook.NewLoader(logger), persister, logger)

					opts := []dispatch.Option{dispatch.WithWorkers(workers)}
					if cfg.Dispatch.JobTimeoutSeconds > 0 {
						opts = append(opts, dispatch.WithJobTimeout(time.Duration(cfg.Dispatch.JobTimeoutSeconds)*time.Second))
					}
					dispatcher := dispatch.New(proc, logger, opts...)

					batch, err := dispatcher.Run(cmd.Context(), dispatch.NewJobs(stage, files))
					if err != nil {
						return err
					}
					report = consumeBatch(cmd, batch, stage, jsonOutput)
					return nil
				})
			})
			if err != nil {
				return err
			}

			if jsonOutput {
				if err := writeJSON(cmd, report); err != nil {
					return err
				}
			} else {
				printRunReport(cmd, report)
			}
			if report.Failed > 0 {
				return fmt.Errorf("%d of %d reports failed", report.Failed, report.Total)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&stageFlag, "stage", "s", "", "Stage label (defaults to stages.default)")
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "Worker pool size (defaults to dispatch.workers)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the batch report as JSON")
	return cmd
}

// consumeBatch drains the event stream, printing a progress line per event
// unless JSON output was requested.
func consumeBatch(cmd *cobra.Command, batch *dispatch.Batch, stage string, quiet bool) runReport {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)

	report := runReport{
		BatchID:  batch.ID(),
		Stage:    stage,
		Total:    batch.Total(),
		Results:  []jobResult{},
		Failures: []jobFailure{},
	}
	for ev := range batch.Events() {
		if !quiet {
			fmt.Fprintln(out, renderEvent(ev, batch.Total(), colorize))
		}
		switch ev.Kind {
		case dispatch.EventCompleted:
			if ev.Result != nil {
				report.Results = append(report.Results, resultFor(*ev.Result))
			}
		case dispatch.EventFailed:
			failure := jobFailure{SequenceNo: ev.SequenceNo, File: ev.File, Kind: string(ev.Failure)}
			if ev.Err != nil {
				failure.Error = ev.Err.Error()
			}
			report.Failures = append(report.Failures, failure)
		}
	}
	batch.Wait()

	sort.Slice(report.Results, func(i, j int) bool { return report.Results[i].SequenceNo < report.Results[j].SequenceNo })
	sort.Slice(report.Failures, func(i, j int) bool { return report.Failures[i].SequenceNo < report.Failures[j].SequenceNo })
	report.Completed = batch.Completed() - batch.Failed()
	report.Failed = batch.Failed()
	return report
}

func resultFor(res ingest.ExtractionResult) jobResult {
	return jobResult{
		SequenceNo: res.SequenceNo,
		File:       res.SourceFile,
		PartNumber: res.PartNumber,
		PartTitle:  res.PartTitle,
		Stage:      res.Stage,
		ICMD:       res.ICMD,
		ICMC:       res.ICMC,
		Category:   res.Category,
		Rows:       len(res.Rows),
		Time:       res.Timestamp.Format(store.DateLayout),
	}
}

func printRunReport(cmd *cobra.Command, report runReport) {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)

	if len(report.Results) > 0 {
		fmt.Fprintln(out)
		rows := make([][]string, 0, len(report.Results))
		for _, r := range report.Results {
			rows = append(rows, []string{
				strconv.Itoa(r.SequenceNo),
				r.PartNumber,
				r.PartTitle,
				r.Stage,
				ingest.FormatPercent(r.ICMD),
				ingest.FormatPercent(r.ICMC),
				r.Category,
				r.Time,
			})
		}
		headers := []string{"Seq", "Number", "Title", "Stage", "ICMD", "ICMC", "Category", "Time"}
		fmt.Fprintln(out, renderTable(headers, rows, alignments(len(headers), 0, 4, 5)))
	}

	if len(report.Failures) > 0 {
		fmt.Fprintln(out)
		for _, line := range renderSectionHeader("Failures", colorize) {
			fmt.Fprintln(out, line)
		}
		for _, f := range report.Failures {
			fmt.Fprintln(out, renderStatusLine(fmt.Sprintf("job #%d", f.SequenceNo), statusError,
				fmt.Sprintf("%s (%s)", filepath.Base(f.File), f.Kind), colorize))
		}
	}

	fmt.Fprintf(out, "\n%d/%d completed, %d failed (batch %s)\n", report.Completed, report.Total, report.Failed, report.BatchID)
}
