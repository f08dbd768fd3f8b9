package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"report2csv/internal/ingest"
	"report2csv/internal/logging"
)

// DateLayout is the text form of timestamps stored in both tables.
const DateLayout = "2006-01-02 15:04:05"

// AppendStats summarizes one Append call.
type AppendStats struct {
	StageTable   string
	RowsInserted int
	RowsSkipped  int
}

var stageColumns = []string{
	"sequence_no", "part_number", "part_title", "stage", "category",
	"type", "code", "point", "upper_tolerance", "lower_tolerance",
	"part1", "part2", "part3", "part4", "source_file", "imported_at",
}

var summaryColumns = []string{"number", "title", "category", "icmd", "icmc", "stage", "date", "file"}

// Append writes the measurement rows to the result's stage table and one row
// to the summary table in a single transaction. Rows that fail to bind or
// insert are logged and skipped; statement or connection failures roll the
// whole transaction back.
func (s *Store) Append(ctx context.Context, result ingest.ExtractionResult) (AppendStats, error) {
	ctx = ensureContext(ctx)
	table := strings.TrimSpace(result.Stage)
	if table == "" {
		return AppendStats{}, ingest.Wrap(ingest.ErrPersistence, "store", "append", "stage label is empty", nil)
	}
	if strings.EqualFold(table, s.summary) {
		return AppendStats{}, ingest.Wrap(ingest.ErrPersistence, "store", "append",
			fmt.Sprintf("stage %q collides with the summary table", table), nil)
	}
	if result.Timestamp.IsZero() {
		result.Timestamp = s.now()
	}

	var stats AppendStats
	err := retryOnBusy(ctx, func() error {
		var txErr error
		stats, txErr = s.appendTx(ctx, table, result)
		return txErr
	})
	if err != nil {
		return AppendStats{}, ingest.Wrap(ingest.ErrPersistence, "store", "append", result.SourceFile, err)
	}
	return stats, nil
}

func (s *Store) appendTx(ctx context.Context, table string, result ingest.ExtractionResult) (AppendStats, error) {
	logger := logging.WithContext(ctx, s.logger)
	stats := AppendStats{StageTable: table}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return stats, fmt.Errorf("begin append tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, s.dialect.stageTableDDL(table)); err != nil {
		return stats, fmt.Errorf("create stage table %s: %w", table, err)
	}
	if _, err := tx.ExecContext(ctx, s.dialect.summaryTableDDL(s.summary)); err != nil {
		return stats, fmt.Errorf("create summary table %s: %w", s.summary, err)
	}

	importedAt := result.Timestamp.Format(DateLayout)
	for i, row := range result.Rows {
		values, bindErr := bindRow(result, row, importedAt)
		if bindErr != nil {
			stats.RowsSkipped++
			logging.WarnWithContext(logger, "measurement row skipped", "row_skipped",
				logging.Int("row", i+1),
				logging.String("code", row.Code),
				logging.Error(bindErr),
				logging.String(logging.FieldErrorHint, "fix the tolerance cell in the source report and resubmit"),
			)
			continue
		}

		if err := ctx.Err(); err != nil {
			return stats, err
		}

		savepoint := fmt.Sprintf("sp_%d", i)
		if _, err := tx.ExecContext(ctx, "SAVEPOINT "+savepoint); err != nil {
			return stats, fmt.Errorf("create savepoint at row %d: %w", i+1, err)
		}
		insert := s.dialect.builder.Insert(quoteIdent(table)).Columns(stageColumns...).Values(values...)
		if _, err := execSqlizer(ctx, tx, insert); err != nil {
			if _, rbErr := tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+savepoint); rbErr != nil {
				return stats, fmt.Errorf("rollback savepoint at row %d: %w", i+1, rbErr)
			}
			stats.RowsSkipped++
			logging.WarnWithContext(logger, "measurement row rejected", "row_skipped",
				logging.Int("row", i+1),
				logging.String("code", row.Code),
				logging.Error(err),
			)
			continue
		}
		if _, err := tx.ExecContext(ctx, "RELEASE SAVEPOINT "+savepoint); err != nil {
			return stats, fmt.Errorf("release savepoint at row %d: %w", i+1, err)
		}
		stats.RowsInserted++
	}

	summary := s.dialect.builder.Insert(quoteIdent(s.summary)).Columns(summaryColumns...).Values(
		result.PartNumber,
		result.PartTitle,
		result.Category,
		result.ICMD,
		result.ICMC,
		result.Stage,
		importedAt,
		result.SourceFile,
	)
	if _, err := execSqlizer(ctx, tx, summary); err != nil {
		return stats, fmt.Errorf("append summary row: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return stats, fmt.Errorf("commit append: %w", err)
	}

	logger.Info("result appended",
		logging.String(logging.FieldEventType, "summary_appended"),
		logging.String("table", table),
		logging.Int("rows_inserted", stats.RowsInserted),
		logging.Int("rows_skipped", stats.RowsSkipped),
	)
	return stats, nil
}

// bindRow converts a measurement row into insert values in stageColumns order.
func bindRow(result ingest.ExtractionResult, row ingest.MeasurementRow, importedAt string) ([]any, error) {
	upper, err := nullableMeasure(row.UpperTolerance)
	if err != nil {
		return nil, fmt.Errorf("upper tolerance: %w", err)
	}
	lower, err := nullableMeasure(row.LowerTolerance)
	if err != nil {
		return nil, fmt.Errorf("lower tolerance: %w", err)
	}
	values := []any{
		result.SequenceNo,
		result.PartNumber,
		result.PartTitle,
		result.Stage,
		result.Category,
		nullableString(row.Type),
		row.Code,
		nullableString(row.Point),
		upper,
		lower,
	}
	for _, part := range row.Parts {
		if part == nil {
			values = append(values, sql.NullString{})
			continue
		}
		values = append(values, *part)
	}
	return append(values, result.SourceFile, importedAt), nil
}

func nullableMeasure(m ingest.Measure) (sql.NullFloat64, error) {
	value, ok, err := m.Float()
	if err != nil {
		return sql.NullFloat64{}, err
	}
	return sql.NullFloat64{Float64: value, Valid: ok}, nil
}

func nullableString(value string) sql.NullString {
	if value == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: value, Valid: true}
}

// ParseDate reads a stored timestamp back into local time.
func ParseDate(value string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, value, time.Local)
}
