package store

import (
	"context"
	"fmt"

	"report2csv/internal/config"
	"report2csv/internal/fileutil"
	"report2csv/internal/logging"
)

// ClearStage deletes every row of a stage table and restarts its id counter.
// It returns the number of rows removed.
func (s *Store) ClearStage(ctx context.Context, stage string) (int64, error) {
	ctx = ensureContext(ctx)
	if stage == s.summary {
		return 0, fmt.Errorf("%q is the summary table; use DropSummary", stage)
	}

	var removed int64
	err := retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin clear tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		exists, err := s.tableExists(ctx, tx, stage)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("%w: %s", ErrTableNotFound, stage)
		}

		query, args, err := s.dialect.builder.Select("COUNT(1)").From(quoteIdent(stage)).ToSql()
		if err != nil {
			return fmt.Errorf("build count: %w", err)
		}
		if err := tx.QueryRowContext(ctx, query, args...).Scan(&removed); err != nil {
			return fmt.Errorf("count rows: %w", err)
		}
		for _, stmt := range s.dialect.resetStatements(stage) {
			if _, err := execSqlizer(ctx, tx, stmt); err != nil {
				return fmt.Errorf("clear stage %s: %w", stage, err)
			}
		}
		return tx.Commit()
	})
	if err != nil {
		return 0, err
	}
	s.logger.Info("stage table cleared",
		logging.String(logging.FieldEventType, "stage_cleared"),
		logging.String(logging.FieldStage, stage),
		logging.Int64("rows", removed),
	)
	return removed, nil
}

// DropSummary drops the summary table. The next Append recreates it.
func (s *Store) DropSummary(ctx context.Context) error {
	ctx = ensureContext(ctx)
	err := retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx, "DROP TABLE IF EXISTS "+quoteIdent(s.summary))
		return err
	})
	if err != nil {
		return fmt.Errorf("drop summary table: %w", err)
	}
	s.logger.Info("summary table dropped",
		logging.String(logging.FieldEventType, "summary_dropped"),
		logging.String("table", s.summary),
	)
	return nil
}

// DeleteDatabase removes the sqlite database file and its WAL companions.
// The store must be closed first. It reports whether the main file existed.
func DeleteDatabase(cfg *config.Config) (bool, error) {
	if cfg.Database.Driver != config.DriverSQLite {
		return false, fmt.Errorf("delete database is only supported for the %s driver", config.DriverSQLite)
	}
	path := cfg.DatabasePath()
	existed, err := fileutil.RemoveIfExists(path)
	if err != nil {
		return false, fmt.Errorf("remove %s: %w", path, err)
	}
	for _, suffix := range []string{"-wal", "-shm"} {
		if _, err := fileutil.RemoveIfExists(path + suffix); err != nil {
			return existed, fmt.Errorf("remove %s: %w", path+suffix, err)
		}
	}
	return existed, nil
}
