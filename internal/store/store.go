package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"report2csv/internal/config"
	"report2csv/internal/logging"
)

// Store owns the database handle shared by every job in a run.
type Store struct {
	db      *sql.DB
	dialect dialect
	path    string
	summary string
	logger  *slog.Logger
	now     func() time.Time
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// ErrTableNotFound reports an operation on a stage table that was never created.
var ErrTableNotFound = errors.New("table not found")

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

// Open connects to the configured database and prepares the schema version
// table. Stage and summary tables are created lazily by Append.
func Open(cfg *config.Config, logger *slog.Logger) (*Store, error) {
	d, err := dialectFor(cfg.Database.Driver)
	if err != nil {
		return nil, err
	}

	dsn := cfg.Database.DSN
	path := ""
	if d.name == config.DriverSQLite {
		if err := cfg.EnsureDirectories(); err != nil {
			return nil, fmt.Errorf("ensure directories: %w", err)
		}
		path = cfg.DatabasePath()
		dsn = path
	}

	db, err := sql.Open(d.driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s db: %w", d.name, err)
	}

	if d.name == config.DriverSQLite {
		// Pragmas apply per connection, so the pool holds exactly one.
		db.SetMaxOpenConns(1)
		pragmas := []string{
			"PRAGMA journal_mode=WAL",
			"PRAGMA busy_timeout = 5000",
		}
		for _, pragma := range pragmas {
			if _, execErr := db.Exec(pragma); execErr != nil {
				_ = db.Close()
				return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
			}
		}
	}

	s := &Store{
		db:      db,
		dialect: d,
		path:    path,
		summary: cfg.Database.SummaryTable,
		logger:  logging.NewComponentLogger(logger, "store"),
		now:     time.Now,
	}
	if err := s.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the sqlite database file, or "" for server backends.
func (s *Store) Path() string {
	return s.path
}

// SummaryTable returns the configured summary table name.
func (s *Store) SummaryTable() string {
	return s.summary
}

// SetClock overrides the time source used when a result carries no timestamp.
func (s *Store) SetClock(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func execSqlizer(ctx context.Context, db execer, stmt sq.Sqlizer) (sql.Result, error) {
	query, args, err := stmt.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build statement: %w", err)
	}
	return db.ExecContext(ctx, query, args...)
}

func (s *Store) tableExists(ctx context.Context, db execer, table string) (bool, error) {
	query, args, err := s.dialect.tableExistsQuery(table).ToSql()
	if err != nil {
		return false, fmt.Errorf("build table lookup: %w", err)
	}
	var count int
	if err := db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return false, fmt.Errorf("lookup table %s: %w", table, err)
	}
	return count > 0, nil
}
