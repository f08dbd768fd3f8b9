package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the current schema version. Bump this when the table
// layouts change; older databases must be cleared or deleted.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database was created by another layout version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

func (s *Store) initSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range splitStatements(schemaSQL) {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}

	query, args, err := s.dialect.builder.Select("version").From("schema_version").Limit(1).ToSql()
	if err != nil {
		return fmt.Errorf("build version query: %w", err)
	}
	var version int
	switch err := tx.QueryRowContext(ctx, query, args...).Scan(&version); {
	case err == nil:
		if version != schemaVersion {
			return fmt.Errorf("%w: database has version %d, expected %d (run 'report2csv admin delete-db' or point database.file elsewhere)",
				ErrSchemaMismatch, version, schemaVersion)
		}
	case errors.Is(err, sql.ErrNoRows):
		insert := s.dialect.builder.Insert("schema_version").Columns("version").Values(schemaVersion)
		if _, err := execSqlizer(ctx, tx, insert); err != nil {
			return fmt.Errorf("record schema version: %w", err)
		}
	default:
		return fmt.Errorf("read schema version: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

func splitStatements(script string) []string {
	var out []string
	for _, stmt := range strings.Split(script, ";") {
		if stmt = strings.TrimSpace(stmt); stmt != "" {
			out = append(out, stmt)
		}
	}
	return out
}
