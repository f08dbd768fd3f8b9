// Package store persists extraction results to a relational database.
//
// Every stage label owns a measurement table named after it; a single summary
// table (Total by default) receives one row per completed job. Both tables are
// created on demand inside the append transaction. Measurement rows are
// inserted under per-row savepoints so that a row the database rejects is
// skipped without aborting the surrounding transaction.
//
// SQLite (modernc.org/sqlite) is the default backend. PostgreSQL is reached
// through pgx's database/sql driver. Statements are assembled with squirrel so
// the placeholder style follows the dialect, and every spreadsheet-derived
// value is bound as a parameter.
//
// The summary table is append-only: resubmitting a report adds another row.
package store
