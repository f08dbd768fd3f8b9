package store

import (
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"report2csv/internal/config"
)

type dialect struct {
	name       string
	driverName string
	builder    sq.StatementBuilderType
	identity   string
	float      string

	// Catalog lookups for user tables.
	catalogTable  string
	catalogName   string
	catalogFilter sq.Sqlizer
	internal      []string // tables hidden from listings
}

var (
	sqliteDialect = dialect{
		name:          config.DriverSQLite,
		driverName:    "sqlite",
		builder:       sq.StatementBuilder.PlaceholderFormat(sq.Question),
		identity:      "INTEGER PRIMARY KEY AUTOINCREMENT",
		float:         "REAL",
		catalogTable:  "sqlite_master",
		catalogName:   "name",
		catalogFilter: sq.Eq{"type": "table"},
		internal:      []string{"schema_version", "sqlite_sequence"},
	}
	postgresDialect = dialect{
		name:          config.DriverPostgres,
		driverName:    "pgx",
		builder:       sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
		identity:      "BIGSERIAL PRIMARY KEY",
		float:         "DOUBLE PRECISION",
		catalogTable:  "information_schema.tables",
		catalogName:   "table_name",
		catalogFilter: sq.Expr("table_schema = current_schema()"),
		internal:      []string{"schema_version"},
	}
)

func dialectFor(driver string) (dialect, error) {
	switch driver {
	case config.DriverSQLite:
		return sqliteDialect, nil
	case config.DriverPostgres:
		return postgresDialect, nil
	default:
		return dialect{}, fmt.Errorf("unsupported database driver %q", driver)
	}
}

// quoteIdent quotes a table name taken from user input (stage labels).
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (d dialect) stageTableDDL(table string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %[1]s (
    id %[2]s,
    sequence_no INTEGER NOT NULL,
    part_number TEXT NOT NULL,
    part_title TEXT NOT NULL,
    stage TEXT NOT NULL,
    category TEXT NOT NULL,
    type TEXT,
    code TEXT NOT NULL,
    point TEXT,
    upper_tolerance %[3]s,
    lower_tolerance %[3]s,
    part1 TEXT,
    part2 TEXT,
    part3 TEXT,
    part4 TEXT,
    source_file TEXT NOT NULL,
    imported_at TEXT NOT NULL
)`, quoteIdent(table), d.identity, d.float)
}

func (d dialect) summaryTableDDL(table string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %[1]s (
    id %[2]s,
    number TEXT NOT NULL,
    title TEXT NOT NULL,
    category TEXT NOT NULL,
    icmd %[3]s NOT NULL,
    icmc %[3]s NOT NULL,
    stage TEXT NOT NULL,
    date TEXT NOT NULL,
    file TEXT NOT NULL
)`, quoteIdent(table), d.identity, d.float)
}

// tableExistsQuery counts catalog entries named table.
func (d dialect) tableExistsQuery(table string) sq.SelectBuilder {
	return d.builder.Select("COUNT(1)").
		From(d.catalogTable).
		Where(d.catalogFilter).
		Where(sq.Eq{d.catalogName: table})
}

func (d dialect) listTablesQuery() sq.SelectBuilder {
	return d.builder.Select(d.catalogName).
		From(d.catalogTable).
		Where(d.catalogFilter).
		Where(sq.NotEq{d.catalogName: d.internal}).
		OrderBy(d.catalogName)
}

// resetStatements empty table and restart its id sequence.
func (d dialect) resetStatements(table string) []sq.Sqlizer {
	if d.name == config.DriverPostgres {
		return []sq.Sqlizer{sq.Expr("TRUNCATE TABLE " + quoteIdent(table) + " RESTART IDENTITY")}
	}
	return []sq.Sqlizer{
		d.builder.Delete(quoteIdent(table)),
		d.builder.Delete("sqlite_sequence").Where(sq.Eq{"name": table}),
	}
}
