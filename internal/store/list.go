package store

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
)

// StageRow is a persisted measurement row.
type StageRow struct {
	ID             int64      `json:"id"`
	SequenceNo     int        `json:"sequence_no"`
	PartNumber     string     `json:"part_number"`
	PartTitle      string     `json:"part_title"`
	Stage          string     `json:"stage"`
	Category       string     `json:"category"`
	Type           string     `json:"type"`
	Code           string     `json:"code"`
	Point          string     `json:"point"`
	UpperTolerance *float64   `json:"upper_tolerance"`
	LowerTolerance *float64   `json:"lower_tolerance"`
	Parts          [4]*string `json:"parts"`
	SourceFile     string     `json:"source_file"`
	ImportedAt     string     `json:"imported_at"`
}

// SummaryRow is one row of the summary table.
type SummaryRow struct {
	ID       int64   `json:"id"`
	Number   string  `json:"number"`
	Title    string  `json:"title"`
	Category string  `json:"category"`
	ICMD     float64 `json:"icmd"`
	ICMC     float64 `json:"icmc"`
	Stage    string  `json:"stage"`
	Date     string  `json:"date"`
	File     string  `json:"file"`
}

// TableInfo names a table and its row count.
type TableInfo struct {
	Name    string `json:"name"`
	Rows    int64  `json:"rows"`
	Summary bool   `json:"summary"`
}

// ListStage returns rows of a stage table in insertion order. limit <= 0
// returns every row.
func (s *Store) ListStage(ctx context.Context, stage string, limit int) ([]StageRow, error) {
	ctx = ensureContext(ctx)
	exists, err := s.tableExists(ctx, s.db, stage)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, stage)
	}

	q := s.dialect.builder.Select("id").Columns(stageColumns...).From(quoteIdent(stage)).OrderBy("id")
	q = withLimit(q, limit)
	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build stage query: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query stage %s: %w", stage, err)
	}
	defer rows.Close()

	var out []StageRow
	for rows.Next() {
		var (
			r            StageRow
			typ, point   sql.NullString
			upper, lower sql.NullFloat64
			parts        [4]sql.NullString
		)
		if err := rows.Scan(
			&r.ID, &r.SequenceNo, &r.PartNumber, &r.PartTitle, &r.Stage, &r.Category,
			&typ, &r.Code, &point, &upper, &lower,
			&parts[0], &parts[1], &parts[2], &parts[3],
			&r.SourceFile, &r.ImportedAt,
		); err != nil {
			return nil, fmt.Errorf("scan stage row: %w", err)
		}
		r.Type = typ.String
		r.Point = point.String
		r.UpperTolerance = floatPtr(upper)
		r.LowerTolerance = floatPtr(lower)
		for i, p := range parts {
			if p.Valid {
				value := p.String
				r.Parts[i] = &value
			}
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ListSummary returns summary rows, optionally filtered by stage, in
// insertion order. A missing summary table yields no rows.
func (s *Store) ListSummary(ctx context.Context, stage string, limit int) ([]SummaryRow, error) {
	ctx = ensureContext(ctx)
	exists, err := s.tableExists(ctx, s.db, s.summary)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, nil
	}

	q := s.dialect.builder.Select("id").Columns(summaryColumns...).From(quoteIdent(s.summary)).OrderBy("id")
	if stage != "" {
		q = q.Where(sq.Eq{"stage": stage})
	}
	q = withLimit(q, limit)
	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build summary query: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query summary: %w", err)
	}
	defer rows.Close()

	var out []SummaryRow
	for rows.Next() {
		var r SummaryRow
		if err := rows.Scan(&r.ID, &r.Number, &r.Title, &r.Category, &r.ICMD, &r.ICMC, &r.Stage, &r.Date, &r.File); err != nil {
			return nil, fmt.Errorf("scan summary row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Tables lists the stage tables and the summary table with row counts.
func (s *Store) Tables(ctx context.Context) ([]TableInfo, error) {
	ctx = ensureContext(ctx)
	query, args, err := s.dialect.listTablesQuery().ToSql()
	if err != nil {
		return nil, fmt.Errorf("build table listing: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan table name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]TableInfo, 0, len(names))
	for _, name := range names {
		count, args, err := s.dialect.builder.Select("COUNT(1)").From(quoteIdent(name)).ToSql()
		if err != nil {
			return nil, fmt.Errorf("build count: %w", err)
		}
		info := TableInfo{Name: name, Summary: name == s.summary}
		if err := s.db.QueryRowContext(ctx, count, args...).Scan(&info.Rows); err != nil {
			return nil, fmt.Errorf("count %s: %w", name, err)
		}
		out = append(out, info)
	}
	return out, nil
}

func withLimit(q sq.SelectBuilder, limit int) sq.SelectBuilder {
	if limit > 0 {
		return q.Limit(uint64(limit))
	}
	return q
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	value := v.Float64
	return &value
}
