package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"report2csv/internal/config"
	"report2csv/internal/fileutil"
	"report2csv/internal/ingest"
	"report2csv/internal/logging"
	"report2csv/internal/textutil"
)

// Writer renders extraction results as CSV files.
type Writer struct {
	dir           string
	headers       string
	includePrefix bool
	logger        *slog.Logger
}

// NewWriter builds a writer from the export and path settings in cfg.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Writer{
		dir:           cfg.Paths.OutputDir,
		headers:       cfg.Export.Headers,
		includePrefix: cfg.Export.IncludePrefix,
		logger:        logging.NewComponentLogger(logger, "export"),
	}
}

// Path returns the file a result is exported to.
func (w *Writer) Path(result ingest.ExtractionResult) string {
	fallback := fmt.Sprintf("report-%d", result.SequenceNo)
	return filepath.Join(w.dir, textutil.ExportBaseName(result.PartTitle, result.PartNumber, fallback)+".csv")
}

// Write encodes result and replaces the export file for its title. A done
// ctx leaves any existing export untouched.
func (w *Writer) Write(ctx context.Context, result ingest.ExtractionResult) (string, error) {
	data, err := w.Encode(result)
	if err != nil {
		return "", ingest.Wrap(ingest.ErrPersistence, "export", "encode", result.PartTitle, err)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	path := w.Path(result)
	if err := fileutil.WriteFileAtomic(path, data, 0o644); err != nil {
		return "", ingest.Wrap(ingest.ErrPersistence, "export", "write", path, err)
	}
	w.logger.Info("export written",
		logging.String(logging.FieldEventType, "export_written"),
		logging.String("path", path),
		logging.Int("rows", len(result.Rows)),
	)
	return path, nil
}

// Encode renders result as BOM-prefixed UTF-8 CSV.
func (w *Writer) Encode(result ingest.ExtractionResult) ([]byte, error) {
	var buf bytes.Buffer
	bom := transform.NewWriter(&buf, unicode.UTF8BOM.NewEncoder())
	cw := csv.NewWriter(bom)

	if err := cw.Write(Header(w.headers, w.includePrefix)); err != nil {
		return nil, err
	}
	prefix := []string{strconv.Itoa(result.SequenceNo), result.PartNumber, result.PartTitle, result.Stage}
	for _, row := range result.Rows {
		record := make([]string, 0, len(prefix)+9)
		if w.includePrefix {
			record = append(record, prefix...)
		}
		record = append(record, row.Type, row.Code, row.Point, string(row.UpperTolerance), string(row.LowerTolerance))
		for _, part := range row.Parts {
			if part == nil {
				record = append(record, "")
				continue
			}
			record = append(record, *part)
		}
		if err := cw.Write(record); err != nil {
			return nil, err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return nil, err
	}
	if err := bom.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
