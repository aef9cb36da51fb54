package store

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Snapshot formats accepted by NewSink.
const (
	FormatCSV     = "csv"
	FormatParquet = "parquet"
	FormatSQLite  = "sqlite"
)

// NewSink returns the sink for format, or infers the format from the
// extension of path when format is empty.
func NewSink(format, path string) (LeadMetricSink, error) {
	if path == "" {
		return nil, fmt.Errorf("export output path is empty")
	}
	if format == "" {
		format = formatFromExt(path)
	}

	switch strings.ToLower(format) {
	case FormatCSV:
		return NewCSVSink(path), nil
	case FormatParquet:
		return NewParquetSink(path), nil
	case FormatSQLite, "sqlite3", "db":
		return NewSQLiteSink(path), nil
	default:
		return nil, fmt.Errorf("unsupported export format %q for %s", format, path)
	}
}

func formatFromExt(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV
	case ".parquet":
		return FormatParquet
	case ".db", ".sqlite", ".sqlite3":
		return FormatSQLite
	default:
		return strings.TrimPrefix(filepath.Ext(path), ".")
	}
}
