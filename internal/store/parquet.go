package store

import (
	"context"
	"fmt"
	"time"

	"github.com/parquet-go/parquet-go"

	"leadmetrics/internal/domain"
)

// Compile-time interface checks.
var _ LeadMetricSink = (*ParquetSink)(nil)

// ParquetSink writes the report as a single Parquet file.
type ParquetSink struct {
	Path string
}

// NewParquetSink creates a ParquetSink writing to path.
func NewParquetSink(path string) *ParquetSink {
	return &ParquetSink{Path: path}
}

// ---------------------------------------------------------------------------
// Parquet record types (on-disk schema)
// ---------------------------------------------------------------------------

// LeadMetricRecord is the Parquet schema for one report row.
type LeadMetricRecord struct {
	LeadID           int64   `parquet:"lead_id"`
	CreatedAt        int64   `parquet:"created_at,timestamp(millisecond)"` // Unix ms
	RepName          *string `parquet:"rep_name"`                          // nil = NULL
	InteractionCount int64   `parquet:"interaction_count"`
}

// Location returns the output path.
func (s *ParquetSink) Location() string { return s.Path }

// WriteLeadMetrics replaces Path with rows.
func (s *ParquetSink) WriteLeadMetrics(_ context.Context, rows []domain.LeadMetric) error {
	records := make([]LeadMetricRecord, 0, len(rows))
	for _, m := range rows {
		records = append(records, toRecord(m))
	}

	if err := writeParquetFile(s.Path, records); err != nil {
		return fmt.Errorf("writing %s: %w", s.Path, err)
	}
	return nil
}

// ReadLeadMetricsFile loads a snapshot written by ParquetSink.
func ReadLeadMetricsFile(path string) ([]domain.LeadMetric, error) {
	records, err := readParquetFile[LeadMetricRecord](path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	out := make([]domain.LeadMetric, 0, len(records))
	for _, r := range records {
		out = append(out, fromRecord(r))
	}
	return out, nil
}

func toRecord(m domain.LeadMetric) LeadMetricRecord {
	return LeadMetricRecord{
		LeadID:           m.LeadID,
		CreatedAt:        m.CreatedAt.UnixMilli(),
		RepName:          m.RepName,
		InteractionCount: m.InteractionCount,
	}
}

func fromRecord(r LeadMetricRecord) domain.LeadMetric {
	return domain.LeadMetric{
		LeadID:           r.LeadID,
		CreatedAt:        time.UnixMilli(r.CreatedAt).UTC(),
		RepName:          r.RepName,
		InteractionCount: r.InteractionCount,
	}
}

// ---------------------------------------------------------------------------
// Parquet file helpers
// ---------------------------------------------------------------------------

func writeParquetFile[T any](path string, records []T) error {
	if err := ensureParentDir(path); err != nil {
		return err
	}
	return parquet.WriteFile(path, records)
}

func readParquetFile[T any](path string) ([]T, error) {
	rows, err := parquet.ReadFile[T](path)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
