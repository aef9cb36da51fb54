package store

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"leadmetrics/internal/domain"
)

var _ LeadMetricSink = (*CSVSink)(nil)

// TimestampLayout is how created_at is rendered in text snapshots.
const TimestampLayout = "2006-01-02 15:04:05"

// leadMetricColumns is the header shared by every snapshot format.
var leadMetricColumns = []string{"lead_id", "created_at", "rep_name", "interaction_count"}

// CSVSink writes the report as a CSV file with a header row.
type CSVSink struct {
	Path string
}

// NewCSVSink creates a CSVSink writing to path.
func NewCSVSink(path string) *CSVSink {
	return &CSVSink{Path: path}
}

// Location returns the output path.
func (s *CSVSink) Location() string { return s.Path }

// WriteLeadMetrics truncates Path and writes rows. An unassigned rep is an
// empty field.
func (s *CSVSink) WriteLeadMetrics(_ context.Context, rows []domain.LeadMetric) error {
	if err := ensureParentDir(s.Path); err != nil {
		return err
	}

	f, err := os.Create(s.Path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", s.Path, err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(leadMetricColumns); err != nil {
		f.Close()
		return fmt.Errorf("writing csv header: %w", err)
	}
	for _, m := range rows {
		rec := []string{
			strconv.FormatInt(m.LeadID, 10),
			m.CreatedAt.Format(TimestampLayout),
			m.Rep(),
			strconv.FormatInt(m.InteractionCount, 10),
		}
		if err := w.Write(rec); err != nil {
			f.Close()
			return fmt.Errorf("writing lead %d: %w", m.LeadID, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("flushing %s: %w", s.Path, err)
	}

	return f.Close()
}

func ensureParentDir(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}
	return nil
}
