// Package store defines the boundaries to the systems that hold lead data:
// the database-resident aggregation procedures, the report query and the
// snapshot files the export writes.
package store

import (
	"context"

	"leadmetrics/internal/domain"
)

// Aggregator triggers metric computation on the aggregation backend. The
// caller only learns success or failure.
type Aggregator interface {
	// RunDailyMetrics computes metrics for a single calendar date.
	RunDailyMetrics(ctx context.Context, date domain.Date) error

	// BackfillLastNDays recomputes metrics for the trailing days window.
	BackfillLastNDays(ctx context.Context, days int) error
}

// LeadMetricSource reads the per-lead activity report.
type LeadMetricSource interface {
	// ReadLeadMetrics returns every lead ordered by lead ID.
	ReadLeadMetrics(ctx context.Context) ([]domain.LeadMetric, error)
}

// LeadMetricSink persists a full snapshot of the report, replacing any
// previous one at the same location.
type LeadMetricSink interface {
	// WriteLeadMetrics writes rows in order.
	WriteLeadMetrics(ctx context.Context, rows []domain.LeadMetric) error

	// Location describes where the snapshot ends up, for logging.
	Location() string
}
