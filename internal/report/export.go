// Package report produces the lead activity snapshot.
package report

import (
	"context"
	"fmt"
	"log/slog"

	"leadmetrics/internal/domain"
	"leadmetrics/internal/store"
)

// DefaultPreviewRows is how many rows are logged before writing.
const DefaultPreviewRows = 5

// Options controls Export.
type Options struct {
	// PreviewRows rows are logged at info level. Zero selects
	// DefaultPreviewRows; negative disables the preview.
	PreviewRows int
}

// Export reads the report from src and writes it to sink. It returns the
// number of rows written.
func Export(ctx context.Context, src store.LeadMetricSource, sink store.LeadMetricSink, opts Options, log *slog.Logger) (int, error) {
	rows, err := src.ReadLeadMetrics(ctx)
	if err != nil {
		return 0, fmt.Errorf("reading lead metrics: %w", err)
	}
	log.Info("fetched lead metrics", "rows", len(rows))

	preview(log, rows, opts.PreviewRows)

	if err := sink.WriteLeadMetrics(ctx, rows); err != nil {
		return 0, fmt.Errorf("writing lead metrics: %w", err)
	}

	log.Info("saved metrics", "path", sink.Location(), "rows", len(rows))
	return len(rows), nil
}

func preview(log *slog.Logger, rows []domain.LeadMetric, n int) {
	if n == 0 {
		n = DefaultPreviewRows
	}
	if n < 0 {
		return
	}
	if n > len(rows) {
		n = len(rows)
	}

	for _, m := range rows[:n] {
		log.Info("preview",
			"lead_id", m.LeadID,
			"created_at", m.CreatedAt.Format(store.TimestampLayout),
			"rep_name", m.Rep(),
			"interaction_count", m.InteractionCount,
		)
	}
}
