package trigger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"leadmetrics/internal/store"
)

// Trigger issues one aggregation call per run.
type Trigger struct {
	agg store.Aggregator
	now func() time.Time
	log *slog.Logger
}

// Option configures a Trigger.
type Option func(*Trigger)

// WithClock overrides the wall clock used to resolve "yesterday".
func WithClock(now func() time.Time) Option {
	return func(t *Trigger) { t.now = now }
}

// New creates a Trigger that calls agg.
func New(agg store.Aggregator, log *slog.Logger, opts ...Option) *Trigger {
	t := &Trigger{agg: agg, now: time.Now, log: log}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Run parses args and executes the resulting intent. Nothing is called on
// the backend when args are invalid.
func (t *Trigger) Run(ctx context.Context, args []string) error {
	intent, err := ParseIntent(args, t.now())
	if err != nil {
		return err
	}
	return t.Execute(ctx, intent)
}

// Execute performs intent against the aggregation backend.
func (t *Trigger) Execute(ctx context.Context, intent Intent) error {
	t.log.Info("triggering metrics aggregation", "intent", intent.String())
	start := time.Now()

	var err error
	switch i := intent.(type) {
	case RunSingleDay:
		err = t.agg.RunDailyMetrics(ctx, i.Date)
	case Backfill:
		err = t.agg.BackfillLastNDays(ctx, i.Days)
	default:
		return fmt.Errorf("unknown intent %T", intent)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", intent, err)
	}

	t.log.Info("metrics aggregation complete",
		"intent", intent.String(),
		"elapsed", time.Since(start).Round(time.Millisecond).String(),
	)
	return nil
}
