// Package trigger turns a command line invocation into exactly one call to
// the metrics aggregation backend.
package trigger

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"leadmetrics/internal/domain"
)

// Intent is what an invocation asks for. It is either RunSingleDay or
// Backfill.
type Intent interface {
	fmt.Stringer
	isIntent()
}

// RunSingleDay computes metrics for one calendar date.
type RunSingleDay struct {
	Date domain.Date
}

// Backfill recomputes metrics for the trailing Days calendar days.
type Backfill struct {
	Days int
}

func (RunSingleDay) isIntent() {}
func (Backfill) isIntent()     {}

func (i RunSingleDay) String() string { return "run_daily_metrics(" + i.Date.String() + ")" }
func (i Backfill) String() string     { return "backfill_last_n_days(" + strconv.Itoa(i.Days) + ")" }

// MaxBackfillDays is the largest window the backend's integer parameter can
// carry.
const MaxBackfillDays = math.MaxInt32

// InvocationError reports arguments that do not map to an Intent.
type InvocationError struct {
	Args   []string
	Reason string
}

func (e *InvocationError) Error() string {
	return "invalid invocation: " + e.Reason
}

// Usage is the one-line synopsis printed with an InvocationError.
const Usage = "usage: metrics-trigger [days]\n" +
	"  no argument  compute metrics for yesterday\n" +
	"  days         recompute metrics for the last <days> days"

// ParseIntent resolves args (program name excluded) against now. It has no
// side effects.
func ParseIntent(args []string, now time.Time) (Intent, error) {
	switch len(args) {
	case 0:
		return RunSingleDay{Date: domain.Yesterday(now)}, nil
	case 1:
		days, err := parseDays(args[0])
		if err != nil {
			return nil, &InvocationError{Args: args, Reason: err.Error()}
		}
		return Backfill{Days: days}, nil
	default:
		return nil, &InvocationError{
			Args:   args,
			Reason: fmt.Sprintf("expected at most 1 argument, got %d", len(args)),
		}
	}
}

func parseDays(s string) (int, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("days %q is not an integer", s)
	}
	if n <= 0 {
		return 0, fmt.Errorf("days must be positive, got %d", n)
	}
	if n > MaxBackfillDays {
		return 0, fmt.Errorf("days %d exceeds %d", n, MaxBackfillDays)
	}
	return int(n), nil
}
