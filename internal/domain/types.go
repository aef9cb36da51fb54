// Package domain defines the values that flow between the trigger, the
// aggregation backend and the export sinks.
package domain

import (
	"fmt"
	"time"
)

// DateLayout is the wire and display format for calendar dates.
const DateLayout = "2006-01-02"

// Date is a calendar date with no time-of-day or zone component.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf returns the calendar date of t in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("parsing date %q: %w", s, err)
	}
	return DateOf(t), nil
}

// Yesterday returns the calendar day before now's date.
func Yesterday(now time.Time) Date {
	return DateOf(now).AddDays(-1)
}

// AddDays returns d shifted by n days, normalising month and year
// boundaries.
func (d Date) AddDays(n int) Date {
	return DateOf(time.Date(d.Year, d.Month, d.Day+n, 0, 0, 0, 0, time.UTC))
}

// IsZero reports whether d is the zero Date.
func (d Date) IsZero() bool {
	return d == Date{}
}

// String formats d as YYYY-MM-DD.
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// LeadMetric is one row of the lead activity report: a lead, the rep it is
// assigned to (if any) and how many interactions it has.
type LeadMetric struct {
	LeadID           int64
	CreatedAt        time.Time
	RepName          *string // nil when the lead has no rep
	InteractionCount int64
}

// Rep returns the rep name or "" when unassigned.
func (m LeadMetric) Rep() string {
	if m.RepName == nil {
		return ""
	}
	return *m.RepName
}
