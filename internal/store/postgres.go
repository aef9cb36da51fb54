package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"leadmetrics/internal/domain"
)

// Compile-time interface checks.
var _ Aggregator = (*PostgresAggregator)(nil)
var _ LeadMetricSource = (*PostgresReports)(nil)

// Conn is the subset of *pgx.Conn used here.
type Conn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Close(ctx context.Context) error
}

// Dialer opens one dedicated connection. Each call must return a fresh
// connection that the caller closes.
type Dialer func(ctx context.Context) (Conn, error)

// PgxDialer returns a Dialer that opens a single pgx connection per call.
func PgxDialer(connString string) Dialer {
	return func(ctx context.Context) (Conn, error) {
		conn, err := pgx.Connect(ctx, connString)
		if err != nil {
			return nil, err
		}
		return conn, nil
	}
}

// ConnectivityError reports that the database could not be reached or
// rejected a statement. Op is "connect", "close" or the statement target.
type ConnectivityError struct {
	Op  string
	Err error
}

func (e *ConnectivityError) Error() string {
	return fmt.Sprintf("database %s: %v", e.Op, e.Err)
}

func (e *ConnectivityError) Unwrap() error { return e.Err }

// withConn acquires a connection, hands it to fn and closes it on every
// path. A close failure is only reported when fn succeeded.
func withConn(ctx context.Context, dial Dialer, fn func(Conn) error) (err error) {
	conn, err := dial(ctx)
	if err != nil {
		return &ConnectivityError{Op: "connect", Err: err}
	}
	defer func() {
		// Release even when ctx is already cancelled.
		cerr := conn.Close(context.WithoutCancel(ctx))
		if cerr != nil && err == nil {
			err = &ConnectivityError{Op: "close", Err: cerr}
		}
	}()

	return fn(conn)
}

// ---------------------------------------------------------------------------
// Aggregation procedures
// ---------------------------------------------------------------------------

// PostgresAggregator calls the metrics procedures stored in the database.
type PostgresAggregator struct {
	dial     Dialer
	daily    pgx.Identifier
	backfill pgx.Identifier
}

// NewPostgresAggregator returns an Aggregator that invokes
// schema.dailyProc(date) and schema.backfillProc(days).
func NewPostgresAggregator(dial Dialer, schema, dailyProc, backfillProc string) *PostgresAggregator {
	return &PostgresAggregator{
		dial:     dial,
		daily:    pgx.Identifier{schema, dailyProc},
		backfill: pgx.Identifier{schema, backfillProc},
	}
}

// RunDailyMetrics executes SELECT schema.daily($1::date).
func (a *PostgresAggregator) RunDailyMetrics(ctx context.Context, date domain.Date) error {
	return a.call(ctx, a.daily, "date", date.String())
}

// BackfillLastNDays executes SELECT schema.backfill($1::integer).
func (a *PostgresAggregator) BackfillLastNDays(ctx context.Context, days int) error {
	return a.call(ctx, a.backfill, "integer", days)
}

func (a *PostgresAggregator) call(ctx context.Context, proc pgx.Identifier, argType string, arg any) error {
	sql := fmt.Sprintf("SELECT %s($1::%s)", proc.Sanitize(), argType)

	return withConn(ctx, a.dial, func(conn Conn) error {
		if _, err := conn.Exec(ctx, sql, arg); err != nil {
			return &ConnectivityError{Op: procName(proc), Err: err}
		}
		return nil
	})
}

func procName(id pgx.Identifier) string {
	return strings.Join(id, ".")
}

// ---------------------------------------------------------------------------
// Lead activity report
// ---------------------------------------------------------------------------

const leadMetricsQuery = `
	SELECT
		l.lead_id,
		l.created_at,
		r.rep_name,
		COUNT(i.interaction_id) AS interaction_count
	FROM leads l
	LEFT JOIN reps r ON l.rep_id = r.rep_id
	LEFT JOIN interactions i ON l.lead_id = i.lead_id
	GROUP BY 1, 2, 3
	ORDER BY l.lead_id
`

// PostgresReports reads the lead activity report.
type PostgresReports struct {
	dial Dialer
}

// NewPostgresReports returns a LeadMetricSource backed by dial.
func NewPostgresReports(dial Dialer) *PostgresReports {
	return &PostgresReports{dial: dial}
}

// ReadLeadMetrics runs the report query over one connection.
func (r *PostgresReports) ReadLeadMetrics(ctx context.Context) ([]domain.LeadMetric, error) {
	var out []domain.LeadMetric

	err := withConn(ctx, r.dial, func(conn Conn) error {
		rows, err := conn.Query(ctx, leadMetricsQuery)
		if err != nil {
			return &ConnectivityError{Op: "lead metrics query", Err: err}
		}
		defer rows.Close()

		for rows.Next() {
			var (
				m   domain.LeadMetric
				rep pgtype.Text
			)
			if err := rows.Scan(&m.LeadID, &m.CreatedAt, &rep, &m.InteractionCount); err != nil {
				return fmt.Errorf("scanning lead metric: %w", err)
			}
			if rep.Valid {
				name := rep.String
				m.RepName = &name
			}
			out = append(out, m)
		}
		if err := rows.Err(); err != nil {
			return &ConnectivityError{Op: "lead metrics query", Err: err}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}
