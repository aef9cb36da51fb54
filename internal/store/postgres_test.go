package store

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leadmetrics/internal/domain"
)

// mockDialer hands out the same pgxmock connection and counts dials.
func mockDialer(t *testing.T) (pgxmock.PgxConnIface, Dialer, *int) {
	t.Helper()
	mock, err := pgxmock.NewConn()
	require.NoError(t, err)

	dials := 0
	dial := func(context.Context) (Conn, error) {
		dials++
		return mock, nil
	}
	return mock, dial, &dials
}

func newDefaultAggregator(dial Dialer) *PostgresAggregator {
	return NewPostgresAggregator(dial, "metrics", "run_daily_metrics", "backfill_last_n_days")
}

func TestRunDailyMetrics(t *testing.T) {
	mock, dial, dials := mockDialer(t)

	mock.ExpectExec(regexp.QuoteMeta(`SELECT "metrics"."run_daily_metrics"($1::date)`)).
		WithArgs("2024-03-14").
		WillReturnResult(pgxmock.NewResult("SELECT", 1))
	mock.ExpectClose()

	agg := newDefaultAggregator(dial)
	err := agg.RunDailyMetrics(context.Background(), domain.Date{Year: 2024, Month: time.March, Day: 14})

	assert.NoError(t, err)
	assert.Equal(t, 1, *dials)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBackfillLastNDays(t *testing.T) {
	mock, dial, dials := mockDialer(t)

	mock.ExpectExec(regexp.QuoteMeta(`SELECT "metrics"."backfill_last_n_days"($1::integer)`)).
		WithArgs(7).
		WillReturnResult(pgxmock.NewResult("SELECT", 1))
	mock.ExpectClose()

	agg := newDefaultAggregator(dial)
	err := agg.BackfillLastNDays(context.Background(), 7)

	assert.NoError(t, err)
	assert.Equal(t, 1, *dials)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAggregatorQuotesConfiguredNames(t *testing.T) {
	mock, dial, _ := mockDialer(t)

	mock.ExpectExec(regexp.QuoteMeta(`SELECT "Reporting"."daily ""v2"""($1::date)`)).
		WithArgs("2024-01-01").
		WillReturnResult(pgxmock.NewResult("SELECT", 1))
	mock.ExpectClose()

	agg := NewPostgresAggregator(dial, "Reporting", `daily "v2"`, "backfill")
	err := agg.RunDailyMetrics(context.Background(), domain.Date{Year: 2024, Month: time.January, Day: 1})

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAggregatorProcedureFailureReleasesConnection(t *testing.T) {
	mock, dial, _ := mockDialer(t)
	rejected := errors.New(`function metrics.backfill_last_n_days(integer) does not exist`)

	mock.ExpectExec("backfill_last_n_days").
		WithArgs(30).
		WillReturnError(rejected)
	mock.ExpectClose()

	agg := newDefaultAggregator(dial)
	err := agg.BackfillLastNDays(context.Background(), 30)

	var cerr *ConnectivityError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "metrics.backfill_last_n_days", cerr.Op)
	assert.ErrorIs(t, err, rejected)
	assert.NoError(t, mock.ExpectationsWereMet(), "connection must be closed after a failed call")
}

func TestAggregatorConnectFailure(t *testing.T) {
	refused := errors.New("dial tcp 127.0.0.1:5432: connect: connection refused")
	dial := func(context.Context) (Conn, error) { return nil, refused }

	agg := newDefaultAggregator(dial)
	err := agg.RunDailyMetrics(context.Background(), domain.Date{Year: 2024, Month: time.March, Day: 14})

	var cerr *ConnectivityError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "connect", cerr.Op)
	assert.ErrorIs(t, err, refused)
}

func TestAggregatorCloseFailure(t *testing.T) {
	mock, dial, _ := mockDialer(t)
	broken := errors.New("broken pipe")

	mock.ExpectExec("run_daily_metrics").
		WithArgs("2024-03-14").
		WillReturnResult(pgxmock.NewResult("SELECT", 1))
	mock.ExpectClose().WillReturnError(broken)

	agg := newDefaultAggregator(dial)
	err := agg.RunDailyMetrics(context.Background(), domain.Date{Year: 2024, Month: time.March, Day: 14})

	var cerr *ConnectivityError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "close", cerr.Op)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAggregatorClosesWithCancelledContext(t *testing.T) {
	mock, dial, _ := mockDialer(t)

	mock.ExpectExec("run_daily_metrics").
		WithArgs("2024-03-14").
		WillReturnError(context.Canceled)
	mock.ExpectClose()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	agg := newDefaultAggregator(dial)
	err := agg.RunDailyMetrics(ctx, domain.Date{Year: 2024, Month: time.March, Day: 14})

	assert.ErrorIs(t, err, context.Canceled)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReadLeadMetrics(t *testing.T) {
	mock, dial, _ := mockDialer(t)
	created := time.Date(2024, 3, 1, 10, 15, 0, 0, time.UTC)

	rows := pgxmock.NewRows([]string{"lead_id", "created_at", "rep_name", "interaction_count"}).
		AddRow(int64(1), created, "Dana", int64(3)).
		AddRow(int64(2), created.Add(time.Hour), nil, int64(0))
	mock.ExpectQuery("FROM leads l").WillReturnRows(rows)
	mock.ExpectClose()

	got, err := NewPostgresReports(dial).ReadLeadMetrics(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, int64(1), got[0].LeadID)
	assert.Equal(t, created, got[0].CreatedAt)
	require.NotNil(t, got[0].RepName)
	assert.Equal(t, "Dana", *got[0].RepName)
	assert.Equal(t, int64(3), got[0].InteractionCount)

	assert.Equal(t, int64(2), got[1].LeadID)
	assert.Nil(t, got[1].RepName, "LEFT JOIN miss should stay NULL")
	assert.Equal(t, int64(0), got[1].InteractionCount)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReadLeadMetricsQueryFailure(t *testing.T) {
	mock, dial, _ := mockDialer(t)

	mock.ExpectQuery("FROM leads l").WillReturnError(errors.New(`relation "leads" does not exist`))
	mock.ExpectClose()

	got, err := NewPostgresReports(dial).ReadLeadMetrics(context.Background())

	var cerr *ConnectivityError
	require.ErrorAs(t, err, &cerr)
	assert.Nil(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}
