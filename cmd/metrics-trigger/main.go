// One-shot trigger for the database-side metrics aggregation. Scheduling is
// left to cron or whatever invokes it.
//
// Usage:
//
//	metrics-trigger        # compute metrics for yesterday
//	metrics-trigger 30     # recompute the last 30 days
//
// Connection settings come from PG_HOST, PG_PORT, PG_DATABASE, PG_USER and
// PG_PASSWORD (optionally via .env or the YAML file named by METRICS_CONFIG).
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"leadmetrics/internal/config"
	"leadmetrics/internal/store"
	"leadmetrics/internal/trigger"
	"leadmetrics/internal/util"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], store.PgxDialer)
	cancel()

	if err != nil {
		fmt.Fprintf(os.Stderr, "metrics-trigger: %v\n", err)
		var ierr *trigger.InvocationError
		if errors.As(err, &ierr) {
			fmt.Fprintln(os.Stderr, trigger.Usage)
		}
		os.Exit(exitCode(err))
	}
}

// run loads configuration, then resolves args and makes the single backend
// call. Configuration problems are reported before any connection attempt.
func run(ctx context.Context, args []string, dialer func(connString string) store.Dialer, opts ...trigger.Option) error {
	if err := config.LoadEnvFile(".env"); err != nil {
		return err
	}

	cfg, err := config.Load(os.Getenv(config.EnvConfigPath))
	if err != nil {
		return err
	}
	if err := cfg.RequireDatabase(); err != nil {
		return err
	}

	logger := util.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	util.SetDefault(logger)

	agg := store.NewPostgresAggregator(
		dialer(cfg.Database.ConnString()),
		cfg.Metrics.Schema,
		cfg.Metrics.DailyProcedure,
		cfg.Metrics.BackfillProcedure,
	)

	return trigger.New(agg, logger, opts...).Run(ctx, args)
}

// exitCode maps configuration and invocation errors to 2 and every other
// failure to 1.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var cerr *config.ConfigurationError
	var ierr *trigger.InvocationError
	if errors.As(err, &cerr) || errors.As(err, &ierr) {
		return 2
	}
	return 1
}
