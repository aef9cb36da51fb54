// One-shot tool: dump the lead activity report (lead, rep, interaction
// count) into a snapshot file.
//
// Usage:
//
//	metrics-export
//
// The database is RENDER_DB_URL, or the PG_* settings when that is unset.
// The output defaults to metrics_daily.csv; METRICS_EXPORT_OUTPUT and
// METRICS_EXPORT_FORMAT select another path or a parquet/sqlite snapshot.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"leadmetrics/internal/config"
	"leadmetrics/internal/report"
	"leadmetrics/internal/store"
	"leadmetrics/internal/util"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], store.PgxDialer)
	cancel()

	if err != nil {
		fmt.Fprintf(os.Stderr, "metrics-export: %v\n", err)
		os.Exit(exitCode(err))
	}
}

func run(ctx context.Context, args []string, dialer func(connString string) store.Dialer) error {
	if len(args) > 0 {
		return &usageError{fmt.Sprintf("unexpected arguments %q; configure the export through the environment", args)}
	}

	if err := config.LoadEnvFile(".env"); err != nil {
		return err
	}

	cfg, err := config.Load(os.Getenv(config.EnvConfigPath))
	if err != nil {
		return err
	}
	if err := cfg.RequireExportDatabase(); err != nil {
		return err
	}

	sink, err := store.NewSink(cfg.Export.Format, cfg.Export.Output)
	if err != nil {
		return &config.ConfigurationError{Err: err}
	}

	logger := util.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	util.SetDefault(logger)

	logger.Info("running lead metrics export", "output", sink.Location())

	src := store.NewPostgresReports(dialer(cfg.Database.ExportConnString()))
	if _, err := report.Export(ctx, src, sink, report.Options{PreviewRows: cfg.Export.PreviewRows}, logger); err != nil {
		return err
	}

	slog.Info("done")
	return nil
}

type usageError struct{ msg string }

func (e *usageError) Error() string { return e.msg }

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var cerr *config.ConfigurationError
	var uerr *usageError
	if errors.As(err, &cerr) || errors.As(err, &uerr) {
		return 2
	}
	return 1
}
