package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"leadmetrics/internal/domain"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// Compile-time interface checks.
var _ LeadMetricSink = (*SQLiteSink)(nil)

// SQLiteSink writes the report into the lead_metrics table of a SQLite
// database file. Other tables in the file are left alone.
type SQLiteSink struct {
	Path string
}

// NewSQLiteSink creates a SQLiteSink writing to the database at path.
func NewSQLiteSink(path string) *SQLiteSink {
	return &SQLiteSink{Path: path}
}

const (
	sqliteDropLeadMetrics   = `DROP TABLE IF EXISTS lead_metrics`
	sqliteCreateLeadMetrics = `
		CREATE TABLE lead_metrics (
			lead_id           INTEGER NOT NULL,
			created_at        TEXT    NOT NULL,
			rep_name          TEXT,
			interaction_count INTEGER NOT NULL
		)`
	sqliteInsertLeadMetric = `
		INSERT INTO lead_metrics (lead_id, created_at, rep_name, interaction_count)
		VALUES (?, ?, ?, ?)`
)

// Location returns the database path.
func (s *SQLiteSink) Location() string { return s.Path }

// WriteLeadMetrics recreates lead_metrics and fills it in one transaction,
// so readers see either the previous snapshot or the new one.
func (s *SQLiteSink) WriteLeadMetrics(ctx context.Context, rows []domain.LeadMetric) error {
	if err := ensureParentDir(s.Path); err != nil {
		return err
	}

	db, err := sql.Open("sqlite", s.Path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", s.Path, err)
	}
	defer db.Close()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() // no-op after Commit

	if _, err := tx.ExecContext(ctx, sqliteDropLeadMetrics); err != nil {
		return fmt.Errorf("dropping lead_metrics: %w", err)
	}
	if _, err := tx.ExecContext(ctx, sqliteCreateLeadMetrics); err != nil {
		return fmt.Errorf("creating lead_metrics: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, sqliteInsertLeadMetric)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, m := range rows {
		var rep any
		if m.RepName != nil {
			rep = *m.RepName
		}
		if _, err := stmt.ExecContext(ctx, m.LeadID, m.CreatedAt.UTC().Format(time.RFC3339), rep, m.InteractionCount); err != nil {
			return fmt.Errorf("inserting lead %d: %w", m.LeadID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing lead_metrics: %w", err)
	}
	return nil
}
