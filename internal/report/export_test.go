package report

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"leadmetrics/internal/domain"
	"leadmetrics/internal/store"
)

type staticSource struct {
	rows  []domain.LeadMetric
	err   error
	reads int
}

func (s *staticSource) ReadLeadMetrics(context.Context) ([]domain.LeadMetric, error) {
	s.reads++
	return s.rows, s.err
}

type memorySink struct {
	written [][]domain.LeadMetric
	err     error
}

func (s *memorySink) WriteLeadMetrics(_ context.Context, rows []domain.LeadMetric) error {
	if s.err != nil {
		return s.err
	}
	s.written = append(s.written, rows)
	return nil
}

func (s *memorySink) Location() string { return "memory" }

func leads(n int) []domain.LeadMetric {
	out := make([]domain.LeadMetric, n)
	for i := range out {
		out[i] = domain.LeadMetric{
			LeadID:           int64(i + 1),
			CreatedAt:        time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i),
			InteractionCount: int64(i),
		}
	}
	return out
}

func captureLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewTextHandler(&buf, nil)), &buf
}

func TestExportWritesAllRows(t *testing.T) {
	src := &staticSource{rows: leads(8)}
	sink := &memorySink{}
	log, buf := captureLogger()

	n, err := Export(context.Background(), src, sink, Options{}, log)
	if err != nil {
		t.Fatalf("Export returned error: %v", err)
	}
	if n != 8 {
		t.Errorf("Export wrote %d rows, want 8", n)
	}
	if len(sink.written) != 1 || len(sink.written[0]) != 8 {
		t.Fatalf("sink received %v batches, want one batch of 8", len(sink.written))
	}

	out := buf.String()
	if got := strings.Count(out, "msg=preview"); got != DefaultPreviewRows {
		t.Errorf("preview lines = %d, want %d", got, DefaultPreviewRows)
	}
	if !strings.Contains(out, `msg="saved metrics" path=memory rows=8`) {
		t.Errorf("missing saved metrics line in %q", out)
	}
}

func TestExportPreviewLimits(t *testing.T) {
	tests := []struct {
		rows, preview, want int
	}{
		{3, 0, 3},
		{10, 2, 2},
		{10, -1, 0},
		{0, 5, 0},
	}

	for _, tt := range tests {
		log, buf := captureLogger()
		if _, err := Export(context.Background(), &staticSource{rows: leads(tt.rows)}, &memorySink{}, Options{PreviewRows: tt.preview}, log); err != nil {
			t.Fatalf("Export returned error: %v", err)
		}
		if got := strings.Count(buf.String(), "msg=preview"); got != tt.want {
			t.Errorf("rows=%d preview=%d: preview lines = %d, want %d", tt.rows, tt.preview, got, tt.want)
		}
	}
}

func TestExportSourceError(t *testing.T) {
	refused := &store.ConnectivityError{Op: "connect", Err: errors.New("connection refused")}
	sink := &memorySink{}
	log, _ := captureLogger()

	_, err := Export(context.Background(), &staticSource{err: refused}, sink, Options{}, log)

	var cerr *store.ConnectivityError
	if !errors.As(err, &cerr) {
		t.Fatalf("Export error = %v, want *store.ConnectivityError", err)
	}
	if len(sink.written) != 0 {
		t.Error("sink should not be written when the source fails")
	}
}

func TestExportSinkError(t *testing.T) {
	diskFull := errors.New("no space left on device")
	log, _ := captureLogger()

	_, err := Export(context.Background(), &staticSource{rows: leads(2)}, &memorySink{err: diskFull}, Options{}, log)
	if !errors.Is(err, diskFull) {
		t.Fatalf("Export error = %v, want %v", err, diskFull)
	}
}

func TestExportToCSVFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metrics_daily.csv")
	sink, err := store.NewSink("", path)
	if err != nil {
		t.Fatal(err)
	}
	log, _ := captureLogger()

	n, err := Export(context.Background(), &staticSource{rows: leads(4)}, sink, Options{}, log)
	if err != nil {
		t.Fatalf("Export returned error: %v", err)
	}
	if n != 4 {
		t.Errorf("Export wrote %d rows, want 4", n)
	}
}
