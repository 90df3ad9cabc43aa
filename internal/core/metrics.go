package core

import (
	"context"

	"github.com/IvanShishkin/sigscan/pkg/models"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// scanMetrics are no-ops unless the host process installs a meter provider
type scanMetrics struct {
	files      metric.Int64Counter
	matches    metric.Int64Counter
	unreadable metric.Int64Counter
	bytes      metric.Int64Counter
	scans      metric.Int64Counter
}

func newScanMetrics() *scanMetrics {
	meter := otel.Meter("sigscan")
	files, _ := meter.Int64Counter("sigscan_files_scanned_total")
	matches, _ := meter.Int64Counter("sigscan_matches_total")
	unreadable, _ := meter.Int64Counter("sigscan_unreadable_files_total")
	bytes, _ := meter.Int64Counter("sigscan_bytes_hashed_total")
	scans, _ := meter.Int64Counter("sigscan_scans_total")
	return &scanMetrics{
		files:      files,
		matches:    matches,
		unreadable: unreadable,
		bytes:      bytes,
		scans:      scans,
	}
}

func (m *scanMetrics) recordVerdict(ctx context.Context, v models.Verdict, algorithm string) {
	attrs := metric.WithAttributes(attribute.String("algorithm", algorithm))
	m.files.Add(ctx, 1, attrs)
	m.bytes.Add(ctx, v.Size, attrs)
	switch {
	case v.Unreadable:
		m.unreadable.Add(ctx, 1, attrs)
	case v.Matched:
		m.matches.Add(ctx, 1, attrs)
	}
}

func (m *scanMetrics) recordScan(ctx context.Context, results *models.ScanResults) {
	m.scans.Add(ctx, 1, metric.WithAttributes(
		attribute.String("mode", string(results.Target.Mode)),
		attribute.Bool("cancelled", results.Cancelled),
		attribute.Bool("concurrent", results.Stats.Concurrent),
	))
}
