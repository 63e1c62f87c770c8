package analysis

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"platereader/internal/mic"
)

// Metrics counts analysed groups and fit outcomes. A nil *Metrics records nothing.
type Metrics struct {
	groupsProcessed  metric.Int64Counter
	fitsDiscarded    metric.Int64Counter
	fitsNotConverged metric.Int64Counter
	fitDuration      metric.Float64Histogram
}

// NewMetrics registers the analysis instruments on meter
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	groups, err := meter.Int64Counter(
		"analysis_groups_processed_total",
		metric.WithDescription("Total number of curves analysed"),
	)
	if err != nil {
		return nil, err
	}

	discarded, err := meter.Int64Counter(
		"analysis_fits_discarded_total",
		metric.WithDescription("Total number of curve fits skipped by the quality gate"),
	)
	if err != nil {
		return nil, err
	}

	notConverged, err := meter.Int64Counter(
		"analysis_fits_not_converged_total",
		metric.WithDescription("Total number of curve fits that did not converge"),
	)
	if err != nil {
		return nil, err
	}

	duration, err := meter.Float64Histogram(
		"analysis_fit_duration_seconds",
		metric.WithDescription("Time spent analysing one curve"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		groupsProcessed:  groups,
		fitsDiscarded:    discarded,
		fitsNotConverged: notConverged,
		fitDuration:      duration,
	}, nil
}

// RecordGroup counts one analysed curve and its duration.
func (m *Metrics) RecordGroup(ctx context.Context, analysis string, elapsed time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("analysis", analysis))
	m.groupsProcessed.Add(ctx, 1, attrs)
	m.fitDuration.Record(ctx, elapsed.Seconds(), attrs)
}

// RecordFit counts discarded and non-converged fits of model.
func (m *Metrics) RecordFit(ctx context.Context, model string, outcome mic.Outcome) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("model", model))
	switch outcome {
	case mic.OutcomeDiscarded:
		m.fitsDiscarded.Add(ctx, 1, attrs)
	case mic.OutcomeNotConverged:
		m.fitsNotConverged.Add(ctx, 1, attrs)
	}
}
