package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"platereader/internal/config"
	apierrors "platereader/internal/errors"
	"platereader/internal/grate"
	"platereader/internal/infrastructure"
	"platereader/pkg/contracts/domain"
)

// GrowthParams configures the growth-rate batch.
type GrowthParams struct {
	// MaximumOD drops readings at or above it, past the exponential phase.
	MaximumOD  float64
	Window     time.Duration
	TopMu      int
	MinPeriods int
}

// GrowthParamsFromConfig copies the grate section of the configuration
func GrowthParamsFromConfig(cfg config.GrateConfig) GrowthParams {
	return GrowthParams{
		MaximumOD:  cfg.MaximumOD,
		Window:     cfg.Window,
		TopMu:      cfg.TopMu,
		MinPeriods: cfg.MinPeriods,
	}
}

// GrowthRow is the result for one well.
type GrowthRow struct {
	Key     domain.WellKey `json:"key"`
	Grate   domain.Float   `json:"grate"`
	Drug    bool           `json:"drug"`
	Evolved string         `json:"evolved"`
	Delta   domain.Float   `json:"delta"`
	// Rates holds every window's estimate for plotting.
	Rates []grate.WindowRate `json:"rates,omitempty"`
	Curve grate.Curve        `json:"-"`
	// Err explains an undefined Grate; DeltaErr an undefined Delta of an evolved well.
	Err      error `json:"-"`
	DeltaErr error `json:"-"`
}

// GrowthReport is the outcome of one batch.
type GrowthReport struct {
	RunID string      `json:"run_id"`
	Rows  []GrowthRow `json:"rows"`
	// DeltaFailures lists the strains whose ancestral baseline is unusable.
	DeltaFailures map[string]error `json:"-"`
}

// GrowthCalculator estimates growth rates and ancestral deltas per well.
type GrowthCalculator struct {
	params  GrowthParams
	logger  *slog.Logger
	workers int
	metrics *Metrics
}

// NewGrowthCalculator creates a calculator with one worker per CPU
func NewGrowthCalculator(params GrowthParams, logger *slog.Logger) *GrowthCalculator {
	if logger == nil {
		logger = slog.Default()
	}
	return &GrowthCalculator{
		params: params,
		logger: infrastructure.WithComponent(logger, "growth_calculator"),
	}
}

// SetConfiguration sets the worker pool size and the metrics sink
func (c *GrowthCalculator) SetConfiguration(workers int, metrics *Metrics) {
	c.workers = workers
	c.metrics = metrics
}

func (c *GrowthCalculator) validate() error {
	switch {
	case c.params.Window <= 0:
		return apierrors.NewAppValidationError(fmt.Sprintf("window must be positive: %s", c.params.Window))
	case c.params.MinPeriods < 2:
		return apierrors.NewAppValidationError(fmt.Sprintf("min periods must be at least 2: %d", c.params.MinPeriods))
	case c.params.TopMu <= 0:
		return apierrors.NewAppValidationError(fmt.Sprintf("top mu must be positive: %d", c.params.TopMu))
	case c.params.MaximumOD <= 0:
		return apierrors.NewAppValidationError(fmt.Sprintf("maximum OD must be positive: %g", c.params.MaximumOD))
	}
	return nil
}

// Calculate trims saturated readings, estimates each well's growth rate and
// compares evolved wells with their strain's ancestral wells.
func (c *GrowthCalculator) Calculate(ctx context.Context, readings []domain.Reading) (*GrowthReport, error) {
	if err := c.validate(); err != nil {
		return nil, err
	}

	trimmed := make([]domain.Reading, 0, len(readings))
	for _, r := range readings {
		if r.OD600 < c.params.MaximumOD {
			trimmed = append(trimmed, r)
		}
	}
	if len(trimmed) == 0 {
		return nil, apierrors.NewDataInsufficientError(fmt.Sprintf("no readings below the maximum OD %g", c.params.MaximumOD))
	}

	runID := uuid.New().String()
	if infrastructure.GetTraceID(ctx) == "" {
		ctx = infrastructure.WithTraceID(ctx, runID)
	}
	start := time.Now()

	groups, keys := GroupWells(trimmed)
	c.logger.InfoContext(ctx, "starting growth rate calculation",
		slog.String("run_id", runID),
		slog.Int("readings", len(readings)),
		slog.Int("trimmed", len(readings)-len(trimmed)),
		slog.Int("wells", len(keys)),
		slog.Duration("window", c.params.Window),
	)

	results, err := runGroups(ctx, c.workers, keys, func(ctx context.Context, key domain.WellKey) GrowthRow {
		return c.analyse(ctx, key, grate.CurveFromReadings(groups[key]))
	}, func(key domain.WellKey, err error) GrowthRow {
		c.logger.ErrorContext(ctx, "well analysis failed",
			slog.String("well", key.String()),
			slog.String("error", err.Error()))
		return GrowthRow{
			Key:     key,
			Drug:    key.Concentration != 0,
			Evolved: grate.Evolved(key.Treatment),
			Err:     err,
		}
	})
	if err != nil {
		return nil, fmt.Errorf("growth rate calculation: %w", err)
	}

	report := &GrowthReport{RunID: runID, Rows: make([]GrowthRow, 0, len(keys))}
	strainRates := make([]grate.StrainRate, 0, len(keys))
	undefined := 0
	for _, key := range keys {
		row := results[key]
		if row.Err != nil {
			undefined++
		}
		report.Rows = append(report.Rows, row)
		strainRates = append(strainRates, grate.StrainRate{
			Strain:    key.Strain,
			Treatment: key.Treatment,
			Grate:     row.Grate,
		})
	}

	deltas, failures := grate.GrowthRateDelta(strainRates)
	for i := range report.Rows {
		row := &report.Rows[i]
		row.Delta = deltas[i]
		if err, ok := failures[row.Key.Strain]; ok && row.Key.Treatment != grate.Ancestral {
			row.DeltaErr = err
		}
	}
	for strain, err := range failures {
		c.logger.WarnContext(ctx, "could not compute growth rate delta",
			slog.String("strain", strain),
			slog.String("error", err.Error()),
		)
	}
	report.DeltaFailures = failures

	c.logger.InfoContext(ctx, "growth rate calculation complete",
		slog.String("run_id", runID),
		slog.Int("wells", len(report.Rows)),
		slog.Int("undefined", undefined),
		slog.Int("delta_failures", len(failures)),
		slog.Duration("duration", time.Since(start)),
	)
	return report, nil
}

// AnalyseCurve estimates the growth rate of a single curve. No delta is
// computed and readings at or above the maximum OD are kept.
func (c *GrowthCalculator) AnalyseCurve(ctx context.Context, curve grate.Curve) (GrowthRow, error) {
	if err := c.validate(); err != nil {
		return GrowthRow{}, err
	}
	if len(curve) == 0 {
		return GrowthRow{}, apierrors.NewDataInsufficientError("no samples to analyse")
	}
	return c.analyse(ctx, domain.WellKey{}, curve), nil
}

func (c *GrowthCalculator) analyse(ctx context.Context, key domain.WellKey, curve grate.Curve) GrowthRow {
	start := time.Now()
	defer func() { c.metrics.RecordGroup(ctx, "grate", time.Since(start)) }()

	row := GrowthRow{
		Key:     key,
		Drug:    key.Concentration != 0,
		Evolved: grate.Evolved(key.Treatment),
		Curve:   curve,
	}

	rates, err := grate.EstimateGrowthRate(curve, c.params.Window, c.params.MinPeriods)
	if err != nil {
		row.Err = err
		return row
	}
	row.Rates = rates
	row.Grate = grate.AggregateGrowthRate(rates, c.params.TopMu)
	if !row.Grate.Valid {
		row.Err = apierrors.NewDataInsufficientError(
			fmt.Sprintf("no %s window holds %d readings", c.params.Window, c.params.MinPeriods))
		c.logger.DebugContext(ctx, "growth rate undefined",
			slog.String("well", key.String()),
			slog.Int("readings", len(curve)),
		)
	}
	return row
}
