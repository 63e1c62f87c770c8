package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"platereader/internal/config"
	apierrors "platereader/internal/errors"
	"platereader/internal/infrastructure"
	"platereader/internal/mic"
	"platereader/pkg/contracts/domain"
)

const (
	// OutcomeSkipped marks fits that were not attempted because fitting is off.
	OutcomeSkipped mic.Outcome = "skipped"
	// OutcomeFailed marks fits of a group whose analysis panicked.
	OutcomeFailed mic.Outcome = "failed"
)

// MICParams configures the dose-response batch.
type MICParams struct {
	// MinimumOD is both the quality-gate OD range and the normalization anchor.
	MinimumOD      float64
	ODThreshold    float64
	MaxEvaluations int
	Stacked        bool
	SkipFitting    bool
}

// MICParamsFromConfig copies the mic section of the configuration
func MICParamsFromConfig(cfg config.MICConfig) MICParams {
	return MICParams{
		MinimumOD:      cfg.MinimumOD,
		ODThreshold:    cfg.ODThreshold,
		MaxEvaluations: cfg.MaxEvaluations,
		Stacked:        cfg.Stacked,
		SkipFitting:    cfg.SkipFitting,
	}
}

// FitOptions returns the options both curve fits run with.
func (p MICParams) FitOptions() mic.FitOptions {
	return mic.FitOptions{
		Estimate:       true,
		Sanity:         domain.Some(p.MinimumOD),
		Normalise:      domain.Some(p.MinimumOD),
		MaxEvaluations: p.MaxEvaluations,
	}
}

// MICRow is the result for one dose-response curve.
type MICRow struct {
	Key       domain.DoseKey      `json:"key"`
	Hill      mic.FitResult       `json:"hill"`
	Gompertz  mic.GompertzResult  `json:"gompertz"`
	Classical mic.ClassicalResult `json:"classical"`
	Curve     mic.Curve           `json:"-"`
}

// MIC is the Gompertz estimate.
func (r MICRow) MIC() domain.Float { return r.Gompertz.MIC }

// CMIC is the threshold estimate.
func (r MICRow) CMIC() domain.Float { return r.Classical.MIC }

// Err joins the per-model errors of the row, nil when both fits succeeded.
func (r MICRow) Err() error {
	if r.Hill.Outcome == OutcomeFailed {
		return r.Hill.Err
	}
	return errors.Join(r.Hill.Err, r.Gompertz.Err)
}

// MICReport is the outcome of one batch.
type MICReport struct {
	RunID string   `json:"run_id"`
	Rows  []MICRow `json:"rows"`
}

// MICCalculator estimates IC50 and MIC for every curve of an experiment.
type MICCalculator struct {
	params  MICParams
	fitter  *mic.Fitter
	logger  *slog.Logger
	workers int
	metrics *Metrics
}

// NewMICCalculator creates a calculator with one worker per CPU
func NewMICCalculator(params MICParams, logger *slog.Logger) *MICCalculator {
	if logger == nil {
		logger = slog.Default()
	}
	return &MICCalculator{
		params: params,
		fitter: mic.NewFitter(logger),
		logger: infrastructure.WithComponent(logger, "mic_calculator"),
	}
}

// SetConfiguration sets the worker pool size and the metrics sink
func (c *MICCalculator) SetConfiguration(workers int, metrics *Metrics) {
	c.workers = workers
	c.metrics = metrics
}

// Calculate groups readings into curves and analyses each one.
func (c *MICCalculator) Calculate(ctx context.Context, readings []domain.Reading) (*MICReport, error) {
	if len(readings) == 0 {
		return nil, apierrors.NewDataInsufficientError("no readings to analyse")
	}
	if c.params.ODThreshold <= 0 {
		return nil, apierrors.NewAppValidationError(fmt.Sprintf("od threshold must be positive: %g", c.params.ODThreshold))
	}

	runID := uuid.New().String()
	if infrastructure.GetTraceID(ctx) == "" {
		ctx = infrastructure.WithTraceID(ctx, runID)
	}
	start := time.Now()

	groups, keys := GroupDoses(readings, c.params.Stacked)
	c.logger.InfoContext(ctx, "starting MIC calculation",
		slog.String("run_id", runID),
		slog.Int("readings", len(readings)),
		slog.Int("curves", len(keys)),
		slog.Bool("stacked", c.params.Stacked),
		slog.Bool("skip_fitting", c.params.SkipFitting),
	)

	results, err := runGroups(ctx, c.workers, keys, func(ctx context.Context, key domain.DoseKey) MICRow {
		return c.analyse(ctx, key, mic.CurveFromReadings(groups[key]))
	}, func(key domain.DoseKey, err error) MICRow {
		c.logger.ErrorContext(ctx, "curve analysis failed",
			slog.String("group", key.String()),
			slog.String("error", err.Error()))
		return failedMICRow(key, mic.CurveFromReadings(groups[key]), err)
	})
	if err != nil {
		return nil, fmt.Errorf("mic calculation: %w", err)
	}

	report := &MICReport{RunID: runID, Rows: make([]MICRow, 0, len(keys))}
	failed := 0
	for _, key := range keys {
		row := results[key]
		if row.Err() != nil {
			failed++
		}
		report.Rows = append(report.Rows, row)
	}

	c.logger.InfoContext(ctx, "MIC calculation complete",
		slog.String("run_id", runID),
		slog.Int("curves", len(report.Rows)),
		slog.Int("failed", failed),
		slog.Duration("duration", time.Since(start)),
	)
	return report, nil
}

// failedMICRow reports err for both fits; the classical MIC stays undefined.
func failedMICRow(key domain.DoseKey, curve mic.Curve, err error) MICRow {
	failed := mic.FitResult{Outcome: OutcomeFailed, Err: err}
	return MICRow{
		Key:      key,
		Curve:    curve,
		Hill:     failed,
		Gompertz: mic.GompertzResult{FitResult: failed},
	}
}

func (c *MICCalculator) analyse(ctx context.Context, key domain.DoseKey, curve mic.Curve) MICRow {
	start := time.Now()
	row := MICRow{
		Key:       key,
		Curve:     curve,
		Classical: mic.ClassicalMIC(curve, c.params.ODThreshold, domain.Some(c.params.MinimumOD)),
	}

	if c.params.SkipFitting {
		row.Hill = mic.FitResult{Outcome: OutcomeSkipped}
		row.Gompertz = mic.GompertzResult{FitResult: mic.FitResult{Outcome: OutcomeSkipped}}
	} else {
		fitter := c.fitter.With(slog.String("group", key.String()))
		opts := c.params.FitOptions()
		row.Gompertz = fitter.Gompertz(ctx, curve, opts)
		row.Hill = fitter.Hill(ctx, curve, opts)
		c.metrics.RecordFit(ctx, "gompertz", row.Gompertz.Outcome)
		c.metrics.RecordFit(ctx, "hill", row.Hill.Outcome)
	}

	c.metrics.RecordGroup(ctx, "mic", time.Since(start))
	return row
}
