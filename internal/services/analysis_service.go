package services

import (
	"context"
	"log/slog"
	"time"

	"platereader/internal/analysis"
	"platereader/internal/config"
	apierrors "platereader/internal/errors"
	"platereader/internal/grate"
	"platereader/internal/infrastructure"
	"platereader/internal/mic"
	"platereader/pkg/contracts/domain"
)

// CurveOptions configures the analysis of one dose-response curve.
// Undefined Sanity or Normalise turn the quality gate or normalization off.
type CurveOptions struct {
	Threshold      domain.Float
	Sanity         domain.Float
	Normalise      domain.Float
	MaxEvaluations int
}

// CurveResult holds every estimate of one dose-response curve.
type CurveResult struct {
	Hill      mic.FitResult       `json:"hill"`
	Gompertz  mic.GompertzResult  `json:"gompertz"`
	Classical mic.ClassicalResult `json:"classical"`
	// Errors explains undefined estimates per model.
	Errors map[string]string `json:"errors,omitempty"`
}

// GrowthOptions configures the analysis of one growth curve. Zero values
// take the configured defaults.
type GrowthOptions struct {
	Window     time.Duration
	MinPeriods int
	TopK       int
}

// GrowthResult holds the per-window rates and their aggregate.
type GrowthResult struct {
	Rates []grate.WindowRate `json:"rates"`
	Grate domain.Float       `json:"grate"`
	Error string             `json:"error,omitempty"`
}

// AnalysisService analyses single curves on behalf of the HTTP API.
type AnalysisService struct {
	micDefaults   analysis.MICParams
	grateDefaults analysis.GrowthParams
	fitter        *mic.Fitter
	fitTimeout    time.Duration
	metrics       *analysis.Metrics
	logger        *slog.Logger
}

// NewAnalysisService creates a service whose defaults come from cfg
func NewAnalysisService(cfg *config.Config, metrics *analysis.Metrics, logger *slog.Logger) *AnalysisService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AnalysisService{
		micDefaults:   analysis.MICParamsFromConfig(cfg.MIC),
		grateDefaults: analysis.GrowthParamsFromConfig(cfg.Grate),
		fitter:        mic.NewFitter(logger),
		fitTimeout:    cfg.Server.FitTimeout,
		metrics:       metrics,
		logger:        logger.With(slog.String("service", "analysis")),
	}
}

// FitCurve runs the Hill and Gompertz fits and the classical MIC on curve.
// Fit failures are reported in the result, not as an error. Both fits
// share the fit timeout; a fit cut short is reported as not converged.
func (s *AnalysisService) FitCurve(ctx context.Context, curve mic.Curve, opts CurveOptions) (*CurveResult, error) {
	if len(curve) == 0 {
		return nil, apierrors.NewDataInsufficientError("no samples to analyse")
	}
	start := time.Now()
	if s.fitTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.fitTimeout)
		defer cancel()
	}

	threshold := opts.Threshold.Or(s.micDefaults.ODThreshold)
	fitOpts := mic.FitOptions{
		Estimate:       true,
		Sanity:         opts.Sanity,
		Normalise:      opts.Normalise,
		MaxEvaluations: opts.MaxEvaluations,
	}
	if fitOpts.MaxEvaluations <= 0 {
		fitOpts.MaxEvaluations = s.micDefaults.MaxEvaluations
	}

	result := &CurveResult{
		Hill:      s.fitter.Hill(ctx, curve, fitOpts),
		Gompertz:  s.fitter.Gompertz(ctx, curve, fitOpts),
		Classical: mic.ClassicalMIC(curve, threshold, opts.Normalise),
	}
	s.metrics.RecordFit(ctx, "hill", result.Hill.Outcome)
	s.metrics.RecordFit(ctx, "gompertz", result.Gompertz.Outcome)
	s.metrics.RecordGroup(ctx, "mic", time.Since(start))

	for model, err := range map[string]error{"hill": result.Hill.Err, "gompertz": result.Gompertz.Err} {
		if err == nil {
			continue
		}
		if result.Errors == nil {
			result.Errors = make(map[string]string)
		}
		result.Errors[model] = err.Error()
		infrastructure.RecordError(ctx, err)
	}

	s.logger.DebugContext(ctx, "curve fitted",
		slog.Int("samples", len(curve)),
		slog.String("hill", string(result.Hill.Outcome)),
		slog.String("gompertz", string(result.Gompertz.Outcome)),
		slog.String("cmic", result.Classical.MIC.String()))
	return result, nil
}

// GrowthRate estimates the growth rate of one well.
func (s *AnalysisService) GrowthRate(ctx context.Context, curve grate.Curve, opts GrowthOptions) (*GrowthResult, error) {
	params := s.grateDefaults
	if opts.Window > 0 {
		params.Window = opts.Window
	}
	if opts.MinPeriods > 0 {
		params.MinPeriods = opts.MinPeriods
	}
	if opts.TopK > 0 {
		params.TopMu = opts.TopK
	}

	calc := analysis.NewGrowthCalculator(params, s.logger)
	calc.SetConfiguration(1, s.metrics)

	row, err := calc.AnalyseCurve(ctx, curve)
	if err != nil {
		return nil, err
	}

	result := &GrowthResult{Rates: row.Rates, Grate: row.Grate}
	if row.Err != nil {
		result.Error = row.Err.Error()
	}
	return result, nil
}
