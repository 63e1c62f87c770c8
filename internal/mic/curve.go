package mic

import (
	"log/slog"

	"platereader/internal/curvefit"
	"platereader/pkg/contracts/domain"
)

// Sample is one well of a dose-response curve.
type Sample struct {
	Concentration float64 `json:"concentration" validate:"gte=0"`
	OD600         float64 `json:"od600" validate:"gte=0"`
}

// Curve is an unordered set of samples of one group.
type Curve []Sample

// Treated returns the samples with a non-zero concentration.
func (c Curve) Treated() Curve {
	out := make(Curve, 0, len(c))
	for _, s := range c {
		if s.Concentration != 0 {
			out = append(out, s)
		}
	}
	return out
}

// Concentrations returns the concentration column.
func (c Curve) Concentrations() []float64 {
	out := make([]float64, len(c))
	for i, s := range c {
		out[i] = s.Concentration
	}
	return out
}

// ODs returns the OD600 column.
func (c Curve) ODs() []float64 {
	out := make([]float64, len(c))
	for i, s := range c {
		out[i] = s.OD600
	}
	return out
}

// FitOptions controls both curve fits.
type FitOptions struct {
	// Estimate derives the initial parameters from the data; otherwise
	// every parameter starts at 1.
	Estimate bool
	// Sanity enables the quality gate with the given minimum OD range.
	Sanity domain.Float
	// Normalise enables robust normalization with the given low anchor.
	Normalise domain.Float
	// MaxEvaluations bounds the optimizer.
	MaxEvaluations int
}

// DefaultFitOptions estimates initial parameters and leaves the gate and
// normalization off.
func DefaultFitOptions() FitOptions {
	return FitOptions{
		Estimate:       true,
		MaxEvaluations: curvefit.DefaultMaxEvaluations,
	}
}

func (o FitOptions) settings() curvefit.Settings {
	s := curvefit.DefaultSettings()
	if o.MaxEvaluations > 0 {
		s.MaxEvaluations = o.MaxEvaluations
	}
	return s
}

// Outcome says how a fit result was produced.
type Outcome string

const (
	OutcomeFitted       Outcome = "fitted"
	OutcomeDiscarded    Outcome = "discarded"
	OutcomeNoAnchor     Outcome = "no_anchor"
	OutcomeClipped      Outcome = "clipped"
	OutcomeNotConverged Outcome = "not_converged"
	OutcomeNoData       Outcome = "no_data"
)

// FitResult holds the four model parameters and their standard errors.
// For the Hill model C is the IC50; for Gompertz the fields are A, B, C, M.
type FitResult struct {
	A   domain.Float `json:"a"`
	B   domain.Float `json:"b"`
	C   domain.Float `json:"c"`
	D   domain.Float `json:"d"`
	SDa domain.Float `json:"SDa"`
	SDb domain.Float `json:"SDb"`
	SDc domain.Float `json:"SDc"`
	SDd domain.Float `json:"SDd"`

	Outcome Outcome `json:"outcome"`
	// Err is set for no_anchor, no_data and not_converged outcomes.
	Err error `json:"-"`
}

// GompertzResult adds the derived MIC to the Gompertz parameters.
type GompertzResult struct {
	FitResult
	MIC domain.Float `json:"mic"`
}

// Params returns a, b, c, d in order.
func (r FitResult) Params() [4]domain.Float {
	return [4]domain.Float{r.A, r.B, r.C, r.D}
}

// StdErrs returns SDa, SDb, SDc, SDd in order.
func (r FitResult) StdErrs() [4]domain.Float {
	return [4]domain.Float{r.SDa, r.SDb, r.SDc, r.SDd}
}

func fitted(params, stderr []float64) FitResult {
	r := FitResult{
		A:       domain.Some(params[0]),
		B:       domain.Some(params[1]),
		C:       domain.Some(params[2]),
		D:       domain.Some(params[3]),
		Outcome: OutcomeFitted,
	}
	if stderr != nil {
		r.SDa = domain.Some(stderr[0])
		r.SDb = domain.Some(stderr[1])
		r.SDc = domain.Some(stderr[2])
		r.SDd = domain.Some(stderr[3])
	}
	return r
}

// Fitter runs the dose-response fits and reports non-convergence.
type Fitter struct {
	logger *slog.Logger
}

// NewFitter creates a fitter logging through logger.
func NewFitter(logger *slog.Logger) *Fitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fitter{logger: logger.With(slog.String("component", "mic_fitter"))}
}

// CurveFromReadings keeps the concentration and OD600 of each reading.
func CurveFromReadings(rows []domain.Reading) Curve {
	out := make(Curve, len(rows))
	for i, r := range rows {
		out[i] = Sample{Concentration: r.Concentration, OD600: r.OD600}
	}
	return out
}
