package mic

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	apierrors "platereader/internal/errors"
	"platereader/internal/stats"
	"platereader/pkg/contracts/domain"
)

// prepared is a curve ready for the optimizer.
type prepared struct {
	x   []float64 // model axis
	y   []float64 // response, normalized when requested
	raw []float64
	min float64 // lowest non-zero concentration
	max float64
}

// stop short-circuits a fit; boundary is the MIC/IC50 to report.
type stop struct {
	outcome  Outcome
	boundary domain.Float
	reason   DiscardReason
	err      error
}

// prepare drops the untreated wells, normalizes and runs the quality gate.
func prepare(curve Curve, opts FitOptions, logX bool) (prepared, *stop) {
	treated := curve.Treated()
	if len(treated) == 0 {
		return prepared{}, &stop{
			outcome: OutcomeNoData,
			err:     apierrors.NewDataInsufficientError("no wells with a non-zero concentration"),
		}
	}

	conc := treated.Concentrations()
	p := prepared{
		raw: treated.ODs(),
		min: stats.Min(conc),
		max: stats.Max(conc),
	}
	p.y = p.raw
	p.x = conc
	if logX {
		p.x = make([]float64, len(conc))
		for i, c := range conc {
			p.x[i] = math.Log10(c)
		}
	}

	if normalise, ok := opts.Normalise.Get(); ok {
		n, ok := Normalize(p.raw, normalise)
		if !ok {
			return p, &stop{
				outcome:  OutcomeNoAnchor,
				boundary: domain.Some(p.max),
				err:      apierrors.NewDataInsufficientError(fmt.Sprintf("no OD value <= %g to anchor normalization", normalise)),
			}
		}
		p.y = n.Values
	}

	if sanity, ok := opts.Sanity.Get(); ok {
		if reason, discard := Gate(p.x, p.y, p.raw, sanity); discard {
			return p, &stop{
				outcome:  OutcomeDiscarded,
				boundary: domain.Some(FallbackBoundary(p.y, p.min, p.max)),
				reason:   reason,
			}
		}
	}
	return p, nil
}

// With returns a fitter whose warnings carry the given attributes.
func (f *Fitter) With(args ...any) *Fitter {
	return &Fitter{logger: f.logger.With(args...)}
}

func (f *Fitter) notConverged(ctx context.Context, model string, err error) FitResult {
	f.logger.WarnContext(ctx, "curve fit did not converge",
		slog.String("model", model),
		slog.String("error", err.Error()),
	)
	return FitResult{
		Outcome: OutcomeNotConverged,
		Err:     apierrors.NewNonConvergenceError(model+" fit", err),
	}
}

func (f *Fitter) discarded(ctx context.Context, model string, s *stop) {
	if s.outcome != OutcomeDiscarded {
		return
	}
	f.logger.DebugContext(ctx, "curve discarded by quality gate",
		slog.String("model", model),
		slog.String("reason", string(s.reason)),
	)
}

func ones(n int) []float64 {
	p := make([]float64, n)
	for i := range p {
		p[i] = 1
	}
	return p
}
