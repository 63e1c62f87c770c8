package mic

import (
	"context"
	"math"

	"platereader/internal/curvefit"
	"platereader/internal/stats"
	"platereader/pkg/contracts/domain"
)

// GompertzFunc is the modified Gompertz y = A + C * exp(-exp(B * (x - M)))
// with p = [A, B, C, M] and x = log10(concentration).
func GompertzFunc(x float64, p []float64) float64 {
	return p[0] + p[2]*math.Exp(-math.Exp(p[1]*(x-p[3])))
}

func gompertzGradient(x float64, p []float64, grad []float64) {
	e := math.Exp(p[1] * (x - p[3]))
	g := math.Exp(-e)
	ge := 0.0
	if g != 0 {
		ge = g * e
	}
	grad[0] = 1
	grad[1] = -p[2] * ge * (x - p[3])
	grad[2] = g
	grad[3] = p[2] * ge * p[1]
}

// GompertzMIC derives the MIC from fitted B and M: 10 ** (M + 1/B).
func GompertzMIC(b, m float64) float64 {
	return math.Pow(10, m+1/b)
}

// Gompertz fits the modified Gompertz function on log10 concentrations and
// derives the MIC. Estimates outside the tested range are clipped to it.
func (f *Fitter) Gompertz(ctx context.Context, curve Curve, opts FitOptions) GompertzResult {
	p, s := prepare(curve, opts, true)
	if s != nil {
		f.discarded(ctx, "gompertz", s)
		return GompertzResult{FitResult: FitResult{Outcome: s.outcome, Err: s.err}, MIC: s.boundary}
	}

	p0 := ones(4)
	if opts.Estimate {
		p0 = []float64{stats.Min(p.y) / 10, 0.8, 1, stats.Max(p.x) / 2}
	}

	res, err := curvefit.Fit(ctx, curvefit.Problem{
		F:        GompertzFunc,
		Gradient: gompertzGradient,
		X:        p.x,
		Y:        p.y,
		Initial:  p0,
	}, opts.settings())
	if err != nil {
		return GompertzResult{FitResult: f.notConverged(ctx, "gompertz", err)}
	}

	mic := GompertzMIC(res.Params[1], res.Params[3])
	switch {
	case mic > p.max:
		return clippedMIC(p.max)
	case mic < p.min:
		return clippedMIC(p.min)
	}
	return GompertzResult{FitResult: fitted(res.Params, res.StdErr), MIC: domain.Some(mic)}
}

func clippedMIC(boundary float64) GompertzResult {
	return GompertzResult{FitResult: FitResult{Outcome: OutcomeClipped}, MIC: domain.Some(boundary)}
}
