package mic

import (
	"context"
	"math"

	"platereader/internal/curvefit"
	"platereader/internal/stats"
	"platereader/pkg/contracts/domain"
)

// HillFunc is y = a + (b - a) / (1 + (x / c) ** d) with p = [a, b, c, d].
func HillFunc(x float64, p []float64) float64 {
	return p[0] + (p[1]-p[0])/(1+math.Pow(x/p[2], p[3]))
}

// Hill fits the Hill function on raw concentrations. C is the IC50.
//
// The Jacobian is taken by forward differences: (x/c)**d has no real
// derivative while the optimizer explores c <= 0.
func (f *Fitter) Hill(ctx context.Context, curve Curve, opts FitOptions) FitResult {
	p, s := prepare(curve, opts, false)
	if s != nil {
		f.discarded(ctx, "hill", s)
		return FitResult{C: s.boundary, Outcome: s.outcome, Err: s.err}
	}

	p0 := ones(4)
	if opts.Estimate {
		p0 = []float64{stats.Min(p.y), stats.Max(p.y), stats.Mean(p.x), 1}
	}

	res, err := curvefit.Fit(ctx, curvefit.Problem{
		F:       HillFunc,
		X:       p.x,
		Y:       p.y,
		Initial: p0,
	}, opts.settings())
	if err != nil {
		return f.notConverged(ctx, "hill", err)
	}

	if res.Params[2] > p.max {
		return FitResult{C: domain.Some(p.max), Outcome: OutcomeClipped}
	}
	return fitted(res.Params, res.StdErr)
}
