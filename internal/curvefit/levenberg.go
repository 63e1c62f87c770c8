// Package curvefit implements nonlinear least squares for small parametric models.
//
// Fit minimises sum((y - f(x, p))^2) with a Levenberg-Marquardt iteration
// (Marquardt diagonal scaling, Nielsen damping update) and reports the
// parameter covariance the same way scipy's curve_fit does: the
// pseudo-inverse of J'J scaled by the residual variance.
package curvefit

import (
	"context"
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Func evaluates a model at x for parameters p.
type Func func(x float64, p []float64) float64

// Gradient writes df/dp at x into grad.
type Gradient func(x float64, p []float64, grad []float64)

// Problem describes one least-squares fit.
type Problem struct {
	F Func
	// Gradient is optional; forward differences are used when nil.
	Gradient Gradient
	X, Y     []float64
	Initial  []float64
}

// Settings bounds the iteration.
type Settings struct {
	// MaxEvaluations caps model sweeps over the data, counting each
	// finite-difference column as one sweep.
	MaxEvaluations int
	FTol           float64
	XTol           float64
	GTol           float64
}

const (
	// DefaultMaxEvaluations is effectively unbounded for four-parameter models.
	DefaultMaxEvaluations = 999999
	// DefaultTolerance matches MINPACK's default ftol/xtol.
	DefaultTolerance = 1.49012e-8
)

// DefaultSettings returns the settings used by the dose-response fits.
func DefaultSettings() Settings {
	return Settings{
		MaxEvaluations: DefaultMaxEvaluations,
		FTol:           DefaultTolerance,
		XTol:           DefaultTolerance,
		GTol:           0,
	}
}

// Result is a converged fit.
type Result struct {
	Params []float64
	// StdErr is nil when the covariance cannot be estimated
	// (no more observations than parameters).
	StdErr      []float64
	Covariance  *mat.SymDense
	SSR         float64
	Evaluations int
	Iterations  int
	Reason      string
}

var (
	// ErrNoConvergence is returned when the evaluation budget runs out
	// or the model cannot be evaluated at the starting point.
	ErrNoConvergence = errors.New("optimal parameters not found")
	// ErrInvalidProblem flags inconsistent inputs.
	ErrInvalidProblem = errors.New("invalid fitting problem")
)

type solver struct {
	prob     Problem
	settings Settings
	m, n     int
	evals    int
}

// Fit runs Levenberg-Marquardt from prob.Initial. It gives up with the
// context's error once ctx is done.
func Fit(ctx context.Context, prob Problem, settings Settings) (*Result, error) {
	m, n := len(prob.X), len(prob.Initial)
	switch {
	case prob.F == nil:
		return nil, fmt.Errorf("%w: nil model", ErrInvalidProblem)
	case m == 0 || n == 0:
		return nil, fmt.Errorf("%w: %d observations, %d parameters", ErrInvalidProblem, m, n)
	case len(prob.Y) != m:
		return nil, fmt.Errorf("%w: len(x)=%d len(y)=%d", ErrInvalidProblem, m, len(prob.Y))
	}
	if settings.MaxEvaluations <= 0 {
		settings.MaxEvaluations = DefaultMaxEvaluations
	}

	s := &solver{prob: prob, settings: settings, m: m, n: n}
	return s.run(ctx)
}

func (s *solver) run(ctx context.Context) (*Result, error) {
	p := append([]float64(nil), s.prob.Initial...)
	r := make([]float64, s.m)
	cost := s.residuals(p, r)
	if !isFinite(cost) {
		return nil, fmt.Errorf("%w: residuals are not finite at the initial guess", ErrNoConvergence)
	}

	jac := mat.NewDense(s.m, s.n, nil)
	jtj := mat.NewSymDense(s.n, nil)
	grad := mat.NewVecDense(s.n, nil)
	step := mat.NewVecDense(s.n, nil)
	trial := make([]float64, s.n)
	rTrial := make([]float64, s.m)

	lambda, nu := -1.0, 2.0
	iterations := 0
	reason := ""

	for reason == "" {
		if s.evals >= s.settings.MaxEvaluations {
			return nil, s.exhausted()
		}
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("fit interrupted after %d evaluations: %w", s.evals, err)
		}
		iterations++
		s.jacobian(p, jac)
		jtj.SymOuterK(1, jac.T())
		grad.MulVec(jac.T(), mat.NewVecDense(s.m, r))

		if cost == 0 {
			reason = "exact fit"
			break
		}
		if s.settings.GTol > 0 && mat.Norm(grad, math.Inf(1)) <= s.settings.GTol {
			reason = "gradient below gtol"
			break
		}
		if lambda < 0 {
			lambda = 1e-3 * maxDiag(jtj)
			if lambda == 0 {
				lambda = 1e-3
			}
		}

		for {
			if !solveDamped(jtj, grad, lambda, step) {
				lambda *= nu
				nu *= 2
				if math.IsInf(lambda, 0) {
					return nil, fmt.Errorf("%w: damped system is singular", ErrNoConvergence)
				}
				continue
			}
			for j := range trial {
				trial[j] = p[j] + step.AtVec(j)
			}
			trialCost := s.residuals(trial, rTrial)

			stepNorm := mat.Norm(step, 2)
			small := stepNorm <= s.settings.XTol*(floats.Norm(p, 2)+s.settings.XTol)

			// predicted reduction of the local quadratic model, relative to cost
			predicted := (2*mat.Dot(step, grad) - mat.Inner(step, jtj, step)) / cost

			if isFinite(trialCost) && trialCost < cost {
				actual := (cost - trialCost) / cost
				rho := actual / predicted
				copy(p, trial)
				copy(r, rTrial)
				cost = trialCost
				if predicted > 0 {
					lambda *= math.Max(1.0/3, 1-math.Pow(2*rho-1, 3))
				} else {
					lambda /= 3
				}
				nu = 2
				switch {
				case actual <= s.settings.FTol && predicted <= s.settings.FTol:
					reason = "relative reduction below ftol"
				case small:
					reason = "step below xtol"
				}
				break
			}

			if small {
				reason = "step below xtol"
				break
			}
			if s.evals >= s.settings.MaxEvaluations {
				return nil, s.exhausted()
			}
			lambda *= nu
			nu *= 2
			if math.IsInf(lambda, 0) {
				return nil, fmt.Errorf("%w: damping diverged after %d evaluations", ErrNoConvergence, s.evals)
			}
		}
	}

	res := &Result{
		Params:      p,
		SSR:         cost,
		Evaluations: s.evals,
		Iterations:  iterations,
		Reason:      reason,
	}
	s.jacobian(p, jac)
	res.Covariance = covariance(jac, cost, s.m, s.n)
	if res.Covariance != nil {
		res.StdErr = make([]float64, s.n)
		for i := range res.StdErr {
			res.StdErr[i] = math.Sqrt(res.Covariance.At(i, i))
		}
	}
	return res, nil
}

func (s *solver) exhausted() error {
	return fmt.Errorf("%w: number of calls to function has reached maxfev = %d", ErrNoConvergence, s.settings.MaxEvaluations)
}

// residuals fills r with y - f(x, p) and returns the sum of squares.
func (s *solver) residuals(p, r []float64) float64 {
	s.evals++
	ssr := 0.0
	for i, x := range s.prob.X {
		r[i] = s.prob.Y[i] - s.prob.F(x, p)
		ssr += r[i] * r[i]
	}
	return ssr
}

func (s *solver) jacobian(p []float64, jac *mat.Dense) {
	if s.prob.Gradient != nil {
		s.evals++
		row := make([]float64, s.n)
		for i, x := range s.prob.X {
			s.prob.Gradient(x, p, row)
			jac.SetRow(i, row)
		}
		return
	}

	eps := math.Sqrt(2.220446049250313e-16)
	shifted := append([]float64(nil), p...)
	for j := 0; j < s.n; j++ {
		h := eps * math.Abs(p[j])
		if h == 0 {
			h = eps
		}
		shifted[j] = p[j] + h
		s.evals++
		for i, x := range s.prob.X {
			jac.Set(i, j, (s.prob.F(x, shifted)-s.prob.F(x, p))/h)
		}
		shifted[j] = p[j]
	}
}

// solveDamped solves (J'J + lambda*diag(J'J)) step = grad.
func solveDamped(jtj *mat.SymDense, grad *mat.VecDense, lambda float64, step *mat.VecDense) bool {
	n := jtj.SymmetricDim()
	a := mat.NewSymDense(n, nil)
	a.CopySym(jtj)
	for i := 0; i < n; i++ {
		d := jtj.At(i, i)
		if d < 1e-12 {
			d = 1e-12
		}
		a.SetSym(i, i, jtj.At(i, i)+lambda*d)
	}
	var chol mat.Cholesky
	if ok := chol.Factorize(a); !ok {
		return false
	}
	if err := chol.SolveVecTo(step, grad); err != nil {
		return false
	}
	for i := 0; i < n; i++ {
		if !isFinite(step.AtVec(i)) {
			return false
		}
	}
	return true
}

// covariance returns pinv(J'J) * ssr/(m-n), or nil when m <= n.
func covariance(jac *mat.Dense, ssr float64, m, n int) *mat.SymDense {
	if m <= n {
		return nil
	}
	var svd mat.SVD
	if ok := svd.Factorize(jac, mat.SVDThin); !ok {
		return nil
	}
	values := svd.Values(nil)
	var v mat.Dense
	svd.VTo(&v)

	threshold := 2.220446049250313e-16 * float64(max(m, n)) * values[0]
	scale := ssr / float64(m-n)
	cov := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			sum := 0.0
			for k, sv := range values {
				if sv <= threshold {
					continue
				}
				sum += v.At(i, k) * v.At(j, k) / (sv * sv)
			}
			cov.SetSym(i, j, sum*scale)
		}
	}
	return cov
}

func maxDiag(a *mat.SymDense) float64 {
	best := 0.0
	for i := 0; i < a.SymmetricDim(); i++ {
		best = math.Max(best, a.At(i, i))
	}
	return best
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
