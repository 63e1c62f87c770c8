package mic

import (
	"math"

	"platereader/internal/stats"
	"platereader/pkg/contracts/domain"
)

// ClassicalResult is the threshold-crossing MIC and the series it was read from.
type ClassicalResult struct {
	MIC domain.Float `json:"cmic"`
	// Normalized is aligned with the input curve. It holds the raw OD when
	// normalization is off or has no anchor.
	Normalized []float64 `json:"normalized"`
}

// ClassicalMIC reads the MIC off the curve as the lowest concentration whose
// growth falls below threshold. All wells take part, the untreated control
// included.
//
// A well that still grows above that concentration is tolerated when at most
// one distinct concentration below it is suppressed; the MIC then moves to the
// lowest suppressed concentration above the escaping well. With two or more,
// the curve is too noisy and the MIC is undefined.
func ClassicalMIC(curve Curve, threshold float64, normalise domain.Float) ClassicalResult {
	conc := curve.Concentrations()
	y := curve.ODs()
	if len(curve) == 0 {
		return ClassicalResult{Normalized: y}
	}

	v := math.NaN()
	if level, ok := normalise.Get(); ok {
		if n, ok := Normalize(y, level); ok {
			y = n.Values
		} else {
			v = stats.Max(conc)
		}
	}

	below := func(i int) bool { return y[i] < threshold }

	if math.IsNaN(v) {
		v = minWhere(conc, below)
		if math.IsNaN(v) {
			v = stats.Max(conc)
		}
	}

	w := maxWhere(conc, func(i int) bool { return !below(i) })
	if math.IsNaN(w) || w <= v {
		return ClassicalResult{MIC: domain.Some(v), Normalized: y}
	}

	suppressed := make([]float64, 0, len(conc))
	for i, c := range conc {
		if c < w && below(i) {
			suppressed = append(suppressed, c)
		}
	}
	if len(stats.Unique(suppressed)) >= 2 {
		return ClassicalResult{MIC: domain.None(), Normalized: y}
	}
	v = minWhere(conc, func(i int) bool { return conc[i] > w && below(i) })
	return ClassicalResult{MIC: domain.Some(v), Normalized: y}
}

func minWhere(values []float64, keep func(int) bool) float64 {
	best := math.NaN()
	for i, v := range values {
		if keep(i) && (math.IsNaN(best) || v < best) {
			best = v
		}
	}
	return best
}

func maxWhere(values []float64, keep func(int) bool) float64 {
	best := math.NaN()
	for i, v := range values {
		if keep(i) && (math.IsNaN(best) || v > best) {
			best = v
		}
	}
	return best
}
