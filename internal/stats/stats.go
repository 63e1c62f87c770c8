// Package stats holds the small descriptive statistics the estimators share.
//
// Functions take plain slices and never mutate them. Empty inputs yield NaN
// (for aggregates) so that callers can turn them into undefined values.
package stats

import (
	"math"
	"slices"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Mean returns the arithmetic mean, NaN for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	return stat.Mean(values, nil)
}

// Min returns the smallest value, NaN for an empty slice.
func Min(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	return floats.Min(values)
}

// Max returns the largest value, NaN for an empty slice.
func Max(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	return floats.Max(values)
}

// Filter returns the values for which keep reports true.
func Filter(values []float64, keep func(float64) bool) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if keep(v) {
			out = append(out, v)
		}
	}
	return out
}

// Rank assigns 1-based ranks, averaging the ranks of ties.
func Rank(values []float64) []float64 {
	n := len(values)
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return values[idx[a]] < values[idx[b]] })

	ranks := make([]float64, n)
	for i := 0; i < n; {
		j := i
		for j+1 < n && values[idx[j+1]] == values[idx[i]] {
			j++
		}
		avg := float64(i+j)/2 + 1
		for k := i; k <= j; k++ {
			ranks[idx[k]] = avg
		}
		i = j + 1
	}
	return ranks
}

// Spearman returns the Spearman rank correlation of x and y.
// The result is NaN when either input is constant or shorter than two samples.
func Spearman(x, y []float64) float64 {
	if len(x) != len(y) {
		panic("stats: length mismatch")
	}
	if len(x) < 2 {
		return math.NaN()
	}
	rx, ry := Rank(x), Rank(y)
	if floats.Max(rx) == floats.Min(rx) || floats.Max(ry) == floats.Min(ry) {
		return math.NaN()
	}
	return stat.Correlation(rx, ry, nil)
}

// Slope returns the ordinary least-squares slope of y against x.
// NaN is returned when x has no spread.
func Slope(x, y []float64) float64 {
	if len(x) < 2 || floats.Max(x) == floats.Min(x) {
		return math.NaN()
	}
	_, beta := stat.LinearRegression(x, y, nil, false)
	return beta
}

// TopMean sorts the finite values and averages the k largest.
// Fewer than k finite values are averaged as they are; none yields NaN.
func TopMean(values []float64, k int) float64 {
	finite := Filter(values, func(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) })
	if len(finite) == 0 || k <= 0 {
		return math.NaN()
	}
	slices.Sort(finite)
	if k < len(finite) {
		finite = finite[len(finite)-k:]
	}
	return Mean(finite)
}

// Unique returns the distinct values in ascending order.
func Unique(values []float64) []float64 {
	out := slices.Clone(values)
	slices.Sort(out)
	return slices.Compact(out)
}
