package stats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAggregatesOnEmpty(t *testing.T) {
	assert.True(t, math.IsNaN(Mean(nil)))
	assert.True(t, math.IsNaN(Min(nil)))
	assert.True(t, math.IsNaN(Max(nil)))
}

func TestRank(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   []float64
	}{
		{"distinct", []float64{3, 1, 2}, []float64{3, 1, 2}},
		{"ties averaged", []float64{1, 2, 2, 3}, []float64{1, 2.5, 2.5, 4}},
		{"all equal", []float64{5, 5, 5}, []float64{2, 2, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Rank(tt.values))
		})
	}
}

func TestSpearman(t *testing.T) {
	x := []float64{1, 2, 4, 8, 16}

	assert.InDelta(t, 1.0, Spearman(x, []float64{0.1, 0.2, 0.5, 0.9, 1.3}), 1e-12)
	assert.InDelta(t, -1.0, Spearman(x, []float64{1.0, 0.8, 0.3, 0.2, 0.1}), 1e-12)
	// monotone but non-linear still ranks perfectly
	assert.InDelta(t, -1.0, Spearman(x, []float64{1.0, 0.99, 0.01, 0.001, 0}), 1e-12)
	assert.True(t, math.IsNaN(Spearman(x, []float64{0.4, 0.4, 0.4, 0.4, 0.4})))
	assert.True(t, math.IsNaN(Spearman([]float64{1}, []float64{2})))
}

func TestSlope(t *testing.T) {
	x := []float64{0, 1, 2, 3, 4}
	y := []float64{1, 3, 5, 7, 9}
	assert.InDelta(t, 2.0, Slope(x, y), 1e-12)
	assert.True(t, math.IsNaN(Slope([]float64{1, 1, 1}, []float64{1, 2, 3})))
}

func TestTopMean(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		k      int
		want   float64
	}{
		{"top four of five", []float64{0.1, 0.2, 0.3, 0.4, 0.5}, 4, 0.35},
		{"unsorted input", []float64{0.5, 0.1, 0.4, 0.2, 0.3}, 2, 0.45},
		{"fewer than k", []float64{0.2, 0.4}, 4, 0.3},
		{"NaN dropped", []float64{math.NaN(), 0.2, math.NaN(), 0.4}, 4, 0.3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, TopMean(tt.values, tt.k), 1e-12)
		})
	}

	assert.True(t, math.IsNaN(TopMean([]float64{math.NaN()}, 4)))
}

func TestUnique(t *testing.T) {
	assert.Equal(t, []float64{1, 2, 4}, Unique([]float64{4, 1, 2, 4, 1}))
}
