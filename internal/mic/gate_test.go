package mic

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGate(t *testing.T) {
	x := []float64{0.25, 0.5, 1, 2, 4}

	tests := []struct {
		name        string
		y           []float64
		raw         []float64
		wantDiscard bool
		wantReason  DiscardReason
	}{
		{
			name:        "dose response passes",
			y:           []float64{1, 0.9, 0.4, 0.05, 0},
			raw:         []float64{0.9, 0.8, 0.4, 0.1, 0.05},
			wantDiscard: false,
		},
		{
			name:        "flat raw OD",
			y:           []float64{1, 0.9, 0.4, 0.05, 0},
			raw:         []float64{0.5, 0.5, 0.5, 0.5, 0.5},
			wantDiscard: true,
			wantReason:  ReasonFlat,
		},
		{
			name:        "growth increases with concentration",
			y:           []float64{0.1, 0.3, 0.5, 0.8, 1},
			raw:         []float64{0.1, 0.3, 0.5, 0.8, 1},
			wantDiscard: true,
			wantReason:  ReasonInverted,
		},
		{
			name:        "never grows",
			y:           []float64{0.15, 0.1, 0.05, 0.02, 0},
			raw:         []float64{0.9, 0.6, 0.4, 0.1, 0.05},
			wantDiscard: true,
			wantReason:  ReasonNoGrowth,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reason, discard := Gate(x, tt.y, tt.raw, 0.1)
			assert.Equal(t, tt.wantDiscard, discard)
			assert.Equal(t, tt.wantReason, reason)
		})
	}
}

func TestFallbackBoundary(t *testing.T) {
	assert.Equal(t, 0.25, FallbackBoundary([]float64{0.05, 0.02, 0.0}, 0.25, 16))
	assert.Equal(t, 16.0, FallbackBoundary([]float64{1, 0.9, 0.95}, 0.25, 16))
}
