package mic

import (
	"platereader/internal/stats"
)

// saturationOD separates the plateau from the transition when choosing the
// high anchor.
const saturationOD = 0.5

// Normalized is a rescaled OD series and the anchors used.
type Normalized struct {
	Values []float64
	Low    float64
	High   float64
}

// Normalize rescales y to an approximate [0, 1] growth scale. The low anchor
// is the mean of the values <= normalise, the high anchor the mean of the
// values above the saturation OD (or the maximum when there are none).
// ok is false when no value reaches the low anchor.
func Normalize(y []float64, normalise float64) (Normalized, bool) {
	low := stats.Filter(y, func(v float64) bool { return v <= normalise })
	if len(low) == 0 {
		return Normalized{}, false
	}
	n := Normalized{Low: stats.Mean(low)}

	if high := stats.Filter(y, func(v float64) bool { return v > saturationOD }); len(high) > 0 {
		n.High = stats.Mean(high)
	} else {
		n.High = stats.Max(y)
	}

	span := n.High - n.Low
	n.Values = make([]float64, len(y))
	for i, v := range y {
		// a zero span leaves every value on the low anchor
		if span != 0 {
			n.Values[i] = (v - n.Low) / span
		}
	}
	return n, true
}
