// Package grate estimates exponential growth rates from OD600 time series.
//
// A time-based rolling window is slid over each growth curve and the slope of
// ln(OD) against time (in hours) is taken in every window. The slopes are
// summarised by the mean of the top-k values and compared against the
// ancestral strain to give a relative delta.
package grate

import (
	"cmp"
	"math"
	"slices"
	"time"

	apierrors "platereader/internal/errors"
	"platereader/internal/stats"
	"platereader/pkg/contracts/domain"
)

const (
	DefaultWindow     = 60 * time.Minute
	DefaultMinPeriods = 5
	DefaultTopK       = 4
)

// Sample is one reading of a growth curve; Time is elapsed seconds.
type Sample struct {
	Time  float64 `json:"time" validate:"gte=0"`
	OD600 float64 `json:"od600" validate:"gte=0"`
}

// Curve is the time series of one well.
type Curve []Sample

// CurveFromReadings keeps the time and OD600 of each reading.
func CurveFromReadings(rows []domain.Reading) Curve {
	out := make(Curve, len(rows))
	for i, r := range rows {
		out[i] = Sample{Time: r.Time, OD600: r.OD600}
	}
	return out
}

// WindowRate is the growth rate of the window ending at TimeHours.
type WindowRate struct {
	TimeHours float64      `json:"time"`
	Slope     domain.Float `json:"mu"`
}

// EstimateGrowthRate returns one rate per sample, in time order. The window
// ending at sample t covers (t - window, t]; its rate is the least-squares
// slope of ln(OD) on hours, undefined with fewer than minPeriods usable
// samples. Samples with a non-positive OD have no logarithm and do not count.
func EstimateGrowthRate(curve Curve, window time.Duration, minPeriods int) ([]WindowRate, error) {
	if window <= 0 {
		return nil, apierrors.NewAppValidationError("rolling window must be positive")
	}
	if minPeriods < 2 {
		return nil, apierrors.NewAppValidationError("a window needs at least two samples for a slope")
	}

	sorted := slices.Clone(curve)
	slices.SortStableFunc(sorted, func(a, b Sample) int { return cmp.Compare(a.Time, b.Time) })

	offsets := make([]time.Duration, len(sorted))
	for i, s := range sorted {
		offsets[i] = time.Duration(math.Round(s.Time * float64(time.Second)))
	}

	rates := make([]WindowRate, len(sorted))
	hours := make([]float64, 0, len(sorted))
	lnOD := make([]float64, 0, len(sorted))
	start := 0
	for end := range sorted {
		for offsets[start] <= offsets[end]-window {
			start++
		}

		hours, lnOD = hours[:0], lnOD[:0]
		for _, s := range sorted[start : end+1] {
			if s.OD600 > 0 {
				hours = append(hours, s.Time/3600)
				lnOD = append(lnOD, math.Log(s.OD600))
			}
		}

		rates[end] = WindowRate{TimeHours: offsets[end].Hours()}
		if len(hours) >= minPeriods {
			rates[end].Slope = domain.Some(stats.Slope(hours, lnOD))
		}
	}
	return rates, nil
}

// AggregateGrowthRate averages the topK largest defined window rates.
// It is undefined when no window has a rate.
func AggregateGrowthRate(rates []WindowRate, topK int) domain.Float {
	slopes := make([]float64, 0, len(rates))
	for _, r := range rates {
		if v, ok := r.Slope.Get(); ok {
			slopes = append(slopes, v)
		}
	}
	return domain.Some(stats.TopMean(slopes, topK))
}
