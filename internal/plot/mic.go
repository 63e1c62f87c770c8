package plot

import (
	"errors"
	"fmt"
	"math"

	"github.com/wcharczuk/go-chart/v2"

	"platereader/internal/analysis"
	"platereader/internal/mic"
)

const curveSamples = 100

// ErrNotPlottable is returned for curves with fewer than two distinct
// treated concentrations.
var ErrNotPlottable = errors.New("curve has fewer than two treated concentrations")

// MICChart draws the raw and normalized OD against log10 concentration, the
// fitted Hill curve with its IC50, the Gompertz MIC and the classical MIC.
// Untreated wells have no logarithm and are left out.
func (p *Plotter) MICChart(row analysis.MICRow, threshold float64) (chart.Chart, error) {
	var x, raw, normalized []float64
	for i, s := range row.Curve {
		if s.Concentration <= 0 {
			continue
		}
		x = append(x, math.Log10(s.Concentration))
		raw = append(raw, s.OD600)
		if i < len(row.Classical.Normalized) {
			normalized = append(normalized, row.Classical.Normalized[i])
		}
	}

	if len(x) < 2 || spread(x) == 0 {
		return chart.Chart{}, ErrNotPlottable
	}
	xr := paddedRange(x, false)

	yValues := append(append([]float64{}, raw...), normalized...)
	series := []chart.Series{
		chart.ContinuousSeries{Name: "OD600", XValues: x, YValues: raw, Style: pointStyle(colorData)},
	}
	if len(normalized) == len(x) {
		series = append(series, chart.ContinuousSeries{
			Name: "normalized", XValues: x, YValues: normalized, Style: pointStyle(colorNormalized),
		})
	}

	if params, ok := hillParams(row.Hill); ok {
		cx, cy := sampleCurve(xr.Min, xr.Max, func(lx float64) float64 {
			return mic.HillFunc(math.Pow(10, lx), params)
		})
		if len(cx) >= 2 {
			series = append(series, chart.ContinuousSeries{Name: "Hill fit", XValues: cx, YValues: cy, Style: lineStyle(colorFit, 2)})
			yValues = append(yValues, cy...)
		}
	}

	yr := paddedRange(yValues, true)
	vline := func(name string, value float64, style chart.Style) {
		if value <= 0 || math.IsNaN(value) {
			return
		}
		lx := math.Log10(value)
		series = append(series, chart.ContinuousSeries{
			Name:    fmt.Sprintf("%s %.3g", name, value),
			XValues: []float64{lx, lx},
			YValues: []float64{yr.Min, yr.Max},
			Style:   style,
		})
	}
	if ic50, ok := row.Hill.C.Get(); ok && row.Hill.Outcome == mic.OutcomeFitted {
		vline("IC50", ic50, dashedStyle(colorFit))
	}
	if v, ok := row.MIC().Get(); ok {
		vline("MIC", v, lineStyle(colorMIC, 1.5))
	}
	if v, ok := row.CMIC().Get(); ok {
		vline("cMIC", v, lineStyle(colorCMIC, 1.5))
	}
	if threshold > 0 {
		series = append(series, chart.ContinuousSeries{
			Name:    "threshold",
			XValues: []float64{xr.Min, xr.Max},
			YValues: []float64{threshold, threshold},
			Style:   dashedStyle(colorData),
		})
	}

	graph := chart.Chart{
		Title:  row.Key.String(),
		Width:  p.cfg.Width,
		Height: p.cfg.Height,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 10, Right: 10, Bottom: 10},
		},
		XAxis: chart.XAxis{
			Name:  "concentration",
			Range: xr,
			ValueFormatter: func(v interface{}) string {
				return fmt.Sprintf("%.3g", math.Pow(10, v.(float64)))
			},
		},
		YAxis: chart.YAxis{
			Name:  "OD600",
			Range: yr,
		},
		Series: series,
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}
	return graph, nil
}

// spread returns max - min of values.
func spread(values []float64) float64 {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return hi - lo
}

func hillParams(r mic.FitResult) ([]float64, bool) {
	if r.Outcome != mic.OutcomeFitted {
		return nil, false
	}
	params := make([]float64, 0, 4)
	for _, f := range r.Params() {
		v, ok := f.Get()
		if !ok {
			return nil, false
		}
		params = append(params, v)
	}
	return params, true
}

// sampleCurve evaluates f on an even grid over [lo, hi], dropping
// non-finite values.
func sampleCurve(lo, hi float64, f func(float64) float64) ([]float64, []float64) {
	x := make([]float64, 0, curveSamples)
	y := make([]float64, 0, curveSamples)
	step := (hi - lo) / float64(curveSamples-1)
	for i := 0; i < curveSamples; i++ {
		xi := lo + float64(i)*step
		yi := f(xi)
		if math.IsNaN(yi) || math.IsInf(yi, 0) {
			continue
		}
		x = append(x, xi)
		y = append(y, yi)
	}
	return x, y
}
