package plot

import (
	"errors"
	"fmt"

	"github.com/wcharczuk/go-chart/v2"

	"platereader/internal/analysis"
)

// ErrEmptyCurve is returned for wells with fewer than two time points.
var ErrEmptyCurve = errors.New("growth curve has fewer than two time points")

// GrowthChart draws OD600 against hours with the per-window growth rate on
// the secondary axis.
func (p *Plotter) GrowthChart(row analysis.GrowthRow) (chart.Chart, error) {
	hours := make([]float64, 0, len(row.Curve))
	od := make([]float64, 0, len(row.Curve))
	for _, s := range row.Curve {
		hours = append(hours, s.Time/3600)
		od = append(od, s.OD600)
	}
	if len(hours) < 2 || spread(hours) == 0 {
		return chart.Chart{}, ErrEmptyCurve
	}

	series := []chart.Series{
		chart.ContinuousSeries{Name: "OD600", XValues: hours, YValues: od, Style: pointStyle(colorData)},
	}

	var rateX, rateY []float64
	for _, r := range row.Rates {
		if v, ok := r.Slope.Get(); ok {
			rateX = append(rateX, r.TimeHours)
			rateY = append(rateY, v)
		}
	}

	title := row.Key.String()
	if g, ok := row.Grate.Get(); ok {
		title = fmt.Sprintf("%s  grate %.3g/h", title, g)
	}

	graph := chart.Chart{
		Title:  title,
		Width:  p.cfg.Width,
		Height: p.cfg.Height,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 10, Right: 10, Bottom: 10},
		},
		XAxis: chart.XAxis{
			Name:  "time (h)",
			Range: paddedRange(hours, true),
		},
		YAxis: chart.YAxis{
			Name:  "OD600",
			Range: paddedRange(od, true),
		},
	}

	if len(rateX) >= 2 {
		series = append(series, chart.ContinuousSeries{
			Name:    "rate (1/h)",
			YAxis:   chart.YAxisSecondary,
			XValues: rateX,
			YValues: rateY,
			Style:   lineStyle(colorNormalized, 1.5),
		})
		graph.YAxisSecondary = chart.YAxis{
			Name:  "rate (1/h)",
			Range: paddedRange(rateY, true),
		}
	}

	graph.Series = series
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}
	return graph, nil
}
