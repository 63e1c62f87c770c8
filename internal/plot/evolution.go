package plot

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strconv"

	"github.com/wcharczuk/go-chart/v2"

	"platereader/internal/analysis"
)

// ErrNoPassages is returned for an evolution report with nothing to draw.
var ErrNoPassages = errors.New("no passages to plot")

// PassageChart draws one row of dots per series and one column per passage,
// colored on a viridis scale from 0 to vmax. The first series is at the top.
func (p *Plotter) PassageChart(title string, series []analysis.PassageSeries, vmax float64) (chart.Chart, error) {
	passageSet := make(map[int]bool)
	for _, s := range series {
		for passage := range s.Values {
			passageSet[passage] = true
		}
	}
	if len(passageSet) == 0 {
		return chart.Chart{}, ErrNoPassages
	}
	passages := make([]int, 0, len(passageSet))
	for passage := range passageSet {
		passages = append(passages, passage)
	}
	slices.Sort(passages)

	var x, y, values []float64
	for i, s := range series {
		for _, passage := range passages {
			v, ok := s.Values[passage]
			if !ok {
				continue
			}
			x = append(x, float64(passage))
			y = append(y, float64(len(series)-i))
			values = append(values, v)
		}
	}

	ticks := make([]chart.Tick, 0, len(passages))
	for _, passage := range passages {
		ticks = append(ticks, chart.Tick{Value: float64(passage), Label: strconv.Itoa(passage)})
	}

	height := max(p.cfg.Height, 8*len(series)+120)
	first, last := passages[0], passages[len(passages)-1]
	graph := chart.Chart{
		Title:  title,
		Width:  p.cfg.Width,
		Height: height,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 10, Right: 10, Bottom: 10},
		},
		XAxis: chart.XAxis{
			Name:  "passage",
			Range: &chart.ContinuousRange{Min: float64(first) - 0.5, Max: float64(last) + 0.5},
			Ticks: ticks,
		},
		YAxis: chart.YAxis{
			Style: chart.Hidden(),
			Range: &chart.ContinuousRange{Min: 0.5, Max: float64(len(series)) + 0.5},
		},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name:    title,
				XValues: x,
				YValues: y,
				Style:   heatStyle(values, vmax, cellRadius(p.cfg.Width, height, len(passages), len(series))),
			},
		},
	}
	return graph, nil
}

// AppearanceChart places every lineage at the passage where resistance first
// appeared, one row per strain and one color per treatment. Lineages that
// never became resistant sit past the dashed line.
func (p *Plotter) AppearanceChart(report *analysis.EvolutionReport) (chart.Chart, error) {
	if len(report.Appearance) == 0 {
		return chart.Chart{}, ErrNoPassages
	}

	var strains, treatments []string
	for _, a := range report.Appearance {
		if !slices.Contains(strains, a.Key.Strain) {
			strains = append(strains, a.Key.Strain)
		}
		if !slices.Contains(treatments, a.Key.TreatmentID) {
			treatments = append(treatments, a.Key.TreatmentID)
		}
	}
	slices.Sort(strains)
	slices.Sort(treatments)

	series := make([]chart.Series, 0, len(treatments)+1)
	jitter := 0.6 / float64(len(treatments))
	for ti, treatment := range treatments {
		var x, y []float64
		for _, a := range report.Appearance {
			if a.Key.TreatmentID != treatment {
				continue
			}
			row := len(strains) - slices.Index(strains, a.Key.Strain)
			x = append(x, float64(a.Passage))
			y = append(y, float64(row)+jitter*(float64(ti)-float64(len(treatments)-1)/2))
		}
		series = append(series, chart.ContinuousSeries{
			Name:    treatment,
			XValues: x,
			YValues: y,
			Style:   pointStyle(chart.GetDefaultColor(ti)),
		})
	}

	never := float64(report.LastPassage) + 0.5
	series = append(series, chart.ContinuousSeries{
		Name:    "never",
		XValues: []float64{never, never},
		YValues: []float64{0.5, float64(len(strains)) + 0.5},
		Style:   dashedStyle(colorFit),
	})

	xTicks := make([]chart.Tick, 0, report.LastPassage+1)
	for passage := 1; passage <= report.LastPassage; passage++ {
		xTicks = append(xTicks, chart.Tick{Value: float64(passage), Label: strconv.Itoa(passage)})
	}
	xTicks = append(xTicks, chart.Tick{Value: float64(report.LastPassage + 1), Label: "no"})

	yTicks := make([]chart.Tick, 0, len(strains))
	for i := len(strains) - 1; i >= 0; i-- {
		yTicks = append(yTicks, chart.Tick{Value: float64(len(strains) - i), Label: strains[i]})
	}

	graph := chart.Chart{
		Title:  "first appearance of resistance",
		Width:  p.cfg.Width,
		Height: max(p.cfg.Height, 24*len(strains)+120),
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 10, Right: 10, Bottom: 10},
		},
		XAxis: chart.XAxis{
			Name:  "passage of first resistance",
			Range: &chart.ContinuousRange{Min: 0.5, Max: float64(report.LastPassage) + 1.5},
			Ticks: xTicks,
		},
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: 0.5, Max: float64(len(strains)) + 0.5},
			Ticks: yTicks,
		},
		Series: series,
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}
	return graph, nil
}

// WriteEvolutionPlots writes the passage heatmaps of every lineage and of
// the strain averages, the resistance map and the first appearance chart.
func (p *Plotter) WriteEvolutionPlots(ctx context.Context, report *analysis.EvolutionReport) (int, error) {
	figures := []struct {
		name  string
		build func() (chart.Chart, error)
	}{
		{"passages", func() (chart.Chart, error) { return p.PassageChart("OD600", report.OD, 1) }},
		{"passages_average", func() (chart.Chart, error) { return p.PassageChart("OD600 (average)", report.Averages, 1) }},
		{"appearance_1", func() (chart.Chart, error) { return p.PassageChart("resistance", report.Resistance, 1) }},
		{"appearance_2", func() (chart.Chart, error) { return p.AppearanceChart(report) }},
	}

	written := 0
	for _, fig := range figures {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		graph, err := fig.build()
		if err != nil {
			p.logger.WarnContext(ctx, "skipping evolution plot",
				slog.String("figure", fig.name),
				slog.String("error", err.Error()))
			continue
		}
		if err := p.save(graph, fig.name); err != nil {
			return written, err
		}
		written++
	}
	p.logger.InfoContext(ctx, "evolution plots written",
		slog.String("output", p.cfg.Output),
		slog.Int("count", written))
	return written, nil
}
