package plot

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"platereader/internal/dataprocessing"
	"platereader/pkg/contracts/domain"
)

// ErrEmptyPlate is returned when no reading falls on the plate layout.
var ErrEmptyPlate = errors.New("no readings on the plate layout")

// PlateChart draws one dot per well at its plate position, colored by its
// mean OD600 on a viridis scale from 0 to 1. Row A is at the top.
func (p *Plotter) PlateChart(title string, readings []domain.Reading, format dataprocessing.PlateFormat) (chart.Chart, error) {
	type wellPos struct{ row, column int }
	sums := make(map[wellPos][2]float64)
	for _, r := range readings {
		if len(r.Row) != 1 {
			continue
		}
		pos := wellPos{row: int(r.Row[0] - 'A'), column: r.Column}
		if pos.row < 0 || pos.row >= format.Rows || pos.column < 1 || pos.column > format.Columns {
			continue
		}
		acc := sums[pos]
		sums[pos] = [2]float64{acc[0] + r.OD600, acc[1] + 1}
	}
	if len(sums) == 0 {
		return chart.Chart{}, ErrEmptyPlate
	}

	positions := make([]wellPos, 0, len(sums))
	for pos := range sums {
		positions = append(positions, pos)
	}
	slices.SortFunc(positions, func(a, b wellPos) int {
		if a.row != b.row {
			return a.row - b.row
		}
		return a.column - b.column
	})

	x := make([]float64, 0, len(positions))
	y := make([]float64, 0, len(positions))
	od := make([]float64, 0, len(positions))
	for _, pos := range positions {
		x = append(x, float64(pos.column))
		y = append(y, float64(format.Rows-pos.row))
		od = append(od, sums[pos][0]/sums[pos][1])
	}

	xTicks := make([]chart.Tick, 0, format.Columns)
	for c := 1; c <= format.Columns; c++ {
		xTicks = append(xTicks, chart.Tick{Value: float64(c), Label: strconv.Itoa(c)})
	}
	yTicks := make([]chart.Tick, 0, format.Rows)
	for i := format.Rows - 1; i >= 0; i-- {
		yTicks = append(yTicks, chart.Tick{Value: float64(format.Rows - i), Label: string(rune('A' + i))})
	}

	graph := chart.Chart{
		Title:  title,
		Width:  p.cfg.Width,
		Height: p.cfg.Height,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 10, Right: 10, Bottom: 10},
		},
		XAxis: chart.XAxis{
			Name:  "column",
			Range: &chart.ContinuousRange{Min: 0.5, Max: float64(format.Columns) + 0.5},
			Ticks: xTicks,
		},
		YAxis: chart.YAxis{
			Name:  "row",
			Range: &chart.ContinuousRange{Min: 0.5, Max: float64(format.Rows) + 0.5},
			Ticks: yTicks,
		},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name:    "OD600",
				XValues: x,
				YValues: y,
				Style:   heatStyle(od, 1, cellRadius(p.cfg.Width, p.cfg.Height, format.Columns, format.Rows)),
			},
		},
	}
	return graph, nil
}

// WritePlatePlots writes one plate figure per experiment, plate and passage,
// and per date as well when byDate is set. Files are named after the group.
func (p *Plotter) WritePlatePlots(ctx context.Context, readings []domain.Reading, format dataprocessing.PlateFormat, byDate bool) (int, error) {
	groups := make(map[string][]domain.Reading)
	for _, r := range readings {
		parts := []string{r.Experiment, r.Plate, r.Passage}
		if byDate {
			parts = append(parts, r.Date)
		}
		name := strings.Join(slices.DeleteFunc(parts, func(s string) bool { return s == "" }), "_")
		if name == "" {
			name = "plate"
		}
		groups[name] = append(groups[name], r)
	}

	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	slices.Sort(names)

	written := 0
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		graph, err := p.PlateChart(name, groups[name], format)
		if err != nil {
			p.logger.WarnContext(ctx, "skipping plate plot",
				slog.String("plate", name),
				slog.String("error", err.Error()))
			continue
		}
		p.logger.DebugContext(ctx, "plotting plate", slog.String("plate", name))
		if err := p.save(graph, name); err != nil {
			return written, err
		}
		written++
	}
	p.logger.InfoContext(ctx, "plate plots written",
		slog.String("output", p.cfg.Output),
		slog.Int("count", written))
	return written, nil
}

// heatStyle draws dots only, each colored by its value on a viridis scale
// from 0 to vmax.
func heatStyle(values []float64, vmax, radius float64) chart.Style {
	return chart.Style{
		StrokeWidth: chart.Disabled,
		DotWidth:    radius,
		DotColorProvider: func(_, _ chart.Range, index int, _, _ float64) drawing.Color {
			if index >= len(values) {
				return chart.ColorLightGray
			}
			return heatColor(values[index], vmax)
		},
	}
}

func heatColor(v, vmax float64) drawing.Color {
	if math.IsNaN(v) {
		return chart.ColorLightGray
	}
	return chart.Viridis(math.Max(0, math.Min(v, vmax)), 0, vmax)
}

// cellRadius sizes dots to fill most of a grid cell on the canvas.
func cellRadius(width, height, columns, rows int) float64 {
	cw := float64(width-100) / float64(max(columns, 1))
	ch := float64(height-100) / float64(max(rows, 1))
	return math.Max(1, 0.4*math.Min(cw, ch))
}
