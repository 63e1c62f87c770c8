// Package plot renders analysis results and raw plate reads as PNG figures.
package plot

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"platereader/internal/analysis"
	"platereader/internal/config"
	apierrors "platereader/internal/errors"
)

var (
	colorData       = chart.ColorAlternateGray
	colorNormalized = chart.ColorBlue
	colorFit        = chart.ColorRed
	colorMIC        = chart.ColorGreen
	colorCMIC       = drawing.Color{R: 255, G: 165, B: 0, A: 255}
)

// Plotter writes one figure per analysed curve.
type Plotter struct {
	cfg    config.PlotConfig
	logger *slog.Logger
}

// NewPlotter creates a plotter writing to cfg.Output
func NewPlotter(cfg config.PlotConfig, logger *slog.Logger) *Plotter {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Width <= 0 {
		cfg.Width = 640
	}
	if cfg.Height <= 0 {
		cfg.Height = 480
	}
	if cfg.Output == "" {
		cfg.Output = "."
	}
	return &Plotter{cfg: cfg, logger: logger.With("component", "plotter")}
}

// WriteMICPlots writes <key>.png for every curve of the report. Curves
// that cannot be drawn are logged and skipped; the number written is returned.
func (p *Plotter) WriteMICPlots(ctx context.Context, report *analysis.MICReport, threshold float64) (int, error) {
	written := 0
	for _, row := range report.Rows {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		graph, err := p.MICChart(row, threshold)
		if err != nil {
			p.logger.WarnContext(ctx, "skipping MIC plot",
				slog.String("curve", row.Key.String()),
				slog.String("error", err.Error()))
			continue
		}
		if err := p.save(graph, row.Key.String()); err != nil {
			return written, err
		}
		written++
	}
	p.logger.InfoContext(ctx, "MIC plots written",
		slog.String("output", p.cfg.Output),
		slog.Int("count", written))
	return written, nil
}

// WriteGrowthPlots writes <key>.png for every well of the report.
func (p *Plotter) WriteGrowthPlots(ctx context.Context, report *analysis.GrowthReport) (int, error) {
	written := 0
	for _, row := range report.Rows {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		graph, err := p.GrowthChart(row)
		if err != nil {
			p.logger.WarnContext(ctx, "skipping growth plot",
				slog.String("well", row.Key.String()),
				slog.String("error", err.Error()))
			continue
		}
		if err := p.save(graph, row.Key.String()); err != nil {
			return written, err
		}
		written++
	}
	p.logger.InfoContext(ctx, "growth plots written",
		slog.String("output", p.cfg.Output),
		slog.Int("count", written))
	return written, nil
}

func (p *Plotter) save(graph chart.Chart, name string) error {
	if err := os.MkdirAll(p.cfg.Output, 0755); err != nil {
		return apierrors.NewStorageError("failed to create plot directory", err)
	}

	path := filepath.Join(p.cfg.Output, name+".png")
	f, err := os.Create(path)
	if err != nil {
		return apierrors.NewStorageError(fmt.Sprintf("failed to create %s", path), err)
	}
	defer f.Close()

	if err := graph.Render(chart.PNG, f); err != nil {
		return fmt.Errorf("failed to render %s: %w", path, err)
	}
	return f.Close()
}

// paddedRange spans values with a margin, never collapsing to zero width.
func paddedRange(values []float64, floorAtZero bool) *chart.ContinuousRange {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if math.IsInf(lo, 0) {
		return &chart.ContinuousRange{Min: 0, Max: 1}
	}
	if floorAtZero {
		lo = math.Min(lo, 0)
	}
	margin := 0.05 * (hi - lo)
	if margin == 0 {
		margin = math.Max(0.5*math.Abs(hi), 0.5)
	}
	return &chart.ContinuousRange{Min: lo - margin, Max: hi + margin}
}

func lineStyle(color drawing.Color, width float64) chart.Style {
	return chart.Style{StrokeColor: color, StrokeWidth: width}
}

func pointStyle(color drawing.Color) chart.Style {
	return chart.Style{
		StrokeWidth: chart.Disabled,
		DotWidth:    4,
		DotColor:    color,
	}
}

func dashedStyle(color drawing.Color) chart.Style {
	return chart.Style{
		StrokeColor:     color,
		StrokeWidth:     1.5,
		StrokeDashArray: []float64{5, 5},
	}
}
