package cli

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"platereader/internal/analysis"
	"platereader/internal/dataprocessing"
	"platereader/internal/exporter"
	"platereader/internal/infrastructure"
	"platereader/internal/plot"
	"platereader/internal/validation"
)

// plotFlags are shared by both compute commands.
type plotFlags struct {
	enabled bool
	output  string
}

func (f *plotFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.enabled, "plot", false, "write one PNG per curve")
	cmd.Flags().StringVar(&f.output, "plots-output", "", "directory for the PNGs (default from config)")
}

func (f *plotFlags) plotter(e *env) *plot.Plotter {
	cfg := e.cfg.Plot
	if f.output != "" {
		cfg.Output = f.output
	}
	return plot.NewPlotter(cfg, e.logger)
}

func (f *plotFlags) active(e *env) bool {
	return f.enabled || e.cfg.Plot.Enabled
}

// withMetrics runs fn with analysis metrics backed by the configured
// OpenTelemetry providers, flushing them afterwards.
func withMetrics(ctx context.Context, e *env, fn func(*analysis.Metrics) error) error {
	providers, err := infrastructure.InitializeOTel(e.cfg.OTel, nil, e.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}
	defer func() {
		if err := providers.Shutdown(context.WithoutCancel(ctx)); err != nil {
			e.logger.WarnContext(ctx, "failed to shut down OpenTelemetry", slog.String("error", err.Error()))
		}
	}()

	metrics, err := analysis.NewMetrics(providers.Meter)
	if err != nil {
		return fmt.Errorf("failed to create analysis metrics: %w", err)
	}
	return fn(metrics)
}

// splitOutput separates the input files from the trailing output path and
// checks both before any work starts.
func splitOutput(e *env, args []string) ([]string, string, error) {
	inputs, output := args[:len(args)-1], args[len(args)-1]
	files := validation.NewFileValidator(e.logger)
	if err := files.ValidateReadingFiles(inputs...); err != nil {
		return nil, "", err
	}
	if err := files.ValidateOutputPath(output); err != nil {
		return nil, "", err
	}
	return inputs, output, nil
}

func newComputeMICCmd(e *env) *cobra.Command {
	var (
		minimumOD, threshold float64
		stacked, skipFitting bool
		plots                plotFlags
	)

	cmd := &cobra.Command{
		Use:   "compute-mic DATA... OUTPUT",
		Short: "Estimate IC50 and MIC for every dose-response curve",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			inputs, output, err := splitOutput(e, args)
			if err != nil {
				return err
			}

			params := analysis.MICParamsFromConfig(e.cfg.MIC)
			flags := cmd.Flags()
			if flags.Changed("minimum-od") {
				params.MinimumOD = minimumOD
			}
			if flags.Changed("od-threshold") {
				params.ODThreshold = threshold
			}
			params.Stacked = params.Stacked || stacked
			params.SkipFitting = params.SkipFitting || skipFitting

			readings, err := dataprocessing.ReadReadingFiles(inputs...)
			if err != nil {
				return err
			}

			var report *analysis.MICReport
			err = withMetrics(ctx, e, func(metrics *analysis.Metrics) error {
				calc := analysis.NewMICCalculator(params, e.logger)
				calc.SetConfiguration(e.cfg.Workers, metrics)
				report, err = calc.Calculate(ctx, readings)
				return err
			})
			if err != nil {
				return err
			}

			if err := exporter.NewResultExporter(e.logger).ExportMIC(output, report); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "wrote %d curves to %s\n", len(report.Rows), output)

			if plots.active(e) {
				n, err := plots.plotter(e).WriteMICPlots(ctx, report, params.ODThreshold)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "wrote %d plots\n", n)
			}
			return nil
		},
	}

	cmd.Flags().Float64Var(&minimumOD, "minimum-od", 0, "quality gate OD range and normalization anchor")
	cmd.Flags().Float64Var(&threshold, "od-threshold", 0, "growth threshold of the classical MIC")
	cmd.Flags().BoolVar(&stacked, "stacked", false, "pool replicate plates into one curve")
	cmd.Flags().BoolVar(&skipFitting, "skip-fitting", false, "only compute the classical MIC")
	plots.register(cmd)
	return cmd
}

func newComputeGrateCmd(e *env) *cobra.Command {
	var (
		maximumOD  float64
		window     time.Duration
		topMu      int
		minPeriods int
		plots      plotFlags
	)

	cmd := &cobra.Command{
		Use:   "compute-grate DATA... OUTPUT",
		Short: "Estimate the growth rate of every well and its delta to the ancestor",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			inputs, output, err := splitOutput(e, args)
			if err != nil {
				return err
			}

			params := analysis.GrowthParamsFromConfig(e.cfg.Grate)
			flags := cmd.Flags()
			if flags.Changed("maximum-od") {
				params.MaximumOD = maximumOD
			}
			if flags.Changed("window") {
				params.Window = window
			}
			if flags.Changed("top-mu") {
				params.TopMu = topMu
			}
			if flags.Changed("min-periods") {
				params.MinPeriods = minPeriods
			}

			readings, err := dataprocessing.ReadReadingFiles(inputs...)
			if err != nil {
				return err
			}

			var report *analysis.GrowthReport
			err = withMetrics(ctx, e, func(metrics *analysis.Metrics) error {
				calc := analysis.NewGrowthCalculator(params, e.logger)
				calc.SetConfiguration(e.cfg.Workers, metrics)
				report, err = calc.Calculate(ctx, readings)
				return err
			})
			if err != nil {
				return err
			}

			if err := exporter.NewResultExporter(e.logger).ExportGrowth(output, report); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "wrote %d wells to %s\n", len(report.Rows), output)

			if plots.active(e) {
				n, err := plots.plotter(e).WriteGrowthPlots(ctx, report)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "wrote %d plots\n", n)
			}
			return nil
		},
	}

	cmd.Flags().Float64Var(&maximumOD, "maximum-od", 0, "drop readings at or above this OD")
	cmd.Flags().DurationVar(&window, "window", 0, "rolling window length")
	cmd.Flags().IntVar(&topMu, "top-mu", 0, "number of highest window rates averaged")
	cmd.Flags().IntVar(&minPeriods, "min-periods", 0, "readings a window needs for a rate")
	plots.register(cmd)
	return cmd
}
