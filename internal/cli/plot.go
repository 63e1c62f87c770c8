package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"platereader/internal/analysis"
	"platereader/internal/dataprocessing"
	"platereader/internal/exporter"
	"platereader/internal/plot"
	"platereader/internal/validation"
)

// splitOutputDir separates the readings tables from the trailing output
// directory and checks both.
func splitOutputDir(e *env, args []string) ([]string, string, error) {
	inputs, output := args[:len(args)-1], args[len(args)-1]
	files := validation.NewFileValidator(e.logger)
	if err := files.ValidateReadingFiles(inputs...); err != nil {
		return nil, "", err
	}
	if err := files.ValidateOutputDir(output); err != nil {
		return nil, "", err
	}
	return inputs, output, nil
}

func plotterFor(e *env, output string) *plot.Plotter {
	cfg := e.cfg.Plot
	cfg.Output = output
	return plot.NewPlotter(cfg, e.logger)
}

func newPlotPlateCmd(e *env) *cobra.Command {
	var p384, dateIsReplicate, mic bool

	cmd := &cobra.Command{
		Use:   "plot-plate DATA... OUTPUT",
		Short: "Draw the OD600 of every plate in plate layout",
		Long: `Draw one figure per experiment, plate and passage. MIC assays and
experiments whose date field names the replicate get one figure per date too.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			inputs, output, err := splitOutputDir(e, args)
			if err != nil {
				return err
			}
			readings, err := dataprocessing.ReadReadingFiles(inputs...)
			if err != nil {
				return err
			}

			format := dataprocessing.Plate96
			if p384 {
				format = dataprocessing.Plate384
			}
			n, err := plotterFor(e, output).WritePlatePlots(cmd.Context(), readings, format, dateIsReplicate || mic)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "wrote %d plots to %s\n", n, output)
			return nil
		},
	}

	cmd.Flags().BoolVar(&p384, "p384", false, "plates have 384 wells")
	cmd.Flags().BoolVar(&dateIsReplicate, "date-is-replicate", false, "the date field names the replicate")
	cmd.Flags().BoolVar(&mic, "mic", false, "readings come from an MIC assay")
	return cmd
}

func newPlotEvolCmd(e *env) *cobra.Command {
	var threshold float64

	cmd := &cobra.Command{
		Use:   "plot-evol DATA... OUTPUT",
		Short: "Draw every lineage across passages and when resistance first appeared",
		Long: `Draw the OD600 of every lineage and of every strain average across passages,
the passages at which each lineage was resistant and the first of them. A
lineage is resistant at a passage when it grew past --threshold there and at
the next passage. The first appearance table is written as appearance.tsv.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			inputs, output, err := splitOutputDir(e, args)
			if err != nil {
				return err
			}

			params := analysis.EvolutionParamsFromConfig(e.cfg.Evol)
			if cmd.Flags().Changed("threshold") {
				params.Threshold = threshold
			}

			readings, err := dataprocessing.ReadReadingFiles(inputs...)
			if err != nil {
				return err
			}
			report, err := analysis.NewEvolutionCalculator(params, e.logger).Calculate(ctx, readings)
			if err != nil {
				return err
			}

			table := filepath.Join(output, "appearance.tsv")
			if err := exporter.NewResultExporter(e.logger).ExportAppearance(table, report); err != nil {
				return err
			}
			n, err := plotterFor(e, output).WriteEvolutionPlots(ctx, report)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "wrote %d lineages to %s\n", len(report.Appearance), table)
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "wrote %d plots to %s\n", n, output)
			return nil
		},
	}

	cmd.Flags().Float64Var(&threshold, "threshold", 0, "OD600 at or above which a well grew (default from config)")
	return cmd
}
