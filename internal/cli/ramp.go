package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"platereader/internal/dataprocessing"
	"platereader/internal/validation"
)

func newParseRampCmd(e *env) *cobra.Command {
	var (
		prefix     string
		stock, mic float64
		p384       bool
	)

	cmd := &cobra.Command{
		Use:   "parse-ramp FOLDER DESIGN TREATMENT OUTPUT",
		Short: "Join a concentration ramp experiment with its design",
		Long: `Parse a ramp folder holding one En_STEP subfolder per passage (e.g. E1_0.125),
each with one export per replicate named DATE_STEP_PASSAGE_REPLICATE[_DATE].xlsx.
Kinetic exports contribute their last read. The design workbook lists the
strain, row and column of every well and, in a column named after TREATMENT,
--stock times the highest concentration of the ramp.`,
		Args: cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			folder, design, treatment, output := args[0], args[1], args[2], args[3]

			opts := dataprocessing.RampOptions{
				Format:    dataprocessing.Plate96,
				Treatment: treatment,
				Prefix:    prefix,
				Stock:     stock,
				MIC:       mic,
			}
			if p384 {
				opts.Format = dataprocessing.Plate384
			}

			files := validation.NewFileValidator(e.logger)
			if err := files.ValidateInputDir(folder); err != nil {
				return err
			}
			if err := files.ValidateWorkbook(design); err != nil {
				return err
			}
			if err := files.ValidateOutputPath(output); err != nil {
				return err
			}

			e.logger.InfoContext(cmd.Context(), "reading ramp design", slog.String("design", design))
			readings, err := dataprocessing.NewRampParser(opts, e.logger).Parse(cmd.Context(), folder, design)
			if err != nil {
				return err
			}
			if err := dataprocessing.WriteRampReadingsFile(output, readings); err != nil {
				return err
			}

			e.logger.InfoContext(cmd.Context(), "ramp readings written",
				slog.String("output", output),
				slog.Int("readings", len(readings)))
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "wrote %d readings to %s\n", len(readings), output)
			return nil
		},
	}

	cmd.Flags().StringVar(&prefix, "prefix", "", "prefix added to every strain")
	cmd.Flags().Float64Var(&stock, "stock", dataprocessing.DefaultRampStock,
		"factor dividing the design concentration to give the highest one used")
	cmd.Flags().Float64Var(&mic, "mic", dataprocessing.DefaultRampMIC,
		"how many times the ancestral MIC the highest concentration is")
	cmd.Flags().BoolVar(&p384, "p384", false, "plates have 384 wells")
	return cmd
}
