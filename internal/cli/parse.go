package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"platereader/internal/dataprocessing"
	"platereader/internal/validation"
)

func newParseFolderCmd(e *env) *cobra.Command {
	var micKind, grateKind, p384 bool

	cmd := &cobra.Command{
		Use:   "parse-folder FOLDER DESIGN OUTPUT",
		Short: "Join a folder of plate reader exports with its plate design",
		Long: `Parse every PLATE_DATE_PASSAGE.xlsx export of an EXP_DATE_TYPE_XXXX folder,
label each well from the plate design workbook and write one TSV row per reading.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			folder, design, output := args[0], args[1], args[2]

			kind := dataprocessing.KindEvol
			switch {
			case micKind:
				kind = dataprocessing.KindMIC
			case grateKind:
				kind = dataprocessing.KindGrate
			}
			format := dataprocessing.Plate96
			if p384 {
				format = dataprocessing.Plate384
			}

			files := validation.NewFileValidator(e.logger)
			if _, err := files.ValidateExportFolder(folder); err != nil {
				return err
			}
			if err := files.ValidateWorkbook(design); err != nil {
				return err
			}
			if err := files.ValidateOutputPath(output); err != nil {
				return err
			}

			parser := dataprocessing.NewFolderParser(format, e.logger)
			readings, err := parser.Parse(cmd.Context(), folder, design, kind)
			if err != nil {
				return err
			}
			if err := dataprocessing.WriteReadingsFile(output, readings); err != nil {
				return err
			}

			e.logger.InfoContext(cmd.Context(), "readings written",
				slog.String("output", output),
				slog.Int("readings", len(readings)))
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "wrote %d readings to %s\n", len(readings), output)
			return nil
		},
	}

	cmd.Flags().BoolVar(&micKind, "mic", false, "folder holds a MIC experiment")
	cmd.Flags().BoolVar(&grateKind, "grate", false, "folder holds a growth rate experiment")
	cmd.Flags().BoolVar(&p384, "p384", false, "plates have 384 wells")
	cmd.MarkFlagsMutuallyExclusive("mic", "grate")
	return cmd
}
