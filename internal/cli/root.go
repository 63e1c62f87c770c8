package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"platereader/internal/config"
	"platereader/internal/infrastructure"
)

// LoggerFactory builds the command logger; console receives console output.
type LoggerFactory func(cfg config.LoggingConfig, console io.Writer) (*slog.Logger, error)

// Options configures the command tree. Zero fields take the process defaults.
type Options struct {
	Stdout    io.Writer
	Stderr    io.Writer
	NewLogger LoggerFactory
}

// env is what every subcommand runs with once the root has loaded it.
type env struct {
	cfg    *config.Config
	logger *slog.Logger
}

// Execute runs the command tree against os.Args.
func Execute(ctx context.Context) error {
	return NewRootCommand(Options{}).ExecuteContext(ctx)
}

// NewRootCommand builds the pre command tree.
func NewRootCommand(opts Options) *cobra.Command {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if opts.NewLogger == nil {
		opts.NewLogger = infrastructure.InitializeLogger
	}

	var (
		configPath string
		verbosity  int
		e          env
	)

	root := &cobra.Command{
		Use:           config.AppName,
		Short:         "Plate reader analysis: MIC and growth rate estimation",
		Version:       config.AppVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			cfg.Logging.Level = levelFor(cfg.Logging.Level, verbosity)

			logger, err := opts.NewLogger(cfg.Logging, cmd.ErrOrStderr())
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			e = env{cfg: cfg, logger: logger}
			cmd.SetContext(infrastructure.EnsureTraceID(cmd.Context()))
			return nil
		},
	}
	root.SetOut(opts.Stdout)
	root.SetErr(opts.Stderr)

	root.PersistentFlags().StringVar(&configPath, "config", "", "YAML configuration file")
	root.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "increase verbosity (-v info, -vv debug)")

	root.AddCommand(
		newParseFolderCmd(&e),
		newParseRampCmd(&e),
		newComputeMICCmd(&e),
		newComputeGrateCmd(&e),
		newPlotPlateCmd(&e),
		newPlotEvolCmd(&e),
		newServeCmd(&e),
		newVersionCmd(),
	)
	return root
}

// levelFor raises the configured level by one step per -v.
func levelFor(configured string, verbosity int) string {
	switch {
	case verbosity >= 2:
		return "debug"
	case verbosity == 1 && configured != "debug":
		return "info"
	}
	return configured
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		// The root pre-run loads configuration, which version does not need.
		PersistentPreRun: func(*cobra.Command, []string) {},
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", config.AppName, config.AppVersion)
			return nil
		},
	}
}
