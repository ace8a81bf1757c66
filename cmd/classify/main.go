// Command classify runs the activity status classification over a directory
// of status, activities and pairs tables.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"assaycore/internal/config"
	"assaycore/internal/logging"
	"assaycore/internal/pipeline"
)

var exitFunc = os.Exit

func main() {
	exitFunc(cli(os.Args[1:], os.Stdout, os.Stderr))
}

// usageError marks failures that exit with code 2.
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

func cli(args []string, stdout, stderr io.Writer) int {
	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	if err == nil {
		return 0
	}
	var uerr usageError
	if errors.As(err, &uerr) {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n%s", uerr.err, root.UsageString())
		return 2
	}
	_, _ = fmt.Fprintf(stderr, "classification failed: %v\n", err)
	return 1
}

type rootFlags struct {
	configPath string
	input      string
	output     string
	strict     bool
	sep        string
	logLevel   string
	printPlan  bool
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	var f rootFlags
	root := &cobra.Command{
		Use:   "classify",
		Short: "Classify activities, assays, documents, systems, test items and targets",
		Long: `classify reads status.csv, activities.csv and pairs.csv from the input
directory, assigns every activity a status, aggregates the worst status per
assay, document, system, test item and target, and writes each table with a
.meta.yaml sidecar.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return usageError{fmt.Errorf("unexpected argument %q", args[0])}
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if f.printPlan {
				_, err := fmt.Fprintln(stdout, pipeline.Plan())
				return err
			}
			return runClassify(cmd, f, stdout, stderr)
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError{err}
	})

	flags := root.Flags()
	flags.StringVar(&f.configPath, "config", "config.yaml", "path to the YAML configuration file")
	flags.StringVar(&f.input, "input", "", "input directory (overrides io.input_dir)")
	flags.StringVar(&f.output, "output", "", "output directory (overrides io.output_dir)")
	flags.BoolVar(&f.strict, "strict", true, "fail on missing activities/pairs columns")
	flags.StringVar(&f.sep, "sep", "", `CSV separator, one character or "tab"`)
	flags.StringVar(&f.logLevel, "log-level", "", "debug, info, warn or error")
	flags.BoolVar(&f.printPlan, "print-plan", false, "print the stage plan and exit")

	root.AddCommand(&cobra.Command{
		Use:   "plan",
		Short: "Print the stage plan",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			_, err := fmt.Fprintln(stdout, pipeline.Plan())
			return err
		},
	})
	return root
}

func overrides(cmd *cobra.Command, f rootFlags) config.Overrides {
	var o config.Overrides
	changed := cmd.Flags().Changed
	if changed("input") {
		o.InputDir = &f.input
	}
	if changed("output") {
		o.OutputDir = &f.output
	}
	if changed("sep") {
		o.Separator = &f.sep
	}
	if changed("strict") {
		o.Strict = &f.strict
	}
	if changed("log-level") {
		o.LogLevel = &f.logLevel
	}
	return o
}

func runClassify(cmd *cobra.Command, f rootFlags, stdout, stderr io.Writer) error {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return err
	}
	cfg.Apply(overrides(cmd, f))
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger, err := logging.NewWriter(cfg.Log.Level, cfg.Log.Format, stderr)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	report, err := pipeline.New(cfg, pipeline.WithLogger(logger)).Run(ctx)
	if err != nil {
		return err
	}
	for _, a := range report.Artifacts {
		logger.Debug("artifact", zap.String("key", a.Key), zap.Int("rows", a.Rows))
	}
	_, err = fmt.Fprintf(stdout, "run %s: wrote %d tables to %s\n", report.RunID, len(report.Artifacts), cfg.IO.OutputDir)
	return err
}
