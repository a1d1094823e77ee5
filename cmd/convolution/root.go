package main

import (
	"fmt"
	"log/slog"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/askiada/go-convolution/pkg/backend"
	_ "github.com/askiada/go-convolution/pkg/backend/cpu"
	"github.com/askiada/go-convolution/pkg/convolution"
	"github.com/askiada/go-convolution/pkg/filter"
)

type options struct {
	cfg     convolution.Config
	verbose bool
}

func bindFlags(fs *pflag.FlagSet, opts *options) {
	fs.StringVarP(&opts.cfg.InputFile, "input-file", "i", convolution.DefaultInputFile, "bitmap to filter")
	fs.StringVarP(&opts.cfg.OutputFile, "output-file", "o", convolution.DefaultOutputFile, "where to write the filtered bitmap")
	fs.StringArrayVarP(&opts.cfg.Filters, "filter", "f", nil, "filter to apply as name:arg1,arg2,... (repeatable, applied in order)")
	fs.StringVarP(&opts.cfg.Backend, "backend", "b", backend.DefaultName, "compute backend")
	fs.IntVarP(&opts.cfg.Workers, "workers", "w", 0, "maximum parallel work-groups, 0 for one per CPU")
	fs.StringVarP(&opts.cfg.GraphFile, "graph", "g", "", "write a DOT graph of the run to this file")
	fs.BoolVarP(&opts.verbose, "verbose", "v", false, "log debug messages")
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "convolution [flags] [input file]",
		Short: "Apply convolution filters to a bitmap",
		Long:  "Apply a chain of convolution filters to a bitmap.\n\n" + filter.Usage(),
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				opts.cfg.InputFile = args[0]
			}

			if len(opts.cfg.Filters) == 0 {
				_ = cmd.Usage()
				return convolution.ErrNoFilters
			}
			cmd.SilenceUsage = true

			return run(cmd, opts)
		},
	}

	bindFlags(cmd.Flags(), opts)

	return cmd
}

func run(cmd *cobra.Command, opts *options) error {
	level := slog.LevelInfo
	if opts.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	report, err := convolution.New(nil, convolution.WithLogger(logger)).Run(cmd.Context(), opts.cfg)
	if err != nil {
		return errors.Wrapf(err, "run ended in state %s", report.State)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s: %dx%d on %s\n", opts.cfg.OutputFile, report.Width, report.Height, report.Device)
	for _, st := range report.Stages {
		fmt.Fprintf(out, "  %-24s %3dx%-3d %8.3f ms\n", st.Filter, st.KernelSize, st.KernelSize, float64(st.Dispatch.Microseconds())/1000)
	}

	return nil
}
