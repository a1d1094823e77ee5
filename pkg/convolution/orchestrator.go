// Package convolution applies a chain of convolution filters to a bitmap.
//
// A run decodes the input file, then for every filter builds the halo
// buffer of the current pixels, dispatches the convolution kernel on a
// compute backend and collects its output as the input of the next filter.
// The last output is encoded with the original headers. Decoding, every
// filter and encoding are steps of a pipeline, so a run can be measured and
// drawn like any other pipeline.
package convolution

import (
	"context"
	"log/slog"
	"time"

	"github.com/pkg/errors"

	"github.com/askiada/go-convolution/pkg/backend"
	"github.com/askiada/go-convolution/pkg/bitmap"
	"github.com/askiada/go-convolution/pkg/pipeline"
	"github.com/askiada/go-convolution/pkg/pipeline/drawer"
	"github.com/askiada/go-convolution/pkg/pipeline/measure"
	"github.com/askiada/go-convolution/pkg/pipeline/model"
)

const (
	decodeStepName = "decode"
	encodeStepName = "encode"
)

// StageReport describes one applied filter.
type StageReport struct {
	Name       string
	Filter     string
	KernelSize int
	// Dispatch is the time spent in the backend dispatch call.
	Dispatch time.Duration
}

// Report describes a run.
type Report struct {
	State  State
	Device string
	Width  int
	Height int
	Stages []StageReport
}

// Orchestrator runs filter chains on a backend.
type Orchestrator struct {
	backend   backend.Backend
	logger    *slog.Logger
	measure   measure.Measure
	graphFile string
}

// New returns an orchestrator dispatching on b. When b is nil every run
// looks its backend up in the registry by Config.Backend.
func New(b backend.Backend, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		backend: b,
		logger:  Logger(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if b != nil {
		propagateLogger(b, o.logger)
	}

	return o
}

// resolveBackend returns the backend of the orchestrator, or the one named
// by cfg.Backend, with cfg.Workers applied.
func (o *Orchestrator) resolveBackend(cfg Config) (backend.Backend, error) {
	b := o.backend
	if b == nil {
		var err error
		if cfg.Backend == "" {
			b, err = backend.Default()
		} else {
			b, err = backend.Get(cfg.Backend)
		}
		if err != nil {
			return nil, err
		}
		propagateLogger(b, o.logger)
	}

	if cfg.Workers > 0 {
		if ws, ok := b.(workersSetter); ok {
			ws.SetWorkers(cfg.Workers)
		} else {
			o.logger.Warn("backend does not support a worker limit", "backend", b.Name(), "workers", cfg.Workers)
		}
	}

	return b, nil
}

func (o *Orchestrator) pipelineOptions(cfg Config) []model.PipelineOption {
	graphFile := o.graphFile
	if graphFile == "" {
		graphFile = cfg.GraphFile
	}

	m := o.measure
	if m == nil && graphFile != "" {
		m = measure.NewDefaultMeasure()
	}

	var opts []model.PipelineOption
	if m != nil {
		opts = append(opts, measure.PipelineMeasure(m))
	}
	if graphFile != "" {
		opts = append(opts, drawer.PipelineDrawer(drawer.NewDOTDrawer(graphFile), m))
	}

	return opts
}

// Run applies cfg.Filters to cfg.InputFile and writes the result to
// cfg.OutputFile. Filters are validated before any file or backend work. On
// error the report ends in state Failed and no output file is written.
func (o *Orchestrator) Run(ctx context.Context, cfg Config) (*Report, error) {
	report := &Report{}
	sm := newMachine(o.logger)
	defer func() {
		report.State = sm.current()
	}()

	err := cfg.Validate()
	if err != nil {
		sm.fail()
		return report, err
	}

	stages, err := plan(cfg.Filters)
	if err != nil {
		sm.fail()
		return report, err
	}

	err = o.run(ctx, cfg, stages, sm, report)
	if err != nil {
		sm.fail()
		return report, err
	}

	err = sm.advance(Done)
	if err != nil {
		sm.fail()
		return report, err
	}

	return report, nil
}

func (o *Orchestrator) run(ctx context.Context, cfg Config, stages []stage, sm *machine, report *Report) error {
	b, err := o.resolveBackend(cfg)
	if err != nil {
		return err
	}

	device, err := b.SelectDevice(ctx)
	if err != nil {
		return errors.Wrapf(err, "select device on backend %q", b.Name())
	}
	defer func() {
		if cerr := device.Close(); cerr != nil {
			o.logger.Warn("unable to close device", "device", device.Name(), "error", cerr)
		}
	}()
	report.Device = device.Name()

	pipe, err := pipeline.New(ctx, o.pipelineOptions(cfg)...)
	if err != nil {
		return err
	}

	decoded, err := pipeline.AddRootStep(pipe, decodeStepName, func(ctx context.Context, out chan<- *bitmap.Image) error {
		img, err := bitmap.DecodeFile(cfg.InputFile)
		if err != nil {
			return err
		}

		report.Width, report.Height = img.Pixels.Width, img.Pixels.Height
		o.logger.Info("image decoded",
			"file", cfg.InputFile,
			"width", img.Pixels.Width,
			"height", img.Pixels.Height,
			"format", img.Pixels.Format.String())

		err = sm.advance(Decoded)
		if err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case out <- img:
		}

		return nil
	})
	if err != nil {
		return err
	}

	current := decoded
	for _, st := range stages {
		st := st
		current, err = pipeline.AddStepOneToOne(pipe, st.name, current, func(ctx context.Context, img *bitmap.Image) (*bitmap.Image, error) {
			out, stageReport, err := o.apply(ctx, device, sm, st, img)
			if err != nil {
				return nil, err
			}
			report.Stages = append(report.Stages, stageReport)

			return out, nil
		})
		if err != nil {
			return err
		}
	}

	err = pipeline.AddSink(pipe, encodeStepName, current, func(_ context.Context, img *bitmap.Image) error {
		err := bitmap.EncodeFile(cfg.OutputFile, img)
		if err != nil {
			return err
		}
		o.logger.Info("image encoded", "file", cfg.OutputFile)

		return sm.advance(Encoded)
	})
	if err != nil {
		return err
	}

	return pipe.Run()
}
